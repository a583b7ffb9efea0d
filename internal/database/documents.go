package database

import "github.com/xapers/xapers/internal/engine"

// Documents is a single-pass cursor over the ranked results of a search,
// in the style of bufio.Scanner: call Next until it returns false, read
// each document with Doc, then check Err.
//
// Documents are materialized lazily, one per Next call. A document deleted
// between the search and its materialization is skipped silently.
type Documents struct {
	db    *Database
	hits  []engine.Hit
	total uint64
	pos   int
	cur   *Document
	err   error
}

func newDocuments(db *Database, ms *engine.MatchSet) *Documents {
	return &Documents{db: db, hits: ms.Hits, total: ms.Total, pos: -1}
}

// Len returns the number of hits in this result page.
func (ds *Documents) Len() int {
	return len(ds.hits)
}

// Total returns the (possibly estimated) number of matches in the whole
// index, which can exceed Len when the search was limited.
func (ds *Documents) Total() uint64 {
	return ds.total
}

// Next advances to the next document. It returns false when the results
// are exhausted or materialization failed.
func (ds *Documents) Next() bool {
	if ds.err != nil {
		return false
	}
	for {
		ds.pos++
		if ds.pos >= len(ds.hits) {
			ds.cur = nil
			return false
		}
		hit := ds.hits[ds.pos]
		edoc, err := ds.db.idx.GetDoc(hit.ID)
		if err != nil {
			ds.err = err
			ds.cur = nil
			return false
		}
		if edoc == nil {
			continue
		}
		ds.cur = docFromEngine(ds.db, hit.ID, edoc, hit.Score)
		return true
	}
}

// Doc returns the document produced by the last successful Next.
func (ds *Documents) Doc() *Document {
	return ds.cur
}

// Err returns the first error hit while iterating.
func (ds *Documents) Err() error {
	return ds.err
}
