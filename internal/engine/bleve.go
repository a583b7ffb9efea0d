package engine

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	bquery "github.com/blevesearch/bleve/v2/search/query"
	index "github.com/blevesearch/bleve_index_api"
	"github.com/gofrs/flock"

	xerrors "github.com/xapers/xapers/internal/errors"
)

const (
	// termsField holds the flat term set, keyword-analyzed so every term
	// is indexed exactly as written (prefix included).
	termsField = "terms"

	// dataField holds the opaque data blob, stored but never indexed.
	dataField = "data"

	// writerLockName is the lock file taken by writable handles, next to
	// the index directory.
	writerLockName = "writer.lock"
)

// lastIDKey is the index-internal key persisting the docid high-water mark.
var lastIDKey = []byte("last_docid")

// bleveIndex implements Index on a bleve index.
type bleveIndex struct {
	idx      bleve.Index
	mode     Mode
	lock     *flock.Flock
	analyzer analysis.Analyzer
}

func openBleve(path string, mode Mode) (Index, error) {
	b := &bleveIndex{mode: mode, analyzer: newStemAnalyzer()}

	if path == "" {
		idx, err := bleve.NewMemOnly(buildBleveMapping())
		if err != nil {
			return nil, xerrors.OpenFailed("(memory)", err)
		}
		b.idx = idx
		return b, nil
	}

	if mode == ReadWrite {
		lock, err := acquireWriterLock(filepath.Dir(path))
		if err != nil {
			return nil, err
		}
		b.lock = lock
	}

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		if mode != ReadWrite {
			return nil, xerrors.OpenFailed(path, err)
		}
		idx, err = bleve.New(path, buildBleveMapping())
	}
	if err != nil {
		b.releaseLock()
		if isLockContention(err) {
			return nil, xerrors.Busy(err)
		}
		return nil, xerrors.OpenFailed(path, err)
	}

	b.idx = idx
	return b, nil
}

// acquireWriterLock takes the exclusive writer lock for the index living in
// dir. A held lock surfaces as a retryable busy error, not a blocked call.
func acquireWriterLock(dir string) (*flock.Flock, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, xerrors.OpenFailed(dir, err)
	}
	lock := flock.New(filepath.Join(dir, writerLockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, xerrors.OpenFailed(lock.Path(), err)
	}
	if !ok {
		return nil, xerrors.Busy(nil)
	}
	return lock, nil
}

func buildBleveMapping() *mapping.IndexMappingImpl {
	terms := bleve.NewTextFieldMapping()
	terms.Analyzer = keyword.Name
	terms.Store = true
	terms.IncludeInAll = false
	terms.IncludeTermVectors = false

	data := bleve.NewTextFieldMapping()
	data.Index = false
	data.Store = true
	data.IncludeInAll = false

	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt(termsField, terms)
	doc.AddFieldMappingsAt(dataField, data)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// isLockContention classifies open failures caused by another process
// holding the backend's own file lock.
func isLockContention(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "temporarily unavailable") ||
		strings.Contains(s, "timeout") ||
		strings.Contains(s, "locked")
}

func (b *bleveIndex) releaseLock() {
	if b.lock != nil {
		_ = b.lock.Unlock()
		b.lock = nil
	}
}

func (b *bleveIndex) writable(op string) error {
	if b.mode != ReadWrite {
		return xerrors.ReadOnly(op)
	}
	return nil
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func (b *bleveIndex) Mode() Mode {
	return b.mode
}

func (b *bleveIndex) DocCount() (uint64, error) {
	return b.idx.DocCount()
}

func (b *bleveIndex) LastID() (uint64, error) {
	raw, err := b.idx.GetInternal(lastIDKey)
	if err != nil {
		return 0, xerrors.Wrap(xerrors.ErrCodeInternal, err)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, xerrors.Wrap(xerrors.ErrCodeInternal, err)
	}
	return id, nil
}

func (b *bleveIndex) GetDoc(id uint64) (*Doc, error) {
	stored, err := b.idx.Document(formatID(id))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrCodeInternal, err)
	}
	if stored == nil {
		return nil, nil
	}

	doc := NewDoc()
	stored.VisitFields(func(f index.Field) {
		switch f.Name() {
		case termsField:
			doc.AddTerm(string(f.Value()))
		case dataField:
			doc.SetData(string(f.Value()))
		}
	})
	return doc, nil
}

func (b *bleveIndex) Replace(id uint64, doc *Doc) error {
	if err := b.writable("replace"); err != nil {
		return err
	}

	payload := map[string]interface{}{
		termsField: doc.Terms(),
		dataField:  doc.Data(),
	}
	if err := b.idx.Index(formatID(id), payload); err != nil {
		return xerrors.Wrap(xerrors.ErrCodeInternal, err)
	}

	last, err := b.LastID()
	if err != nil {
		return err
	}
	if id > last {
		if err := b.idx.SetInternal(lastIDKey, []byte(formatID(id))); err != nil {
			return xerrors.Wrap(xerrors.ErrCodeInternal, err)
		}
	}
	return nil
}

func (b *bleveIndex) Delete(id uint64) error {
	if err := b.writable("delete"); err != nil {
		return err
	}
	if err := b.idx.Delete(formatID(id)); err != nil {
		return xerrors.Wrap(xerrors.ErrCodeInternal, err)
	}
	return nil
}

func (b *bleveIndex) TermsWithPrefix(prefix string) ([]string, error) {
	dict, err := b.idx.FieldDictPrefix(termsField, []byte(prefix))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrCodeInternal, err)
	}

	var candidates []string
	for {
		entry, err := dict.Next()
		if err != nil {
			_ = dict.Close()
			return nil, xerrors.Wrap(xerrors.ErrCodeInternal, err)
		}
		if entry == nil {
			break
		}
		candidates = append(candidates, entry.Term)
	}
	if err := dict.Close(); err != nil {
		return nil, xerrors.Wrap(xerrors.ErrCodeInternal, err)
	}

	// The field dictionary retains entries for terms of replaced and
	// deleted documents until their segments merge. Keep only terms some
	// live document still carries.
	var out []string
	for _, term := range candidates {
		live, err := b.termIsLive(term)
		if err != nil {
			return nil, err
		}
		if live {
			out = append(out, term)
		}
	}
	return out, nil
}

// termIsLive reports whether at least one live document carries term.
func (b *bleveIndex) termIsLive(term string) (bool, error) {
	tq := bquery.NewTermQuery(term)
	tq.SetField(termsField)
	res, err := b.idx.Search(bleve.NewSearchRequestOptions(tq, 1, 0, false))
	if err != nil {
		return false, xerrors.Wrap(xerrors.ErrCodeInternal, err)
	}
	return res.Total > 0, nil
}

func (b *bleveIndex) Search(q Query, limit int) (*MatchSet, error) {
	size := limit
	if size <= 0 {
		count, err := b.DocCount()
		if err != nil {
			return nil, err
		}
		size = int(count)
	}

	req := bleve.NewSearchRequestOptions(toBleveQuery(q), size, 0, false)
	res, err := b.idx.Search(req)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrCodeInternal, err)
	}

	ms := &MatchSet{Total: res.Total}
	for _, hit := range res.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.ErrCodeInternal, err)
		}
		ms.Hits = append(ms.Hits, Hit{ID: id, Score: hit.Score})
	}
	return ms, nil
}

func (b *bleveIndex) Analyze(text string) []string {
	return analyzeText(b.analyzer, text)
}

func (b *bleveIndex) Close() error {
	err := b.idx.Close()
	b.releaseLock()
	if err != nil {
		return xerrors.Wrap(xerrors.ErrCodeInternal, err)
	}
	return nil
}

func toBleveQuery(q Query) bquery.Query {
	switch t := q.(type) {
	case TermQuery:
		tq := bquery.NewTermQuery(t.Term)
		tq.SetField(termsField)
		return tq
	case AndQuery:
		if len(t.Subs) == 0 {
			return bquery.NewMatchNoneQuery()
		}
		subs := make([]bquery.Query, len(t.Subs))
		for i, s := range t.Subs {
			subs[i] = toBleveQuery(s)
		}
		return bquery.NewConjunctionQuery(subs)
	case OrQuery:
		if len(t.Subs) == 0 {
			return bquery.NewMatchNoneQuery()
		}
		subs := make([]bquery.Query, len(t.Subs))
		for i, s := range t.Subs {
			subs[i] = toBleveQuery(s)
		}
		return bquery.NewDisjunctionQuery(subs)
	case MatchAllQuery:
		return bquery.NewMatchAllQuery()
	default:
		return bquery.NewMatchNoneQuery()
	}
}
