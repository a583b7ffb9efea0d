// Package database maps bibliographic document metadata onto the flat
// prefixed term namespace of an index engine, and back.
//
// A Database owns the engine handle, allocates document ids, resolves
// unique-term lookups, and executes prefix-aware queries. Documents are
// pure in-memory term sets until synced.
package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/xapers/xapers/internal/engine"
	xerrors "github.com/xapers/xapers/internal/errors"
	"github.com/xapers/xapers/internal/extract"
	"github.com/xapers/xapers/internal/paths"
	"github.com/xapers/xapers/internal/schema"
)

// xapersDir is the hidden directory under the root holding the index.
const xapersDir = ".xapers"

// Options configures opening a Database.
type Options struct {
	// Backend selects the engine backend ("bleve" or "sqlite"; empty
	// means bleve).
	Backend string
	// Writable opens the database for writing and takes the writer lock.
	Writable bool
	// Create creates the root marker directory if absent. Only
	// meaningful together with Writable.
	Create bool
	// Extractor overrides the text extractor. Defaults to a cached
	// plain-text extractor.
	Extractor extract.Extractor
	// InMemory uses an ephemeral index, for tests.
	InMemory bool
}

// Database is an open xapers database.
type Database struct {
	root      string
	mode      engine.Mode
	idx       engine.Index
	reg       *schema.Registry
	extractor extract.Extractor

	mu            sync.Mutex
	lastAllocated uint64 // session-local docid high-water mark
}

// Open opens (or with opts.Create creates) the database rooted at root.
// The index lives under <root>/.xapers/ at a backend-appropriate location.
func Open(root string, opts Options) (*Database, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, xerrors.OpenFailed(root, err)
	}

	mode := engine.ReadOnly
	if opts.Writable {
		mode = engine.ReadWrite
	}

	indexPath := ""
	if !opts.InMemory {
		dir := filepath.Join(root, xapersDir)
		if opts.Create && opts.Writable {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, xerrors.OpenFailed(dir, err)
			}
		} else if _, err := os.Stat(dir); err != nil {
			return nil, xerrors.OpenFailed(dir, err)
		}
		indexPath = filepath.Join(dir, indexName(opts.Backend))
	}

	idx, err := engine.Open(opts.Backend, indexPath, mode)
	if err != nil {
		return nil, err
	}

	last, err := idx.LastID()
	if err != nil {
		_ = idx.Close()
		return nil, err
	}

	extractor := opts.Extractor
	if extractor == nil {
		extractor = extract.NewCachedExtractor(extract.NewTextExtractor(), 0)
	}

	return &Database{
		root:          root,
		mode:          mode,
		idx:           idx,
		reg:           schema.NewRegistry(),
		extractor:     extractor,
		lastAllocated: last,
	}, nil
}

// indexName returns the backend-native index location inside .xapers/.
func indexName(backend string) string {
	if backend == engine.BackendSQLite {
		return "index.db"
	}
	return "index.bleve"
}

// Close releases the engine handle and writer lock.
func (db *Database) Close() error {
	return db.idx.Close()
}

// Writable reports whether this handle holds the writer lock.
func (db *Database) Writable() bool {
	return db.mode == engine.ReadWrite
}

// Root returns the absolute database root.
func (db *Database) Root() string {
	return db.root
}

// Registry returns the prefix registry.
func (db *Database) Registry() *schema.Registry {
	return db.reg
}

// FindPrefix returns the term prefix for a field name.
func (db *Database) FindPrefix(name string) (string, error) {
	return db.reg.Prefix(name)
}

// mustPrefix resolves a compile-time field constant. Failing here means a
// field constant is missing from the registry, which is a programmer error.
func (db *Database) mustPrefix(name string) string {
	p, err := db.reg.Prefix(name)
	if err != nil {
		panic(fmt.Sprintf("field %q missing from registry", name))
	}
	return p
}

// generateDocID allocates the next document id. Ids are monotonic within a
// session and never reissued, even when the receiving Document is discarded
// without syncing. Across sessions the engine's persisted high-water mark
// is authoritative; id reuse after deletion is backend-dependent.
func (db *Database) generateDocID() (uint64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	last, err := db.idx.LastID()
	if err != nil {
		return 0, err
	}
	if last > db.lastAllocated {
		db.lastAllocated = last
	}
	db.lastAllocated++
	return db.lastAllocated, nil
}

// GetTerms enumerates the distinct values stored under a field across the
// whole index (every tag in use, every indexed path, ...). Cost is a scan
// of the matching part of the term dictionary, which is acceptable for the
// corpus sizes xapers targets.
func (db *Database) GetTerms(field string) ([]string, error) {
	prefix, err := db.FindPrefix(field)
	if err != nil {
		return nil, err
	}
	terms, err := db.idx.TermsWithPrefix(prefix)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, t[len(prefix):])
	}
	return out, nil
}

// Search evaluates a query string and returns a single-pass cursor over
// the ranked matches. "*" matches every document. limit == 0 returns all
// matches.
func (db *Database) Search(query string, limit int) (*Documents, error) {
	q := parseQuery(db.reg, db.idx.Analyze, query)
	ms, err := db.idx.Search(q, limit)
	if err != nil {
		return nil, err
	}
	return newDocuments(db, ms), nil
}

// Count returns the number of documents matching a query string. The count
// may be an estimate for very large result sets, depending on the backend.
func (db *Database) Count(query string) (uint64, error) {
	q := parseQuery(db.reg, db.idx.Analyze, query)
	ms, err := db.idx.Search(q, 0)
	if err != nil {
		return 0, err
	}
	return ms.Total, nil
}

// docForTerm resolves a supposedly-unique term to its document. More than
// one match is an integrity violation, not normal control flow.
func (db *Database) docForTerm(term string) (*Document, error) {
	ms, err := db.idx.Search(engine.TermQuery{Term: term}, 2)
	if err != nil {
		return nil, err
	}
	switch len(ms.Hits) {
	case 0:
		return nil, nil
	case 1:
		hit := ms.Hits[0]
		edoc, err := db.idx.GetDoc(hit.ID)
		if err != nil {
			return nil, err
		}
		if edoc == nil {
			return nil, nil
		}
		return docFromEngine(db, hit.ID, edoc, hit.Score), nil
	default:
		return nil, xerrors.AmbiguousMatch(term)
	}
}

// DocForDocID returns the document with the given id, or nil if absent.
func (db *Database) DocForDocID(docid uint64) (*Document, error) {
	term := db.mustPrefix(schema.FieldID) + strconv.FormatUint(docid, 10)
	return db.docForTerm(term)
}

// DocForPath returns the document holding the given path, or nil if
// absent. The path may be root-relative or absolute under the root.
func (db *Database) DocForPath(path string) (*Document, error) {
	rel, err := paths.Relative(db.root, path)
	if err != nil {
		return nil, err
	}
	return db.docForTerm(db.mustPrefix(schema.FieldFile) + rel)
}

// Metadata is the recognized initial metadata for AddDocument. Zero-valued
// fields are skipped.
type Metadata struct {
	Sources map[string]string
	URL     string
	Title   string
	Authors string
	Year    string
	Tags    []string
}

// AddDocument indexes the file at path with the given initial metadata and
// syncs the new document. Fails with a duplicate-document error when the
// path is already indexed, before any extraction work.
func (db *Database) AddDocument(path string, meta Metadata) (*Document, error) {
	existing, err := db.DocForPath(path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, xerrors.DuplicateDocument(path, existing.DocID())
	}

	doc, err := NewDocument(db)
	if err != nil {
		return nil, err
	}
	slog.Info("adding document", slog.Uint64("docid", doc.DocID()), slog.String("path", path))

	if err := doc.AddFile(path); err != nil {
		return nil, err
	}

	if meta.URL != "" {
		doc.SetURL(meta.URL)
	}
	if len(meta.Sources) > 0 {
		doc.AddSources(meta.Sources)
	}
	if meta.Title != "" {
		doc.SetTitle(meta.Title)
	}
	if meta.Authors != "" {
		doc.SetAuthors(meta.Authors)
	}
	if meta.Year != "" {
		doc.SetYear(meta.Year)
	}
	if len(meta.Tags) > 0 {
		doc.AddTags(meta.Tags)
	}

	if err := doc.Sync(); err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteDocument removes the document with the given id. The operation is
// unconditional; interactive confirmation belongs to the caller.
func (db *Database) DeleteDocument(docid uint64) error {
	slog.Info("deleting document", slog.Uint64("docid", docid))
	return db.idx.Delete(docid)
}

// ReplaceDocFile would swap the indexed file of an existing document.
// Unsupported: it must fail loudly rather than silently no-op.
func (db *Database) ReplaceDocFile(docid uint64, path string) error {
	return xerrors.NotImplemented("file replacement")
}
