// Package engine abstracts the full-text index backend behind the small set
// of primitives the database layer needs: a flat per-document term set, an
// opaque data blob, a persisted document-id high-water mark, prefix scans
// over the term dictionary, and ranked query evaluation.
//
// Two backends are provided: bleve (default) and SQLite. Backend selection
// follows the same pattern as choosing a BM25 backend in a search config.
package engine

import (
	"fmt"
	"sort"
	"strings"

	xerrors "github.com/xapers/xapers/internal/errors"
)

// Backend names accepted by Open.
const (
	BackendBleve  = "bleve"
	BackendSQLite = "sqlite"
)

// Mode selects read-only or writable access to an index.
type Mode int

const (
	// ReadOnly opens an existing index without taking the writer lock.
	ReadOnly Mode = iota
	// ReadWrite opens (creating if absent) and takes the writer lock.
	ReadWrite
)

// Doc is an engine-level document: a flat set of exact terms plus an opaque
// stored data blob. Terms carry their field prefixes already applied.
type Doc struct {
	terms map[string]struct{}
	data  string
}

// NewDoc returns an empty document.
func NewDoc() *Doc {
	return &Doc{terms: make(map[string]struct{})}
}

// AddTerm adds an exact term. Adding an existing term is a no-op, which is
// what makes multi-valued field accumulation idempotent.
func (d *Doc) AddTerm(term string) {
	d.terms[term] = struct{}{}
}

// RemoveTerm removes an exact term if present.
func (d *Doc) RemoveTerm(term string) {
	delete(d.terms, term)
}

// HasTerm reports whether the document carries term.
func (d *Doc) HasTerm(term string) bool {
	_, ok := d.terms[term]
	return ok
}

// Terms returns all terms in sorted order.
func (d *Doc) Terms() []string {
	out := make([]string, 0, len(d.terms))
	for t := range d.terms {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// TermsWithPrefix returns the document's terms starting with prefix,
// sorted, with the prefix still attached.
func (d *Doc) TermsWithPrefix(prefix string) []string {
	var out []string
	for t := range d.terms {
		if strings.HasPrefix(t, prefix) {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// SetData stores the opaque data blob. The blob is stored verbatim and
// never indexed as terms.
func (d *Doc) SetData(data string) {
	d.data = data
}

// Data returns the stored data blob.
func (d *Doc) Data() string {
	return d.data
}

// Hit is one entry of a match set: a document id and its relevance score.
type Hit struct {
	ID    uint64
	Score float64
}

// MatchSet is the ordered result of one query evaluation. Hits are sorted
// by descending relevance; the ordering is stable within one evaluation.
// Total is the (possibly estimated) number of matching documents.
type MatchSet struct {
	Hits  []Hit
	Total uint64
}

// Query is the engine query AST built by the database layer's
// prefix-aware parser.
type Query interface {
	String() string
}

// TermQuery matches documents carrying one exact term.
type TermQuery struct {
	Term string
}

func (q TermQuery) String() string { return fmt.Sprintf("term(%s)", q.Term) }

// AndQuery matches documents satisfying every subquery.
type AndQuery struct {
	Subs []Query
}

func (q AndQuery) String() string { return combine("and", q.Subs) }

// OrQuery matches documents satisfying any subquery.
type OrQuery struct {
	Subs []Query
}

func (q OrQuery) String() string { return combine("or", q.Subs) }

// MatchAllQuery matches every document.
type MatchAllQuery struct{}

func (q MatchAllQuery) String() string { return "all()" }

func combine(op string, subs []Query) string {
	parts := make([]string, len(subs))
	for i, s := range subs {
		parts[i] = s.String()
	}
	return op + "(" + strings.Join(parts, ", ") + ")"
}

// Index is the full-text index handle consumed by the database layer.
//
// Implementations serialize concurrent writers with a writer lock taken at
// open time; lock contention surfaces as a retryable busy error. All
// methods are safe for use from a single goroutine; the database layer does
// not introduce internal concurrency.
type Index interface {
	// Mode returns the open mode of this handle.
	Mode() Mode

	// DocCount returns the number of documents in the index.
	DocCount() (uint64, error)

	// LastID returns the persisted document-id high-water mark. Zero
	// means no document has ever been assigned an id.
	LastID() (uint64, error)

	// GetDoc returns the stored document for id, or nil if absent.
	GetDoc(id uint64) (*Doc, error)

	// Replace inserts doc under id, or replaces the existing document
	// wholesale. It advances the high-water mark when id exceeds it.
	Replace(id uint64, doc *Doc) error

	// Delete removes the document with id. Deleting an absent id is not
	// an error.
	Delete(id uint64) error

	// TermsWithPrefix enumerates the distinct terms in the whole index
	// that start with prefix, sorted, prefix still attached. Cost is
	// proportional to the matching portion of the term dictionary.
	TermsWithPrefix(prefix string) ([]string, error)

	// Search evaluates q and returns the ranked match set. limit == 0
	// means unbounded.
	Search(q Query, limit int) (*MatchSet, error)

	// Analyze tokenizes and stems free text, returning the terms the
	// engine would index for it.
	Analyze(text string) []string

	// Close releases the handle and the writer lock, if held.
	Close() error
}

// Open opens (or, in ReadWrite mode, creates) an index of the given backend
// at path. An empty path yields an ephemeral in-memory index for tests.
func Open(backend, path string, mode Mode) (Index, error) {
	switch backend {
	case BackendBleve, "":
		return openBleve(path, mode)
	case BackendSQLite:
		return openSQLite(path, mode)
	default:
		return nil, xerrors.New(xerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown index backend %q", backend), nil)
	}
}
