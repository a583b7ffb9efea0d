package database

import (
	"strconv"
	"unicode/utf8"

	"github.com/xapers/xapers/internal/engine"
	xerrors "github.com/xapers/xapers/internal/errors"
	"github.com/xapers/xapers/internal/extract"
	"github.com/xapers/xapers/internal/paths"
	"github.com/xapers/xapers/internal/schema"
)

const (
	// dataSummaryLen is how many characters of extracted text survive into
	// the stored data blob.
	dataSummaryLen = 997

	// maxValueTermBytes caps the value stored under the fullauthors prefix.
	// Engines bound individual term length; a long author list must not
	// make the whole document unwritable.
	maxValueTermBytes = 240
)

// Document is one bibliographic record: a set of prefixed terms plus a
// stored text summary, held in memory and written back wholesale by Sync.
type Document struct {
	db    *Database
	id    uint64
	doc   *engine.Doc
	score float64
}

// NewDocument allocates a fresh document with a new id. The id is burned
// even if the document is never synced.
func NewDocument(db *Database) (*Document, error) {
	id, err := db.generateDocID()
	if err != nil {
		return nil, err
	}
	d := &Document{db: db, id: id, doc: engine.NewDoc()}
	d.addTerm(schema.FieldID, strconv.FormatUint(id, 10))
	return d, nil
}

// docFromEngine wraps a document materialized from the index.
func docFromEngine(db *Database, id uint64, edoc *engine.Doc, score float64) *Document {
	return &Document{db: db, id: id, doc: edoc, score: score}
}

// DocID returns the document id.
func (d *Document) DocID() uint64 {
	return d.id
}

// Score returns the relevance score from the search that produced this
// document, or zero for direct lookups.
func (d *Document) Score() float64 {
	return d.score
}

// Sync writes the document to the index, replacing any previous version
// wholesale.
func (d *Document) Sync() error {
	return d.db.idx.Replace(d.id, d.doc)
}

// addTerm adds one exact term under a field's prefix.
func (d *Document) addTerm(field, value string) {
	d.doc.AddTerm(d.db.mustPrefix(field) + value)
}

// removeTerm removes one exact term under a field's prefix.
func (d *Document) removeTerm(field, value string) {
	d.doc.RemoveTerm(d.db.mustPrefix(field) + value)
}

// values returns the values stored under a field, sorted, prefixes
// stripped.
func (d *Document) values(field string) []string {
	return d.valuesForPrefix(d.db.mustPrefix(field))
}

func (d *Document) valuesForPrefix(prefix string) []string {
	terms := d.doc.TermsWithPrefix(prefix)
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, t[len(prefix):])
	}
	return out
}

// single returns the value of a single-valued field, or "" when unset.
func (d *Document) single(field string) string {
	vals := d.values(field)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// setSingle enforces the single-valued replace law: remove every existing
// term under the field, then add the new value.
func (d *Document) setSingle(field, value string) {
	prefix := d.db.mustPrefix(field)
	for _, t := range d.doc.TermsWithPrefix(prefix) {
		d.doc.RemoveTerm(t)
	}
	d.doc.AddTerm(prefix + value)
}

// genTerms indexes free text: each stemmed token is added bare (for global
// free-text search) and, when prefix is non-empty, under the prefix (for
// field-scoped search).
func (d *Document) genTerms(prefix, text string) {
	for _, tok := range d.db.idx.Analyze(text) {
		d.doc.AddTerm(tok)
		if prefix != "" {
			d.doc.AddTerm(prefix + tok)
		}
	}
}

// AddFile indexes the file at path into this document: full text as search
// terms, a summary as the stored data blob, and the root-relative path as
// an exact term. The duplicate check runs before any extraction work.
func (d *Document) AddFile(path string) error {
	rel, err := paths.Relative(d.db.root, path)
	if err != nil {
		return err
	}

	existing, err := d.db.DocForPath(rel)
	if err != nil {
		return err
	}
	if existing != nil {
		return xerrors.DuplicateDocument(path, existing.DocID())
	}

	text, err := d.db.extractor.Extract(paths.Full(d.db.root, rel))
	if err != nil {
		return err
	}

	d.genTerms("", text)
	d.doc.SetData(extract.Summarize(text, dataSummaryLen))
	d.addTerm(schema.FieldFile, rel)
	return nil
}

// AddPath records a root-relative path term without touching file content.
func (d *Document) AddPath(path string) error {
	rel, err := paths.Relative(d.db.root, path)
	if err != nil {
		return err
	}
	d.addTerm(schema.FieldFile, rel)
	return nil
}

// GetPaths returns the document's root-relative paths.
func (d *Document) GetPaths() []string {
	return d.values(schema.FieldFile)
}

// GetFullPaths returns the document's paths joined back onto the root.
func (d *Document) GetFullPaths() []string {
	rels := d.GetPaths()
	out := make([]string, 0, len(rels))
	for _, rel := range rels {
		out = append(out, paths.Full(d.db.root, rel))
	}
	return out
}

// GetData returns the stored text summary.
func (d *Document) GetData() string {
	return d.doc.Data()
}

// AddSource records a source entry as its two halves: membership in the
// source (under the source field) and the id within it (under the dynamic
// per-source prefix). Re-adding the same pair is a no-op.
func (d *Document) AddSource(source, sid string) {
	d.addTerm(schema.FieldSource, source)
	d.doc.AddTerm(d.db.reg.SourcePrefix(source) + sid)
}

// AddSources records several source entries.
func (d *Document) AddSources(sources map[string]string) {
	for source, sid := range sources {
		d.AddSource(source, sid)
	}
}

// GetSourceID returns the document's id within one source, or "" when the
// document has no entry for it.
func (d *Document) GetSourceID(source string) string {
	vals := d.valuesForPrefix(d.db.reg.SourcePrefix(source))
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// GetSources returns every source entry as source name -> source id.
func (d *Document) GetSources() map[string]string {
	out := make(map[string]string)
	for _, source := range d.values(schema.FieldSource) {
		out[source] = d.GetSourceID(source)
	}
	return out
}

// RemoveSource removes both halves of a source entry. Removing an absent
// source is a no-op.
func (d *Document) RemoveSource(source string) {
	prefix := d.db.reg.SourcePrefix(source)
	for _, t := range d.doc.TermsWithPrefix(prefix) {
		d.doc.RemoveTerm(t)
	}
	d.removeTerm(schema.FieldSource, source)
}

// AddTags adds tag terms. Tags accumulate; duplicates are no-ops.
func (d *Document) AddTags(tags []string) {
	for _, tag := range tags {
		d.addTerm(schema.FieldTag, tag)
	}
}

// RemoveTags removes tag terms. Absent tags are no-ops.
func (d *Document) RemoveTags(tags []string) {
	for _, tag := range tags {
		d.removeTerm(schema.FieldTag, tag)
	}
}

// GetTags returns the document's tags, sorted.
func (d *Document) GetTags() []string {
	return d.values(schema.FieldTag)
}

// SetURL replaces the document's URL.
func (d *Document) SetURL(url string) {
	d.setSingle(schema.FieldURL, url)
}

// GetURL returns the document's URL, or "".
func (d *Document) GetURL() string {
	return d.single(schema.FieldURL)
}

// SetYear replaces the publication year.
func (d *Document) SetYear(year string) {
	d.setSingle(schema.FieldYear, year)
}

// GetYear returns the publication year, or "".
func (d *Document) GetYear() string {
	return d.single(schema.FieldYear)
}

// SetTitle replaces the title: the previous title's field-scoped stemmed
// terms and verbatim term are dropped, then both are regenerated from the
// new text. Bare stemmed tokens from the old title are shared with the
// file text and other fields, so they are left in place.
func (d *Document) SetTitle(title string) {
	d.replaceText(schema.FieldTitle, schema.FieldFullTitle, title)
}

// GetTitle returns the verbatim title, or "".
func (d *Document) GetTitle() string {
	return d.single(schema.FieldFullTitle)
}

// SetAuthors replaces the author list, mirroring SetTitle.
func (d *Document) SetAuthors(authors string) {
	d.replaceText(schema.FieldAuthor, schema.FieldFullAuthors, authors)
}

// GetAuthors returns the verbatim author list, or "". A list longer than
// the term length cap comes back truncated.
func (d *Document) GetAuthors() string {
	return d.single(schema.FieldFullAuthors)
}

// replaceText implements the tokenized-field replace law: drop the old
// field-scoped stemmed terms and the old verbatim term, regenerate both
// from text.
func (d *Document) replaceText(stemField, verbatimField, text string) {
	prefix := d.db.mustPrefix(stemField)
	for _, t := range d.doc.TermsWithPrefix(prefix) {
		d.doc.RemoveTerm(t)
	}
	d.genTerms(prefix, text)
	d.setSingle(verbatimField, truncateBytes(text, maxValueTermBytes))
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
