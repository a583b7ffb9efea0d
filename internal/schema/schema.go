// Package schema defines the term-prefix taxonomy that maps bibliographic
// field names onto the flat term namespace of the index engine.
//
// Every logical field owns exactly one prefix. Boolean fields store exact,
// untokenized terms; probabilistic fields store stemmed tokens and are the
// only fields that participate in ranked free-text search.
package schema

import (
	"sort"
	"strings"

	xerrors "github.com/xapers/xapers/internal/errors"
)

// Kind classifies a field by how its terms are produced and queried.
type Kind int

const (
	// BooleanInternal is a system-managed exact-match field (file path,
	// mime type): its values are written by the system rather than by
	// metadata edits. Still queryable by exact value.
	BooleanInternal Kind = iota
	// BooleanExternal is a user-facing exact-match field (id, tag, year).
	BooleanExternal
	// Probabilistic is a stemmed, tokenized, ranked free-text field.
	Probabilistic
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case BooleanInternal:
		return "boolean-internal"
	case BooleanExternal:
		return "boolean-external"
	case Probabilistic:
		return "probabilistic"
	default:
		return "unknown"
	}
}

// Field describes one logical field: its canonical name, kind, and prefix.
type Field struct {
	Name   string
	Kind   Kind
	Prefix string
}

// Canonical field names.
const (
	FieldFile        = "file"
	FieldType        = "type"
	FieldURL         = "url"
	FieldID          = "id"
	FieldTag         = "tag"
	FieldSource      = "source"
	FieldFullTitle   = "fulltitle"
	FieldFullAuthors = "fullauthors"
	FieldYear        = "year"
	FieldTitle       = "title"
	FieldAuthor      = "author"
)

// Registry is the immutable prefix registry. It is constructed once at
// startup and passed to every component that maps fields to terms.
type Registry struct {
	fields  map[string]Field  // canonical name -> field
	aliases map[string]string // alias -> canonical name
}

// NewRegistry returns the xapers field taxonomy.
//
// Prefix assignments follow the Omega term-prefix conventions: single
// capital letters for core fields, "X"-prefixed uppercase words for
// user-defined ones. "subject" is an alias for "title" (same prefix, same
// terms), so prefix disjointness holds over canonical fields.
func NewRegistry() *Registry {
	fields := []Field{
		// system-managed boolean fields
		{Name: FieldFile, Kind: BooleanInternal, Prefix: "P"},
		{Name: FieldType, Kind: BooleanInternal, Prefix: "T"},
		{Name: FieldURL, Kind: BooleanInternal, Prefix: "U"},

		// user-facing exact-match fields
		{Name: FieldID, Kind: BooleanExternal, Prefix: "Q"},
		{Name: FieldTag, Kind: BooleanExternal, Prefix: "K"},
		{Name: FieldSource, Kind: BooleanExternal, Prefix: "XSOURCE:"},
		{Name: FieldFullTitle, Kind: BooleanExternal, Prefix: "XTITLE:"},
		{Name: FieldFullAuthors, Kind: BooleanExternal, Prefix: "XAUTHORS:"},
		{Name: FieldYear, Kind: BooleanExternal, Prefix: "Y"},

		// stemmed free-text fields
		{Name: FieldTitle, Kind: Probabilistic, Prefix: "S"},
		{Name: FieldAuthor, Kind: Probabilistic, Prefix: "A"},
	}

	m := make(map[string]Field, len(fields))
	for _, f := range fields {
		m[f.Name] = f
	}
	return &Registry{
		fields: m,
		aliases: map[string]string{
			"subject": FieldTitle,
		},
	}
}

// Field resolves a field name (or alias) to its descriptor.
// Unrecognized names fail with an unknown-field error.
func (r *Registry) Field(name string) (Field, error) {
	if canonical, ok := r.aliases[name]; ok {
		name = canonical
	}
	f, ok := r.fields[name]
	if !ok {
		return Field{}, xerrors.UnknownField(name)
	}
	return f, nil
}

// Prefix returns the term prefix for a field name.
func (r *Registry) Prefix(name string) (string, error) {
	f, err := r.Field(name)
	if err != nil {
		return "", err
	}
	return f.Prefix, nil
}

// Known reports whether name resolves to a field or alias.
func (r *Registry) Known(name string) bool {
	_, err := r.Field(name)
	return err == nil
}

// Fields returns all canonical fields in a stable name order.
func (r *Registry) Fields() []Field {
	out := make([]Field, 0, len(r.fields))
	for _, f := range r.fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SourcePrefix derives the dynamic per-source prefix holding that source's
// document id, e.g. SourcePrefix("doi") == "XDOI:".
//
// The derivation upcases the source name, so two sources differing only in
// case share a prefix. That collision is an accepted limitation; realistic
// source names (doi, arxiv, isbn) are already lowercase.
func (r *Registry) SourcePrefix(source string) string {
	return "X" + strings.ToUpper(source) + ":"
}
