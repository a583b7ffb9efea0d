package database

import (
	"strings"
	"unicode"

	"github.com/xapers/xapers/internal/engine"
	"github.com/xapers/xapers/internal/schema"
)

// parseQuery builds the engine query for a user query string.
//
// Grammar: whitespace-separated clauses combined with AND. A clause is
// either field:value (double quotes allowed around the value) or free
// text. Boolean fields become exact prefixed term matches; probabilistic
// fields and free text are stemmed, with probabilistic tokens carrying
// the field prefix. "*" matches everything; an empty query matches
// nothing. Unknown field names are treated as free text, so a stray colon
// never makes a query fail.
func parseQuery(reg *schema.Registry, analyze func(string) []string, query string) engine.Query {
	query = strings.TrimSpace(query)
	if query == "*" {
		return engine.MatchAllQuery{}
	}

	var clauses []engine.Query
	for _, tok := range splitQuery(query) {
		if q := parseClause(reg, analyze, tok); q != nil {
			clauses = append(clauses, q)
		}
	}

	switch len(clauses) {
	case 0:
		// matches nothing
		return engine.AndQuery{}
	case 1:
		return clauses[0]
	default:
		return engine.AndQuery{Subs: clauses}
	}
}

func parseClause(reg *schema.Registry, analyze func(string) []string, tok string) engine.Query {
	if name, value, ok := strings.Cut(tok, ":"); ok && name != "" {
		if field, err := reg.Field(name); err == nil {
			switch field.Kind {
			case schema.BooleanInternal, schema.BooleanExternal:
				return engine.TermQuery{Term: field.Prefix + value}
			case schema.Probabilistic:
				return textQuery(analyze, field.Prefix, value)
			}
		}
	}
	return textQuery(analyze, "", tok)
}

// textQuery ANDs the stemmed tokens of free text, prefixed when scoped to
// a field.
func textQuery(analyze func(string) []string, prefix, text string) engine.Query {
	toks := analyze(text)
	if len(toks) == 0 {
		return nil
	}
	subs := make([]engine.Query, 0, len(toks))
	for _, t := range toks {
		subs = append(subs, engine.TermQuery{Term: prefix + t})
	}
	if len(subs) == 1 {
		return subs[0]
	}
	return engine.AndQuery{Subs: subs}
}

// splitQuery splits on whitespace outside double quotes and drops the
// quotes, so tag:"to read" arrives as one clause.
func splitQuery(s string) []string {
	var (
		out      []string
		cur      strings.Builder
		inQuotes bool
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case unicode.IsSpace(r) && !inQuotes:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}
