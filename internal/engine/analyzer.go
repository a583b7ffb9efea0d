package engine

import (
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// newStemAnalyzer builds the analyzer shared by both backends: unicode
// word segmentation, lowercasing, and Porter stemming. Query text and
// indexed text go through the same pipeline, so stemmed terms line up.
func newStemAnalyzer() analysis.Analyzer {
	return &analysis.DefaultAnalyzer{
		Tokenizer: unicode.NewUnicodeTokenizer(),
		TokenFilters: []analysis.TokenFilter{
			lowercase.NewLowerCaseFilter(),
			porter.NewPorterStemmer(),
		},
	}
}

// analyzeText runs text through a and returns the resulting terms in
// stream order. Duplicates are kept; the flat term set collapses them.
func analyzeText(a analysis.Analyzer, text string) []string {
	stream := a.Analyze([]byte(text))
	out := make([]string, 0, len(stream))
	for _, tok := range stream {
		out = append(out, string(tok.Term))
	}
	return out
}
