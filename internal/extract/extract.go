// Package extract turns document files into plain text for indexing.
//
// The extraction format itself is out of scope for the index core: the only
// contract is a full file path in and a single text string out. PDF or
// bibtex parsing would slot in as alternative Extractor implementations.
package extract

import (
	"os"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	xerrors "github.com/xapers/xapers/internal/errors"
)

// Extractor produces the full plain-text content of a file.
type Extractor interface {
	Extract(path string) (string, error)
}

// TextExtractor reads a file verbatim as UTF-8 text.
type TextExtractor struct{}

// NewTextExtractor returns a plain-text extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract implements Extractor.
func (e *TextExtractor) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", xerrors.ExtractionFailed(path, err)
	}
	return string(data), nil
}

// DefaultCacheSize is the default number of extracted texts to keep.
const DefaultCacheSize = 128

// CachedExtractor wraps an Extractor with LRU caching keyed by path, size,
// and modification time, so re-importing an unchanged file skips the read.
type CachedExtractor struct {
	inner Extractor
	cache *lru.Cache[string, string]
}

// NewCachedExtractor wraps inner with an LRU cache of the given size.
func NewCachedExtractor(inner Extractor, size int) *CachedExtractor {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, string](size)
	return &CachedExtractor{inner: inner, cache: cache}
}

// cacheKey builds a key that changes whenever the file changes.
func cacheKey(path string, info os.FileInfo) string {
	return path + "\x00" + strconv.FormatInt(info.Size(), 10) +
		"\x00" + strconv.FormatInt(info.ModTime().UnixNano(), 10)
}

// Extract implements Extractor.
func (c *CachedExtractor) Extract(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", xerrors.ExtractionFailed(path, err)
	}

	key := cacheKey(path, info)
	if text, ok := c.cache.Get(key); ok {
		return text, nil
	}

	text, err := c.inner.Extract(path)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, text)
	return text, nil
}

// Summarize produces the stored data blob for extracted text: the first
// maxLen characters with newlines stripped, with "..." appended when the
// text was truncated.
func Summarize(text string, maxLen int) string {
	runes := []rune(text)
	truncated := false
	if len(runes) > maxLen {
		runes = runes[:maxLen]
		truncated = true
	}

	out := make([]rune, 0, len(runes))
	for _, r := range runes {
		if r == '\n' || r == '\r' {
			continue
		}
		out = append(out, r)
	}
	if truncated {
		return string(out) + "..."
	}
	return string(out)
}

// Verify interface implementations at compile time
var (
	_ Extractor = (*TextExtractor)(nil)
	_ Extractor = (*CachedExtractor)(nil)
)
