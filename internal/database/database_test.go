package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xapers/xapers/internal/engine"
	xerrors "github.com/xapers/xapers/internal/errors"
	"github.com/xapers/xapers/internal/schema"
)

var testBackends = []string{engine.BackendBleve, engine.BackendSQLite}

// openTestDB opens a writable in-memory database over a temp root.
func openTestDB(t *testing.T, backend string) *Database {
	t.Helper()
	db, err := Open(t.TempDir(), Options{
		Backend:  backend,
		Writable: true,
		InMemory: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// writeFile drops a file under the database root and returns its
// root-relative path.
func writeFile(t *testing.T, db *Database, rel, content string) string {
	t.Helper()
	full := filepath.Join(db.Root(), rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	return rel
}

func TestAddDocument_RoundTrip(t *testing.T) {
	for _, backend := range testBackends {
		t.Run(backend, func(t *testing.T) {
			db := openTestDB(t, backend)
			rel := writeFile(t, db, "2021/quantum.txt", "Entanglement and measurement in quantum systems")

			doc, err := db.AddDocument(rel, Metadata{
				Sources: map[string]string{"doi": "10.1000/xyz123"},
				URL:     "https://example.org/quantum",
				Title:   "Quantum Measurement",
				Authors: "Alice Smith and Bob Jones",
				Year:    "2021",
				Tags:    []string{"physics", "to-read"},
			})
			require.NoError(t, err)

			got, err := db.DocForDocID(doc.DocID())
			require.NoError(t, err)
			require.NotNil(t, got)

			assert.Equal(t, "Quantum Measurement", got.GetTitle())
			assert.Equal(t, "Alice Smith and Bob Jones", got.GetAuthors())
			assert.Equal(t, "2021", got.GetYear())
			assert.Equal(t, "https://example.org/quantum", got.GetURL())
			assert.Equal(t, []string{"physics", "to-read"}, got.GetTags())
			assert.Equal(t, map[string]string{"doi": "10.1000/xyz123"}, got.GetSources())
			assert.Equal(t, []string{rel}, got.GetPaths())
			assert.Equal(t, []string{filepath.Join(db.Root(), rel)}, got.GetFullPaths())
			assert.Contains(t, got.GetData(), "Entanglement")
		})
	}
}

func TestAddDocument_DuplicatePathRejectedWithDocID(t *testing.T) {
	for _, backend := range testBackends {
		t.Run(backend, func(t *testing.T) {
			db := openTestDB(t, backend)
			rel := writeFile(t, db, "paper.txt", "some text")

			first, err := db.AddDocument(rel, Metadata{})
			require.NoError(t, err)

			_, err = db.AddDocument(rel, Metadata{})
			require.Error(t, err)
			assert.Equal(t, xerrors.ErrCodeDuplicateDocument, xerrors.GetCode(err))

			docid, ok := xerrors.DuplicateDocID(err)
			require.True(t, ok)
			assert.Equal(t, first.DocID(), docid)

			// the failed add must leave no trace
			n, err := db.Count("*")
			require.NoError(t, err)
			assert.Equal(t, uint64(1), n)
		})
	}
}

func TestAddDocument_PathOutsideRootRejected(t *testing.T) {
	db := openTestDB(t, engine.BackendBleve)

	_, err := db.AddDocument("/etc/passwd", Metadata{})
	require.Error(t, err)
	assert.Equal(t, xerrors.ErrCodeIllegalImportPath, xerrors.GetCode(err))
}

func TestDocForPath_RelativeAndAbsoluteAgree(t *testing.T) {
	for _, backend := range testBackends {
		t.Run(backend, func(t *testing.T) {
			db := openTestDB(t, backend)
			rel := writeFile(t, db, "dir/paper.txt", "text")

			doc, err := db.AddDocument(rel, Metadata{})
			require.NoError(t, err)

			byRel, err := db.DocForPath(rel)
			require.NoError(t, err)
			require.NotNil(t, byRel)

			byAbs, err := db.DocForPath(filepath.Join(db.Root(), rel))
			require.NoError(t, err)
			require.NotNil(t, byAbs)

			assert.Equal(t, doc.DocID(), byRel.DocID())
			assert.Equal(t, doc.DocID(), byAbs.DocID())
		})
	}
}

func TestDocForDocID_AbsentIsNil(t *testing.T) {
	db := openTestDB(t, engine.BackendBleve)

	doc, err := db.DocForDocID(42)
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestDocForTerm_AmbiguousMatchFails(t *testing.T) {
	for _, backend := range testBackends {
		t.Run(backend, func(t *testing.T) {
			db := openTestDB(t, backend)

			for i := 0; i < 2; i++ {
				doc, err := NewDocument(db)
				require.NoError(t, err)
				doc.AddTags([]string{"shared"})
				require.NoError(t, doc.Sync())
			}

			term := db.mustPrefix(schema.FieldTag) + "shared"
			_, err := db.docForTerm(term)
			require.Error(t, err)
			assert.Equal(t, xerrors.ErrCodeAmbiguousMatch, xerrors.GetCode(err))
		})
	}
}

func TestGenerateDocID_MonotonicAcrossDiscards(t *testing.T) {
	for _, backend := range testBackends {
		t.Run(backend, func(t *testing.T) {
			db := openTestDB(t, backend)

			discarded, err := NewDocument(db)
			require.NoError(t, err)

			kept, err := NewDocument(db)
			require.NoError(t, err)
			require.NoError(t, kept.Sync())

			// the discarded document's id is burned, never reissued
			assert.Equal(t, discarded.DocID()+1, kept.DocID())

			next, err := NewDocument(db)
			require.NoError(t, err)
			assert.Equal(t, kept.DocID()+1, next.DocID())
		})
	}
}

func TestSingleValuedFields_ReplaceNotAccumulate(t *testing.T) {
	for _, backend := range testBackends {
		t.Run(backend, func(t *testing.T) {
			db := openTestDB(t, backend)

			doc, err := NewDocument(db)
			require.NoError(t, err)

			doc.SetYear("2019")
			doc.SetYear("2021")
			assert.Equal(t, "2021", doc.GetYear())

			doc.SetURL("https://a.example")
			doc.SetURL("https://b.example")
			assert.Equal(t, "https://b.example", doc.GetURL())

			require.NoError(t, doc.Sync())

			// exactly one year term survives in the index
			years, err := db.GetTerms(schema.FieldYear)
			require.NoError(t, err)
			assert.Equal(t, []string{"2021"}, years)
		})
	}
}

func TestTags_AccumulateIdempotently(t *testing.T) {
	db := openTestDB(t, engine.BackendBleve)

	doc, err := NewDocument(db)
	require.NoError(t, err)

	doc.AddTags([]string{"physics", "new"})
	doc.AddTags([]string{"physics"})
	assert.Equal(t, []string{"new", "physics"}, doc.GetTags())

	doc.RemoveTags([]string{"new", "absent"})
	assert.Equal(t, []string{"physics"}, doc.GetTags())
}

func TestSources_RemoveDropsBothHalves(t *testing.T) {
	for _, backend := range testBackends {
		t.Run(backend, func(t *testing.T) {
			db := openTestDB(t, backend)

			doc, err := NewDocument(db)
			require.NoError(t, err)

			doc.AddSource("doi", "10.1000/abc")
			doc.AddSource("arxiv", "2101.00001")
			assert.Equal(t, "10.1000/abc", doc.GetSourceID("doi"))

			doc.RemoveSource("doi")
			assert.Equal(t, "", doc.GetSourceID("doi"))
			assert.Equal(t, map[string]string{"arxiv": "2101.00001"}, doc.GetSources())
			require.NoError(t, doc.Sync())

			// removal must be visible through search too
			n, err := db.Count("source:doi")
			require.NoError(t, err)
			assert.Zero(t, n)

			n, err = db.Count("source:arxiv")
			require.NoError(t, err)
			assert.Equal(t, uint64(1), n)
		})
	}
}

func TestSetTitle_ReplacesScopedTerms(t *testing.T) {
	for _, backend := range testBackends {
		t.Run(backend, func(t *testing.T) {
			db := openTestDB(t, backend)

			doc, err := NewDocument(db)
			require.NoError(t, err)
			doc.SetTitle("Gravitational Waves")
			require.NoError(t, doc.Sync())

			n, err := db.Count("title:gravitational")
			require.NoError(t, err)
			require.Equal(t, uint64(1), n)

			doc.SetTitle("Neutron Stars")
			require.NoError(t, doc.Sync())
			assert.Equal(t, "Neutron Stars", doc.GetTitle())

			n, err = db.Count("title:gravitational")
			require.NoError(t, err)
			assert.Zero(t, n)

			n, err = db.Count("title:neutron")
			require.NoError(t, err)
			assert.Equal(t, uint64(1), n)
		})
	}
}

func TestSetAuthors_LongListTruncatedAtTermCap(t *testing.T) {
	db := openTestDB(t, engine.BackendBleve)

	doc, err := NewDocument(db)
	require.NoError(t, err)

	authors := strings.Repeat("Müller, ", 60)
	doc.SetAuthors(authors)

	got := doc.GetAuthors()
	assert.LessOrEqual(t, len(got), maxValueTermBytes)
	assert.True(t, strings.HasPrefix(authors, got), "truncation must be a prefix")
	assert.True(t, strings.HasPrefix(got, "Müller"), "rune boundaries preserved")

	// scoped stemmed search still sees the full list
	require.NoError(t, doc.Sync())
	n, err := db.Count("author:müller")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestSearch_FullTextAndFieldScoping(t *testing.T) {
	for _, backend := range testBackends {
		t.Run(backend, func(t *testing.T) {
			db := openTestDB(t, backend)

			rel1 := writeFile(t, db, "a.txt", "deep learning for protein folding")
			_, err := db.AddDocument(rel1, Metadata{Title: "Protein Structures", Tags: []string{"bio"}})
			require.NoError(t, err)

			rel2 := writeFile(t, db, "b.txt", "reinforcement learning for games")
			_, err = db.AddDocument(rel2, Metadata{Title: "Self Play Agents", Tags: []string{"ml"}})
			require.NoError(t, err)

			// free text matches both; stemming folds "learning" to its stem
			n, err := db.Count("learning")
			require.NoError(t, err)
			assert.Equal(t, uint64(2), n)

			// implicit AND narrows
			n, err = db.Count("learning protein")
			require.NoError(t, err)
			assert.Equal(t, uint64(1), n)

			// boolean field scoping
			n, err = db.Count("tag:ml")
			require.NoError(t, err)
			assert.Equal(t, uint64(1), n)

			// probabilistic field scoping: "games" is in b's text, not its title
			n, err = db.Count("title:games")
			require.NoError(t, err)
			assert.Zero(t, n)

			n, err = db.Count("*")
			require.NoError(t, err)
			assert.Equal(t, uint64(2), n)
		})
	}
}

func TestSearch_CursorIteratesAndSkipsDeleted(t *testing.T) {
	for _, backend := range testBackends {
		t.Run(backend, func(t *testing.T) {
			db := openTestDB(t, backend)

			var ids []uint64
			for _, name := range []string{"x.txt", "y.txt", "z.txt"} {
				rel := writeFile(t, db, name, "shared corpus text")
				doc, err := db.AddDocument(rel, Metadata{})
				require.NoError(t, err)
				ids = append(ids, doc.DocID())
			}

			docs, err := db.Search("corpus", 0)
			require.NoError(t, err)
			assert.Equal(t, 3, docs.Len())

			// delete one match between the search and its materialization
			require.NoError(t, db.DeleteDocument(ids[1]))

			var seen []uint64
			for docs.Next() {
				seen = append(seen, docs.Doc().DocID())
			}
			require.NoError(t, docs.Err())
			assert.Len(t, seen, 2)
			assert.NotContains(t, seen, ids[1])
		})
	}
}

func TestDeleteDocument(t *testing.T) {
	for _, backend := range testBackends {
		t.Run(backend, func(t *testing.T) {
			db := openTestDB(t, backend)
			rel := writeFile(t, db, "gone.txt", "ephemeral")

			doc, err := db.AddDocument(rel, Metadata{})
			require.NoError(t, err)

			require.NoError(t, db.DeleteDocument(doc.DocID()))

			got, err := db.DocForDocID(doc.DocID())
			require.NoError(t, err)
			assert.Nil(t, got)

			// deleting an absent id is not an error
			assert.NoError(t, db.DeleteDocument(doc.DocID()))
		})
	}
}

func TestGetTerms_EnumeratesFieldValues(t *testing.T) {
	for _, backend := range testBackends {
		t.Run(backend, func(t *testing.T) {
			db := openTestDB(t, backend)

			for _, tags := range [][]string{{"alpha", "beta"}, {"beta", "gamma"}} {
				doc, err := NewDocument(db)
				require.NoError(t, err)
				doc.AddTags(tags)
				require.NoError(t, doc.Sync())
			}

			tags, err := db.GetTerms(schema.FieldTag)
			require.NoError(t, err)
			assert.Equal(t, []string{"alpha", "beta", "gamma"}, tags)

			_, err = db.GetTerms("nonsense")
			require.Error(t, err)
			assert.Equal(t, xerrors.ErrCodeUnknownField, xerrors.GetCode(err))
		})
	}
}

func TestReplaceDocFile_NotImplemented(t *testing.T) {
	db := openTestDB(t, engine.BackendBleve)

	err := db.ReplaceDocFile(1, "anything.txt")
	require.Error(t, err)
	assert.Equal(t, xerrors.ErrCodeNotImplemented, xerrors.GetCode(err))
}

func TestOpen_MissingRootWithoutCreate(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nonexistent")

	_, err := Open(root, Options{Writable: true})
	require.Error(t, err)
	assert.Equal(t, xerrors.ErrCodeOpenFailed, xerrors.GetCode(err))
}

func TestOpen_CreateThenReopen(t *testing.T) {
	for _, backend := range testBackends {
		t.Run(backend, func(t *testing.T) {
			root := t.TempDir()

			db, err := Open(root, Options{Backend: backend, Writable: true, Create: true})
			require.NoError(t, err)

			rel := "persisted.txt"
			require.NoError(t, os.WriteFile(filepath.Join(root, rel), []byte("durable text"), 0o644))
			doc, err := db.AddDocument(rel, Metadata{Title: "Durable"})
			require.NoError(t, err)
			require.NoError(t, db.Close())

			ro, err := Open(root, Options{Backend: backend})
			require.NoError(t, err)
			defer func() { _ = ro.Close() }()

			got, err := ro.DocForDocID(doc.DocID())
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "Durable", got.GetTitle())
		})
	}
}
