package engine

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/gofrs/flock"
	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	xerrors "github.com/xapers/xapers/internal/errors"
)

// sqliteIndex implements Index on SQLite: a documents table for data blobs
// and a terms table holding the flat term sets. Scoring is the summed count
// of matched term clauses per document; ranking is backend-opaque by
// contract, so this stays honest without reimplementing BM25.
type sqliteIndex struct {
	db       *sql.DB
	mode     Mode
	lock     *flock.Flock
	analyzer analysis.Analyzer
}

func openSQLite(path string, mode Mode) (Index, error) {
	s := &sqliteIndex{mode: mode, analyzer: newStemAnalyzer()}

	dsn := ":memory:"
	if path != "" {
		if mode == ReadWrite {
			lock, err := acquireWriterLock(filepath.Dir(path))
			if err != nil {
				return nil, err
			}
			s.lock = lock
			dsn = path
		} else {
			dsn = "file:" + path + "?mode=ro"
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		s.releaseLock()
		return nil, xerrors.OpenFailed(path, err)
	}

	// Single connection: SQLite serializes writers anyway, and :memory:
	// databases are per-connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if mode == ReadWrite {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
			"PRAGMA temp_store = MEMORY",
		)
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			s.releaseLock()
			return nil, classifyOpenErr(path, err)
		}
	}

	if mode == ReadWrite || path == "" {
		// A fresh :memory: database has no schema to probe, so in-memory
		// handles get one regardless of mode; writes are still rejected
		// per Mode.
		if err := initSQLiteSchema(db); err != nil {
			_ = db.Close()
			s.releaseLock()
			return nil, classifyOpenErr(path, err)
		}
	} else {
		// Probe the schema so a missing or foreign database fails at
		// open time, not on first query.
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
			WHERE type='table' AND name='documents'`).Scan(&n)
		if err != nil {
			_ = db.Close()
			return nil, xerrors.OpenFailed(path, err)
		}
		if n == 0 {
			_ = db.Close()
			return nil, xerrors.New(xerrors.ErrCodeOpenFailed,
				fmt.Sprintf("no index found at %s", path), nil).
				WithDetail("path", path)
		}
	}

	s.db = db
	return s, nil
}

func initSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		docid INTEGER PRIMARY KEY,
		data  TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS terms (
		term  TEXT    NOT NULL,
		docid INTEGER NOT NULL,
		PRIMARY KEY (term, docid)
	) WITHOUT ROWID;

	CREATE INDEX IF NOT EXISTS terms_by_docid ON terms(docid);

	CREATE TABLE IF NOT EXISTS engine_state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

func classifyOpenErr(path string, err error) error {
	if isSQLiteBusy(err) {
		return xerrors.Busy(err)
	}
	return xerrors.OpenFailed(path, err)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "database is locked") ||
		strings.Contains(s, "SQLITE_BUSY") ||
		strings.Contains(s, "database table is locked")
}

func (s *sqliteIndex) releaseLock() {
	if s.lock != nil {
		_ = s.lock.Unlock()
		s.lock = nil
	}
}

func (s *sqliteIndex) writable(op string) error {
	if s.mode != ReadWrite {
		return xerrors.ReadOnly(op)
	}
	return nil
}

func (s *sqliteIndex) wrap(err error) error {
	if err == nil {
		return nil
	}
	if isSQLiteBusy(err) {
		return xerrors.Busy(err)
	}
	return xerrors.Wrap(xerrors.ErrCodeInternal, err)
}

func (s *sqliteIndex) Mode() Mode {
	return s.mode
}

func (s *sqliteIndex) DocCount() (uint64, error) {
	var n uint64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n)
	if err != nil {
		return 0, s.wrap(err)
	}
	return n, nil
}

func (s *sqliteIndex) LastID() (uint64, error) {
	var v uint64
	err := s.db.QueryRow(
		`SELECT CAST(value AS INTEGER) FROM engine_state WHERE key = 'last_docid'`).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, s.wrap(err)
	}
	return v, nil
}

func (s *sqliteIndex) GetDoc(id uint64) (*Doc, error) {
	doc := NewDoc()

	var data string
	err := s.db.QueryRow(`SELECT data FROM documents WHERE docid = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, s.wrap(err)
	}
	doc.SetData(data)

	rows, err := s.db.Query(`SELECT term FROM terms WHERE docid = ?`, id)
	if err != nil {
		return nil, s.wrap(err)
	}
	defer rows.Close()
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, s.wrap(err)
		}
		doc.AddTerm(term)
	}
	return doc, s.wrap(rows.Err())
}

func (s *sqliteIndex) Replace(id uint64, doc *Doc) error {
	if err := s.writable("replace"); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return s.wrap(err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`INSERT INTO documents (docid, data) VALUES (?, ?)
		ON CONFLICT(docid) DO UPDATE SET data = excluded.data`, id, doc.Data())
	if err != nil {
		return s.wrap(err)
	}
	if _, err = tx.Exec(`DELETE FROM terms WHERE docid = ?`, id); err != nil {
		return s.wrap(err)
	}
	for _, term := range doc.Terms() {
		if _, err = tx.Exec(`INSERT OR IGNORE INTO terms (term, docid) VALUES (?, ?)`,
			term, id); err != nil {
			return s.wrap(err)
		}
	}

	var last uint64
	err = tx.QueryRow(
		`SELECT CAST(value AS INTEGER) FROM engine_state WHERE key = 'last_docid'`).Scan(&last)
	if err != nil && err != sql.ErrNoRows {
		return s.wrap(err)
	}
	if id > last {
		_, err = tx.Exec(`INSERT INTO engine_state (key, value) VALUES ('last_docid', ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, id)
		if err != nil {
			return s.wrap(err)
		}
	}

	return s.wrap(tx.Commit())
}

func (s *sqliteIndex) Delete(id uint64) error {
	if err := s.writable("delete"); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return s.wrap(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.Exec(`DELETE FROM terms WHERE docid = ?`, id); err != nil {
		return s.wrap(err)
	}
	if _, err = tx.Exec(`DELETE FROM documents WHERE docid = ?`, id); err != nil {
		return s.wrap(err)
	}
	return s.wrap(tx.Commit())
}

func (s *sqliteIndex) TermsWithPrefix(prefix string) ([]string, error) {
	var rows *sql.Rows
	var err error

	if hi, bounded := prefixUpperBound(prefix); bounded {
		rows, err = s.db.Query(
			`SELECT DISTINCT term FROM terms WHERE term >= ? AND term < ? ORDER BY term`,
			prefix, hi)
	} else {
		rows, err = s.db.Query(
			`SELECT DISTINCT term FROM terms WHERE term >= ? ORDER BY term`, prefix)
	}
	if err != nil {
		return nil, s.wrap(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, s.wrap(err)
		}
		out = append(out, term)
	}
	return out, s.wrap(rows.Err())
}

// prefixUpperBound returns the smallest string greater than every string
// with the given prefix, for index-friendly range scans. The bound does not
// exist when the prefix is empty or all 0xFF bytes.
func prefixUpperBound(prefix string) (string, bool) {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xFF {
			b[i]++
			return string(b[:i+1]), true
		}
	}
	return "", false
}

func (s *sqliteIndex) Search(q Query, limit int) (*MatchSet, error) {
	scores, err := s.eval(q)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, Hit{ID: id, Score: score})
	}
	// Stable total ordering within one evaluation: score, then docid.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	ms := &MatchSet{Total: uint64(len(hits))}
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	ms.Hits = hits
	return ms, nil
}

// eval computes per-document scores for q. Conjunctions intersect and sum,
// disjunctions union and sum.
func (s *sqliteIndex) eval(q Query) (map[uint64]float64, error) {
	switch t := q.(type) {
	case TermQuery:
		rows, err := s.db.Query(`SELECT docid FROM terms WHERE term = ?`, t.Term)
		if err != nil {
			return nil, s.wrap(err)
		}
		defer rows.Close()
		out := make(map[uint64]float64)
		for rows.Next() {
			var id uint64
			if err := rows.Scan(&id); err != nil {
				return nil, s.wrap(err)
			}
			out[id] = 1
		}
		return out, s.wrap(rows.Err())

	case AndQuery:
		var acc map[uint64]float64
		for _, sub := range t.Subs {
			scores, err := s.eval(sub)
			if err != nil {
				return nil, err
			}
			if acc == nil {
				acc = scores
				continue
			}
			for id, score := range acc {
				if add, ok := scores[id]; ok {
					acc[id] = score + add
				} else {
					delete(acc, id)
				}
			}
		}
		if acc == nil {
			acc = make(map[uint64]float64)
		}
		return acc, nil

	case OrQuery:
		acc := make(map[uint64]float64)
		for _, sub := range t.Subs {
			scores, err := s.eval(sub)
			if err != nil {
				return nil, err
			}
			for id, score := range scores {
				acc[id] += score
			}
		}
		return acc, nil

	case MatchAllQuery:
		rows, err := s.db.Query(`SELECT docid FROM documents`)
		if err != nil {
			return nil, s.wrap(err)
		}
		defer rows.Close()
		out := make(map[uint64]float64)
		for rows.Next() {
			var id uint64
			if err := rows.Scan(&id); err != nil {
				return nil, s.wrap(err)
			}
			out[id] = 1
		}
		return out, s.wrap(rows.Err())

	default:
		return make(map[uint64]float64), nil
	}
}

func (s *sqliteIndex) Analyze(text string) []string {
	return analyzeText(s.analyzer, text)
}

func (s *sqliteIndex) Close() error {
	err := s.db.Close()
	s.releaseLock()
	return s.wrap(err)
}
