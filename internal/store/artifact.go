package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/54b3r/pdfqa-go/internal/rag"
)

// artifactVersion is bumped when the artifact schema changes incompatibly.
const artifactVersion = 1

// artifactSchema is the SQLite schema for a store artifact: a metadata
// key/value table and one row per passage with its embedding blob.
const artifactSchema = `
CREATE TABLE IF NOT EXISTS store_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS passages (
	idx       INTEGER PRIMARY KEY,
	body      TEXT NOT NULL,
	embedding BLOB NOT NULL
);
`

// openArtifact opens the SQLite artifact at path.
func openArtifact(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: failed to open artifact: %w", err)
	}
	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	return db, nil
}

// Save writes the store's full contents to a single artifact file at path.
// An existing file at path is replaced.
func (s *FlatStore) Save(path string) error {
	s.mu.RLock()
	dim := s.dim
	passages := append([]rag.Passage(nil), s.passages...)
	vectors := s.vectors
	s.mu.RUnlock()

	// Replace rather than merge: the artifact is a snapshot.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: failed to replace artifact %s: %w", path, err)
	}

	db, err := openArtifact(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(artifactSchema); err != nil {
		return fmt.Errorf("store: failed to create artifact schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("store: failed to begin artifact transaction: %w", err)
	}
	defer tx.Rollback()

	meta := map[string]string{
		"version":   strconv.Itoa(artifactVersion),
		"dimension": strconv.Itoa(dim),
		"count":     strconv.Itoa(len(passages)),
	}
	for k, v := range meta {
		if _, err := tx.Exec(`INSERT INTO store_meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("store: failed to write artifact metadata: %w", err)
		}
	}

	stmt, err := tx.Prepare(`INSERT INTO passages (idx, body, embedding) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: failed to prepare passage insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range passages {
		if _, err := stmt.Exec(i, p.Text, encodeVector(vectors[i])); err != nil {
			return fmt.Errorf("store: failed to write passage %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: failed to commit artifact: %w", err)
	}
	return nil
}

// Load replaces the store's contents with the artifact at path. The artifact
// is fully read and validated before the swap; any inconsistency returns an
// error wrapping ErrCorrupt and leaves the store unchanged.
func (s *FlatStore) Load(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("store: artifact %s: %w", path, err)
	}

	db, err := openArtifact(path)
	if err != nil {
		return err
	}
	defer db.Close()

	meta, err := readMeta(db)
	if err != nil {
		return err
	}

	version, err := strconv.Atoi(meta["version"])
	if err != nil || version != artifactVersion {
		return fmt.Errorf("%w: unsupported artifact version %q", ErrCorrupt, meta["version"])
	}
	dim, err := strconv.Atoi(meta["dimension"])
	if err != nil || dim < 0 {
		return fmt.Errorf("%w: invalid dimension %q", ErrCorrupt, meta["dimension"])
	}
	count, err := strconv.Atoi(meta["count"])
	if err != nil || count < 0 {
		return fmt.Errorf("%w: invalid count %q", ErrCorrupt, meta["count"])
	}

	rows, err := db.Query(`SELECT idx, body, embedding FROM passages ORDER BY idx`)
	if err != nil {
		return fmt.Errorf("%w: failed to read passages: %v", ErrCorrupt, err)
	}
	defer rows.Close()

	passages := make([]rag.Passage, 0, count)
	vectors := make([][]float32, 0, count)
	for rows.Next() {
		var (
			idx  int
			body string
			blob []byte
		)
		if err := rows.Scan(&idx, &body, &blob); err != nil {
			return fmt.Errorf("%w: failed to scan passage: %v", ErrCorrupt, err)
		}
		if idx != len(passages) {
			return fmt.Errorf("%w: passage index gap at %d", ErrCorrupt, idx)
		}
		if body == "" {
			return fmt.Errorf("%w: empty passage %d", ErrCorrupt, idx)
		}
		vec, err := decodeVector(blob, dim)
		if err != nil {
			return fmt.Errorf("%w: passage %d: %v", ErrCorrupt, idx, err)
		}
		passages = append(passages, rag.Passage{Text: body, Index: idx})
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: failed to read passages: %v", ErrCorrupt, err)
	}
	if len(passages) != count {
		return fmt.Errorf("%w: artifact declares %d passages, found %d", ErrCorrupt, count, len(passages))
	}

	s.mu.Lock()
	s.dim = dim
	s.passages = passages
	s.vectors = vectors
	s.mu.Unlock()
	return nil
}

// readMeta returns the store_meta table as a map.
func readMeta(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT key, value FROM store_meta`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read metadata: %v", ErrCorrupt, err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("%w: failed to scan metadata: %v", ErrCorrupt, err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read metadata: %v", ErrCorrupt, err)
	}
	return meta, nil
}

// encodeVector serializes a float32 vector as little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeVector deserializes a little-endian float32 vector, enforcing the
// expected width.
func decodeVector(blob []byte, dim int) ([]float32, error) {
	if len(blob) != 4*dim {
		return nil, fmt.Errorf("embedding blob is %d bytes, want %d", len(blob), 4*dim)
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return v, nil
}
