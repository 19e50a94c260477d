// Package cache keeps extraction results in a local SQLite database so the
// same document is never sent to the paid extraction service twice.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gonkalabs/identity-mask/internal/extract"
	"github.com/gonkalabs/identity-mask/internal/mask"
)

// Store manages cached documents backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cache: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("cache: apply pragma %q: %w", pragma, execErr)
		}
	}

	const schema = `CREATE TABLE IF NOT EXISTS documents (
		key        TEXT PRIMARY KEY,
		document   TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: init schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Key derives the cache key of a request sent to endpoint.
func Key(endpoint string, req extract.Request) string {
	h := sha256.New()
	for _, part := range []string{endpoint, req.Language, fmt.Sprint(req.URI), req.Content} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached document for key. ok is false on a miss.
func (s *Store) Get(ctx context.Context, key string) (doc *mask.Document, ok bool, err error) {
	var raw string
	err = s.db.QueryRowContext(ctx, `SELECT document FROM documents WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get: %w", err)
	}
	doc = new(mask.Document)
	if err := json.Unmarshal([]byte(raw), doc); err != nil {
		return nil, false, fmt.Errorf("cache: decode: %w", err)
	}
	return doc, true, nil
}

// Put stores doc under key, replacing any earlier entry.
func (s *Store) Put(ctx context.Context, key string, doc *mask.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (key, document, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET document = excluded.document, created_at = excluded.created_at`,
		key, string(raw), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("cache: put: %w", err)
	}
	return nil
}

// Len returns the number of cached documents.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache: count: %w", err)
	}
	return n, nil
}

// Extractor serves documents from the cache and falls through to next on a
// miss. Cache failures are logged and never fail the extraction.
type Extractor struct {
	next     extract.Extractor
	store    *Store
	endpoint string
}

// Wrap returns next fronted by store. endpoint scopes keys so different
// services do not share entries.
func Wrap(next extract.Extractor, store *Store, endpoint string) *Extractor {
	return &Extractor{next: next, store: store, endpoint: endpoint}
}

// Entities implements extract.Extractor.
func (e *Extractor) Entities(ctx context.Context, req extract.Request) (*mask.Document, error) {
	key := Key(e.endpoint, req)
	doc, ok, err := e.store.Get(ctx, key)
	if err != nil {
		slog.Warn("cache: lookup failed", "err", err)
	}
	if ok {
		slog.Info("cache: hit", "key", key[:12])
		return doc, nil
	}

	doc, err = e.next.Entities(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := e.store.Put(ctx, key, doc); err != nil {
		slog.Warn("cache: store failed", "err", err)
	}
	return doc, nil
}
