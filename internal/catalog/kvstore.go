package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/audiosync/internal/queue"
	"github.com/desertthunder/audiosync/internal/shared"
)

// catalogVersionKey is the kvstore row the catalog version token lives
// under: a strictly increasing integer bumped on every upsert batch that
// actually wrote a row, so a client can cheaply detect "nothing changed"
// between two polls of /status.
const catalogVersionKey = "catalog_version"

// statusSnapshotKey is the kvstore row the queue's persisted Document lives
// under.
const statusSnapshotKey = "status_snapshot"

// CatalogVersion returns the current catalog version token, 0 if the
// catalog has never been upserted into.
func (s *Store) CatalogVersion() (int64, error) {
	var v int64
	err := s.db.QueryRow(`SELECT value FROM kvstore WHERE key = ?`, catalogVersionKey).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read catalog version: %w", err)
	}
	return v, nil
}

// bumpCatalogVersion increments the catalog version token within tx, so it
// advances atomically with the upsert batch that triggered it.
func bumpCatalogVersion(tx *sql.Tx) (int64, error) {
	_, err := tx.Exec(`
		INSERT INTO kvstore (key, value) VALUES (?, 1)
		ON CONFLICT(key) DO UPDATE SET value = CAST(value AS INTEGER) + 1
	`, catalogVersionKey)
	if err != nil {
		return 0, fmt.Errorf("bump catalog version: %w", err)
	}
	var v int64
	if err := tx.QueryRow(`SELECT value FROM kvstore WHERE key = ?`, catalogVersionKey).Scan(&v); err != nil {
		return 0, fmt.Errorf("read bumped catalog version: %w", err)
	}
	return v, nil
}

// GetSetting reads a durable settings row (OAuth tokens, other small
// operator-set values that don't belong in the TOML config). ok is false if
// the key has never been set.
func (s *Store) GetSetting(key string) (value string, ok bool, err error) {
	err = s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %q: %w", key, err)
	}
	return value, true, nil
}

// SetSetting upserts a durable settings row.
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("write setting %q: %w", key, err)
	}
	return nil
}

// KVSnapshotStore persists the queue's [queue.Document] in the kvstore
// table, implementing [queue.SnapshotStore]. It is a thin adapter rather
// than living in the queue package itself, so that package stays free of a
// database dependency and testable with an in-memory fake.
type KVSnapshotStore struct {
	db *sql.DB
}

// NewKVSnapshotStore wraps a database connection as a [queue.SnapshotStore].
func NewKVSnapshotStore(db *sql.DB) *KVSnapshotStore {
	return &KVSnapshotStore{db: db}
}

// Load returns the persisted queue document, or nil if none has been saved
// yet.
func (k *KVSnapshotStore) Load() (*queue.Document, error) {
	var raw string
	err := k.db.QueryRow(`SELECT value FROM kvstore WHERE key = ?`, statusSnapshotKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read status snapshot: %w", err)
	}

	var doc queue.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCorruptSnapshot, err)
	}
	return &doc, nil
}

// Save persists the queue document, overwriting any prior snapshot.
func (k *KVSnapshotStore) Save(doc *queue.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal status snapshot: %w", err)
	}
	_, err = k.db.Exec(`
		INSERT INTO kvstore (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, statusSnapshotKey, string(raw))
	if err != nil {
		return fmt.Errorf("write status snapshot: %w", err)
	}
	return nil
}
