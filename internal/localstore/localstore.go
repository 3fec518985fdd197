// Package localstore is the device-side durable cache: remote-owned entities,
// per-ledger cached views, and the queue of mutations made while offline. It
// holds no business logic.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("localstore: not found")

const schema = `
CREATE TABLE IF NOT EXISTS cached_entities (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	payload    BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS cached_views (
	scope_key  TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS pending_mutations (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	action     TEXT NOT NULL,
	payload    BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL,
	dead_at    TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_pending_mutations_created ON pending_mutations (created_at, id);
`

// Store is a SQLite-backed local store. All access is serialized behind one
// mutex: the reconciliation loop and notifier callbacks both touch cached
// views and must not interleave read-modify-write cycles.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (or creates) the store at path and migrates the schema. WAL mode
// keeps readers from blocking the single writer and survives abrupt process
// termination, which the pending queue depends on.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type Entity struct {
	ID        string
	Kind      string
	Payload   []byte
	UpdatedAt time.Time
}

// PutEntity upserts a cached copy of a remote-owned record. Last write wins;
// there is no versioning.
func (s *Store) PutEntity(ctx context.Context, id, kind string, payload []byte, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cached_entities (id, kind, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET kind = excluded.kind, payload = excluded.payload, updated_at = excluded.updated_at
	`, id, kind, payload, updatedAt.UTC())
	return err
}

func (s *Store) GetEntity(ctx context.Context, id string) (Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entity Entity
	err := s.db.QueryRowContext(ctx, `
		SELECT id, kind, payload, updated_at FROM cached_entities WHERE id = ?
	`, id).Scan(&entity.ID, &entity.Kind, &entity.Payload, &entity.UpdatedAt)
	if err == sql.ErrNoRows {
		return Entity{}, ErrNotFound
	}
	if err != nil {
		return Entity{}, err
	}
	return entity, nil
}

func (s *Store) DeleteEntity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM cached_entities WHERE id = ?`, id)
	return err
}

// PutView caches a decoded view (a ledger snapshot, a member list) under a
// scope key.
func (s *Store) PutView(ctx context.Context, scopeKey string, view any, updatedAt time.Time) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cached_views (scope_key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (scope_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, scopeKey, payload, updatedAt.UTC())
	return err
}

// GetView decodes the cached view under scopeKey into dest. A malformed
// payload is treated as a cache miss and the entry is evicted, so a corrupt
// cache row degrades to a fresh fetch instead of a decode error loop.
func (s *Store) GetView(ctx context.Context, scopeKey string, dest any) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var payload []byte
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT payload, updated_at FROM cached_views WHERE scope_key = ?
	`, scopeKey).Scan(&payload, &updatedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cached_views WHERE scope_key = ?`, scopeKey)
		return time.Time{}, ErrNotFound
	}
	return updatedAt, nil
}

func (s *Store) DeleteView(ctx context.Context, scopeKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM cached_views WHERE scope_key = ?`, scopeKey)
	return err
}

type Mutation struct {
	ID        string
	Kind      string
	Action    string
	Payload   []byte
	CreatedAt time.Time
	DeadAt    *time.Time
}

// AppendMutation queues an offline intent for later replay.
func (s *Store) AppendMutation(ctx context.Context, m Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_mutations (id, kind, action, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.Kind, m.Action, m.Payload, m.CreatedAt.UTC())
	return err
}

// ListMutations returns live queued mutations in creation order, oldest
// first. Replay order is the FIFO guarantee offline-first correctness rests
// on.
func (s *Store) ListMutations(ctx context.Context) ([]Mutation, error) {
	return s.listMutations(ctx, `dead_at IS NULL`)
}

// ListDeadMutations returns mutations that exhausted their retry budget.
func (s *Store) ListDeadMutations(ctx context.Context) ([]Mutation, error) {
	return s.listMutations(ctx, `dead_at IS NOT NULL`)
}

func (s *Store) listMutations(ctx context.Context, where string) ([]Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, action, payload, created_at, dead_at
		FROM pending_mutations
		WHERE `+where+`
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var mutations []Mutation
	for rows.Next() {
		var m Mutation
		if err := rows.Scan(&m.ID, &m.Kind, &m.Action, &m.Payload, &m.CreatedAt, &m.DeadAt); err != nil {
			return nil, err
		}
		mutations = append(mutations, m)
	}
	return mutations, rows.Err()
}

// RemoveMutation drops a successfully replayed mutation from the queue.
func (s *Store) RemoveMutation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_mutations WHERE id = ?`, id)
	return err
}

// MarkMutationDead parks a mutation that kept failing so drains stop
// retrying it.
func (s *Store) MarkMutationDead(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		UPDATE pending_mutations SET dead_at = ? WHERE id = ?
	`, at.UTC(), id)
	return err
}
