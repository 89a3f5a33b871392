// Package sqlite implements store.Store on an embedded SQLite database.
// Change notifications are fanned out in-process, so every writer must go
// through the same Store value.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"portfolioadmin/internal/logging"
	"portfolioadmin/internal/model"
	"portfolioadmin/internal/store"
)

const (
	qUpsert = `INSERT INTO records (collection, id, fields) VALUES (?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET fields = excluded.fields, updated_at = CURRENT_TIMESTAMP`
	qSelectFields = `SELECT fields FROM records WHERE collection = ? AND id = ?`
	qUpdateFields = `UPDATE records SET fields = ?, updated_at = CURRENT_TIMESTAMP WHERE collection = ? AND id = ?`
	qDelete       = `DELETE FROM records WHERE collection = ? AND id = ?`
	qSnapshot     = `SELECT id, fields FROM records WHERE collection = ? ORDER BY seq`
)

// Store is a SQLite-backed store.Store.
type Store struct {
	db  *sql.DB
	log logging.Logger

	// mu orders write+snapshot pairs so revisions follow commit order.
	mu  sync.Mutex
	rev uint64
	hub *store.Hub
}

func New(db *sql.DB, log logging.Logger) *Store {
	// rev starts at 1 so the initial snapshot is ordered against later writes.
	return &Store{db: db, log: log.With("component", "store", "driver", "sqlite"), rev: 1, hub: store.NewHub()}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Subscribe(ctx context.Context, coll string, fn store.Handler) (store.Subscription, error) {
	if fn == nil {
		return nil, fmt.Errorf("subscribe %s: nil handler", coll)
	}
	s.mu.Lock()
	sub := s.hub.Register(coll, fn)
	snap, err := store.LoadSnapshot(ctx, s.db, qSnapshot, coll)
	snap.Rev = s.rev
	s.mu.Unlock()
	if err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", coll, err)
	}

	sub.Deliver(snap)
	return sub, nil
}

func (s *Store) Set(ctx context.Context, coll, id string, fields model.Fields) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", coll, id, err)
	}
	return s.write(ctx, coll, func() error {
		if _, err := s.db.ExecContext(ctx, qUpsert, coll, id, string(raw)); err != nil {
			return fmt.Errorf("set %s/%s: %w", coll, id, err)
		}
		return nil
	})
}

func (s *Store) Update(ctx context.Context, coll, id string, patch model.Fields) error {
	return s.write(ctx, coll, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("update %s/%s: %w", coll, id, err)
		}
		defer tx.Rollback()

		var current []byte
		if err := tx.QueryRowContext(ctx, qSelectFields, coll, id).Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("update %s/%s: %w", coll, id, store.ErrRecordNotFound)
			}
			return fmt.Errorf("update %s/%s: %w", coll, id, err)
		}
		var fields model.Fields
		if err := json.Unmarshal(current, &fields); err != nil {
			return fmt.Errorf("update %s/%s: stored value is not an object: %w", coll, id, err)
		}
		raw, err := json.Marshal(fields.Merge(patch))
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", coll, id, err)
		}
		if _, err := tx.ExecContext(ctx, qUpdateFields, string(raw), coll, id); err != nil {
			return fmt.Errorf("update %s/%s: %w", coll, id, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("update %s/%s: commit: %w", coll, id, err)
		}
		return nil
	})
}

func (s *Store) Remove(ctx context.Context, coll, id string) error {
	return s.write(ctx, coll, func() error {
		if _, err := s.db.ExecContext(ctx, qDelete, coll, id); err != nil {
			return fmt.Errorf("remove %s/%s: %w", coll, id, err)
		}
		return nil
	})
}

// write runs op and, once it has committed, publishes a fresh snapshot.
// A snapshot read failure is logged; the write itself already succeeded.
func (s *Store) write(ctx context.Context, coll string, op func() error) error {
	s.mu.Lock()
	if err := op(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.rev++
	snap, err := store.LoadSnapshot(ctx, s.db, qSnapshot, coll)
	snap.Rev = s.rev
	s.mu.Unlock()

	if err != nil {
		s.log.Error(ctx, "store_snapshot_failed", "collection", coll, "error", err)
		return nil
	}
	s.hub.Publish(snap)
	return nil
}
