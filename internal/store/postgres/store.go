// Package postgres implements store.Store on PostgreSQL. Records live in a
// single JSONB table; a trigger publishes the collection name on a NOTIFY
// channel after every change, and each subscription LISTENs on its own
// connection and reloads the full collection when its name comes through.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cenkalti/backoff/v5"

	"portfolioadmin/internal/logging"
	"portfolioadmin/internal/model"
	"portfolioadmin/internal/store"
)

const (
	qUpsert = `
		INSERT INTO records (collection, id, fields)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET fields = EXCLUDED.fields, updated_at = now()
	`
	// A JSON null in the patch removes the key.
	qMerge = `
		UPDATE records
		SET fields = jsonb_strip_nulls(fields || $3::jsonb), updated_at = now()
		WHERE collection = $1 AND id = $2
	`
	qDelete   = `DELETE FROM records WHERE collection = $1 AND id = $2`
	qSnapshot = `SELECT id, fields FROM records WHERE collection = $1 ORDER BY seq`
)

// Store is a PostgreSQL implementation of store.Store.
// Writes and snapshot reads use database/sql; change feeds use Dialer.
type Store struct {
	db         *sql.DB
	dial       Dialer
	channel    string
	log        logging.Logger
	newBackOff func() backoff.BackOff
}

// New creates a Store. channel must match the one the migration installed.
func New(db *sql.DB, dial Dialer, channel string, log logging.Logger) *Store {
	return &Store{
		db:      db,
		dial:    dial,
		channel: channel,
		log:     log.With("component", "store", "driver", "postgres"),
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Set inserts or replaces a record.
func (s *Store) Set(ctx context.Context, coll, id string, fields model.Fields) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", coll, id, err)
	}
	if _, err := s.db.ExecContext(ctx, qUpsert, coll, id, string(raw)); err != nil {
		return fmt.Errorf("set %s/%s: %w", coll, id, err)
	}
	return nil
}

// Update merges patch into the stored JSONB value.
func (s *Store) Update(ctx context.Context, coll, id string, patch model.Fields) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", coll, id, err)
	}
	res, err := s.db.ExecContext(ctx, qMerge, coll, id, string(raw))
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", coll, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", coll, id, err)
	}
	if n == 0 {
		return fmt.Errorf("update %s/%s: %w", coll, id, store.ErrRecordNotFound)
	}
	return nil
}

// Remove deletes a record. It does not return an error if the row does not exist.
func (s *Store) Remove(ctx context.Context, coll, id string) error {
	if _, err := s.db.ExecContext(ctx, qDelete, coll, id); err != nil {
		return fmt.Errorf("remove %s/%s: %w", coll, id, err)
	}
	return nil
}

// Subscribe opens a LISTEN connection, delivers the current snapshot, and
// then follows the change feed in the background until Close.
func (s *Store) Subscribe(ctx context.Context, coll string, fn store.Handler) (store.Subscription, error) {
	if fn == nil {
		return nil, fmt.Errorf("subscribe %s: nil handler", coll)
	}
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", coll, err)
	}
	snap, err := store.LoadSnapshot(ctx, s.db, qSnapshot, coll)
	if err != nil {
		_ = conn.Close(context.Background())
		return nil, fmt.Errorf("subscribe %s: %w", coll, err)
	}

	lctx, cancel := context.WithCancel(context.Background())
	sub := &subscription{
		store:      s,
		collection: coll,
		fn:         fn,
		cancel:     cancel,
		done:       make(chan struct{}),
		log:        s.log.With("collection", coll),
	}
	fn(snap)
	go sub.run(lctx, conn)
	return sub, nil
}
