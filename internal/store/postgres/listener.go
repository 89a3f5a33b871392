package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"portfolioadmin/internal/logging"
	"portfolioadmin/internal/store"
)

// ListenConn is the part of *pgx.Conn the change feed needs.
type ListenConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// Dialer opens a dedicated connection for LISTEN.
type Dialer func(ctx context.Context) (ListenConn, error)

// PgxDialer dials dsn with a plain pgx connection. LISTEN state is bound to
// a session, so it cannot share the database/sql pool.
func PgxDialer(dsn string) Dialer {
	return func(ctx context.Context) (ListenConn, error) {
		return pgx.Connect(ctx, dsn)
	}
}

func (s *Store) connect(ctx context.Context) (ListenConn, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial listener: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{s.channel}.Sanitize()); err != nil {
		_ = conn.Close(context.Background())
		return nil, fmt.Errorf("listen %s: %w", s.channel, err)
	}
	return conn, nil
}

type subscription struct {
	store      *Store
	collection string
	fn         store.Handler
	log        logging.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Close stops the feed. The listener connection is released by the feed
// goroutine on its way out.
func (s *subscription) Close() {
	s.once.Do(s.cancel)
}

// Done is closed once the feed goroutine has exited.
func (s *subscription) Done() <-chan struct{} { return s.done }

func (s *subscription) run(ctx context.Context, conn ListenConn) {
	defer close(s.done)
	defer func() {
		if conn != nil {
			_ = conn.Close(context.Background())
		}
	}()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn(ctx, "change_feed_interrupted", "error", err)
			_ = conn.Close(context.Background())
			conn = nil

			conn, err = s.reconnect(ctx)
			if err != nil {
				return
			}
			// Changes may have been missed while disconnected.
			s.reload(ctx)
			continue
		}
		if n.Payload != s.collection {
			continue
		}
		s.reload(ctx)
	}
}

func (s *subscription) reconnect(ctx context.Context) (ListenConn, error) {
	return backoff.Retry(ctx, func() (ListenConn, error) {
		conn, err := s.store.connect(ctx)
		if err != nil {
			s.log.Warn(ctx, "change_feed_reconnect_failed", "error", err)
		}
		return conn, err
	}, backoff.WithBackOff(s.store.newBackOff()), backoff.WithMaxElapsedTime(0))
}

func (s *subscription) reload(ctx context.Context) {
	snap, err := store.LoadSnapshot(ctx, s.store.db, qSnapshot, s.collection)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error(ctx, "change_feed_snapshot_failed", "error", err)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	s.fn(snap)
}
