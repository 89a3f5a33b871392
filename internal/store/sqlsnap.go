package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Querier is the subset of *sql.DB and *sql.Tx used to read snapshots.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// LoadSnapshot runs query (selecting id, fields for one collection in
// enumeration order) and collects the rows into a Snapshot.
func LoadSnapshot(ctx context.Context, q Querier, query, collection string) (Snapshot, error) {
	rows, err := q.QueryContext(ctx, query, collection)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load %s snapshot: %w", collection, err)
	}
	defer rows.Close()

	snap := Snapshot{Collection: collection, Children: make([]Child, 0)}
	for rows.Next() {
		var (
			id     string
			fields []byte
		)
		if err := rows.Scan(&id, &fields); err != nil {
			return Snapshot{}, fmt.Errorf("load %s snapshot: %w", collection, err)
		}
		snap.Children = append(snap.Children, Child{Key: id, Value: json.RawMessage(fields)})
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("load %s snapshot: %w", collection, err)
	}
	return snap, nil
}
