package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/barberia/libs/db"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/outbox"
)

// Store is the Postgres implementation of every repository the services use.
// Multi-row changes run in one transaction together with their outbox rows.
type Store struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

// NewStore returns a Postgres store. A nil events repository disables the
// outbox: writes commit without enqueueing anything.
func NewStore(pool *db.Pool, events *outbox.Repository) *Store {
	return &Store{pool: pool, outbox: events}
}

func (s *Store) emit(ctx context.Context, tx pgx.Tx, aggregateType string, id int64, eventType string, payload any) error {
	if s.outbox == nil {
		return nil
	}
	evt, err := outbox.NewEvent(aggregateType, id, eventType, payload)
	if err != nil {
		return err
	}
	if err := s.outbox.Insert(ctx, tx, evt); err != nil {
		return fmt.Errorf("enqueue %s: %w", eventType, err)
	}
	return nil
}

// where accumulates numbered predicates for a dynamic WHERE clause.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
