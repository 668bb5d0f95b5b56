// Package postgres implements storage.Store on sqlx and lib/pq. Guards that
// must hold at commit time run inside transactions; single-row transitions
// are conditional updates checked by rows affected.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/assocbot/core/database"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/storage"
)

// Store is the Postgres storage.
type Store struct {
	db *sqlx.DB
}

var _ storage.Store = (*Store)(nil)

// New wraps an open pool.
func New(db *sqlx.DB) *Store { return &Store{db: db} }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func (s *Store) tx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	return domain.Storage(op, database.WithTx(ctx, s.db, fn))
}

func insertAudit(ctx context.Context, tx *sqlx.Tx, adminID int64, action, table string, targetID int64, note string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO admin_actions (admin_id, action, target_table, target_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		adminID, action, table, targetID, note, at)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

func (s *Store) ListActions(ctx context.Context, limit int) ([]domain.AdminAction, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.AdminAction
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, admin_id, action, target_table, COALESCE(target_id, 0) AS target_id, note, created_at
		FROM admin_actions ORDER BY id DESC LIMIT $1`, limit)
	return out, domain.Storage("list actions", err)
}
