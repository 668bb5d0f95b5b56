package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/assocbot/internal/domain"
)

func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.GetContext(ctx, &v, `SELECT value FROM settings WHERE key = $1`, key)
	if err = notFound(err); err != nil {
		if err == domain.ErrNotFound {
			return "", false, nil
		}
		return "", false, domain.Storage("get setting", err)
	}
	return v, true, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	return domain.Storage("set setting", err)
}

func (s *Store) SeedSettings(ctx context.Context, defaults map[string]string) error {
	return s.tx(ctx, "seed settings", func(tx *sqlx.Tx) error {
		for k, v := range defaults {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO settings (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	err := s.db.GetContext(ctx, &ok, `SELECT EXISTS (SELECT 1 FROM admins WHERE user_id = $1)`, userID)
	return ok, domain.Storage("is admin", err)
}

func (s *Store) ListAdmins(ctx context.Context) ([]int64, error) {
	var out []int64
	err := s.db.SelectContext(ctx, &out, `SELECT user_id FROM admins ORDER BY user_id`)
	return out, domain.Storage("list admins", err)
}

func (s *Store) AddAdmin(ctx context.Context, userID, addedBy int64, role string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (user_id, added_by, role) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING`, userID, addedBy, role)
	return domain.Storage("add admin", err)
}

func (s *Store) RemoveAdmin(ctx context.Context, userID int64) error {
	return s.exec1(ctx, "remove admin", `DELETE FROM admins WHERE user_id = $1`, userID)
}
