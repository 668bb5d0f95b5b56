package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/assocbot/internal/domain"
)

func (s *Store) GetProfile(ctx context.Context, userID int64) (domain.Profile, error) {
	var p domain.Profile
	err := s.db.GetContext(ctx, &p, `
		SELECT user_id, full_name, national_id, student_id, phone, is_student, username
		FROM users WHERE user_id = $1`, userID)
	return p, domain.Storage("get profile", notFound(err))
}

func (s *Store) UpsertProfile(ctx context.Context, p domain.Profile) error {
	return s.tx(ctx, "upsert profile", func(tx *sqlx.Tx) error {
		return upsertProfile(ctx, tx, p)
	})
}

// upsertProfile keeps stored optional fields when p leaves them empty.
func upsertProfile(ctx context.Context, tx *sqlx.Tx, p domain.Profile) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO users (user_id, full_name, national_id, student_id, phone, is_student, username)
		VALUES (:user_id, :full_name, :national_id, :student_id, :phone, :is_student, :username)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name   = EXCLUDED.full_name,
			national_id = EXCLUDED.national_id,
			phone       = EXCLUDED.phone,
			student_id  = COALESCE(NULLIF(EXCLUDED.student_id, ''), users.student_id),
			is_student  = COALESCE(EXCLUDED.is_student, users.is_student),
			username    = COALESCE(NULLIF(EXCLUDED.username, ''), users.username),
			updated_at  = now()`, p)
	return err
}
