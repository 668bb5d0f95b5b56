package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/storage"
)

const countsQuery = `
	SELECT
		COUNT(*) FILTER (WHERE user_id = $2) AS user_active,
		COUNT(*) AS event_active
	FROM registrations
	WHERE event_id = $1 AND status IN ('pending', 'approved')`

type countsRow struct {
	UserActive  int `db:"user_active"`
	EventActive int `db:"event_active"`
}

func (s *Store) RegistrationCounts(ctx context.Context, eventID, userID int64) (domain.RegistrationCounts, error) {
	var row countsRow
	if err := s.db.GetContext(ctx, &row, countsQuery, eventID, userID); err != nil {
		return domain.RegistrationCounts{}, domain.Storage("registration counts", err)
	}
	return domain.RegistrationCounts{UserActive: row.UserActive, EventActive: row.EventActive}, nil
}

func (s *Store) TallyRegistrations(ctx context.Context, eventID int64) (domain.RegistrationTally, error) {
	var t domain.RegistrationTally
	err := s.db.GetContext(ctx, &t, `
		SELECT COUNT(*) FILTER (WHERE status = 'approved') AS approved,
			COUNT(*) FILTER (WHERE status = 'rejected') AS rejected,
			COUNT(*) FILTER (WHERE status = 'pending') AS pending
		FROM registrations WHERE event_id = $1`, eventID)
	return t, domain.Storage("tally registrations", err)
}

func (s *Store) CommitRegistration(ctx context.Context, in storage.RegistrationCommit, guard storage.Guard) (int64, error) {
	var id int64
	err := s.tx(ctx, "commit registration", func(tx *sqlx.Tx) error {
		// the row lock serialises concurrent commits for one event so the
		// counts below cannot go stale before the insert
		var ev domain.Event
		err := tx.GetContext(ctx, &ev, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, in.EventID)
		if err = notFound(err); err != nil {
			if err == domain.ErrNotFound {
				return domain.Ineligible(domain.ReasonNotFound)
			}
			return err
		}
		var row countsRow
		if err := tx.GetContext(ctx, &row, countsQuery, in.EventID, in.Profile.UserID); err != nil {
			return err
		}
		if guard != nil {
			counts := domain.RegistrationCounts{UserActive: row.UserActive, EventActive: row.EventActive}
			if err := guard(ev, counts, in.Now); err != nil {
				return err
			}
		}
		if err := upsertProfile(ctx, tx, in.Profile); err != nil {
			return err
		}
		return tx.GetContext(ctx, &id, `
			INSERT INTO registrations (user_id, event_id, status, amount, is_student, payment_receipt_ref, register_date)
			VALUES ($1, $2, 'pending', $3, $4, $5, $6)
			RETURNING id`,
			in.Profile.UserID, in.EventID, in.Amount, in.IsStudent, in.ReceiptRef, in.Now)
	})
	return id, err
}

const userRegColumns = `r.id, r.user_id, r.event_id, r.status, r.amount, r.is_student, r.payment_receipt_ref,
	r.reject_reason, r.processed_by, r.processed_at, r.register_date, e.title AS event_title`

func (s *Store) GetRegistration(ctx context.Context, id int64) (domain.UserRegistration, error) {
	var r domain.UserRegistration
	err := s.db.GetContext(ctx, &r, `
		SELECT `+userRegColumns+`
		FROM registrations r JOIN events e ON e.id = r.event_id
		WHERE r.id = $1`, id)
	return r, domain.Storage("get registration", notFound(err))
}

func (s *Store) ListUserRegistrations(ctx context.Context, userID int64) ([]domain.UserRegistration, error) {
	var out []domain.UserRegistration
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+userRegColumns+`
		FROM registrations r JOIN events e ON e.id = r.event_id
		WHERE r.user_id = $1 ORDER BY r.id DESC`, userID)
	return out, domain.Storage("list user registrations", err)
}

func (s *Store) ListPendingRegistrations(ctx context.Context) ([]domain.UserRegistration, error) {
	var out []domain.UserRegistration
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+userRegColumns+`
		FROM registrations r JOIN events e ON e.id = r.event_id
		WHERE r.status = 'pending' ORDER BY r.id DESC`)
	return out, domain.Storage("list pending registrations", err)
}

func (s *Store) ReviewRegistration(ctx context.Context, id int64, status domain.RegistrationStatus, reason string, adminID int64, at time.Time) (domain.UserRegistration, error) {
	err := s.tx(ctx, "review registration", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE registrations
			SET status = $1, reject_reason = $2, processed_by = $3, processed_at = $4
			WHERE id = $5 AND status = 'pending'`,
			status, reason, adminID, at, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			var current string
			err := tx.GetContext(ctx, &current, `SELECT status FROM registrations WHERE id = $1`, id)
			if err = notFound(err); err != nil {
				if err == domain.ErrNotFound {
					return domain.Ineligible(domain.ReasonNotFound)
				}
				return err
			}
			return &domain.EligibilityError{Reason: domain.ReasonAlreadyProcessed, Current: current}
		}
		return insertAudit(ctx, tx, adminID, storage.SetAction(string(status)), "registrations", id, reason, at)
	})
	if err != nil {
		if domain.IsReason(err, domain.ReasonAlreadyProcessed) {
			r, gerr := s.GetRegistration(ctx, id)
			if gerr == nil {
				return r, err
			}
		}
		return domain.UserRegistration{}, err
	}
	return s.GetRegistration(ctx, id)
}

func (s *Store) ApprovePending(ctx context.Context, eventID, adminID int64, at time.Time) ([]domain.UserRegistration, error) {
	var ids []int64
	err := s.tx(ctx, "approve pending", func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID); err != nil {
			return err
		}
		if !exists {
			return domain.Ineligible(domain.ReasonNotFound)
		}
		if err := tx.SelectContext(ctx, &ids, `
			UPDATE registrations
			SET status = 'approved', processed_by = $1, processed_at = $2
			WHERE event_id = $3 AND status = 'pending'
			RETURNING id`, adminID, at, eventID); err != nil {
			return err
		}
		for _, id := range ids {
			if err := insertAudit(ctx, tx, adminID, storage.SetAction(string(domain.RegApproved)), "registrations", id, "bulk", at); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	q, args, err := sqlx.In(`
		SELECT `+userRegColumns+`
		FROM registrations r JOIN events e ON e.id = r.event_id
		WHERE r.id IN (?) ORDER BY r.id`, ids)
	if err != nil {
		return nil, domain.Storage("approve pending", err)
	}
	var out []domain.UserRegistration
	err = s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...)
	return out, domain.Storage("approve pending", err)
}
