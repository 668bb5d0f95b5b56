package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/storage"
)

// submissionViews projects each table onto domain.Submission.
var submissionViews = map[domain.SubmissionKind]string{
	domain.KindIdea:       `title AS summary, description AS detail, file_id`,
	domain.KindCollab:     `full_name || ' | ' || organization AS summary, proposal AS detail, file_id`,
	domain.KindDonation:   `amount::text AS summary, currency AS detail, file_id`,
	domain.KindMembership: `full_name AS summary, major || ' ' || entry_year AS detail, card_file_id AS file_id`,
}

func submissionSelect(kind domain.SubmissionKind) (string, error) {
	table, err := kind.Table()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`SELECT id, user_id, status, admin_note, processed_by, processed_at, %s FROM %s`,
		submissionViews[kind], table), nil
}

func (s *Store) insertReturning(ctx context.Context, op, query string, arg any) (int64, error) {
	var id int64
	err := s.tx(ctx, op, func(tx *sqlx.Tx) error {
		return insertNamed(ctx, tx, &id, query, arg)
	})
	return id, err
}

func insertNamed(ctx context.Context, tx *sqlx.Tx, id *int64, query string, arg any) error {
	q, args, err := tx.BindNamed(query, arg)
	if err != nil {
		return err
	}
	return tx.GetContext(ctx, id, q, args...)
}

func (s *Store) CreateIdea(ctx context.Context, v domain.Idea) (int64, error) {
	return s.insertReturning(ctx, "create idea", `
		INSERT INTO ideas (user_id, title, description, file_id, file_path)
		VALUES (:user_id, :title, :description, :file_id, :file_path)
		RETURNING id`, v)
}

func (s *Store) CreateCollaboration(ctx context.Context, v domain.Collaboration) (int64, error) {
	return s.insertReturning(ctx, "create collaboration", `
		INSERT INTO collaborations (user_id, full_name, organization, proposal, file_id, file_path)
		VALUES (:user_id, :full_name, :organization, :proposal, :file_id, :file_path)
		RETURNING id`, v)
}

func (s *Store) CreateDonation(ctx context.Context, v domain.Donation) (int64, error) {
	if v.Currency == "" {
		v.Currency = "IRR"
	}
	return s.insertReturning(ctx, "create donation", `
		INSERT INTO donations (user_id, amount, currency, file_id, file_path)
		VALUES (:user_id, :amount, :currency, :file_id, :file_path)
		RETURNING id`, v)
}

func (s *Store) CreateMembership(ctx context.Context, v domain.Membership, p domain.Profile) (int64, error) {
	var id int64
	err := s.tx(ctx, "create membership", func(tx *sqlx.Tx) error {
		if err := upsertProfile(ctx, tx, p); err != nil {
			return err
		}
		return insertNamed(ctx, tx, &id, `
			INSERT INTO memberships (user_id, full_name, major, entry_year, student_number, national_id,
				phone, telegram_username, card_file_id, card_file_path)
			VALUES (:user_id, :full_name, :major, :entry_year, :student_number, :national_id,
				:phone, :telegram_username, :card_file_id, :card_file_path)
			RETURNING id`, v)
	})
	return id, err
}

func (s *Store) GetSubmission(ctx context.Context, kind domain.SubmissionKind, id int64) (domain.Submission, error) {
	q, err := submissionSelect(kind)
	if err != nil {
		return domain.Submission{}, err
	}
	var sub domain.Submission
	err = s.db.GetContext(ctx, &sub, q+` WHERE id = $1`, id)
	sub.Kind = kind
	return sub, domain.Storage("get submission", notFound(err))
}

func (s *Store) ListPending(ctx context.Context, kind domain.SubmissionKind) ([]domain.Submission, error) {
	q, err := submissionSelect(kind)
	if err != nil {
		return nil, err
	}
	var out []domain.Submission
	if err := s.db.SelectContext(ctx, &out, q+` WHERE status = 'pending' ORDER BY id DESC`); err != nil {
		return nil, domain.Storage("list pending", err)
	}
	for i := range out {
		out[i].Kind = kind
	}
	return out, nil
}

func (s *Store) Resolve(ctx context.Context, d domain.Decision) (domain.Submission, error) {
	table, err := d.Kind.Table()
	if err != nil {
		return domain.Submission{}, err
	}
	err = s.tx(ctx, "resolve "+table, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, fmt.Sprintf(`
			UPDATE %s
			SET status = $1, admin_note = $2, processed_by = $3, processed_at = $4
			WHERE id = $5 AND status = 'pending'`, table),
			d.NewStatus, d.Note, d.AdminID, d.At, d.ID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			var current string
			err := tx.GetContext(ctx, &current, fmt.Sprintf(`SELECT status FROM %s WHERE id = $1`, table), d.ID)
			if err = notFound(err); err != nil {
				if err == domain.ErrNotFound {
					return domain.Ineligible(domain.ReasonNotFound)
				}
				return err
			}
			return &domain.EligibilityError{Reason: domain.ReasonAlreadyProcessed, Current: current}
		}
		return insertAudit(ctx, tx, d.AdminID, storage.SetAction(string(d.NewStatus)), table, d.ID, d.Note, d.At)
	})
	if err != nil {
		if domain.IsReason(err, domain.ReasonAlreadyProcessed) {
			if sub, gerr := s.GetSubmission(ctx, d.Kind, d.ID); gerr == nil {
				return sub, err
			}
		}
		return domain.Submission{}, err
	}
	return s.GetSubmission(ctx, d.Kind, d.ID)
}
