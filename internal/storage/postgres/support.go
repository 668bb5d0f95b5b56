package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/assocbot/internal/domain"
)

const ticketColumns = `id, user_id, message, file_id, status, admin_reply, replied_by, replied_at, created_at`

func (s *Store) CreateTicket(ctx context.Context, t domain.Ticket) (int64, error) {
	return s.insertReturning(ctx, "create ticket", `
		INSERT INTO tickets (user_id, message, file_id)
		VALUES (:user_id, :message, :file_id)
		RETURNING id`, t)
}

func (s *Store) GetTicket(ctx context.Context, id int64) (domain.Ticket, error) {
	var t domain.Ticket
	err := s.db.GetContext(ctx, &t, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	return t, domain.Storage("get ticket", notFound(err))
}

func (s *Store) ListUserTickets(ctx context.Context, userID int64) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+ticketColumns+` FROM tickets WHERE user_id = $1 ORDER BY id DESC`, userID)
	return out, domain.Storage("list user tickets", err)
}

func (s *Store) ListOpenTickets(ctx context.Context) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+ticketColumns+` FROM tickets WHERE status = 'open' ORDER BY id`)
	return out, domain.Storage("list open tickets", err)
}

func (s *Store) ReplyTicket(ctx context.Context, id int64, reply string, adminID int64, at time.Time) (domain.Ticket, error) {
	var t domain.Ticket
	err := s.tx(ctx, "reply ticket", func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &t, `
			UPDATE tickets
			SET status = 'closed', admin_reply = $1, replied_by = $2, replied_at = $3
			WHERE id = $4 AND status = 'open'
			RETURNING `+ticketColumns, reply, adminID, at, id)
		if err = notFound(err); errors.Is(err, domain.ErrNotFound) {
			if err := tx.GetContext(ctx, &t, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id); err != nil {
				if errors.Is(notFound(err), domain.ErrNotFound) {
					return domain.Ineligible(domain.ReasonNotFound)
				}
				return err
			}
			return &domain.EligibilityError{Reason: domain.ReasonAlreadyProcessed, Current: string(t.Status)}
		} else if err != nil {
			return err
		}
		return insertAudit(ctx, tx, adminID, "reply_ticket", "tickets", id, reply, at)
	})
	return t, err
}

func (s *Store) ListFAQs(ctx context.Context) ([]domain.FAQ, error) {
	var out []domain.FAQ
	err := s.db.SelectContext(ctx, &out, `SELECT id, question, answer FROM faqs ORDER BY id`)
	return out, domain.Storage("list faqs", err)
}

func (s *Store) GetFAQ(ctx context.Context, id int64) (domain.FAQ, error) {
	var f domain.FAQ
	err := s.db.GetContext(ctx, &f, `SELECT id, question, answer FROM faqs WHERE id = $1`, id)
	return f, domain.Storage("get faq", notFound(err))
}

func (s *Store) SaveFAQ(ctx context.Context, f domain.FAQ) (int64, error) {
	if f.ID == 0 {
		return s.insertReturning(ctx, "create faq", `
			INSERT INTO faqs (question, answer) VALUES (:question, :answer)
			RETURNING id`, f)
	}
	if err := s.exec1(ctx, "update faq",
		`UPDATE faqs SET question = $1, answer = $2 WHERE id = $3`, f.Question, f.Answer, f.ID); err != nil {
		return 0, err
	}
	return f.ID, nil
}

func (s *Store) DeleteFAQ(ctx context.Context, id int64) error {
	return s.exec1(ctx, "delete faq", `DELETE FROM faqs WHERE id = $1`, id)
}

// recipientsQuery returns the query listing a's users. Targets map to fixed
// statements only.
func recipientsQuery(a domain.Audience) (string, []any, error) {
	if !a.Valid() {
		return "", nil, fmt.Errorf("unknown audience %q", a.Target)
	}
	status, ok := a.RegistrationStatus()
	switch {
	case !ok:
		return `SELECT user_id FROM users ORDER BY user_id`, nil, nil
	case a.PerEvent():
		return `SELECT DISTINCT user_id FROM registrations WHERE status = $1 AND event_id = $2 ORDER BY user_id`,
			[]any{status, a.EventID}, nil
	default:
		return `SELECT DISTINCT user_id FROM registrations WHERE status = $1 ORDER BY user_id`,
			[]any{status}, nil
	}
}

func (s *Store) Recipients(ctx context.Context, a domain.Audience) ([]int64, error) {
	q, args, err := recipientsQuery(a)
	if err != nil {
		return nil, err
	}
	var out []int64
	err = s.db.SelectContext(ctx, &out, q, args...)
	return out, domain.Storage("recipients", err)
}

func (s *Store) TouchUser(ctx context.Context, userID int64, username string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, username) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`, userID, username)
	return domain.Storage("touch user", err)
}

func (s *Store) RecordAction(ctx context.Context, a domain.AdminAction) error {
	at := a.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	return s.tx(ctx, "record action", func(tx *sqlx.Tx) error {
		return insertAudit(ctx, tx, a.AdminID, a.Action, a.TargetTable, a.TargetID, a.Note, at)
	})
}
