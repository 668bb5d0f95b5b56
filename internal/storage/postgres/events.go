package postgres

import (
	"context"
	"fmt"

	"github.com/m3rciful/assocbot/internal/domain"
)

const eventColumns = `id, title, description, cost_type, fixed_cost, student_cost, non_student_cost,
	card_number, cert_fee, cert_fee_student, cert_fee_non_student, cert_card_number, cert_card_holder,
	poster_file_id, capacity, single_registration, end_at_ts, end_set_by, is_active, created_by`

func (s *Store) CreateEvent(ctx context.Context, e domain.Event) (int64, error) {
	return s.insertReturning(ctx, "create event", `
		INSERT INTO events (title, description, cost_type, fixed_cost, student_cost, non_student_cost,
			card_number, cert_fee, cert_fee_student, cert_fee_non_student, cert_card_number, cert_card_holder,
			poster_file_id, capacity, single_registration, end_at_ts, is_active, created_by)
		VALUES (:title, :description, :cost_type, :fixed_cost, :student_cost, :non_student_cost,
			:card_number, :cert_fee, :cert_fee_student, :cert_fee_non_student, :cert_card_number, :cert_card_holder,
			:poster_file_id, :capacity, :single_registration, :end_at_ts, :is_active, :created_by)
		RETURNING id`, e)
}

func (s *Store) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	var e domain.Event
	err := s.db.GetContext(ctx, &e, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	return e, domain.Storage("get event", notFound(err))
}

func (s *Store) ListEvents(ctx context.Context, active bool) ([]domain.Event, error) {
	var out []domain.Event
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+eventColumns+` FROM events WHERE is_active = $1 ORDER BY id DESC`, active)
	return out, domain.Storage("list events", err)
}

func (s *Store) exec1(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.Storage(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Storage(op, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) SetDeadline(ctx context.Context, id int64, endAt *int64, by int64) error {
	return s.exec1(ctx, "set deadline",
		`UPDATE events SET end_at_ts = $1, end_set_by = $2 WHERE id = $3`, endAt, by, id)
}

func (s *Store) SetCapacity(ctx context.Context, id int64, capacity *int) error {
	return s.exec1(ctx, "set capacity", `UPDATE events SET capacity = $1 WHERE id = $2`, capacity, id)
}

func (s *Store) SetSingleRegistration(ctx context.Context, id int64, single bool) error {
	return s.exec1(ctx, "set single registration",
		`UPDATE events SET single_registration = $1 WHERE id = $2`, single, id)
}

func (s *Store) SetActive(ctx context.Context, id int64, active bool) error {
	return s.exec1(ctx, "set active", `UPDATE events SET is_active = $1 WHERE id = $2`, active, id)
}

var editQueries = map[domain.EventField]string{
	domain.FieldTitle:       `UPDATE events SET title = $1 WHERE id = $2`,
	domain.FieldDescription: `UPDATE events SET description = $1 WHERE id = $2`,
	domain.FieldCardNumber:  `UPDATE events SET card_number = $1 WHERE id = $2`,
	domain.FieldPoster:      `UPDATE events SET poster_file_id = $1 WHERE id = $2`,
}

func (s *Store) EditEvent(ctx context.Context, id int64, field domain.EventField, value string) error {
	q, ok := editQueries[field]
	if !ok {
		return fmt.Errorf("postgres: event field %q is not editable", field)
	}
	return s.exec1(ctx, "edit event "+string(field), q, value, id)
}

func (s *Store) DeactivateExpired(ctx context.Context, now int64) ([]domain.EventTitle, error) {
	var out []domain.EventTitle
	err := s.db.SelectContext(ctx, &out, `
		UPDATE events SET is_active = FALSE
		WHERE is_active AND end_at_ts IS NOT NULL AND end_at_ts <= $1
		RETURNING id, title`, now)
	return out, domain.Storage("deactivate expired", err)
}
