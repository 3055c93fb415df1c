// Package storage persists services, schedule rules, and bookings.
// Repository is the PostgreSQL implementation of booking.Store; Memory
// is the single-process implementation used by tests and local runs.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tahmid-khan/recoverylab/internal/availability"
	"github.com/tahmid-khan/recoverylab/internal/booking"
	"github.com/tahmid-khan/recoverylab/internal/model"
	"github.com/tahmid-khan/recoverylab/internal/outbox"
	"github.com/tahmid-khan/recoverylab/libs/db"
)

const dateLayout = "2006-01-02"

type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

func (r *Repository) GetService(ctx context.Context, id string) (model.Service, error) {
	var svc model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id, title, price_60, price_30, previous_price_60, previous_price_30, capacity, is_active
		FROM services
		WHERE id = $1
	`, id).Scan(
		&svc.ID,
		&svc.Title,
		&svc.Price60,
		&svc.Price30,
		&svc.PreviousPrice60,
		&svc.PreviousPrice30,
		&svc.Capacity,
		&svc.IsActive,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Service{}, booking.ErrServiceNotFound
	}
	if err != nil {
		return model.Service{}, err
	}
	return svc, nil
}

func (r *Repository) ListRules(ctx context.Context) ([]model.ScheduleRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, rule_type, rule_date, service_id, is_closed, slots
		FROM schedule_rules
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []model.ScheduleRule
	for rows.Next() {
		var (
			rule    model.ScheduleRule
			rawType string
		)
		if err := rows.Scan(&rule.ID, &rawType, &rule.Date, &rule.ServiceID, &rule.IsClosed, &rule.Slots); err != nil {
			return nil, err
		}
		ruleType, err := model.ParseRuleType(rawType)
		if err != nil {
			return nil, err
		}
		rule.Type = ruleType
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *Repository) ListActiveByDay(ctx context.Context, serviceID string, date time.Time) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE service_id = $1
			AND booking_date = $2::date
			AND status = ANY($3)
		ORDER BY start_minute ASC
	`, serviceID, date.Format(dateLayout), model.ActiveStatuses())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// Reserve is the transactional reservation boundary. An advisory
// transaction lock keyed on (service, date) serializes every writer for
// that day, so the occupancy recount over the new session's interval and
// the insert form one atomic check-and-insert: two clients racing for
// the last unit get exactly one success and one ErrSlotConflict.
func (r *Repository) Reserve(ctx context.Context, b *model.Booking, capacity int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	dateKey := b.Date.Format(dateLayout)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`, b.ServiceID, dateKey); err != nil {
		return err
	}

	rows, err := tx.Query(ctx, `
		SELECT start_minute, duration
		FROM bookings
		WHERE service_id = $1
			AND booking_date = $2::date
			AND status = ANY($3)
			AND start_minute < $4 + $5
			AND $4 < start_minute + duration
	`, b.ServiceID, dateKey, model.ActiveStatuses(), b.StartMinute, b.Duration)
	if err != nil {
		return err
	}
	var active []availability.Session
	for rows.Next() {
		var s availability.Session
		if err := rows.Scan(&s.StartMinute, &s.Duration); err != nil {
			rows.Close()
			return err
		}
		active = append(active, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	// The new session must not push any sub-slot it spans past capacity,
	// so the recount covers its whole interval, not just its start.
	if availability.PeakOccupancy(b.StartMinute, b.Duration, active) >= capacity {
		return booking.ErrSlotConflict
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO bookings
			(service_id, booking_date, slot_label, start_minute, duration,
			 user_name, user_email, user_phone, payment_method, transaction_id, status)
		VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11)
		RETURNING id, created_at
	`, b.ServiceID, dateKey, b.Slot, b.StartMinute, b.Duration,
		b.UserName, b.UserEmail, b.UserPhone, string(b.PaymentMethod), b.TransactionID, string(b.Status),
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return err
	}

	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: outbox.AggregateBooking,
		AggregateID:   b.ID,
		EventType:     outbox.EventBookingCreated,
		Payload:       createdPayload(b),
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Transition row-locks the booking, enforces the lifecycle matrix, and
// records the status-changed event, all in one transaction.
func (r *Repository) Transition(ctx context.Context, bookingID string, to model.BookingStatus) (model.Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, bookingID)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Booking{}, booking.ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}

	from := b.Status
	if !from.CanTransitionTo(to) {
		return model.Booking{}, booking.ErrInvalidTransition
	}

	if _, err := tx.Exec(ctx, `UPDATE bookings SET status = $2 WHERE id = $1`, bookingID, string(to)); err != nil {
		return model.Booking{}, err
	}
	b.Status = to

	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: outbox.AggregateBooking,
		AggregateID:   b.ID,
		EventType:     outbox.EventBookingStatusChanged,
		Payload:       statusChangedPayload(&b, from),
	}); err != nil {
		return model.Booking{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

func (r *Repository) LatestByContact(ctx context.Context, phone, email string) (model.Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE user_phone = $1 AND user_email = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, phone, email)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Booking{}, booking.ErrBookingNotFound
	}
	return b, err
}

func (r *Repository) ListByDay(ctx context.Context, date time.Time, serviceID string) ([]model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE booking_date = $1::date
	`
	args := []any{date.Format(dateLayout)}
	if serviceID != "" {
		query += ` AND service_id = $2`
		args = append(args, serviceID)
	}
	query += ` ORDER BY start_minute ASC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

const bookingColumns = `id, service_id, booking_date, slot_label, start_minute, duration,
	user_name, user_email, user_phone, payment_method, COALESCE(transaction_id, ''), status, created_at`

func scanBooking(row pgx.Row) (model.Booking, error) {
	var (
		b         model.Booking
		rawMethod string
		rawStatus string
	)
	err := row.Scan(
		&b.ID,
		&b.ServiceID,
		&b.Date,
		&b.Slot,
		&b.StartMinute,
		&b.Duration,
		&b.UserName,
		&b.UserEmail,
		&b.UserPhone,
		&rawMethod,
		&b.TransactionID,
		&rawStatus,
		&b.CreatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	method, err := model.ParsePaymentMethod(rawMethod)
	if err != nil {
		return model.Booking{}, err
	}
	status, err := model.ParseBookingStatus(rawStatus)
	if err != nil {
		return model.Booking{}, err
	}
	b.PaymentMethod = method
	b.Status = status
	return b, nil
}

func scanBookings(rows pgx.Rows) ([]model.Booking, error) {
	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func createdPayload(b *model.Booking) []byte {
	payload, _ := json.Marshal(map[string]any{
		"booking_id":     b.ID,
		"service_id":     b.ServiceID,
		"booking_date":   b.Date.Format(dateLayout),
		"time":           b.Slot,
		"duration":       b.Duration,
		"user_name":      b.UserName,
		"user_email":     b.UserEmail,
		"user_phone":     b.UserPhone,
		"payment_method": string(b.PaymentMethod),
		"status":         string(b.Status),
	})
	return payload
}

func statusChangedPayload(b *model.Booking, from model.BookingStatus) []byte {
	payload, _ := json.Marshal(map[string]any{
		"booking_id":   b.ID,
		"service_id":   b.ServiceID,
		"booking_date": b.Date.Format(dateLayout),
		"time":         b.Slot,
		"from":         string(from),
		"to":           string(b.Status),
		"user_email":   b.UserEmail,
		"user_phone":   b.UserPhone,
		"changed_at":   time.Now().UTC().Format(time.RFC3339),
	})
	return payload
}
