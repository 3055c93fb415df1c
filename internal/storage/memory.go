package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tahmid-khan/recoverylab/internal/availability"
	"github.com/tahmid-khan/recoverylab/internal/booking"
	"github.com/tahmid-khan/recoverylab/internal/model"
	"github.com/tahmid-khan/recoverylab/internal/outbox"
)

// Memory is an in-process booking.Store. A single mutex arbitrates the
// reservation check-and-insert, which is the equivalent single-writer
// guarantee the Postgres repository gets from its advisory lock. It
// backs the test suite and single-process local runs.
type Memory struct {
	mu       sync.Mutex
	services map[string]model.Service
	rules    []model.ScheduleRule
	bookings []model.Booking
	events   []outbox.Event
}

func NewMemory() *Memory {
	return &Memory{services: map[string]model.Service{}}
}

func (m *Memory) AddService(svc model.Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[svc.ID] = svc
}

func (m *Memory) AddRule(rule model.ScheduleRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule)
}

// Events returns the lifecycle events recorded so far.
func (m *Memory) Events() []outbox.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]outbox.Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *Memory) GetService(_ context.Context, id string) (model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc, ok := m.services[id]
	if !ok {
		return model.Service{}, booking.ErrServiceNotFound
	}
	return svc, nil
}

func (m *Memory) ListRules(context.Context) ([]model.ScheduleRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ScheduleRule, len(m.rules))
	copy(out, m.rules)
	return out, nil
}

func (m *Memory) ListActiveByDay(_ context.Context, serviceID string, date time.Time) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dateKey := date.Format(dateLayout)
	var out []model.Booking
	for _, b := range m.bookings {
		if b.ServiceID == serviceID && b.Date.Format(dateLayout) == dateKey && b.Status.Active() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *Memory) Reserve(_ context.Context, b *model.Booking, capacity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dateKey := b.Date.Format(dateLayout)
	var active []availability.Session
	for _, existing := range m.bookings {
		if existing.ServiceID != b.ServiceID || existing.Date.Format(dateLayout) != dateKey || !existing.Status.Active() {
			continue
		}
		active = append(active, availability.Session{StartMinute: existing.StartMinute, Duration: existing.Duration})
	}
	if availability.PeakOccupancy(b.StartMinute, b.Duration, active) >= capacity {
		return booking.ErrSlotConflict
	}

	b.ID = uuid.NewString()
	b.CreatedAt = time.Now().UTC()
	m.bookings = append(m.bookings, *b)
	m.events = append(m.events, outbox.Event{
		AggregateType: outbox.AggregateBooking,
		AggregateID:   b.ID,
		EventType:     outbox.EventBookingCreated,
		Payload:       createdPayload(b),
	})
	return nil
}

func (m *Memory) Transition(_ context.Context, bookingID string, to model.BookingStatus) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.bookings {
		if m.bookings[i].ID != bookingID {
			continue
		}
		from := m.bookings[i].Status
		if !from.CanTransitionTo(to) {
			return model.Booking{}, booking.ErrInvalidTransition
		}
		m.bookings[i].Status = to
		b := m.bookings[i]
		m.events = append(m.events, outbox.Event{
			AggregateType: outbox.AggregateBooking,
			AggregateID:   b.ID,
			EventType:     outbox.EventBookingStatusChanged,
			Payload:       statusChangedPayload(&b, from),
		})
		return b, nil
	}
	return model.Booking{}, booking.ErrBookingNotFound
}

func (m *Memory) LatestByContact(_ context.Context, phone, email string) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		latest model.Booking
		found  bool
	)
	for _, b := range m.bookings {
		if b.UserPhone != phone || b.UserEmail != email {
			continue
		}
		// Tie-break equal timestamps on id so the pick is deterministic,
		// matching the SQL ORDER BY created_at DESC, id DESC.
		if !found || b.CreatedAt.After(latest.CreatedAt) ||
			(b.CreatedAt.Equal(latest.CreatedAt) && b.ID > latest.ID) {
			latest = b
			found = true
		}
	}
	if !found {
		return model.Booking{}, booking.ErrBookingNotFound
	}
	return latest, nil
}

func (m *Memory) ListByDay(_ context.Context, date time.Time, serviceID string) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dateKey := date.Format(dateLayout)
	var out []model.Booking
	for _, b := range m.bookings {
		if b.Date.Format(dateLayout) != dateKey {
			continue
		}
		if serviceID != "" && b.ServiceID != serviceID {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

var _ booking.Store = (*Memory)(nil)
var _ booking.Store = (*Repository)(nil)
