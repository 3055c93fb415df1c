// Package booking is the reservation engine: it computes the bookable
// slot projection for a day and performs the guarded write that turns a
// request into a booking. The read path is advisory; every write
// revalidates against committed state inside the store's atomic unit.
package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tahmid-khan/recoverylab/internal/availability"
	"github.com/tahmid-khan/recoverylab/internal/model"
	"github.com/tahmid-khan/recoverylab/internal/schedule"
	"github.com/tahmid-khan/recoverylab/libs/metrics"
)

const dateLayout = "2006-01-02"

// Store is the persistence boundary. Reserve and Transition are the only
// mutation points and must each execute as a single atomic unit: Reserve
// recounts occupancy over the new session's whole interval and inserts
// while holding whatever serializes writers for that (service, date);
// Transition row-locks the
// booking, checks the lifecycle matrix, and updates. Both record the
// matching lifecycle event in the same unit.
type Store interface {
	GetService(ctx context.Context, id string) (model.Service, error)
	ListRules(ctx context.Context) ([]model.ScheduleRule, error)
	ListActiveByDay(ctx context.Context, serviceID string, date time.Time) ([]model.Booking, error)
	Reserve(ctx context.Context, b *model.Booking, capacity int) error
	Transition(ctx context.Context, bookingID string, to model.BookingStatus) (model.Booking, error)
	LatestByContact(ctx context.Context, phone, email string) (model.Booking, error)
	ListByDay(ctx context.Context, date time.Time, serviceID string) ([]model.Booking, error)
}

// Day availability reasons, for diagnostics. All three non-ok reasons
// render to end users as "no slots available".
const (
	ReasonOK          = "ok"
	ReasonClosed      = "closed"
	ReasonNoSchedule  = "no_schedule"
	ReasonUnavailable = "unavailable"
)

type DayAvailability struct {
	ServiceID string
	Date      string
	Reason    string
	Slots     []schedule.Slot
}

type Engine struct {
	store  Store
	logger *slog.Logger
	loc    *time.Location
	now    func() time.Time
}

func NewEngine(store Store, logger *slog.Logger, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		store:  store,
		logger: logger,
		loc:    loc,
		now:    time.Now,
	}
}

// WithClock overrides the engine's time source. Tests use it to pin
// "now"; production keeps time.Now.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Day computes the bookable slots for (service, date). Closed days,
// undefined schedules, inactive services, and malformed rule data all
// yield an empty list; the reason distinguishes them for diagnostics.
func (e *Engine) Day(ctx context.Context, serviceID, dateStr string) (DayAvailability, error) {
	out := DayAvailability{ServiceID: serviceID, Date: dateStr, Slots: []schedule.Slot{}}

	date, err := time.ParseInLocation(dateLayout, dateStr, e.loc)
	if err != nil {
		return out, invalid("booking_date", "date must be YYYY-MM-DD")
	}

	svc, err := e.store.GetService(ctx, serviceID)
	if err != nil {
		return out, err
	}
	if !svc.IsActive {
		out.Reason = ReasonUnavailable
		metrics.AvailabilityQueries.WithLabelValues(out.Reason).Inc()
		return out, nil
	}

	slots, reason, err := e.daySlots(ctx, serviceID, date)
	if err != nil {
		return out, err
	}
	if reason != ReasonOK {
		out.Reason = reason
		metrics.AvailabilityQueries.WithLabelValues(out.Reason).Inc()
		return out, nil
	}

	active, err := e.store.ListActiveByDay(ctx, serviceID, date)
	if err != nil {
		return out, err
	}
	counts := availability.OccupiedCounts(slots, sessions(active))

	now := e.now().In(e.loc)
	isToday := now.Format(dateLayout) == date.Format(dateLayout)
	out.Slots = availability.Filter(slots, counts, svc.Capacity, now.Hour()*60+now.Minute(), isToday)
	out.Reason = ReasonOK
	metrics.AvailabilityQueries.WithLabelValues(out.Reason).Inc()
	return out, nil
}

// Reserve is the write path. Preconditions run before any store access;
// the schedule is re-resolved rather than trusted from the earlier read;
// the occupancy check and insert happen atomically inside the store.
func (e *Engine) Reserve(ctx context.Context, req ReservationRequest) (model.Booking, error) {
	method, verr := req.validate()
	if verr != nil {
		return model.Booking{}, verr
	}

	date, err := time.ParseInLocation(dateLayout, req.Date, e.loc)
	if err != nil {
		return model.Booking{}, invalid("booking_date", "date must be YYYY-MM-DD")
	}

	svc, err := e.store.GetService(ctx, req.ServiceID)
	if err != nil {
		return model.Booking{}, err
	}
	if !svc.IsActive {
		return model.Booking{}, invalid("service_id", "service is not open for booking")
	}

	slots, reason, err := e.daySlots(ctx, req.ServiceID, date)
	if err != nil {
		return model.Booking{}, err
	}
	if reason != ReasonOK {
		return model.Booking{}, invalid("time", "no sessions are offered on this date")
	}

	startMinute := -1
	for _, s := range slots {
		if s.Label == req.Slot {
			startMinute = s.StartMinute
			break
		}
	}
	if startMinute < 0 {
		return model.Booking{}, invalid("time", "slot is not on the schedule for this date")
	}

	now := e.now().In(e.loc)
	if now.Format(dateLayout) == date.Format(dateLayout) && startMinute <= now.Hour()*60+now.Minute() {
		return model.Booking{}, invalid("time", "slot has already passed")
	}
	if date.Before(now) && now.Format(dateLayout) != date.Format(dateLayout) {
		return model.Booking{}, invalid("booking_date", "date has already passed")
	}

	b := model.Booking{
		ServiceID:     req.ServiceID,
		Date:          date,
		Slot:          req.Slot,
		StartMinute:   startMinute,
		Duration:      req.Duration,
		UserName:      strings.TrimSpace(req.UserName),
		UserEmail:     strings.TrimSpace(req.UserEmail),
		UserPhone:     strings.TrimSpace(req.UserPhone),
		PaymentMethod: method,
		TransactionID: strings.TrimSpace(req.TransactionID),
		Status:        method.InitialStatus(),
	}

	if err := e.store.Reserve(ctx, &b, svc.Capacity); err != nil {
		if errors.Is(err, ErrSlotConflict) {
			metrics.SlotConflicts.Inc()
		}
		return model.Booking{}, err
	}

	metrics.ReservationsCreated.WithLabelValues(string(method)).Inc()
	e.logger.Info("booking reserved",
		"booking_id", b.ID,
		"service_id", b.ServiceID,
		"date", req.Date,
		"slot", b.Slot,
		"status", string(b.Status),
	)
	return b, nil
}

// Transition applies one lifecycle step. The store enforces the matrix
// under a row lock and emits the status-changed event in the same unit.
func (e *Engine) Transition(ctx context.Context, bookingID, toRaw string) (model.Booking, error) {
	to, err := model.ParseBookingStatus(toRaw)
	if err != nil {
		return model.Booking{}, invalid("status", "unknown status")
	}

	b, err := e.store.Transition(ctx, bookingID, to)
	if err != nil {
		return model.Booking{}, err
	}

	metrics.StatusTransitions.WithLabelValues(string(to)).Inc()
	e.logger.Info("booking status changed", "booking_id", b.ID, "status", string(b.Status))
	return b, nil
}

// StatusByContact returns the latest booking for a (phone, email) pair.
// Read-only; this backs the public status lookup surface.
func (e *Engine) StatusByContact(ctx context.Context, phone, email string) (model.Booking, error) {
	if !phonePattern.MatchString(strings.TrimSpace(phone)) {
		return model.Booking{}, invalid("user_phone", "phone number must be exactly 10 digits")
	}
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return model.Booking{}, invalid("user_email", "email address is not valid")
	}
	return e.store.LatestByContact(ctx, strings.TrimSpace(phone), strings.TrimSpace(email))
}

// ListDay returns every booking on a date, optionally narrowed to one
// service. Admin surface.
func (e *Engine) ListDay(ctx context.Context, dateStr, serviceID string) ([]model.Booking, error) {
	date, err := time.ParseInLocation(dateLayout, dateStr, e.loc)
	if err != nil {
		return nil, invalid("booking_date", "date must be YYYY-MM-DD")
	}
	return e.store.ListByDay(ctx, date, serviceID)
}

func (e *Engine) daySlots(ctx context.Context, serviceID string, date time.Time) ([]schedule.Slot, string, error) {
	rules, err := e.store.ListRules(ctx)
	if err != nil {
		return nil, "", err
	}

	rule, err := schedule.Resolve(serviceID, date, rules)
	if err != nil {
		if errors.Is(err, schedule.ErrNoSchedule) {
			return nil, ReasonNoSchedule, nil
		}
		return nil, "", err
	}

	slots, err := schedule.Expand(rule)
	if err != nil {
		if errors.Is(err, schedule.ErrClosed) {
			return nil, ReasonClosed, nil
		}
		// Malformed rule data degrades to an empty day instead of failing
		// the request; the admin fixes the rule, users just see no slots.
		e.logger.Error("schedule rule expansion failed", "err", err, "rule_id", rule.ID)
		return nil, ReasonUnavailable, nil
	}
	return slots, ReasonOK, nil
}

func sessions(bookings []model.Booking) []availability.Session {
	out := make([]availability.Session, 0, len(bookings))
	for _, b := range bookings {
		if !b.Status.Active() {
			continue
		}
		out = append(out, availability.Session{StartMinute: b.StartMinute, Duration: b.Duration})
	}
	return out
}
