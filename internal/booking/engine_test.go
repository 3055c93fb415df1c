package booking_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/tahmid-khan/recoverylab/internal/booking"
	"github.com/tahmid-khan/recoverylab/internal/model"
	"github.com/tahmid-khan/recoverylab/internal/outbox"
	"github.com/tahmid-khan/recoverylab/internal/storage"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t *testing.T, value string) func() time.Time {
	t.Helper()
	at, err := time.ParseInLocation("2006-01-02 15:04", value, time.UTC)
	if err != nil {
		t.Fatalf("bad clock value %q: %v", value, err)
	}
	return func() time.Time { return at }
}

func newEngine(t *testing.T, store *storage.Memory, clock string) *booking.Engine {
	t.Helper()
	return booking.NewEngine(store, discard(), time.UTC).WithClock(fixedClock(t, clock))
}

func seedStore() *storage.Memory {
	store := storage.NewMemory()
	store.AddService(model.Service{ID: "svc-ice", Title: "Ice Bath", Price60: 3000, Price30: 1800, Capacity: 2, IsActive: true})
	store.AddRule(model.ScheduleRule{
		ID:    1,
		Type:  model.RuleWeekday,
		Slots: []string{"5:00 PM", "5:30 PM", "6:00 PM"},
	})
	store.AddRule(model.ScheduleRule{
		ID:    2,
		Type:  model.RuleWeekend,
		Slots: []string{"10:00 AM", "10:30 AM"},
	})
	return store
}

func reserveAt(t *testing.T, e *booking.Engine, slot string) model.Booking {
	t.Helper()
	b, err := e.Reserve(context.Background(), booking.ReservationRequest{
		ServiceID:     "svc-ice",
		Date:          "2026-03-13", // a Friday
		Slot:          slot,
		Duration:      60,
		UserName:      "Arif Hossain",
		UserEmail:     "arif@example.com",
		UserPhone:     "0171234567",
		PaymentMethod: "pay_at_venue",
	})
	if err != nil {
		t.Fatalf("Reserve(%s): %v", slot, err)
	}
	return b
}

func openLabels(t *testing.T, e *booking.Engine, date string) []string {
	t.Helper()
	day, err := e.Day(context.Background(), "svc-ice", date)
	if err != nil {
		t.Fatalf("Day(%s): %v", date, err)
	}
	out := make([]string, len(day.Slots))
	for i, s := range day.Slots {
		out[i] = s.Label
	}
	return out
}

func TestFullSlotDisappearsFromAvailability(t *testing.T) {
	store := seedStore()
	e := newEngine(t, store, "2026-03-01 09:00")

	reserveAt(t, e, "5:00 PM")
	reserveAt(t, e, "5:00 PM")

	got := openLabels(t, e, "2026-03-13")
	// Both hour-long bookings cover 5:00 PM and 5:30 PM; 6:00 PM stays open.
	if len(got) != 1 || got[0] != "6:00 PM" {
		t.Fatalf("open slots = %v, want [6:00 PM]", got)
	}
}

func TestPastSlotsHiddenToday(t *testing.T) {
	store := seedStore()
	e := newEngine(t, store, "2026-03-13 17:05")

	got := openLabels(t, e, "2026-03-13")
	if len(got) != 2 || got[0] != "5:30 PM" || got[1] != "6:00 PM" {
		t.Fatalf("open slots at 5:05 PM = %v, want [5:30 PM 6:00 PM]", got)
	}
}

func TestCustomClosedDayOverridesWeekdayRule(t *testing.T) {
	store := seedStore()
	closed, _ := time.Parse("2006-01-02", "2026-03-13")
	svc := "svc-ice"
	store.AddRule(model.ScheduleRule{ID: 3, Type: model.RuleCustom, Date: &closed, ServiceID: &svc, IsClosed: true})

	e := newEngine(t, store, "2026-03-01 09:00")
	day, err := e.Day(context.Background(), "svc-ice", "2026-03-13")
	if err != nil {
		t.Fatalf("Day: %v", err)
	}
	if len(day.Slots) != 0 {
		t.Fatalf("closed day returned %d slots", len(day.Slots))
	}
	if day.Reason != booking.ReasonClosed {
		t.Errorf("reason = %q, want %q", day.Reason, booking.ReasonClosed)
	}
}

func TestNoScheduleDistinctFromClosed(t *testing.T) {
	store := storage.NewMemory()
	store.AddService(model.Service{ID: "svc-ice", Title: "Ice Bath", Capacity: 2, IsActive: true})

	e := newEngine(t, store, "2026-03-01 09:00")
	day, err := e.Day(context.Background(), "svc-ice", "2026-03-13")
	if err != nil {
		t.Fatalf("Day: %v", err)
	}
	if day.Reason != booking.ReasonNoSchedule {
		t.Errorf("reason = %q, want %q", day.Reason, booking.ReasonNoSchedule)
	}
}

func TestMalformedRuleDegradesToEmptyDay(t *testing.T) {
	store := storage.NewMemory()
	store.AddService(model.Service{ID: "svc-ice", Title: "Ice Bath", Capacity: 2, IsActive: true})
	store.AddRule(model.ScheduleRule{ID: 1, Type: model.RuleWeekday, Slots: []string{"17:00"}})

	e := newEngine(t, store, "2026-03-01 09:00")
	day, err := e.Day(context.Background(), "svc-ice", "2026-03-13")
	if err != nil {
		t.Fatalf("malformed rule should not error the request: %v", err)
	}
	if len(day.Slots) != 0 || day.Reason != booking.ReasonUnavailable {
		t.Errorf("got %d slots reason %q, want empty/unavailable", len(day.Slots), day.Reason)
	}
}

func TestReserveInitialStatusAndEvent(t *testing.T) {
	store := seedStore()
	e := newEngine(t, store, "2026-03-01 09:00")

	b := reserveAt(t, e, "5:00 PM")
	if b.Status != model.StatusPending {
		t.Errorf("status = %s, want pending", b.Status)
	}
	if b.ID == "" {
		t.Error("booking ID not assigned")
	}

	events := store.Events()
	if len(events) != 1 || events[0].EventType != outbox.EventBookingCreated {
		t.Fatalf("events = %+v, want one booking.created", events)
	}

	prepaid, err := e.Reserve(context.Background(), booking.ReservationRequest{
		ServiceID:     "svc-ice",
		Date:          "2026-03-13",
		Slot:          "6:00 PM",
		Duration:      30,
		UserName:      "Nusrat Jahan",
		UserEmail:     "nusrat@example.com",
		UserPhone:     "0187654321",
		PaymentMethod: "mobile_wallet",
		TransactionID: "TXN9",
	})
	if err != nil {
		t.Fatalf("prepaid reserve: %v", err)
	}
	if prepaid.Status != model.StatusPaymentReview {
		t.Errorf("prepaid status = %s, want payment_review", prepaid.Status)
	}
}

func TestReserveRejectsOffScheduleSlot(t *testing.T) {
	store := seedStore()
	e := newEngine(t, store, "2026-03-01 09:00")

	req := booking.ReservationRequest{
		ServiceID:     "svc-ice",
		Date:          "2026-03-13",
		Slot:          "9:00 PM",
		Duration:      60,
		UserName:      "Arif Hossain",
		UserEmail:     "arif@example.com",
		UserPhone:     "0171234567",
		PaymentMethod: "pay_at_venue",
	}
	_, err := e.Reserve(context.Background(), req)
	var verr *booking.ValidationError
	if !errors.As(err, &verr) || verr.Field != "time" {
		t.Fatalf("err = %v, want time validation failure", err)
	}
}

func TestReserveConflictWhenFull(t *testing.T) {
	store := seedStore()
	e := newEngine(t, store, "2026-03-01 09:00")

	reserveAt(t, e, "5:00 PM")
	reserveAt(t, e, "5:00 PM")

	_, err := e.Reserve(context.Background(), booking.ReservationRequest{
		ServiceID:     "svc-ice",
		Date:          "2026-03-13",
		Slot:          "5:00 PM",
		Duration:      30,
		UserName:      "Late Comer",
		UserEmail:     "late@example.com",
		UserPhone:     "0199999999",
		PaymentMethod: "pay_at_venue",
	})
	if !errors.Is(err, booking.ErrSlotConflict) {
		t.Fatalf("err = %v, want ErrSlotConflict", err)
	}
}

func TestReserveRejectsSessionOverFullSubSlot(t *testing.T) {
	store := seedStore()
	store.AddService(model.Service{ID: "svc-sauna", Title: "Sauna", Capacity: 1, IsActive: true})
	e := newEngine(t, store, "2026-03-01 09:00")

	reserve := func(slot string, duration int) error {
		_, err := e.Reserve(context.Background(), booking.ReservationRequest{
			ServiceID:     "svc-sauna",
			Date:          "2026-03-13",
			Slot:          slot,
			Duration:      duration,
			UserName:      "Arif Hossain",
			UserEmail:     "arif@example.com",
			UserPhone:     "0171234567",
			PaymentMethod: "pay_at_venue",
		})
		return err
	}

	// 5:30 PM is taken for half an hour. An hour-long session at
	// 5:00 PM spans it, so with capacity 1 it must be refused even
	// though 5:00 PM itself is empty.
	if err := reserve("5:30 PM", 30); err != nil {
		t.Fatalf("Reserve(5:30 PM, 30): %v", err)
	}
	if err := reserve("5:00 PM", 60); !errors.Is(err, booking.ErrSlotConflict) {
		t.Fatalf("Reserve(5:00 PM, 60) error = %v, want ErrSlotConflict", err)
	}

	// The refusal leaves the day consistent: no slot beyond capacity.
	day, err := e.Day(context.Background(), "svc-sauna", "2026-03-13")
	if err != nil {
		t.Fatalf("Day: %v", err)
	}
	for _, s := range day.Slots {
		if s.Label == "5:00 PM" || s.Label == "6:00 PM" {
			continue
		}
		t.Fatalf("slot %s offered while full", s.Label)
	}
}

func TestConcurrentReservationsSingleWinner(t *testing.T) {
	store := seedStore()
	store.AddService(model.Service{ID: "svc-sauna", Title: "Sauna", Capacity: 1, IsActive: true})
	e := newEngine(t, store, "2026-03-01 09:00")

	const racers = 16
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Reserve(context.Background(), booking.ReservationRequest{
				ServiceID:     "svc-sauna",
				Date:          "2026-03-13",
				Slot:          "5:00 PM",
				Duration:      60,
				UserName:      "Racer",
				UserEmail:     "racer@example.com",
				UserPhone:     "0170000000",
				PaymentMethod: "pay_at_venue",
			})
		}(i)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, booking.ErrSlotConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != racers-1 {
		t.Fatalf("wins = %d conflicts = %d, want exactly one winner", wins, conflicts)
	}

	// Post-condition: occupancy equals capacity exactly once, never twice.
	day, err := e.Day(context.Background(), "svc-sauna", "2026-03-13")
	if err != nil {
		t.Fatalf("Day: %v", err)
	}
	for _, s := range day.Slots {
		if s.Label == "5:00 PM" {
			t.Fatal("full slot still offered")
		}
	}
}

func TestLifecycleTransitions(t *testing.T) {
	store := seedStore()
	e := newEngine(t, store, "2026-03-01 09:00")
	b := reserveAt(t, e, "5:00 PM")

	confirmed, err := e.Transition(context.Background(), b.ID, "confirmed")
	if err != nil {
		t.Fatalf("pending -> confirmed: %v", err)
	}
	if confirmed.Status != model.StatusConfirmed {
		t.Fatalf("status = %s", confirmed.Status)
	}

	if _, err := e.Transition(context.Background(), b.ID, "pending"); !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("confirmed -> pending: err = %v, want ErrInvalidTransition", err)
	}

	cancelled, err := e.Transition(context.Background(), b.ID, "cancelled")
	if err != nil {
		t.Fatalf("confirmed -> cancelled: %v", err)
	}
	if cancelled.Status != model.StatusCancelled {
		t.Fatalf("status = %s", cancelled.Status)
	}

	for _, to := range []string{"pending", "payment_review", "confirmed", "cancelled"} {
		if _, err := e.Transition(context.Background(), b.ID, to); !errors.Is(err, booking.ErrInvalidTransition) {
			t.Errorf("cancelled -> %s: err = %v, want ErrInvalidTransition", to, err)
		}
	}

	events := store.Events()
	changed := 0
	for _, evt := range events {
		if evt.EventType == outbox.EventBookingStatusChanged {
			changed++
		}
	}
	if changed != 2 {
		t.Errorf("status-changed events = %d, want 2", changed)
	}
}

func TestCancellationReleasesOccupancy(t *testing.T) {
	store := seedStore()
	e := newEngine(t, store, "2026-03-01 09:00")

	first := reserveAt(t, e, "5:00 PM")
	reserveAt(t, e, "5:00 PM")

	if got := openLabels(t, e, "2026-03-13"); len(got) != 1 {
		t.Fatalf("precondition: open slots = %v", got)
	}

	if _, err := e.Transition(context.Background(), first.ID, "cancelled"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got := openLabels(t, e, "2026-03-13")
	if len(got) != 3 {
		t.Fatalf("after cancel open slots = %v, want all three", got)
	}
}

func TestStatusLookup(t *testing.T) {
	store := seedStore()
	e := newEngine(t, store, "2026-03-01 09:00")
	reserveAt(t, e, "5:00 PM")

	b, err := e.StatusByContact(context.Background(), "0171234567", "arif@example.com")
	if err != nil {
		t.Fatalf("StatusByContact: %v", err)
	}
	if b.Status != model.StatusPending {
		t.Errorf("status = %s, want pending", b.Status)
	}

	if _, err := e.StatusByContact(context.Background(), "0170000001", "nobody@example.com"); !errors.Is(err, booking.ErrBookingNotFound) {
		t.Errorf("unknown contact: err = %v, want ErrBookingNotFound", err)
	}
}

func TestInactiveServiceRefused(t *testing.T) {
	store := seedStore()
	store.AddService(model.Service{ID: "svc-old", Title: "Retired", Capacity: 1, IsActive: false})
	e := newEngine(t, store, "2026-03-01 09:00")

	day, err := e.Day(context.Background(), "svc-old", "2026-03-13")
	if err != nil {
		t.Fatalf("Day: %v", err)
	}
	if len(day.Slots) != 0 || day.Reason != booking.ReasonUnavailable {
		t.Errorf("inactive service: %d slots reason %q", len(day.Slots), day.Reason)
	}

	_, err = e.Reserve(context.Background(), booking.ReservationRequest{
		ServiceID:     "svc-old",
		Date:          "2026-03-13",
		Slot:          "5:00 PM",
		Duration:      60,
		UserName:      "Arif Hossain",
		UserEmail:     "arif@example.com",
		UserPhone:     "0171234567",
		PaymentMethod: "pay_at_venue",
	})
	var verr *booking.ValidationError
	if !errors.As(err, &verr) || verr.Field != "service_id" {
		t.Fatalf("err = %v, want service_id validation failure", err)
	}
}

func TestReserveRejectsPastSlotToday(t *testing.T) {
	store := seedStore()
	e := newEngine(t, store, "2026-03-13 17:05")

	_, err := e.Reserve(context.Background(), booking.ReservationRequest{
		ServiceID:     "svc-ice",
		Date:          "2026-03-13",
		Slot:          "5:00 PM",
		Duration:      60,
		UserName:      "Arif Hossain",
		UserEmail:     "arif@example.com",
		UserPhone:     "0171234567",
		PaymentMethod: "pay_at_venue",
	})
	var verr *booking.ValidationError
	if !errors.As(err, &verr) || verr.Field != "time" {
		t.Fatalf("err = %v, want time validation failure", err)
	}
}
