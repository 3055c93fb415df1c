package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tahmid-khan/recoverylab/internal/booking"
	"github.com/tahmid-khan/recoverylab/internal/model"
)

func memBooking(id, serviceID string, start, duration int, createdAt time.Time) model.Booking {
	return model.Booking{
		ID:          id,
		ServiceID:   serviceID,
		Date:        time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
		StartMinute: start,
		Duration:    duration,
		UserName:    "Arif Hossain",
		UserEmail:   "arif@example.com",
		UserPhone:   "0171234567",
		Status:      model.StatusPending,
		CreatedAt:   createdAt,
	}
}

func TestMemoryReserveCountsWholeInterval(t *testing.T) {
	m := NewMemory()
	m.bookings = append(m.bookings, memBooking("b-1", "svc-sauna", 1050, 30, time.Now()))

	// A 60-minute session starting at 5:00 PM covers the 5:30 PM
	// sub-slot already held above; with capacity 1 it must be refused
	// even though 5:00 PM itself is free.
	b := memBooking("", "svc-sauna", 1020, 60, time.Time{})
	if err := m.Reserve(context.Background(), &b, 1); !errors.Is(err, booking.ErrSlotConflict) {
		t.Fatalf("Reserve error = %v, want ErrSlotConflict", err)
	}

	// The half-open interval leaves the adjacent earlier sub-slot open.
	b2 := memBooking("", "svc-sauna", 960, 60, time.Time{})
	if err := m.Reserve(context.Background(), &b2, 1); err != nil {
		t.Fatalf("Reserve at 4:00 PM: %v", err)
	}
}

func TestMemoryLatestByContactBreaksCreatedAtTies(t *testing.T) {
	m := NewMemory()
	at := time.Date(2026, 3, 13, 16, 0, 0, 0, time.UTC)
	m.bookings = append(m.bookings,
		memBooking("b-1", "svc-ice", 1020, 60, at),
		memBooking("b-2", "svc-ice", 1050, 30, at),
	)

	got, err := m.LatestByContact(context.Background(), "0171234567", "arif@example.com")
	if err != nil {
		t.Fatalf("LatestByContact: %v", err)
	}
	if got.ID != "b-2" {
		t.Fatalf("LatestByContact picked %q, want b-2", got.ID)
	}
}
