package availability

import (
	"testing"

	"github.com/tahmid-khan/recoverylab/internal/schedule"
)

func daySlots() []schedule.Slot {
	return []schedule.Slot{
		{Label: "5:00 PM", StartMinute: 1020},
		{Label: "5:30 PM", StartMinute: 1050},
		{Label: "6:00 PM", StartMinute: 1080},
	}
}

func TestOccupiedCountsHourLongSessionSpansSubSlots(t *testing.T) {
	sessions := []Session{
		{StartMinute: 1020, Duration: 60},
	}
	counts := OccupiedCounts(daySlots(), sessions)
	want := []int{1, 1, 0}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("slot %d count = %d, want %d", i, counts[i], want[i])
		}
	}
}

func TestOccupiedCountsMixedDurations(t *testing.T) {
	sessions := []Session{
		{StartMinute: 1020, Duration: 60},
		{StartMinute: 1020, Duration: 30},
		{StartMinute: 1050, Duration: 30},
		{StartMinute: 1080, Duration: 60},
	}
	counts := OccupiedCounts(daySlots(), sessions)
	want := []int{2, 2, 1}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("slot %d count = %d, want %d", i, counts[i], want[i])
		}
	}
}

func TestOccupiedCountsHalfOpenBoundary(t *testing.T) {
	// A session ending exactly at a slot start does not occupy it.
	sessions := []Session{{StartMinute: 960, Duration: 60}}
	counts := OccupiedCounts(daySlots(), sessions)
	for i, c := range counts {
		if c != 0 {
			t.Errorf("slot %d count = %d, want 0", i, c)
		}
	}
}

func TestPeakOccupancySeesMidIntervalStarts(t *testing.T) {
	// A half-hour session at 5:30 PM sits inside an hour-long session
	// starting at 5:00 PM. The peak for that hour is at 5:30, not at
	// the hour's own start.
	sessions := []Session{{StartMinute: 1050, Duration: 30}}
	if got := PeakOccupancy(1020, 60, sessions); got != 1 {
		t.Errorf("PeakOccupancy(1020, 60) = %d, want 1", got)
	}
	// The half-open end excludes a session starting exactly at the
	// interval's end.
	if got := PeakOccupancy(1020, 30, sessions); got != 0 {
		t.Errorf("PeakOccupancy(1020, 30) = %d, want 0", got)
	}
}

func TestPeakOccupancyStacksOverlaps(t *testing.T) {
	sessions := []Session{
		{StartMinute: 1020, Duration: 60},
		{StartMinute: 1050, Duration: 30},
	}
	if got := PeakOccupancy(1020, 60, sessions); got != 2 {
		t.Errorf("PeakOccupancy(1020, 60) = %d, want 2", got)
	}
}

func TestOccupancyAt(t *testing.T) {
	sessions := []Session{
		{StartMinute: 1020, Duration: 60},
		{StartMinute: 1050, Duration: 30},
	}
	if got := OccupancyAt(1050, sessions); got != 2 {
		t.Errorf("OccupancyAt(1050) = %d, want 2", got)
	}
	if got := OccupancyAt(1080, sessions); got != 0 {
		t.Errorf("OccupancyAt(1080) = %d, want 0", got)
	}
}
