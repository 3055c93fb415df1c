// Package availability computes per-slot occupancy and the final
// bookable slot projection for a day. Everything here is a pure
// read-side function; the write path recounts for itself.
package availability

import "github.com/tahmid-khan/recoverylab/internal/schedule"

// Session is an existing capacity-holding booking, reduced to the
// interval it occupies. Callers pass only bookings in an active status.
type Session struct {
	StartMinute int
	Duration    int
}

// OccupiedCounts returns, for each candidate slot, how many sessions
// cover its start. A session covers the half-open interval
// [start, start+duration), so a 60-minute session at 5:00 PM occupies
// both the 5:00 PM and 5:30 PM sub-slots. Counting by interval cover is
// what keeps mixed 30/60-minute bookings from over-subscribing one
// physical resource.
func OccupiedCounts(slots []schedule.Slot, sessions []Session) []int {
	counts := make([]int, len(slots))
	for _, s := range sessions {
		if s.Duration <= 0 {
			continue
		}
		end := s.StartMinute + s.Duration
		for i, slot := range slots {
			if slot.StartMinute >= s.StartMinute && slot.StartMinute < end {
				counts[i]++
			}
		}
	}
	return counts
}

// OccupancyAt counts the sessions covering a single slot start.
func OccupancyAt(startMinute int, sessions []Session) int {
	n := 0
	for _, s := range sessions {
		if s.Duration <= 0 {
			continue
		}
		if startMinute >= s.StartMinute && startMinute < s.StartMinute+s.Duration {
			n++
		}
	}
	return n
}

// PeakOccupancy returns the highest occupancy at any point within
// [start, start+duration). Occupancy can only rise where a session
// begins, so the peak is found at start or at a session start inside
// the interval. The reservation writer checks this over the whole
// interval of a new session: a 60-minute session must not push any
// 30-minute sub-slot it spans past capacity, not just its own start.
func PeakOccupancy(start, duration int, sessions []Session) int {
	peak := OccupancyAt(start, sessions)
	for _, s := range sessions {
		if s.StartMinute <= start || s.StartMinute >= start+duration {
			continue
		}
		if n := OccupancyAt(s.StartMinute, sessions); n > peak {
			peak = n
		}
	}
	return peak
}
