package availability

import "github.com/tahmid-khan/recoverylab/internal/schedule"

// Filter reduces candidate slots to the bookable ones: occupancy below
// capacity, and, when the target date is today, a start strictly after
// the current minute-of-day. counts must be positionally aligned with
// slots (as produced by OccupiedCounts).
//
// The result is advisory only. The reservation writer revalidates
// against committed state and never trusts this projection.
func Filter(slots []schedule.Slot, counts []int, capacity int, nowMinute int, isToday bool) []schedule.Slot {
	open := make([]schedule.Slot, 0, len(slots))
	for i, slot := range slots {
		if i < len(counts) && counts[i] >= capacity {
			continue
		}
		if isToday && slot.StartMinute <= nowMinute {
			continue
		}
		open = append(open, slot)
	}
	return open
}
