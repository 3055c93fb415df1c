package schedule

import (
	"errors"
	"fmt"

	"github.com/tahmid-khan/recoverylab/internal/model"
	"github.com/tahmid-khan/recoverylab/internal/slotlabel"
)

// ErrClosed means the resolved rule explicitly closes the day. The
// rule's slots field is ignored in that case.
var ErrClosed = errors.New("day is closed")

// Slot is a candidate session start within a day.
type Slot struct {
	Label       string
	StartMinute int
}

// Expand turns a resolved rule into ordered candidate slots. Order is
// the rule's authored order; labels are re-encoded into canonical form
// so "05:00 PM" and "5:00 PM" in rule data name the same slot. A label
// that fails to decode aborts the expansion; callers log it and degrade
// to an empty day rather than offering a partially decoded schedule.
func Expand(rule model.ScheduleRule) ([]Slot, error) {
	if rule.IsClosed {
		return nil, ErrClosed
	}

	slots := make([]Slot, 0, len(rule.Slots))
	for _, label := range rule.Slots {
		mins, err := slotlabel.Minutes(label)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", rule.ID, err)
		}
		slots = append(slots, Slot{Label: slotlabel.Label(mins), StartMinute: mins})
	}
	return slots, nil
}
