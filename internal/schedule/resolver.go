// Package schedule resolves which opening rule governs a (service, date)
// pair and expands the winning rule into candidate slots.
package schedule

import (
	"errors"
	"sort"
	"time"

	"github.com/tahmid-khan/recoverylab/internal/model"
)

// ErrNoSchedule means no rule matched the date at all. It is a
// configuration gap, distinct from a day an admin explicitly closed.
var ErrNoSchedule = errors.New("no schedule rule defined for date")

const dateLayout = "2006-01-02"

// Resolve picks the single applicable rule for serviceID on date.
// Precedence, highest first:
//
//  1. custom rule for the date and this service
//  2. custom rule for the date, all services
//  3. weekday/weekend rule for this service
//  4. weekday/weekend rule, all services
//
// Resolution is a pure function of its inputs. Ties within a tier are
// not expected from well-formed rule sets; when they occur the rule
// with the lowest ID wins so the outcome stays deterministic.
func Resolve(serviceID string, date time.Time, rules []model.ScheduleRule) (model.ScheduleRule, error) {
	ordered := make([]model.ScheduleRule, len(rules))
	copy(ordered, rules)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	dayType := model.RuleWeekday
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		dayType = model.RuleWeekend
	}
	dateKey := date.Format(dateLayout)

	match := func(tier func(model.ScheduleRule) bool) (model.ScheduleRule, bool) {
		for _, r := range ordered {
			if tier(r) {
				return r, true
			}
		}
		return model.ScheduleRule{}, false
	}

	customFor := func(r model.ScheduleRule) bool {
		return r.Type == model.RuleCustom && r.Date != nil && r.Date.Format(dateLayout) == dateKey
	}
	tiers := []func(model.ScheduleRule) bool{
		func(r model.ScheduleRule) bool {
			return customFor(r) && r.ServiceID != nil && *r.ServiceID == serviceID
		},
		func(r model.ScheduleRule) bool {
			return customFor(r) && r.ServiceID == nil
		},
		func(r model.ScheduleRule) bool {
			return r.Type == dayType && r.ServiceID != nil && *r.ServiceID == serviceID
		},
		func(r model.ScheduleRule) bool {
			return r.Type == dayType && r.ServiceID == nil
		},
	}

	for _, tier := range tiers {
		if r, ok := match(tier); ok {
			return r, nil
		}
	}
	return model.ScheduleRule{}, ErrNoSchedule
}
