package model

import (
	"fmt"
	"time"
)

type RuleType string

const (
	RuleWeekday RuleType = "weekday"
	RuleWeekend RuleType = "weekend"
	RuleCustom  RuleType = "custom"
)

func ParseRuleType(s string) (RuleType, error) {
	switch RuleType(s) {
	case RuleWeekday, RuleWeekend, RuleCustom:
		return RuleType(s), nil
	}
	return "", fmt.Errorf("unknown rule type %q", s)
}

// ScheduleRule is an admin-authored opening rule. Date is set only for
// custom rules; a nil ServiceID means the rule applies to every service.
// Slots hold the authored slot labels in order and are meaningful only
// when the rule is not closed.
type ScheduleRule struct {
	ID        int64
	Type      RuleType
	Date      *time.Time
	ServiceID *string
	IsClosed  bool
	Slots     []string
}
