package reminder

import (
	"fmt"

	"resort-billing/models"
)

// TriggerDate returns the day a reminder of type t becomes eligible for an
// invoice due on due. Days is ignored for "on".
func TriggerDate(due Date, t models.ReminderType, days int) (Date, error) {
	if due.IsZero() {
		return Date{}, fmt.Errorf("%w: invoice has no due date", ErrConfiguration)
	}
	switch t {
	case models.ReminderOn:
		return due, nil
	case models.ReminderBefore, models.ReminderAfter:
		if days < 1 {
			return Date{}, fmt.Errorf("%w: %s reminder needs days >= 1, got %d", ErrConfiguration, t, days)
		}
		if t == models.ReminderBefore {
			return due.AddDays(-days), nil
		}
		return due.AddDays(days), nil
	default:
		return Date{}, fmt.Errorf("%w: unknown reminder type %q", ErrConfiguration, t)
	}
}
