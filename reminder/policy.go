package reminder

import (
	"fmt"

	"resort-billing/models"
)

// Policy is the effective reminder policy for one invoice and one global rule.
type Policy struct {
	RuleID    uint
	Type      models.ReminderType
	Days      int
	Frequency models.Frequency
	Template  string
	Subject   string
}

// Resolve merges rule with the invoice override of the same type.
// It returns ok=false when the override disables the type for this invoice.
func Resolve(overrides models.ReminderConfigs, rule models.ReminderRule) (p Policy, ok bool, err error) {
	if !rule.ReminderType.Valid() {
		return Policy{}, false, fmt.Errorf("%w: rule %d has unknown type %q", ErrConfiguration, rule.ID, rule.ReminderType)
	}
	o := overrides.For(rule.ReminderType)
	if o != nil && o.Enabled != nil && !*o.Enabled {
		return Policy{}, false, nil
	}

	p = Policy{
		RuleID:    rule.ID,
		Type:      rule.ReminderType,
		Days:      rule.Days,
		Frequency: rule.Frequency,
		Template:  rule.Template,
		Subject:   rule.Subject,
	}
	if o != nil && o.Days != nil {
		p.Days = *o.Days
	}
	if o != nil && o.Frequency != nil && *o.Frequency != "" {
		p.Frequency = *o.Frequency
	}
	if p.Frequency == "" {
		p.Frequency = models.FrequencyOnce
	}
	if !p.Frequency.Valid() {
		return Policy{}, false, fmt.Errorf("%w: unknown frequency %q", ErrConfiguration, p.Frequency)
	}
	return p, true, nil
}
