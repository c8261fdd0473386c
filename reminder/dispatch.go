package reminder

import (
	"context"
	"fmt"
	"time"

	"resort-billing/models"
)

type outcome int

const (
	outcomeNone outcome = iota
	outcomeAlreadySent
	outcomeSent
	outcomeSentUnsaved
	outcomeFailed
)

// CheckReminders evaluates every reminder candidate against the enabled rules and
// sends at most one reminder per invoice per day. Past-due invoices are marked
// Overdue first so "after" reminders see the current status.
func (s *Service) CheckReminders(ctx context.Context) (Result, error) {
	res, now, today := s.begin(CheckReminders)

	rules, err := s.store.ListEnabledRules(ctx)
	if err != nil {
		return s.finish(res), fmt.Errorf("%w: list reminder rules: %w", ErrPersistence, err)
	}
	invoices, err := s.store.FindReminderCandidates(ctx)
	if err != nil {
		return s.finish(res), fmt.Errorf("%w: list reminder candidates: %w", ErrPersistence, err)
	}

	for i := range invoices {
		inv := &invoices[i]
		if !inv.IsReminderCandidate() {
			continue
		}
		res.Scanned++

		changed, err := s.markOverdue(ctx, inv, today)
		if err != nil {
			res.Failed++
		} else if changed {
			res.Transitioned++
		}

		s.count(&res, s.remind(ctx, inv, rules, now, today, CheckReminders))
	}

	s.touchRules(ctx, rules, now)
	return s.finish(res), nil
}

// CheckCustomReminders sends the one-off reminders scheduled for today.
func (s *Service) CheckCustomReminders(ctx context.Context) (Result, error) {
	res, now, today := s.begin(CheckCustom)

	invoices, err := s.store.FindCustomReminderCandidates(ctx, dayBound(today), dayBound(today.AddDays(1)))
	if err != nil {
		return s.finish(res), fmt.Errorf("%w: list custom reminders: %w", ErrPersistence, err)
	}
	for i := range invoices {
		inv := &invoices[i]
		if !inv.IsReminderCandidate() || !customDue(inv, today) {
			continue
		}
		res.Scanned++
		if sentOn(inv.LastReminderSentAt, today, s.loc) {
			res.Skipped++
			continue
		}
		s.count(&res, s.dispatch(ctx, inv, customPolicy(), now, true, CheckCustom))
	}
	return s.finish(res), nil
}

// SetCustomReminder schedules (day != nil) or clears a one-off reminder.
// Callers must hold the scheduler's invoice lock.
func (s *Service) SetCustomReminder(ctx context.Context, invoiceID uint, day *Date) error {
	if day == nil {
		return s.store.SetCustomReminderDate(ctx, invoiceID, nil)
	}
	if day.Before(s.Today()) {
		return fmt.Errorf("%w: custom reminder date %s is in the past", ErrConfiguration, day)
	}
	t := dayBound(*day)
	return s.store.SetCustomReminderDate(ctx, invoiceID, &t)
}

func (s *Service) count(res *Result, o outcome) {
	switch o {
	case outcomeSent:
		res.Sent++
	case outcomeSentUnsaved:
		res.Sent++
		res.Failed++
	case outcomeFailed:
		res.Failed++
	case outcomeAlreadySent:
		res.Skipped++
	}
}

// remind applies the one-per-day guard, then the first matching rule, then the custom date.
func (s *Service) remind(ctx context.Context, inv *models.Invoice, rules []models.ReminderRule, now time.Time, today Date, check string) outcome {
	if sentOn(inv.LastReminderSentAt, today, s.loc) {
		return outcomeAlreadySent
	}
	if p, ok := s.firstDue(inv, rules, today); ok {
		return s.dispatch(ctx, inv, p, now, false, check)
	}
	if customDue(inv, today) {
		return s.dispatch(ctx, inv, customPolicy(), now, true, check)
	}
	return outcomeNone
}

// firstDue returns the first rule, in store order, whose policy fires today.
func (s *Service) firstDue(inv *models.Invoice, rules []models.ReminderRule, today Date) (Policy, bool) {
	if inv.DueDate == nil {
		s.log.Debug().Str("invoice", inv.InvoiceNumber).Msg("no due date, rule reminders skipped")
		return Policy{}, false
	}
	due := DateOf(*inv.DueDate)
	overrides := inv.Overrides()

	for _, rule := range rules {
		p, ok, err := Resolve(overrides, rule)
		if err != nil {
			s.warnConfig(inv, rule, err)
			continue
		}
		if !ok {
			continue
		}
		sendOn, err := TriggerDate(due, p.Type, p.Days)
		if err != nil {
			s.warnConfig(inv, rule, err)
			continue
		}
		if ShouldSend(today, sendOn, p.Frequency) {
			return p, true
		}
	}
	return Policy{}, false
}

func (s *Service) warnConfig(inv *models.Invoice, rule models.ReminderRule, err error) {
	cerr := &CheckError{Op: "resolve rule", Invoice: inv.InvoiceNumber, RuleType: string(rule.ReminderType), Err: err}
	s.log.Warn().Err(cerr).Uint("rule_id", rule.ID).Msg("reminder rule skipped")
}

// dispatch sends one reminder and records it. A delivery failure leaves the
// invoice untouched so the next run retries it.
func (s *Service) dispatch(ctx context.Context, inv *models.Invoice, p Policy, now time.Time, custom bool, check string) outcome {
	entry := models.ReminderLog{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ReminderType:  p.Type,
		Check:         check,
		Recipient:     inv.Email,
		SentAt:        now,
	}
	if p.RuleID != 0 {
		id := p.RuleID
		entry.RuleID = &id
	}

	msgID, err := s.mailer.SendReminder(ctx, inv, p.Type, p.Template, p.Subject)
	if err != nil {
		cerr := &CheckError{Op: "send reminder", Invoice: inv.InvoiceNumber, RuleType: string(p.Type), Err: fmt.Errorf("%w: %w", ErrDelivery, err)}
		s.log.Error().Err(cerr).Uint("invoice_id", inv.ID).Str("check", check).Msg("reminder not delivered")
		entry.Status = models.ReminderLogFailed
		entry.Error = cerr.Error()
		s.record(ctx, entry)
		return outcomeFailed
	}
	entry.Status = models.ReminderLogSent
	entry.MessageID = msgID
	s.record(ctx, entry)

	s.log.Info().
		Str("invoice", inv.InvoiceNumber).
		Str("rule_type", string(p.Type)).
		Str("frequency", string(p.Frequency)).
		Bool("custom", custom).
		Str("message_id", msgID).
		Msg("reminder sent")

	// a rule-based send on the custom date covers the custom reminder too
	clearCustom := custom || customDue(inv, DateIn(now, s.loc))
	if err := s.store.MarkReminderSent(ctx, inv.ID, now, clearCustom); err != nil {
		cerr := &CheckError{Op: "mark reminder sent", Invoice: inv.InvoiceNumber, RuleType: string(p.Type), Err: fmt.Errorf("%w: %w", ErrPersistence, err)}
		s.log.Error().Err(cerr).Uint("invoice_id", inv.ID).Msg("reminder sent but not recorded on invoice")
		return outcomeSentUnsaved
	}
	inv.LastReminderSentAt = &now
	if clearCustom {
		inv.CustomReminderDate = nil
	}
	return outcomeSent
}

func (s *Service) record(ctx context.Context, entry models.ReminderLog) {
	if s.activity == nil {
		return
	}
	if err := s.activity.RecordReminder(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("invoice", entry.InvoiceNumber).Msg("reminder activity not recorded")
	}
}

// touchRules stamps the enabled rules with this run's time.
func (s *Service) touchRules(ctx context.Context, rules []models.ReminderRule, now time.Time) {
	if len(rules) == 0 {
		return
	}
	ids := make([]uint, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	var next *time.Time
	if s.nextRun != nil {
		next = s.nextRun(CheckReminders)
	}
	if err := s.store.MarkRulesRun(ctx, ids, now, next); err != nil {
		s.log.Warn().Err(err).Msg("could not update reminder rule run times")
	}
}

// customPolicy is the default-content "on" reminder used for custom dates.
func customPolicy() Policy {
	return Policy{Type: models.ReminderOn, Frequency: models.FrequencyOnce}
}

func customDue(inv *models.Invoice, today Date) bool {
	return inv.CustomReminderDate != nil && DateOf(*inv.CustomReminderDate).Equal(today)
}

func sentOn(at *time.Time, today Date, loc *time.Location) bool {
	return at != nil && DateIn(*at, loc).Equal(today)
}
