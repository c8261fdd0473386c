package reminder

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"resort-billing/logger"
	"resort-billing/models"
)

// Check names, shared with the scheduler and the admin API.
const (
	CheckOverdue   = "overdue"
	CheckReminders = "reminders"
	CheckExpiry    = "expiry"
	CheckCustom    = "custom"
)

// Store is the persistence the checks need. Implementations must return
// invoices and rules in a stable order (rules: ascending ID).
type Store interface {
	ListEnabledRules(ctx context.Context) ([]models.ReminderRule, error)
	// FindReminderCandidates returns invoices in a reminder status with a positive balance and reminders enabled.
	FindReminderCandidates(ctx context.Context) ([]models.Invoice, error)
	// FindOverdueCandidates returns Pending/Partial/Sent invoices with a positive balance due before the given day.
	FindOverdueCandidates(ctx context.Context, dueBefore time.Time) ([]models.Invoice, error)
	// FindCustomReminderCandidates returns reminder candidates whose custom reminder date is in [from, to).
	FindCustomReminderCandidates(ctx context.Context, from, to time.Time) ([]models.Invoice, error)
	// FindExpirableQuotations returns open, unconverted quotations valid until before the given day.
	FindExpirableQuotations(ctx context.Context, validBefore time.Time) ([]models.Quotation, error)

	UpdateInvoiceStatus(ctx context.Context, id uint, status models.InvoiceStatus) error
	MarkReminderSent(ctx context.Context, id uint, at time.Time, clearCustom bool) error
	SetCustomReminderDate(ctx context.Context, id uint, day *time.Time) error
	UpdateQuotationStatus(ctx context.Context, id uint, status models.QuotationStatus) error
	MarkRulesRun(ctx context.Context, ids []uint, lastRun time.Time, nextRun *time.Time) error
}

// Mailer delivers one reminder email and returns its message id.
// Empty template or subject selects the default content for the type.
type Mailer interface {
	SendReminder(ctx context.Context, inv *models.Invoice, t models.ReminderType, template, subject string) (string, error)
}

// ActivityLog receives one entry per dispatch attempt.
type ActivityLog interface {
	RecordReminder(ctx context.Context, entry models.ReminderLog) error
}

// Result summarises one run of a check.
type Result struct {
	Check        string        `json:"check"`
	Day          string        `json:"day"`
	Scanned      int           `json:"scanned"`
	Transitioned int           `json:"transitioned"`
	Sent         int           `json:"sent"`
	Failed       int           `json:"failed"`
	Skipped      int           `json:"skipped"`
	StartedAt    time.Time     `json:"started_at"`
	Took         time.Duration `json:"took"`
}

// Service runs the lifecycle and reminder checks. Runs are sequential:
// invoices are processed one at a time in store order.
type Service struct {
	store    Store
	mailer   Mailer
	activity ActivityLog
	now      func() time.Time
	loc      *time.Location
	nextRun  func(check string) *time.Time
	log      zerolog.Logger
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the timezone that defines "today".
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithActivityLog(a ActivityLog) Option {
	return func(s *Service) { s.activity = a }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithNextRun lets the scheduler report when a check fires next; used for rule bookkeeping.
func WithNextRun(f func(check string) *time.Time) Option {
	return func(s *Service) { s.nextRun = f }
}

func NewService(store Store, mailer Mailer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		mailer: mailer,
		now:    time.Now,
		loc:    time.Local,
		log:    logger.WithComponent("reminder"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetNextRun installs the next-run lookup after construction.
func (s *Service) SetNextRun(f func(check string) *time.Time) { s.nextRun = f }

// Today returns the current calendar day in the service timezone.
func (s *Service) Today() Date {
	return DateIn(s.now(), s.loc)
}

// Location returns the service timezone.
func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) begin(check string) (Result, time.Time, Date) {
	now := s.now()
	today := DateIn(now, s.loc)
	return Result{Check: check, Day: today.String(), StartedAt: now}, now, today
}

func (s *Service) finish(res Result) Result {
	res.Took = s.now().Sub(res.StartedAt)
	s.log.Info().
		Str("check", res.Check).
		Str("day", res.Day).
		Int("scanned", res.Scanned).
		Int("transitioned", res.Transitioned).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Dur("took", res.Took).
		Msg("check finished")
	return res
}

// dayBound converts a calendar day to the instant used in date-column predicates.
func dayBound(d Date) time.Time { return d.Start(time.UTC) }
