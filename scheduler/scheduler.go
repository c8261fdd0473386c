package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"resort-billing/config"
	"resort-billing/logger"
	"resort-billing/reminder"
)

var (
	ErrUnknownCheck = errors.New("unknown check")
	ErrStopped      = errors.New("scheduler stopped")
)

// Checks lists the recurring checks in registration order.
var Checks = []string{reminder.CheckOverdue, reminder.CheckReminders, reminder.CheckExpiry, reminder.CheckCustom}

// startupChecks run once, in this order, shortly after Start.
var startupChecks = []string{reminder.CheckOverdue, reminder.CheckReminders, reminder.CheckExpiry}

// Checker is the work the scheduler coordinates; *reminder.Service implements it.
type Checker interface {
	CheckOverdue(ctx context.Context) (reminder.Result, error)
	CheckReminders(ctx context.Context) (reminder.Result, error)
	CheckExpiredQuotations(ctx context.Context) (reminder.Result, error)
	CheckCustomReminders(ctx context.Context) (reminder.Result, error)
	SetCustomReminder(ctx context.Context, invoiceID uint, day *reminder.Date) error
}

// Scheduler owns the daily schedules and serialises every writer of the
// scheduler-owned invoice and quotation fields.
type Scheduler struct {
	checker Checker
	cfg     config.SchedulerConfig
	loc     *time.Location
	now     func() time.Time
	log     zerolog.Logger

	specs map[string]cron.Schedule

	mu      sync.Mutex
	c       *cron.Cron
	entries map[string]cron.EntryID
	started bool
	stopped bool // set by Stop; refuses new runs
	startup *time.Timer

	group     singleflight.Group
	invoiceMu sync.Mutex // overdue, reminders, custom, SetCustomReminder
	quoteMu   sync.Mutex // expiry
	wg        sync.WaitGroup

	smu     sync.RWMutex
	running map[string]bool
	last    map[string]reminder.Result
	lastErr map[string]string
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New validates the cron specs; nothing runs until Start.
func New(checker Checker, cfg config.SchedulerConfig, loc *time.Location, opts ...Option) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		checker: checker,
		cfg:     cfg,
		loc:     loc,
		now:     time.Now,
		log:     logger.WithComponent("scheduler"),
		specs:   make(map[string]cron.Schedule, len(Checks)),
		entries: make(map[string]cron.EntryID, len(Checks)),
		running: make(map[string]bool),
		last:    make(map[string]reminder.Result),
		lastErr: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, name := range Checks {
		sched, err := parser.Parse(s.spec(name))
		if err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", name, s.spec(name), err)
		}
		s.specs[name] = sched
	}
	return s, nil
}

func (s *Scheduler) spec(name string) string {
	switch name {
	case reminder.CheckOverdue:
		return s.cfg.OverdueSpec
	case reminder.CheckReminders:
		return s.cfg.RemindersSpec
	case reminder.CheckExpiry:
		return s.cfg.ExpirySpec
	case reminder.CheckCustom:
		return s.cfg.CustomSpec
	}
	return ""
}

// Start registers the schedules and arms the startup run. Calling it again is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.log.Debug().Msg("scheduler already started")
		return nil
	}

	cl := cronLogger{log: s.log}
	s.c = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if !s.cfg.DisableSchedule {
		for _, name := range Checks {
			id := s.c.Schedule(s.specs[name], cron.FuncJob(func() {
				_, _ = s.Run(context.Background(), name)
			}))
			s.entries[name] = id
		}
	}
	s.c.Start()

	if s.cfg.RunOnStartup {
		runCtx := context.WithoutCancel(ctx)
		s.startup = time.AfterFunc(s.cfg.StartupDelay, func() {
			for _, name := range startupChecks {
				_, _ = s.Run(runCtx, name)
			}
		})
	}
	s.started = true
	s.stopped = false

	s.log.Info().
		Str("tz", s.loc.String()).
		Bool("schedules", !s.cfg.DisableSchedule).
		Bool("startup_run", s.cfg.RunOnStartup).
		Dur("startup_delay", s.cfg.StartupDelay).
		Msg("scheduler started")
	return nil
}

// Stop halts the schedules and waits for in-flight runs; runs are never interrupted.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	if s.startup != nil {
		s.startup.Stop()
	}
	cronDone := s.c.Stop()
	s.started = false
	s.stopped = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// Run executes a check now. Concurrent calls for the same check share one run.
// Cancelling ctx does not interrupt a run in progress. After Stop it returns ErrStopped.
func (s *Scheduler) Run(ctx context.Context, name string) (reminder.Result, error) {
	fn, lock, ok := s.job(name)
	if !ok {
		return reminder.Result{}, fmt.Errorf("%w: %q", ErrUnknownCheck, name)
	}
	runCtx := context.WithoutCancel(ctx)

	// Add under mu so it never races the Wait in Stop
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return reminder.Result{}, fmt.Errorf("%w: %s not run", ErrStopped, name)
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	v, err, shared := s.group.Do(name, func() (any, error) {
		return s.exec(runCtx, name, fn, lock)
	})
	if shared {
		s.log.Debug().Str("check", name).Msg("joined running check")
	}
	res, _ := v.(reminder.Result)
	return res, err
}

func (s *Scheduler) job(name string) (func(context.Context) (reminder.Result, error), *sync.Mutex, bool) {
	switch name {
	case reminder.CheckOverdue:
		return s.checker.CheckOverdue, &s.invoiceMu, true
	case reminder.CheckReminders:
		return s.checker.CheckReminders, &s.invoiceMu, true
	case reminder.CheckCustom:
		return s.checker.CheckCustomReminders, &s.invoiceMu, true
	case reminder.CheckExpiry:
		return s.checker.CheckExpiredQuotations, &s.quoteMu, true
	}
	return nil, nil, false
}

func (s *Scheduler) exec(ctx context.Context, name string, fn func(context.Context) (reminder.Result, error), lock *sync.Mutex) (res reminder.Result, err error) {
	lock.Lock()
	defer lock.Unlock()

	s.setRunning(name, true)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check %s panicked: %v", name, r)
		}
		s.record(name, res, err)
	}()

	s.log.Debug().Str("check", name).Msg("check started")
	return fn(ctx)
}

func (s *Scheduler) setRunning(name string, v bool) {
	s.smu.Lock()
	s.running[name] = v
	s.smu.Unlock()
}

func (s *Scheduler) record(name string, res reminder.Result, err error) {
	s.smu.Lock()
	s.running[name] = false
	s.last[name] = res
	if err != nil {
		s.lastErr[name] = err.Error()
	} else {
		delete(s.lastErr, name)
	}
	s.smu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Str("check", name).Msg("check failed")
	}
}

// SetCustomReminder schedules or clears a one-off reminder under the invoice lock.
func (s *Scheduler) SetCustomReminder(ctx context.Context, invoiceID uint, day *reminder.Date) error {
	s.invoiceMu.Lock()
	defer s.invoiceMu.Unlock()
	return s.checker.SetCustomReminder(ctx, invoiceID, day)
}

// NextRun returns the next firing of a check, or nil when schedules are disabled.
func (s *Scheduler) NextRun(name string) *time.Time {
	sched, ok := s.specs[name]
	if !ok || s.cfg.DisableSchedule {
		return nil
	}
	next := sched.Next(s.now().In(s.loc))
	if next.IsZero() {
		return nil
	}
	return &next
}

func (s *Scheduler) prevRun(name string) *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.entries[name]
	if !ok || s.c == nil {
		return nil
	}
	prev := s.c.Entry(id).Prev
	if prev.IsZero() {
		return nil
	}
	return &prev
}

// Location returns the timezone the schedules fire in.
func (s *Scheduler) Location() *time.Location { return s.loc }
