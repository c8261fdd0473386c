package reminder_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"resort-billing/models"
	"resort-billing/reminder"
)

// memStore is an in-memory reminder.Store that applies the same predicates as the GORM store.
type memStore struct {
	mu         sync.Mutex
	invoices   []models.Invoice
	quotations []models.Quotation
	rules      []models.ReminderRule

	failStatus map[uint]error
	failMark   map[uint]error
	failQuote  map[uint]error
	listErr    error

	rulesRun []uint
	nextRun  *time.Time
}

func newMemStore() *memStore {
	return &memStore{
		failStatus: map[uint]error{},
		failMark:   map[uint]error{},
		failQuote:  map[uint]error{},
	}
}

func (s *memStore) invoice(id uint) *models.Invoice {
	for i := range s.invoices {
		if s.invoices[i].ID == id {
			return &s.invoices[i]
		}
	}
	return nil
}

func (s *memStore) quotation(id uint) *models.Quotation {
	for i := range s.quotations {
		if s.quotations[i].ID == id {
			return &s.quotations[i]
		}
	}
	return nil
}

func (s *memStore) ListEnabledRules(ctx context.Context) ([]models.ReminderRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.ReminderRule
	for _, r := range s.rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) FindReminderCandidates(ctx context.Context) ([]models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Invoice
	for _, inv := range s.invoices {
		if inv.IsReminderCandidate() {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (s *memStore) FindOverdueCandidates(ctx context.Context, dueBefore time.Time) ([]models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Invoice
	for _, inv := range s.invoices {
		if inv.DueDate != nil && inv.DueDate.Before(dueBefore) && inv.Status.In(models.OverdueStatuses...) && inv.Balance().IsPositive() {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (s *memStore) FindCustomReminderCandidates(ctx context.Context, from, to time.Time) ([]models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Invoice
	for _, inv := range s.invoices {
		d := inv.CustomReminderDate
		if d != nil && !d.Before(from) && d.Before(to) && inv.IsReminderCandidate() {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (s *memStore) FindExpirableQuotations(ctx context.Context, validBefore time.Time) ([]models.Quotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Quotation
	for _, q := range s.quotations {
		if q.ValidUntil != nil && q.ValidUntil.Before(validBefore) && !q.IsSettled() {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *memStore) UpdateInvoiceStatus(ctx context.Context, id uint, status models.InvoiceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failStatus[id]; err != nil {
		return err
	}
	inv := s.invoice(id)
	if inv == nil {
		return errors.New("not found")
	}
	inv.Status = status
	return nil
}

func (s *memStore) MarkReminderSent(ctx context.Context, id uint, at time.Time, clearCustom bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failMark[id]; err != nil {
		return err
	}
	inv := s.invoice(id)
	if inv == nil {
		return errors.New("not found")
	}
	inv.LastReminderSentAt = &at
	if clearCustom {
		inv.CustomReminderDate = nil
	}
	return nil
}

func (s *memStore) SetCustomReminderDate(ctx context.Context, id uint, day *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv := s.invoice(id)
	if inv == nil {
		return errors.New("not found")
	}
	inv.CustomReminderDate = day
	return nil
}

func (s *memStore) UpdateQuotationStatus(ctx context.Context, id uint, status models.QuotationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failQuote[id]; err != nil {
		return err
	}
	q := s.quotation(id)
	if q == nil {
		return errors.New("not found")
	}
	q.Status = status
	return nil
}

func (s *memStore) MarkRulesRun(ctx context.Context, ids []uint, lastRun time.Time, nextRun *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rulesRun = append([]uint(nil), ids...)
	s.nextRun = nextRun
	return nil
}

// mockMailer records reminder sends.
type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendReminder(ctx context.Context, inv *models.Invoice, t models.ReminderType, template, subject string) (string, error) {
	args := m.Called(ctx, inv.InvoiceNumber, t, template, subject)
	return args.String(0), args.Error(1)
}

type memActivity struct {
	entries []models.ReminderLog
}

func (a *memActivity) RecordReminder(ctx context.Context, entry models.ReminderLog) error {
	a.entries = append(a.entries, entry)
	return nil
}

var _ reminder.Store = (*memStore)(nil)
