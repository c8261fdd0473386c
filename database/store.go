package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resort-billing/models"
	"resort-billing/reminder"
)

var ErrNotFound = errors.New("record not found")

const (
	balanceOpen     = "final_amount - paid_amount > 0"
	remindersActive = "(reminders_enabled IS NULL OR reminders_enabled = ?)"
)

// Store is the GORM implementation of reminder.Store plus the admin-side queries.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ reminder.Store = (*Store)(nil)

func (s *Store) ListEnabledRules(ctx context.Context) ([]models.ReminderRule, error) {
	var rules []models.ReminderRule
	err := s.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("id ASC").
		Find(&rules).Error
	return rules, err
}

func (s *Store) candidates(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Where("status IN ?", models.ReminderStatuses).
		Where(balanceOpen).
		Where(remindersActive, true)
}

func (s *Store) FindReminderCandidates(ctx context.Context) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.candidates(ctx).Order("id ASC").Find(&invoices).Error
	return invoices, err
}

func (s *Store) FindOverdueCandidates(ctx context.Context, dueBefore time.Time) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Where("status IN ?", models.OverdueStatuses).
		Where(balanceOpen).
		Where("due_date IS NOT NULL AND due_date < ?", dueBefore).
		Order("id ASC").
		Find(&invoices).Error
	return invoices, err
}

func (s *Store) FindCustomReminderCandidates(ctx context.Context, from, to time.Time) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.candidates(ctx).
		Where("custom_reminder_date >= ? AND custom_reminder_date < ?", from, to).
		Order("id ASC").
		Find(&invoices).Error
	return invoices, err
}

func (s *Store) FindExpirableQuotations(ctx context.Context, validBefore time.Time) ([]models.Quotation, error) {
	var quotations []models.Quotation
	err := s.db.WithContext(ctx).
		Where("status NOT IN ?", models.FinalQuotationStatuses).
		Where("converted_to_booking = ?", false).
		Where("valid_until IS NOT NULL AND valid_until < ?", validBefore).
		Order("id ASC").
		Find(&quotations).Error
	return quotations, err
}

func (s *Store) UpdateInvoiceStatus(ctx context.Context, id uint, status models.InvoiceStatus) error {
	return s.updateInvoice(ctx, id, map[string]any{"status": status})
}

func (s *Store) MarkReminderSent(ctx context.Context, id uint, at time.Time, clearCustom bool) error {
	updates := map[string]any{"last_reminder_sent_at": at}
	if clearCustom {
		updates["custom_reminder_date"] = gorm.Expr("NULL")
	}
	return s.updateInvoice(ctx, id, updates)
}

func (s *Store) SetCustomReminderDate(ctx context.Context, id uint, day *time.Time) error {
	return s.updateInvoice(ctx, id, map[string]any{"custom_reminder_date": nullable(day)})
}

func (s *Store) UpdateQuotationStatus(ctx context.Context, id uint, status models.QuotationStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Quotation{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("quotation %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) MarkRulesRun(ctx context.Context, ids []uint, lastRun time.Time, nextRun *time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.ReminderRule{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"last_run": lastRun, "next_run": nullable(nextRun)}).Error
}

func (s *Store) updateInvoice(ctx context.Context, id uint, updates map[string]any) error {
	res := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("invoice %d: %w", id, ErrNotFound)
	}
	return nil
}

// ---- admin side ----

func (s *Store) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.db.WithContext(ctx).First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invoice %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &inv, nil
}

// UpdateReminderSettings writes the admin-owned reminder settings of an invoice.
func (s *Store) UpdateReminderSettings(ctx context.Context, id uint, enabled *bool, configs models.ReminderConfigs) error {
	updates := map[string]any{"reminder_configs": datatypes.NewJSONType(configs)}
	if enabled != nil {
		updates["reminders_enabled"] = *enabled
	}
	return s.updateInvoice(ctx, id, updates)
}

func (s *Store) ListRules(ctx context.Context) ([]models.ReminderRule, error) {
	var rules []models.ReminderRule
	err := s.db.WithContext(ctx).Order("id ASC").Find(&rules).Error
	return rules, err
}

func (s *Store) GetRule(ctx context.Context, id uint) (*models.ReminderRule, error) {
	var rule models.ReminderRule
	if err := s.db.WithContext(ctx).First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("reminder rule %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &rule, nil
}

func (s *Store) CreateRule(ctx context.Context, rule *models.ReminderRule) error {
	return s.db.WithContext(ctx).Create(rule).Error
}

// UpdateRule applies a partial update (column → value) and returns the stored rule.
func (s *Store) UpdateRule(ctx context.Context, id uint, updates map[string]any) (*models.ReminderRule, error) {
	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.ReminderRule{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
	}
	return s.GetRule(ctx, id)
}

func nullable(t *time.Time) any {
	if t == nil {
		return gorm.Expr("NULL")
	}
	return *t
}
