package database

import (
	"context"

	"gorm.io/gorm"

	"resort-billing/models"
)

// ActivityLog persists reminder dispatch attempts to reminder_logs.
type ActivityLog struct {
	db *gorm.DB
}

func NewActivityLog(db *gorm.DB) *ActivityLog {
	return &ActivityLog{db: db}
}

func (a *ActivityLog) RecordReminder(ctx context.Context, entry models.ReminderLog) error {
	return a.db.WithContext(ctx).Create(&entry).Error
}

// ForInvoice returns the newest entries for one invoice.
func (a *ActivityLog) ForInvoice(ctx context.Context, invoiceID uint, limit int) ([]models.ReminderLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var logs []models.ReminderLog
	err := a.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("sent_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
