package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "Draft"
	InvoiceSent      InvoiceStatus = "Sent"
	InvoicePending   InvoiceStatus = "Pending"
	InvoicePartial   InvoiceStatus = "Partial"
	InvoicePaid      InvoiceStatus = "Paid"
	InvoiceOverdue   InvoiceStatus = "Overdue"
	InvoiceCancelled InvoiceStatus = "Cancelled"
)

// ReminderStatuses are the invoice states that may receive payment reminders.
var ReminderStatuses = []InvoiceStatus{InvoicePending, InvoicePartial, InvoiceSent, InvoiceOverdue}

// OverdueStatuses are the invoice states that flip to Overdue once the due date has passed.
var OverdueStatuses = []InvoiceStatus{InvoicePending, InvoicePartial, InvoiceSent}

// Invoice is the billing document issued for a booking.
//
// Status, LastReminderSentAt and CustomReminderDate are owned by the reminder
// scheduler; request handlers must go through scheduler.Scheduler to change them.
type Invoice struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	InvoiceNumber string        `json:"invoice_number" gorm:"unique;not null"`
	BookingID     *uint         `json:"booking_id" gorm:"index"`
	GuestName     string        `json:"guest_name"`
	Email         string        `json:"email"`
	Status        InvoiceStatus `json:"status" gorm:"type:varchar(20);index;not null"`

	FinalAmount decimal.Decimal `json:"final_amount" gorm:"type:numeric(12,2)"`
	PaidAmount  decimal.Decimal `json:"paid_amount" gorm:"type:numeric(12,2)"`
	DueDate     *time.Time      `json:"due_date" gorm:"type:date;index"`

	// Reminder settings (admin UI)
	RemindersEnabled *bool                               `json:"reminders_enabled" gorm:"default:true"`
	ReminderConfigs  datatypes.JSONType[ReminderConfigs] `json:"reminder_configs"`

	// Reminder state (scheduler)
	LastReminderSentAt *time.Time `json:"last_reminder_sent_at"`
	CustomReminderDate *time.Time `json:"custom_reminder_date" gorm:"type:date;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Balance is the amount still owed.
func (inv *Invoice) Balance() decimal.Decimal {
	return inv.FinalAmount.Sub(inv.PaidAmount)
}

// RemindersOn reports whether reminders are enabled; unset means enabled.
func (inv *Invoice) RemindersOn() bool {
	return inv.RemindersEnabled == nil || *inv.RemindersEnabled
}

// IsReminderCandidate reports whether the invoice may receive a reminder at all.
func (inv *Invoice) IsReminderCandidate() bool {
	return inv.Status.In(ReminderStatuses...) && inv.Balance().IsPositive() && inv.RemindersOn()
}

// Overrides returns the per-invoice reminder overrides.
func (inv *Invoice) Overrides() ReminderConfigs {
	return inv.ReminderConfigs.Data()
}

func (s InvoiceStatus) In(set ...InvoiceStatus) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
