package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type QuotationStatus string

const (
	QuotationDraft    QuotationStatus = "Draft"
	QuotationSent     QuotationStatus = "Sent"
	QuotationAccepted QuotationStatus = "Accepted"
	QuotationRejected QuotationStatus = "Rejected"
	QuotationExpired  QuotationStatus = "Expired"
)

// FinalQuotationStatuses are never auto-transitioned again.
var FinalQuotationStatuses = []QuotationStatus{QuotationAccepted, QuotationRejected, QuotationExpired}

// Quotation is an offer sent to a lead before it becomes a booking.
type Quotation struct {
	ID                 uint            `json:"id" gorm:"primaryKey"`
	QuotationNumber    string          `json:"quotation_number" gorm:"unique;not null"`
	GuestName          string          `json:"guest_name"`
	Email              string          `json:"email"`
	Status             QuotationStatus `json:"status" gorm:"type:varchar(20);index;not null"`
	TotalAmount        decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2)"`
	ValidUntil         *time.Time      `json:"valid_until" gorm:"type:date;index"`
	ConvertedToBooking bool            `json:"converted_to_booking"`
	BookingID          *uint           `json:"booking_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsSettled reports whether the quotation has left the automatic lifecycle.
func (q *Quotation) IsSettled() bool {
	if q.ConvertedToBooking {
		return true
	}
	for _, s := range FinalQuotationStatuses {
		if q.Status == s {
			return true
		}
	}
	return false
}
