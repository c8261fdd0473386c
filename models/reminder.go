package models

import "time"

type ReminderType string

const (
	ReminderBefore ReminderType = "before"
	ReminderOn     ReminderType = "on"
	ReminderAfter  ReminderType = "after"
)

func (t ReminderType) Valid() bool {
	switch t {
	case ReminderBefore, ReminderOn, ReminderAfter:
		return true
	}
	return false
}

type Frequency string

const (
	FrequencyOnce   Frequency = "once"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyTwice  Frequency = "twice"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOnce, FrequencyDaily, FrequencyWeekly, FrequencyTwice:
		return true
	}
	return false
}

// ReminderRule is the global, admin-configured reminder policy for one reminder type.
// Several rules may share a type; only enabled ones are evaluated, lowest ID first.
type ReminderRule struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	ReminderType ReminderType `json:"reminder_type" gorm:"type:varchar(10);not null;index"`
	Days         int          `json:"days" gorm:"not null"`
	Frequency    Frequency    `json:"frequency" gorm:"type:varchar(10)"`
	Subject      string       `json:"subject"`
	Template     string       `json:"template" gorm:"type:text"`
	Enabled      bool         `json:"enabled" gorm:"index"`
	LastRun      *time.Time   `json:"last_run"`
	NextRun      *time.Time   `json:"next_run"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// ReminderOverride partially overrides the global rule of the same type for one invoice.
// A nil field falls back to the global rule; Enabled=false suppresses the type.
type ReminderOverride struct {
	Enabled   *bool      `json:"enabled,omitempty"`
	Days      *int       `json:"days,omitempty"`
	Frequency *Frequency `json:"frequency,omitempty"`
}

// ReminderConfigs holds at most one override per reminder type.
type ReminderConfigs struct {
	Before *ReminderOverride `json:"before,omitempty"`
	On     *ReminderOverride `json:"on,omitempty"`
	After  *ReminderOverride `json:"after,omitempty"`
}

// For returns the override for t, or nil.
func (c ReminderConfigs) For(t ReminderType) *ReminderOverride {
	switch t {
	case ReminderBefore:
		return c.Before
	case ReminderOn:
		return c.On
	case ReminderAfter:
		return c.After
	}
	return nil
}

// Set replaces the override for t. A nil override removes it.
func (c *ReminderConfigs) Set(t ReminderType, o *ReminderOverride) {
	switch t {
	case ReminderBefore:
		c.Before = o
	case ReminderOn:
		c.On = o
	case ReminderAfter:
		c.After = o
	}
}

const (
	ReminderLogSent   = "sent"
	ReminderLogFailed = "failed"
)

// ReminderLog records one reminder dispatch attempt.
type ReminderLog struct {
	ID            uint         `json:"id" gorm:"primaryKey"`
	InvoiceID     uint         `json:"invoice_id" gorm:"index"`
	InvoiceNumber string       `json:"invoice_number"`
	RuleID        *uint        `json:"rule_id"`
	ReminderType  ReminderType `json:"reminder_type" gorm:"type:varchar(10)"`
	Check         string       `json:"check" gorm:"column:check_name;type:varchar(20)"`
	Recipient     string       `json:"recipient"`
	MessageID     string       `json:"message_id" gorm:"size:64"`
	Status        string       `json:"status" gorm:"type:varchar(10)"`
	Error         string       `json:"error" gorm:"type:text"`
	SentAt        time.Time    `json:"sent_at" gorm:"index"`
	CreatedAt     time.Time    `json:"created_at"`
}
