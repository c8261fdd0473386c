package models

import "time"

// IdempotencyKey remembers an admin write so a retried request with the same
// Idempotency-Key replays the stored response instead of running again.
type IdempotencyKey struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Key         string     `json:"key" gorm:"size:128;uniqueIndex"`
	Fingerprint string     `json:"fingerprint" gorm:"size:64"`
	UserID      string     `json:"user_id" gorm:"size:128"`
	Status      int        `json:"status"` // 0 while the first request is in flight
	Body        []byte     `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at" gorm:"index"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Completed reports whether a response was stored.
func (k *IdempotencyKey) Completed() bool {
	return k.Status != 0 && k.Body != nil
}
