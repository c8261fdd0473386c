package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"resort-billing/models"
)

// IdempotencyTTL is how long a stored response is replayed.
const IdempotencyTTL = 24 * time.Hour

var ErrKeyReused = errors.New("idempotency key reused with a different request")

// ClaimIdempotencyKey returns the record for key, creating a pending one when
// none exists or the old one expired. ErrKeyReused means the key belongs to a
// different request.
func ClaimIdempotencyKey(ctx context.Context, db *gorm.DB, key, fingerprint, userID string, now time.Time) (*models.IdempotencyKey, error) {
	var rec models.IdempotencyKey
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("key = ?", key).First(&rec).Error
		switch {
		case err == nil && now.After(rec.ExpiresAt):
			if err := tx.Delete(&rec).Error; err != nil {
				return err
			}
		case err == nil:
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		rec = models.IdempotencyKey{
			Key:         key,
			Fingerprint: fingerprint,
			UserID:      userID,
			CreatedAt:   now,
			ExpiresAt:   now.Add(IdempotencyTTL),
		}
		if err := tx.Create(&rec).Error; err != nil {
			// lost a race on the unique key
			return tx.Where("key = ?", key).First(&rec).Error
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim idempotency key: %w", err)
	}
	if rec.Fingerprint != fingerprint {
		return nil, ErrKeyReused
	}
	return &rec, nil
}

// CompleteIdempotencyKey stores the response to replay for key.
func CompleteIdempotencyKey(ctx context.Context, db *gorm.DB, key string, status int, body []byte, now time.Time) error {
	return db.WithContext(ctx).Model(&models.IdempotencyKey{}).
		Where("key = ?", key).
		Updates(map[string]any{
			"status":       status,
			"body":         body,
			"completed_at": now,
		}).Error
}
