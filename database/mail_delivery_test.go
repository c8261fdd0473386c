package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resort-billing/mailer"
	"resort-billing/models"
	"resort-billing/reminder"
)

type countingSender struct {
	mu sync.Mutex
	to []string
}

func (s *countingSender) Send(ctx context.Context, to []string, subject string, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.to = append(s.to, to...)
	return nil
}

type downSender struct{}

func (downSender) Send(ctx context.Context, to []string, subject string, raw []byte) error {
	return errors.New("relay unreachable")
}

func TestPartialTransportFailureSendsOncePerDay(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	inv := seedInvoice(t, db, "INV-1", models.InvoiceSent, "2024-01-01", 100, 0, func(i *models.Invoice) {
		i.CustomReminderDate = day("2024-01-01")
	})
	require.NoError(t, store.CreateRule(ctx, &models.ReminderRule{ReminderType: models.ReminderOn, Days: 1, Frequency: models.FrequencyOnce, Enabled: true}))

	delivered := &countingSender{}
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	m := mailer.NewMailer(mailer.NewCompositeSender(delivered, downSender{}), "billing@resort.test", "Resort",
		mailer.WithClock(func() time.Time { return now }),
		mailer.WithLocation(time.UTC),
	)
	svc := reminder.NewService(store, m,
		reminder.WithClock(func() time.Time { return now }),
		reminder.WithLocation(time.UTC),
		reminder.WithLogger(zerolog.Nop()),
	)

	for run := 0; run < 3; run++ {
		res, err := svc.CheckReminders(ctx)
		require.NoError(t, err)
		assert.Zero(t, res.Failed, "run %d", run)
	}
	res, err := svc.CheckCustomReminders(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Sent)

	assert.Equal(t, []string{"INV-1@guest.test"}, delivered.to)

	got, err := store.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastReminderSentAt)
	assert.Nil(t, got.CustomReminderDate)
}
