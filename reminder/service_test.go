package reminder_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"resort-billing/models"
	"resort-billing/reminder"
)

func day(s string) *time.Time {
	t := reminder.MustDate(s).Start(time.UTC)
	return &t
}

func clockAt(s string, hour int) time.Time {
	return reminder.MustDate(s).Start(time.UTC).Add(time.Duration(hour) * time.Hour)
}

func invoice(id uint, number string, status models.InvoiceStatus, due string, total, paid int64) models.Invoice {
	return models.Invoice{
		ID:            id,
		InvoiceNumber: number,
		Email:         number + "@guest.test",
		Status:        status,
		FinalAmount:   decimal.NewFromInt(total),
		PaidAmount:    decimal.NewFromInt(paid),
		DueDate:       day(due),
	}
}

func newService(store *memStore, mailer *mockMailer, now time.Time, opts ...reminder.Option) *reminder.Service {
	base := []reminder.Option{
		reminder.WithClock(func() time.Time { return now }),
		reminder.WithLocation(time.UTC),
		reminder.WithLogger(zerolog.Nop()),
	}
	return reminder.NewService(store, mailer, append(base, opts...)...)
}

func TestCheckRemindersSendsOnDueDate(t *testing.T) {
	store := newMemStore()
	store.invoices = []models.Invoice{invoice(1, "INV-1", models.InvoiceSent, "2024-01-01", 100, 0)}
	store.rules = []models.ReminderRule{{ID: 1, ReminderType: models.ReminderOn, Days: 1, Frequency: models.FrequencyOnce, Enabled: true}}
	mailer := new(mockMailer)
	mailer.On("SendReminder", mock.Anything, "INV-1", models.ReminderOn, "", "").Return("msg-1", nil).Once()

	svc := newService(store, mailer, clockAt("2024-01-01", 9))
	res, err := svc.CheckReminders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, "2024-01-01", res.Day)
	mailer.AssertExpectations(t)

	inv := store.invoice(1)
	require.NotNil(t, inv.LastReminderSentAt)
	assert.Equal(t, "2024-01-01", reminder.DateOf(*inv.LastReminderSentAt).String())
	assert.Equal(t, models.InvoiceSent, inv.Status)
}

func TestCheckRemindersOneSendPerInvoicePerDay(t *testing.T) {
	store := newMemStore()
	store.invoices = []models.Invoice{invoice(1, "INV-1", models.InvoicePending, "2024-06-10", 500, 100)}
	store.rules = []models.ReminderRule{
		{ID: 1, ReminderType: models.ReminderBefore, Days: 3, Frequency: models.FrequencyDaily, Subject: "Due soon", Template: "soon", Enabled: true},
		{ID: 2, ReminderType: models.ReminderOn, Days: 1, Frequency: models.FrequencyOnce, Subject: "Due today", Template: "today", Enabled: true},
	}
	mailer := new(mockMailer)
	mailer.On("SendReminder", mock.Anything, "INV-1", models.ReminderBefore, "soon", "Due soon").Return("msg-1", nil).Once()

	svc := newService(store, mailer, clockAt("2024-06-10", 9))
	res, err := svc.CheckReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)

	res, err = svc.CheckReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 1, res.Skipped)

	mailer.AssertNumberOfCalls(t, "SendReminder", 1)
	mailer.AssertExpectations(t)
}

func TestCheckRemindersOverrideSuppressesType(t *testing.T) {
	inv := invoice(1, "INV-1", models.InvoicePending, "2024-06-01", 300, 0)
	off := false
	inv.ReminderConfigs = datatypes.NewJSONType(models.ReminderConfigs{After: &models.ReminderOverride{Enabled: &off}})

	store := newMemStore()
	store.invoices = []models.Invoice{inv}
	store.rules = []models.ReminderRule{{ID: 1, ReminderType: models.ReminderAfter, Days: 5, Frequency: models.FrequencyOnce, Enabled: true}}
	mailer := new(mockMailer)

	svc := newService(store, mailer, clockAt("2024-06-06", 9))
	res, err := svc.CheckReminders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 1, res.Transitioned)
	assert.Equal(t, models.InvoiceOverdue, store.invoice(1).Status)
	mailer.AssertNotCalled(t, "SendReminder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckRemindersOverdueBeforeAfterRule(t *testing.T) {
	store := newMemStore()
	store.invoices = []models.Invoice{invoice(1, "INV-1", models.InvoiceSent, "2024-06-01", 300, 0)}
	store.rules = []models.ReminderRule{{ID: 1, ReminderType: models.ReminderAfter, Days: 5, Frequency: models.FrequencyOnce, Enabled: true}}
	mailer := new(mockMailer)
	mailer.On("SendReminder", mock.Anything, "INV-1", models.ReminderAfter, "", "").Return("msg-1", nil).Once()

	svc := newService(store, mailer, clockAt("2024-06-06", 9))
	res, err := svc.CheckReminders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Transitioned)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, models.InvoiceOverdue, store.invoice(1).Status)
	mailer.AssertExpectations(t)
}

func TestAlreadyRemindedTodayBlocksCustomReminder(t *testing.T) {
	inv := invoice(1, "INV-1", models.InvoicePending, "2024-07-01", 300, 0)
	sent := clockAt("2024-06-10", 8)
	inv.LastReminderSentAt = &sent
	inv.CustomReminderDate = day("2024-06-10")

	store := newMemStore()
	store.invoices = []models.Invoice{inv}
	mailer := new(mockMailer)
	svc := newService(store, mailer, clockAt("2024-06-10", 10))

	res, err := svc.CheckReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)

	res, err = svc.CheckCustomReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 1, res.Skipped)

	mailer.AssertNotCalled(t, "SendReminder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.NotNil(t, store.invoice(1).CustomReminderDate)
}

func TestCustomReminderWhenNoRuleFires(t *testing.T) {
	inv := invoice(1, "INV-1", models.InvoicePartial, "2024-07-01", 300, 50)
	inv.CustomReminderDate = day("2024-06-10")

	store := newMemStore()
	store.invoices = []models.Invoice{inv}
	store.rules = []models.ReminderRule{{ID: 1, ReminderType: models.ReminderBefore, Days: 3, Frequency: models.FrequencyOnce, Enabled: true}}
	mailer := new(mockMailer)
	mailer.On("SendReminder", mock.Anything, "INV-1", models.ReminderOn, "", "").Return("msg-9", nil).Once()
	activity := &memActivity{}

	svc := newService(store, mailer, clockAt("2024-06-10", 9), reminder.WithActivityLog(activity))
	res, err := svc.CheckReminders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	mailer.AssertExpectations(t)

	got := store.invoice(1)
	assert.Nil(t, got.CustomReminderDate)
	require.NotNil(t, got.LastReminderSentAt)
	require.Len(t, activity.entries, 1)
	assert.Equal(t, models.ReminderLogSent, activity.entries[0].Status)
	assert.Equal(t, "msg-9", activity.entries[0].MessageID)
	assert.Nil(t, activity.entries[0].RuleID)
}

func TestRuleReminderOnCustomDateClearsIt(t *testing.T) {
	inv := invoice(1, "INV-1", models.InvoiceSent, "2024-01-01", 100, 0)
	inv.CustomReminderDate = day("2024-01-01")

	store := newMemStore()
	store.invoices = []models.Invoice{inv}
	store.rules = []models.ReminderRule{{ID: 1, ReminderType: models.ReminderOn, Days: 1, Frequency: models.FrequencyOnce, Subject: "Due today", Enabled: true}}
	mailer := new(mockMailer)
	mailer.On("SendReminder", mock.Anything, "INV-1", models.ReminderOn, "", "Due today").Return("msg-1", nil).Once()

	svc := newService(store, mailer, clockAt("2024-01-01", 9))
	res, err := svc.CheckReminders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	mailer.AssertExpectations(t)
	assert.Nil(t, store.invoice(1).CustomReminderDate)
	require.NotNil(t, store.invoice(1).LastReminderSentAt)
}

func TestRuleReminderKeepsFutureCustomDate(t *testing.T) {
	inv := invoice(1, "INV-1", models.InvoiceSent, "2024-01-01", 100, 0)
	inv.CustomReminderDate = day("2024-01-05")

	store := newMemStore()
	store.invoices = []models.Invoice{inv}
	store.rules = []models.ReminderRule{{ID: 1, ReminderType: models.ReminderOn, Days: 1, Frequency: models.FrequencyOnce, Enabled: true}}
	mailer := new(mockMailer)
	mailer.On("SendReminder", mock.Anything, "INV-1", models.ReminderOn, "", "").Return("msg-1", nil).Once()

	svc := newService(store, mailer, clockAt("2024-01-01", 9))
	_, err := svc.CheckReminders(context.Background())

	require.NoError(t, err)
	require.NotNil(t, store.invoice(1).CustomReminderDate)
	assert.Equal(t, "2024-01-05", reminder.DateOf(*store.invoice(1).CustomReminderDate).String())
}

func TestCheckCustomReminders(t *testing.T) {
	due := invoice(1, "INV-1", models.InvoiceSent, "2024-07-01", 300, 0)
	due.CustomReminderDate = day("2024-06-10")
	later := invoice(2, "INV-2", models.InvoiceSent, "2024-07-01", 300, 0)
	later.CustomReminderDate = day("2024-06-11")
	paid := invoice(3, "INV-3", models.InvoicePaid, "2024-07-01", 300, 300)
	paid.CustomReminderDate = day("2024-06-10")

	store := newMemStore()
	store.invoices = []models.Invoice{due, later, paid}
	mailer := new(mockMailer)
	mailer.On("SendReminder", mock.Anything, "INV-1", models.ReminderOn, "", "").Return("msg-1", nil).Once()

	svc := newService(store, mailer, clockAt("2024-06-10", 10))
	res, err := svc.CheckCustomReminders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Scanned)
	assert.Equal(t, 1, res.Sent)
	assert.Nil(t, store.invoice(1).CustomReminderDate)
	assert.NotNil(t, store.invoice(2).CustomReminderDate)
	mailer.AssertExpectations(t)
}

func TestDeliveryFailureDoesNotAbortRun(t *testing.T) {
	store := newMemStore()
	store.invoices = []models.Invoice{
		invoice(1, "INV-1", models.InvoiceSent, "2024-06-10", 100, 0),
		invoice(2, "INV-2", models.InvoiceSent, "2024-06-10", 100, 0),
	}
	store.rules = []models.ReminderRule{{ID: 1, ReminderType: models.ReminderOn, Days: 1, Frequency: models.FrequencyOnce, Enabled: true}}
	mailer := new(mockMailer)
	mailer.On("SendReminder", mock.Anything, "INV-1", models.ReminderOn, "", "").Return("", errors.New("smtp down")).Once()
	mailer.On("SendReminder", mock.Anything, "INV-2", models.ReminderOn, "", "").Return("msg-2", nil).Once()
	activity := &memActivity{}

	svc := newService(store, mailer, clockAt("2024-06-10", 9), reminder.WithActivityLog(activity))
	res, err := svc.CheckReminders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Failed)
	assert.Nil(t, store.invoice(1).LastReminderSentAt)
	assert.NotNil(t, store.invoice(2).LastReminderSentAt)
	require.Len(t, activity.entries, 2)
	assert.Equal(t, models.ReminderLogFailed, activity.entries[0].Status)
	assert.Contains(t, activity.entries[0].Error, "smtp down")
	mailer.AssertExpectations(t)
}

func TestPersistenceFailureIsIsolated(t *testing.T) {
	store := newMemStore()
	store.invoices = []models.Invoice{
		invoice(1, "INV-1", models.InvoiceSent, "2024-06-10", 100, 0),
		invoice(2, "INV-2", models.InvoiceSent, "2024-06-10", 100, 0),
	}
	store.failMark[1] = errors.New("connection reset")
	store.rules = []models.ReminderRule{{ID: 1, ReminderType: models.ReminderOn, Days: 1, Frequency: models.FrequencyOnce, Enabled: true}}
	mailer := new(mockMailer)
	mailer.On("SendReminder", mock.Anything, mock.Anything, models.ReminderOn, "", "").Return("msg", nil).Twice()

	svc := newService(store, mailer, clockAt("2024-06-10", 9))
	res, err := svc.CheckReminders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 1, res.Failed)
	assert.NotNil(t, store.invoice(2).LastReminderSentAt)
	mailer.AssertExpectations(t)
}

func TestMisconfiguredRuleIsSkipped(t *testing.T) {
	store := newMemStore()
	store.invoices = []models.Invoice{invoice(1, "INV-1", models.InvoiceSent, "2024-06-10", 100, 0)}
	store.rules = []models.ReminderRule{
		{ID: 1, ReminderType: models.ReminderBefore, Days: 0, Frequency: models.FrequencyDaily, Enabled: true},
		{ID: 2, ReminderType: "whenever", Days: 1, Enabled: true},
		{ID: 3, ReminderType: models.ReminderOn, Days: 1, Frequency: models.FrequencyOnce, Template: "t", Subject: "s", Enabled: true},
	}
	mailer := new(mockMailer)
	mailer.On("SendReminder", mock.Anything, "INV-1", models.ReminderOn, "t", "s").Return("msg", nil).Once()

	svc := newService(store, mailer, clockAt("2024-06-10", 9))
	res, err := svc.CheckReminders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	mailer.AssertExpectations(t)
}

func TestCheckRemindersIgnoresNonCandidates(t *testing.T) {
	off := false
	disabled := invoice(1, "INV-1", models.InvoiceSent, "2024-06-10", 100, 0)
	disabled.RemindersEnabled = &off

	store := newMemStore()
	store.invoices = []models.Invoice{
		disabled,
		invoice(2, "INV-2", models.InvoicePaid, "2024-06-10", 100, 100),
		invoice(3, "INV-3", models.InvoiceDraft, "2024-06-10", 100, 0),
		invoice(4, "INV-4", models.InvoiceSent, "2024-06-10", 100, 100),
	}
	store.rules = []models.ReminderRule{{ID: 1, ReminderType: models.ReminderOn, Days: 1, Frequency: models.FrequencyOnce, Enabled: true}}
	mailer := new(mockMailer)

	svc := newService(store, mailer, clockAt("2024-06-10", 9))
	res, err := svc.CheckReminders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, res.Scanned)
	mailer.AssertNotCalled(t, "SendReminder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckRemindersStampsRules(t *testing.T) {
	store := newMemStore()
	store.rules = []models.ReminderRule{
		{ID: 7, ReminderType: models.ReminderOn, Days: 1, Enabled: true},
		{ID: 3, ReminderType: models.ReminderAfter, Days: 2, Enabled: true},
		{ID: 5, ReminderType: models.ReminderBefore, Days: 2, Enabled: false},
	}
	next := clockAt("2024-06-11", 9)
	svc := newService(store, new(mockMailer), clockAt("2024-06-10", 9),
		reminder.WithNextRun(func(check string) *time.Time {
			if check == reminder.CheckReminders {
				return &next
			}
			return nil
		}))

	_, err := svc.CheckReminders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []uint{3, 7}, store.rulesRun)
	require.NotNil(t, store.nextRun)
	assert.True(t, store.nextRun.Equal(next))
}

func TestCheckRemindersListFailure(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("db gone")

	svc := newService(store, new(mockMailer), clockAt("2024-06-10", 9))
	_, err := svc.CheckReminders(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, reminder.ErrPersistence))
}

func TestCheckOverdue(t *testing.T) {
	store := newMemStore()
	store.invoices = []models.Invoice{
		invoice(1, "INV-1", models.InvoicePending, "2024-06-01", 100, 0),
		invoice(2, "INV-2", models.InvoicePartial, "2024-06-09", 100, 40),
		invoice(3, "INV-3", models.InvoiceSent, "2024-06-01", 100, 100),
		invoice(4, "INV-4", models.InvoiceDraft, "2024-06-01", 100, 0),
		invoice(5, "INV-5", models.InvoicePending, "2024-06-10", 100, 0),
		invoice(6, "INV-6", models.InvoiceSent, "2024-05-01", 100, 0),
	}
	store.failStatus[6] = errors.New("deadlock")

	svc := newService(store, new(mockMailer), clockAt("2024-06-10", 1))
	res, err := svc.CheckOverdue(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, res.Scanned)
	assert.Equal(t, 2, res.Transitioned)
	assert.Equal(t, 1, res.Failed)

	assert.Equal(t, models.InvoiceOverdue, store.invoice(1).Status)
	assert.Equal(t, models.InvoiceOverdue, store.invoice(2).Status)
	assert.Equal(t, models.InvoiceSent, store.invoice(3).Status)
	assert.Equal(t, models.InvoiceDraft, store.invoice(4).Status)
	assert.Equal(t, models.InvoicePending, store.invoice(5).Status)
	assert.Equal(t, models.InvoiceSent, store.invoice(6).Status)
}

func TestCheckExpiredQuotations(t *testing.T) {
	q := func(id uint, status models.QuotationStatus, validUntil string, converted bool) models.Quotation {
		return models.Quotation{ID: id, QuotationNumber: fmt.Sprintf("Q-%d", id), Status: status, ValidUntil: day(validUntil), ConvertedToBooking: converted}
	}
	store := newMemStore()
	store.quotations = []models.Quotation{
		q(1, models.QuotationSent, "2024-06-01", false),
		q(2, models.QuotationDraft, "2024-06-09", false),
		q(3, models.QuotationAccepted, "2024-01-01", false),
		q(4, models.QuotationSent, "2024-06-01", true),
		q(5, models.QuotationSent, "2024-06-10", false),
		q(6, models.QuotationRejected, "2024-06-01", false),
	}

	svc := newService(store, new(mockMailer), clockAt("2024-06-10", 0))
	res, err := svc.CheckExpiredQuotations(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, res.Transitioned)
	assert.Equal(t, models.QuotationExpired, store.quotation(1).Status)
	assert.Equal(t, models.QuotationExpired, store.quotation(2).Status)
	assert.Equal(t, models.QuotationAccepted, store.quotation(3).Status)
	assert.Equal(t, models.QuotationSent, store.quotation(4).Status)
	assert.Equal(t, models.QuotationSent, store.quotation(5).Status)
	assert.Equal(t, models.QuotationRejected, store.quotation(6).Status)
}

func TestSetCustomReminder(t *testing.T) {
	store := newMemStore()
	store.invoices = []models.Invoice{invoice(1, "INV-1", models.InvoiceSent, "2024-07-01", 100, 0)}
	svc := newService(store, new(mockMailer), clockAt("2024-06-10", 12))

	past := reminder.MustDate("2024-06-09")
	err := svc.SetCustomReminder(context.Background(), 1, &past)
	assert.True(t, errors.Is(err, reminder.ErrConfiguration))

	today := reminder.MustDate("2024-06-10")
	require.NoError(t, svc.SetCustomReminder(context.Background(), 1, &today))
	require.NotNil(t, store.invoice(1).CustomReminderDate)
	assert.Equal(t, "2024-06-10", reminder.DateOf(*store.invoice(1).CustomReminderDate).String())

	require.NoError(t, svc.SetCustomReminder(context.Background(), 1, nil))
	assert.Nil(t, store.invoice(1).CustomReminderDate)
}
