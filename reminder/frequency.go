package reminder

import "resort-billing/models"

// twiceGapDays is the distance between the two sends of the "twice" frequency.
const twiceGapDays = 3

// ShouldSend decides whether today is a send-day for a reminder triggered on sendOn.
// Daily reminders fire every day from sendOn on; the one-per-day limit is applied by the dispatcher.
func ShouldSend(today, sendOn Date, f models.Frequency) bool {
	switch f {
	case models.FrequencyOnce:
		return today.Equal(sendOn)
	case models.FrequencyDaily:
		return !today.Before(sendOn)
	case models.FrequencyWeekly:
		return !today.Before(sendOn) && today.DaysSince(sendOn)%7 == 0
	case models.FrequencyTwice:
		return today.Equal(sendOn) || today.Equal(sendOn.AddDays(twiceGapDays))
	}
	return false
}
