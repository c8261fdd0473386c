package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"resort-billing/database"
	"resort-billing/middlewares"
	"resort-billing/models"
	"resort-billing/reminder"
	"resort-billing/utils"
)

type overrideDTO struct {
	Enabled   *bool             `json:"enabled"`
	Days      *int              `json:"days" validate:"omitempty,min=0,max=365"`
	Frequency *models.Frequency `json:"frequency" validate:"omitempty,oneof=once daily weekly twice"`
}

type reminderSettingsDTO struct {
	RemindersEnabled *bool `json:"reminders_enabled"`
	ReminderConfigs  struct {
		Before *overrideDTO `json:"before" validate:"omitempty"`
		On     *overrideDTO `json:"on" validate:"omitempty"`
		After  *overrideDTO `json:"after" validate:"omitempty"`
	} `json:"reminder_configs"`
}

func invoiceID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid invoice id")
	}
	return uint(id), nil
}

func GetInvoice(c *fiber.Ctx) error {
	id, err := invoiceID(c)
	if err != nil {
		return err
	}
	inv, err := database.NewStore(database.FromCtx(c)).GetInvoice(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"invoice": inv,
		"balance": inv.Balance().StringFixed(2),
	})
}

// UpdateInvoiceReminders replaces the per-invoice reminder overrides and optionally toggles reminders.
func UpdateInvoiceReminders(c *fiber.Ctx) error {
	id, err := invoiceID(c)
	if err != nil {
		return err
	}
	var in reminderSettingsDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	var cfg models.ReminderConfigs
	for t, o := range map[models.ReminderType]*overrideDTO{
		models.ReminderBefore: in.ReminderConfigs.Before,
		models.ReminderOn:     in.ReminderConfigs.On,
		models.ReminderAfter:  in.ReminderConfigs.After,
	} {
		if o == nil {
			continue
		}
		if t != models.ReminderOn && o.Days != nil && *o.Days < 1 {
			return fmt.Errorf("%w: %s override needs days >= 1", reminder.ErrConfiguration, t)
		}
		cfg.Set(t, &models.ReminderOverride{Enabled: o.Enabled, Days: o.Days, Frequency: o.Frequency})
	}

	store := database.NewStore(database.FromCtx(c))
	if err := store.UpdateReminderSettings(c.UserContext(), id, in.RemindersEnabled, cfg); err != nil {
		return err
	}
	inv, err := store.GetInvoice(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(inv)
}

func GetReminderLogs(c *fiber.Ctx) error {
	id, err := invoiceID(c)
	if err != nil {
		return err
	}
	limit := utils.ParseLimit(c.Query("limit"), 50, 200)
	logs, err := database.NewActivityLog(database.FromCtx(c)).ForInvoice(c.UserContext(), id, limit)
	if err != nil {
		return err
	}
	if logs == nil {
		logs = []models.ReminderLog{}
	}
	return c.JSON(logs)
}
