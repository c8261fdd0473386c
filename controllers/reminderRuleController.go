package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"resort-billing/database"
	"resort-billing/mailer"
	"resort-billing/middlewares"
	"resort-billing/models"
	"resort-billing/reminder"
	"resort-billing/utils"
)

type createRuleDTO struct {
	ReminderType models.ReminderType `json:"reminder_type" validate:"required,oneof=before on after" normalize:"lower"`
	Days         int                 `json:"days" validate:"min=0,max=365"`
	Frequency    models.Frequency    `json:"frequency" validate:"omitempty,oneof=once daily weekly twice" normalize:"lower"`
	Subject      string              `json:"subject" validate:"max=255"`
	Template     string              `json:"template" validate:"max=20000"`
	Enabled      *bool               `json:"enabled"`
}

type updateRuleDTO struct {
	ReminderType *models.ReminderType `json:"reminder_type" validate:"omitempty,oneof=before on after" normalize:"lower"`
	Days         *int                 `json:"days" validate:"omitempty,min=0,max=365"`
	Frequency    *models.Frequency    `json:"frequency" validate:"omitempty,oneof=once daily weekly twice" normalize:"lower"`
	Subject      *string              `json:"subject" validate:"omitempty,max=255"`
	Template     *string              `json:"template" validate:"omitempty,max=20000"`
	Enabled      *bool                `json:"enabled"`
}

func GetReminderRules(c *fiber.Ctx) error {
	rules, err := database.NewStore(database.FromCtx(c)).ListRules(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(rules)
}

func CreateReminderRule(c *fiber.Ctx) error {
	var in createRuleDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	rule := models.ReminderRule{
		ReminderType: in.ReminderType,
		Days:         in.Days,
		Frequency:    in.Frequency,
		Subject:      in.Subject,
		Template:     in.Template,
		Enabled:      in.Enabled == nil || *in.Enabled,
	}
	if rule.Frequency == "" {
		rule.Frequency = models.FrequencyOnce
	}
	if err := checkRule(rule); err != nil {
		return err
	}

	if err := database.NewStore(database.FromCtx(c)).CreateRule(c.UserContext(), &rule); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(rule)
}

func UpdateReminderRule(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid rule id")
	}
	var in updateRuleDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	store := database.NewStore(database.FromCtx(c))
	current, err := store.GetRule(c.UserContext(), uint(id))
	if err != nil {
		return err
	}

	// validate the rule as it will be stored
	merged := *current
	changes := utils.Patch(&merged, &in)
	if err := checkRule(merged); err != nil {
		return err
	}

	rule, err := store.UpdateRule(c.UserContext(), uint(id), changes)
	if err != nil {
		return err
	}
	return c.JSON(rule)
}

// checkRule enforces what struct tags cannot: day offsets per type and template syntax.
func checkRule(r models.ReminderRule) error {
	if r.ReminderType != models.ReminderOn && r.Days < 1 {
		return fmt.Errorf("%w: %s rules need days >= 1", reminder.ErrConfiguration, r.ReminderType)
	}
	if err := mailer.ValidateTemplate(r.Subject); err != nil {
		return fmt.Errorf("%w: subject: %v", reminder.ErrConfiguration, err)
	}
	if err := mailer.ValidateTemplate(r.Template); err != nil {
		return fmt.Errorf("%w: template: %v", reminder.ErrConfiguration, err)
	}
	return nil
}
