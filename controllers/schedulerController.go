package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"resort-billing/middlewares"
	"resort-billing/reminder"
	"resort-billing/scheduler"
)

// Coordinator is the part of *scheduler.Scheduler the admin API uses.
type Coordinator interface {
	Snapshot() []scheduler.CheckStatus
	Run(ctx context.Context, name string) (reminder.Result, error)
	SetCustomReminder(ctx context.Context, invoiceID uint, day *reminder.Date) error
	Location() *time.Location
}

var _ Coordinator = (*scheduler.Scheduler)(nil)

type SchedulerController struct {
	coord Coordinator
}

func NewSchedulerController(coord Coordinator) *SchedulerController {
	return &SchedulerController{coord: coord}
}

func (sc *SchedulerController) Status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"timezone": sc.coord.Location().String(),
		"checks":   sc.coord.Snapshot(),
	})
}

// RunCheck runs a check synchronously and returns its result.
func (sc *SchedulerController) RunCheck(c *fiber.Ctx) error {
	res, err := sc.coord.Run(c.UserContext(), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

type customReminderDTO struct {
	Date *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// SetCustomReminder schedules ({"date":"YYYY-MM-DD"}) or clears ({"date":null}) a one-off reminder.
func (sc *SchedulerController) SetCustomReminder(c *fiber.Ctx) error {
	id, err := invoiceID(c)
	if err != nil {
		return err
	}
	var in customReminderDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	var day *reminder.Date
	if in.Date != nil && *in.Date != "" {
		d, err := reminder.ParseDate(*in.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		day = &d
	}
	if err := sc.coord.SetCustomReminder(c.UserContext(), id, day); err != nil {
		return err
	}

	out := fiber.Map{"invoice_id": id, "custom_reminder_date": nil}
	if day != nil {
		out["custom_reminder_date"] = day.String()
	}
	return c.JSON(out)
}
