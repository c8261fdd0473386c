package routes

import (
	"github.com/gofiber/fiber/v2"

	"resort-billing/controllers"
	"resort-billing/middlewares"
)

// Register wires all HTTP routes.
func Register(app *fiber.App, coord controllers.Coordinator) {
	api := app.Group("/api")
	sc := controllers.NewSchedulerController(coord)

	// Public auth endpoints
	api.Post("/login", controllers.Login)

	// Protected endpoints (JWT auth, admin role)
	protected := api.Group("")
	protected.Use(middlewares.IsAuthenticatedHeader(), middlewares.RequireRole("admin"))

	// Idempotency guard FIRST (not tied to request TX)
	protected.Use(middlewares.Idempotency())

	// Scheduler: these go through the coordinator locks, not the request TX
	protected.Get("/scheduler", sc.Status)
	protected.Post("/scheduler/checks/:name", sc.RunCheck)
	protected.Put("/invoices/:id/custom-reminder", sc.SetCustomReminder)

	// Everything registered below runs inside a per-request transaction
	protected.Use(middlewares.Tx())

	protected.Get("/invoices/:id", controllers.GetInvoice)
	protected.Put("/invoices/:id/reminders", controllers.UpdateInvoiceReminders)
	protected.Get("/invoices/:id/reminder-logs", controllers.GetReminderLogs)

	protected.Get("/reminder-rules", controllers.GetReminderRules)
	protected.Post("/reminder-rules", controllers.CreateReminderRule)
	protected.Put("/reminder-rules/:id", controllers.UpdateReminderRule)
}
