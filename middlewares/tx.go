package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"resort-billing/database"
	"resort-billing/logger"
)

// Tx opens a per-request DB transaction, committed when the handler chain succeeds.
// Order: run AFTER IsAuthenticatedHeader() and AFTER Idempotency() (so idempotency
// records aren't tied to the handler TX).
func Tx() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to begin transaction")
		}

		defer func() {
			if r := recover(); r != nil {
				_ = tx.Rollback()
				panic(r)
			}
			// handlers may return 4xx without an error
			if err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest {
				_ = tx.Rollback()
				return
			}
			if e := tx.Commit().Error; e != nil {
				log := logger.WithComponent("http")
				log.Error().Err(e).Msg("tx commit failed")
				err = fiber.NewError(fiber.StatusInternalServerError, "transaction commit failed")
			}
		}()

		// Make the TX available to handlers via database.FromCtx(c).
		c.Locals("tx", tx)

		err = c.Next()
		return err
	}
}
