package middlewares

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"resort-billing/database"
	"resort-billing/logger"
)

const maxIdempotencyKey = 128

// Idempotency replays the first completed response of a POST/PUT/PATCH/DELETE
// carrying an Idempotency-Key. Server errors are not stored, so those retries run again.
func Idempotency() fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
		default:
			return c.Next()
		}

		key := strings.TrimSpace(c.Get("Idempotency-Key"))
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKey {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
		}

		userID, _ := c.Locals("userID").(string)
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "auth context missing")
		}

		ctx := c.UserContext()
		fp := fingerprint(c.Method(), c.OriginalURL(), c.Body(), userID)
		rec, err := database.ClaimIdempotencyKey(ctx, database.DB, key, fp, userID, time.Now().UTC())
		if errors.Is(err, database.ErrKeyReused) {
			return fiber.NewError(fiber.StatusConflict, "Idempotency-Key reuse with different request")
		}
		if err != nil {
			return err
		}
		if rec.Completed() {
			c.Set("Idempotent-Replayed", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(rec.Status).Send(rec.Body)
		}

		if err := c.Next(); err != nil {
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			return nil
		}
		body := append([]byte(nil), c.Response().Body()...)
		if err := database.CompleteIdempotencyKey(ctx, database.DB, key, status, body, time.Now().UTC()); err != nil {
			log := logger.WithComponent("http")
			log.Warn().Err(err).Str("key", key).Msg("idempotent response not stored")
		}
		return nil
	}
}

// fingerprint is sha256 of method|url|body|user.
func fingerprint(method, url string, body []byte, userID string) string {
	h := sha256.New()
	for _, part := range [][]byte{[]byte(method), []byte(url), body, []byte(userID)} {
		h.Write(part)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
