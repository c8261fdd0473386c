package database

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// FromCtx returns the request transaction opened by middlewares.Tx, or the shared DB.
func FromCtx(c *fiber.Ctx) *gorm.DB {
	if v := c.Locals("tx"); v != nil {
		if tx, ok := v.(*gorm.DB); ok && tx != nil {
			return tx
		}
	}
	return DB
}
