package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"resort-billing/database"
	"resort-billing/middlewares"
	"resort-billing/models"
)

type loginDTO struct {
	Email    string `json:"email" validate:"required,email" normalize:"lower"`
	Password string `json:"password" validate:"required"`
}

func Login(c *fiber.Ctx) error {
	var in loginDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}

	var user models.User
	if err := database.DB.WithContext(c.UserContext()).Where("email = ?", in.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid credentials"})
		}
		return err
	}
	if err := user.ComparePassword(in.Password); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid credentials"})
	}

	token, err := middlewares.GenerateJWT(user.Id, user.Role)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":    user.Id,
			"name":  strings.TrimSpace(user.FirstName + " " + user.LastName),
			"email": user.Email,
			"role":  user.Role,
		},
	})
}
