package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"resort-billing/database"
	"resort-billing/models"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage back-office users",
}

var adminCreateCmd = &cobra.Command{
	Use:     "create",
	Short:   "Create an admin user for the API",
	Example: `  resort-billing admin create --email ops@resort.example --password 's3cret!'`,
	RunE:    runAdminCreate,
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)

	adminCreateCmd.Flags().String("email", "", "Login email (required)")
	adminCreateCmd.Flags().String("password", "", "Password, at least 8 characters (required)")
	adminCreateCmd.Flags().String("first", "", "First name")
	adminCreateCmd.Flags().String("last", "", "Last name")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("password")
}

func runAdminCreate(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	first, _ := cmd.Flags().GetString("first")
	last, _ := cmd.Flags().GetString("last")

	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email %q", email)
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	user := models.User{
		FirstName: strings.TrimSpace(first),
		LastName:  strings.TrimSpace(last),
		Email:     email,
		Role:      "admin",
	}
	if err := user.SetPassword(password); err != nil {
		return err
	}
	if err := db.WithContext(cmd.Context()).Create(&user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Email, user.Id)
	return nil
}
