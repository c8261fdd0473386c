package database

import (
	"fmt"

	"gorm.io/gorm"

	"resort-billing/models"
)

// Migrate applies the (idempotent) schema migrations:
// - AutoMigrate (tables/columns)
// - Indexes used by the scheduler queries
// - Basic CHECK constraints (postgres only)
func Migrate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&models.User{},
			&models.Invoice{},
			&models.Quotation{},
			&models.ReminderRule{},
			&models.ReminderLog{},
			&models.IdempotencyKey{},
		); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}

		indexes := []string{
			`CREATE INDEX IF NOT EXISTS idx_invoices_status_due ON invoices (status, due_date)`,
			`CREATE INDEX IF NOT EXISTS idx_quotations_status_valid ON quotations (status, valid_until)`,
			`CREATE INDEX IF NOT EXISTS idx_reminder_rules_enabled_id ON reminder_rules (enabled, id)`,
			`CREATE INDEX IF NOT EXISTS idx_reminder_logs_invoice_sent ON reminder_logs (invoice_id, sent_at)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		if tx.Dialector.Name() != "postgres" {
			return nil
		}

		checks := []struct{ table, name, expr string }{
			{"invoices", "chk_invoices_amounts_nonneg", "final_amount >= 0 AND paid_amount >= 0"},
			{"quotations", "chk_quotations_total_nonneg", "total_amount >= 0"},
			{"reminder_rules", "chk_reminder_rules_type", "reminder_type IN ('before','on','after')"},
			{"reminder_rules", "chk_reminder_rules_days_nonneg", "days >= 0"},
		}
		for _, c := range checks {
			stmt := fmt.Sprintf(`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = '%s'::regclass
					  AND conname  = '%s'
				) THEN
					ALTER TABLE %s
					ADD CONSTRAINT %s
					CHECK (%s);
				END IF;
			END $$;`, c.table, c.name, c.table, c.name, c.expr)
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed: %w", err)
			}
		}
		return nil
	})
}
