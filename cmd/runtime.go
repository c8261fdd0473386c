package cmd

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"resort-billing/config"
	"resort-billing/database"
	"resort-billing/logger"
	"resort-billing/mailer"
	"resort-billing/reminder"
	"resort-billing/scheduler"
)

// runtime is the wired reminder stack shared by serve and check.
type runtime struct {
	db        *gorm.DB
	mailer    *mailer.Mailer
	service   *reminder.Service
	scheduler *scheduler.Scheduler
}

// openDB connects, migrates and seeds the reminder rules when a rule file is configured.
func openDB(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if cfg.ReminderRulesFilePath != "" {
		n, err := database.SeedReminderRules(ctx, db, cfg.ReminderRulesFilePath)
		if err != nil {
			return nil, fmt.Errorf("seed reminder rules: %w", err)
		}
		if n > 0 {
			log := logger.WithComponent("database")
			log.Info().Int("rules", n).Msg("reminder rules seeded")
		}
	}
	return db, nil
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	m, err := mailer.New(ctx, cfg.Mail, cfg.CompanyName, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: mail: %v", reminder.ErrConfiguration, err)
	}

	svc := reminder.NewService(database.NewStore(db), m,
		reminder.WithLocation(loc),
		reminder.WithActivityLog(database.NewActivityLog(db)),
	)

	sched, err := scheduler.New(svc, cfg.Scheduler, loc)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	svc.SetNextRun(sched.NextRun)

	return &runtime{db: db, mailer: m, service: svc, scheduler: sched}, nil
}

func (r *runtime) close(ctx context.Context) {
	log := logger.WithComponent("cmd")
	if err := r.scheduler.Stop(ctx); err != nil {
		log.Warn().Err(err).Msg("scheduler stop")
	}
	if err := r.mailer.Close(); err != nil {
		log.Warn().Err(err).Msg("mailer close")
	}
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
