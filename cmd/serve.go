package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/spf13/cobra"

	"resort-billing/config"
	"resort-billing/logger"
	"resort-billing/middlewares"
	"resort-billing/routes"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin API and the reminder scheduler",
	Long: `Starts the HTTP admin API together with the daily scheduler.

The scheduler runs the overdue, reminder, expiry and custom reminder checks
on their cron specs and, unless SCHEDULER_RUN_ON_STARTUP=false, once shortly
after startup. SIGINT or SIGTERM stops the server and waits for running checks.`,
	Example: `  resort-billing serve
  SCHEDULER_DISABLED=true resort-billing serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}

	middlewares.SetJWTSecret(cfg.JWTSecret)
	app := newApp(cfg)
	routes.Register(app, rt.scheduler)

	if err := rt.scheduler.Start(ctx); err != nil {
		rt.close(context.Background())
		return err
	}

	listenErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("API server starting")
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
	case err = <-listenErr:
		if err != nil {
			log.Error().Err(err).Msg("API server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := app.ShutdownWithContext(shutdownCtx); serr != nil {
		log.Warn().Err(serr).Msg("API shutdown")
	}
	rt.close(shutdownCtx)
	log.Info().Msg("stopped")

	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// newApp builds the fiber app with the global error handler, CORS and rate limit.
func newApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          middlewares.ErrorHandler,
		BodyLimit:             cfg.BodyLimitBytes,
		DisableStartupMessage: true,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: false, // bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		ExposeHeaders:    "Idempotent-Replayed",
	}))

	// default key is the client IP
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: cfg.RateLimitWindow,
	}))

	return app
}
