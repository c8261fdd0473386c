package main

import (
	"log"

	"github.com/joho/godotenv"

	"resort-billing/cmd"
	"resort-billing/config"
	"resort-billing/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// the subcommands report config errors themselves; here it only picks the log setup
	logCfg := logger.DefaultConfig()
	if cfg, err := config.Load(); err == nil {
		logCfg = cfg.GetLoggerConfig()
	}
	if err := logger.Setup(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	cmd.Execute()
}
