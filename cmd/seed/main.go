package main

import (
	"context"
	"os"

	"github.com/oggyb/tubematch/internal/config"
	"github.com/oggyb/tubematch/internal/db"
	"github.com/oggyb/tubematch/internal/logger"
	"github.com/oggyb/tubematch/internal/seed"
)

func main() {
	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	if err := seed.Run(context.Background(), database, log); err != nil {
		log.Error("failed to seed", "err", err)
		os.Exit(1)
	}

	log.Info("seeding completed")
}
