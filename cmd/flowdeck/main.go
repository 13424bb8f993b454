package main

import (
	"log"

	"github.com/flowdeck-dev/flowdeck/config"
	"github.com/flowdeck-dev/flowdeck/db"
	"github.com/flowdeck-dev/flowdeck/internal/auth"
	"github.com/flowdeck-dev/flowdeck/internal/router"
)

func main() {
	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := auth.Init(cfg.Auth.JWTSecret); err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}

	database, err := db.Connect(cfg.Database.DSN)

	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Migrate(database); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	r := router.NewRouter(database, cfg)

	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
