// Command migrate applies the embedded schema to the configured database.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gevengood/red-esperanza-backend/common/database"
	"github.com/gevengood/red-esperanza-backend/internal/config"
	"github.com/gevengood/red-esperanza-backend/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer database.Close(db)

	fmt.Printf("Connected to database: %s@%s/%s\n\n", cfg.Database.User, cfg.Database.Host, cfg.Database.Database)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := repository.ApplySchema(ctx, db)
	if err != nil {
		log.Fatalf("Migration failed after %d statement(s): %v", n, err)
	}
	fmt.Printf("✅ Applied %d statement(s)\n", n)
}
