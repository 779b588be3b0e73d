package main

import (
	"context"
	"flag"
	"os"

	"blindbox/internal/db"
	"blindbox/internal/logger"
)

// Prints migration status, or applies pending migrations with -apply.
func main() {
	apply := flag.Bool("apply", false, "apply pending migrations")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}
	defer logger.Sync()

	ctx := context.Background()
	if *apply {
		if err := db.Migrate(ctx, dsn); err != nil {
			logger.Fatal("apply migrations", "error", err)
		}
		logger.Info("migrations applied")
	}
	if err := db.MigrationStatus(ctx, dsn); err != nil {
		logger.Fatal("migration status", "error", err)
	}
}
