package db

import (
	"context"
	"database/sql"

	"blindbox/internal/errs"
	"blindbox/internal/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func open(dsn string) (*sql.DB, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errs.Wrap(err, "open database")
	}
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

// Migrate applies all pending embedded migrations.
func Migrate(ctx context.Context, dsn string) error {
	sqlDB, err := open(dsn)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return errs.Wrap(goose.UpContext(ctx, sqlDB, "."), "apply migrations")
}

// MigrationStatus logs applied and pending migrations.
func MigrationStatus(ctx context.Context, dsn string) error {
	sqlDB, err := open(dsn)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return goose.StatusContext(ctx, sqlDB, ".")
}
