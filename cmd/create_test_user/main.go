package main

import (
	"context"
	"flag"
	"fmt"

	"blindbox/internal/config"
	"blindbox/internal/db"
	"blindbox/internal/events"
	"blindbox/internal/logger"
	"blindbox/internal/repository"
	"blindbox/internal/service"
)

// Creates (or reuses) a Telegram-linked account in Postgres and prints a JWT for it.
// With -issuer the account also becomes the box issuer.
func main() {
	tgID := flag.Int64("tg", 1234567890, "telegram user id")
	username := flag.String("username", "testuser", "username for a new account")
	issuer := flag.Bool("issuer", false, "register the account as issuer")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", "error", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DB.URL, 2)
	if err != nil {
		logger.Fatal("connect database", "error", err)
	}
	defer pool.Close()
	store := repository.NewPgStore(pool, cfg.Ledger.ExistentialDeposit)

	accounts := service.NewAccountService(store, cfg.Ledger.InitialBalance)
	acc, created, err := accounts.LoginTelegram(ctx, *tgID, *username, "Tester")
	if err != nil {
		logger.Fatal("login", "error", err)
	}
	logger.Info("account ready", "id", acc.ID, "created", created, "balance", acc.Balance)

	if *issuer {
		if len(cfg.Auth.AdminIDs) == 0 {
			logger.Fatal("ADMIN_IDS is empty; cannot set issuer")
		}
		admin := service.NewAdminService(store, events.Nop{}, cfg.IsAdmin, cfg.Maxima)
		if err := admin.SetIssuer(ctx, cfg.Auth.AdminIDs[0], acc.ID); err != nil {
			logger.Fatal("set issuer", "error", err)
		}
		logger.Info("issuer set", "id", acc.ID)
	}

	service.InitJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	token, err := service.GenerateJWT(acc.ID)
	if err != nil {
		logger.Fatal("generate token", "error", err)
	}
	fmt.Println(token)
}
