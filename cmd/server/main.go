package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	quickstart "github.com/christian-bermeo-pci/plaid-webhooks"
	"github.com/christian-bermeo-pci/plaid-webhooks/internal/config"
	"github.com/christian-bermeo-pci/plaid-webhooks/internal/connection"
	"github.com/christian-bermeo-pci/plaid-webhooks/internal/plaid"
	"github.com/christian-bermeo-pci/plaid-webhooks/internal/record"
	"github.com/christian-bermeo-pci/plaid-webhooks/internal/server"
	"github.com/christian-bermeo-pci/plaid-webhooks/internal/server/routes"
)

var publicFS = quickstart.PublicFS

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return
	}

	store, err := openStore(cfg.Store)
	if err != nil {
		slog.Error("Failed to open record store", "error", err)
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close record store", "error", err)
		}
	}()

	conn, err := connection.NewController(context.Background(), store, log)
	if err != nil {
		slog.Error("Failed to load connection record", "error", err)
		return
	}

	client, err := plaid.NewClient(plaid.Config{
		ClientID:     cfg.Plaid.ClientID,
		Secret:       cfg.Plaid.Secret,
		Environment:  cfg.Plaid.Environment,
		Products:     cfg.Plaid.Products,
		CountryCodes: cfg.Plaid.CountryCodes,
		WebhookURL:   cfg.Plaid.WebhookURL,
	})
	if err != nil {
		slog.Error("Failed to build Plaid client", "error", err)
		return
	}

	srv := server.New(log, publicFS)
	srv.RegisterRouter(routes.NewAPIRoutes(log, client, conn))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("Starting server", "port", cfg.Server.Port, "plaid_env", cfg.Plaid.Environment, "store", cfg.Store.Driver)
	slog.Error("Closing server", "error", srv.Start(addr))
}

func openStore(cfg config.StoreConfig) (record.Store, error) {
	switch cfg.Driver {
	case config.StoreDriverSQLite:
		return record.OpenSQLiteStore(cfg.Path)
	default:
		return record.NewFileStore(cfg.Path), nil
	}
}
