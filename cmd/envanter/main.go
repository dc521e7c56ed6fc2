package main

import (
	"context"
	"log"

	"github.com/ocakli/envanter/internal/config"
	"github.com/ocakli/envanter/internal/db"
	"github.com/ocakli/envanter/internal/idp/local"
	"github.com/ocakli/envanter/internal/live"
	"github.com/ocakli/envanter/internal/logging"
	"github.com/ocakli/envanter/internal/service"
	"github.com/ocakli/envanter/internal/session"
	"github.com/ocakli/envanter/internal/store"
	"github.com/ocakli/envanter/internal/web"
	"github.com/ocakli/envanter/internal/web/templates"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	ctx := context.Background()

	inventoryStore := store.NewInventoryStore(database)
	contactStore := store.NewContactStore(database)

	inventoryFeed := live.NewFeed(inventoryStore, logger)
	contactFeed := live.NewFeed(contactStore, logger)
	if err := inventoryFeed.Refresh(ctx); err != nil {
		logger.Error("failed to load inventory", "error", err)
		return
	}
	if err := contactFeed.Refresh(ctx); err != nil {
		logger.Error("failed to load contacts", "error", err)
		return
	}

	sess := session.NewController(session.ControllerOptions{
		Provider:          local.NewProvider(database, logger),
		State:             store.NewStateStore(database),
		Logger:            logger,
		AdminPasswordHash: cfg.AdminPasswordHash,
		Timeout:           cfg.SessionTimeout,
	})
	sess.Start(ctx)
	defer sess.Close()

	server := web.NewServer(
		service.NewInventoryService(inventoryStore, inventoryFeed, logger),
		service.NewContactService(contactStore, contactFeed, logger),
		sess,
		inventoryFeed,
		contactFeed,
		templates.FS,
		logger,
	)

	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}
