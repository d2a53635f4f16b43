package main

import (
	"context"
	"fmt"

	"github.com/sevahub/sevahub-backend/internal/config"
	"github.com/sevahub/sevahub-backend/internal/database"
	"github.com/sevahub/sevahub-backend/internal/logger"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/repository"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, "sync-permissions")

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	roleRepo := repository.NewRoleRepository(pool)

	fmt.Println("=== Sync Permissions ===")
	fmt.Printf("Registering %d permission codes and granting all of them to the super admin role (ID %d).\n",
		len(model.AllPermissions), model.SuperAdminRoleID)

	codes := make([]string, len(model.AllPermissions))
	for i, p := range model.AllPermissions {
		codes[i] = string(p)
	}

	granted, err := roleRepo.SyncPermissions(ctx, model.SuperAdminRoleID, codes)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sync permissions")
	}

	fmt.Printf("\nSuccess! %d new grants added; the super admin now holds every permission.\n", granted)
}
