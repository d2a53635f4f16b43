package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/sevahub/sevahub-backend/internal/config"
	"github.com/sevahub/sevahub-backend/internal/database"
	"github.com/sevahub/sevahub-backend/internal/logger"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/repository"
	"github.com/sevahub/sevahub-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, "create-admin")

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	// Password hashing needs no Redis; revocation is never touched here.
	authService := service.NewAuthService(cfg, nil)
	adminUserService := service.NewAdminUserService(
		repository.NewAdminRepository(pool),
		repository.NewRoleRepository(pool),
		authService,
		log,
	)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Admin User ===")

	// Name
	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	// Email
	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	// Password
	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 8 {
		fmt.Println("Error: Password must be at least 8 characters")
		return
	}

	// Role ID
	fmt.Printf("Enter Role ID (default %d): ", model.SuperAdminRoleID)
	roleIDStr, _ := reader.ReadString('\n')
	roleIDStr = strings.TrimSpace(roleIDStr)
	roleID := model.SuperAdminRoleID
	if roleIDStr != "" {
		p, err := strconv.Atoi(roleIDStr)
		if err != nil {
			fmt.Println("Error: Role ID must be a number")
			return
		}
		roleID = p
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	admin, err := adminUserService.CreateAdmin(ctx, model.CreateAdminRequest{
		Email:    email,
		Name:     name,
		Password: password,
		RoleID:   roleID,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create admin")
	}

	fmt.Printf("\nSuccess! Admin '%s' (%s) created with ID: %d\n", admin.Name, admin.Email, admin.ID)
}
