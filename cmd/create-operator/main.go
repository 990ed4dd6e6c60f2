package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/xushnid/supertest-backend/internal/config"
	"github.com/xushnid/supertest-backend/internal/database"
	"github.com/xushnid/supertest-backend/internal/logger"
	"github.com/xushnid/supertest-backend/internal/model"
	"github.com/xushnid/supertest-backend/internal/repository"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	operatorRepo := repository.NewOperatorRepository(pool)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Operator ===")

	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	// Chat ID is optional: it is where submission notifications and
	// leaderboard summaries are delivered.
	fmt.Print("Enter Notification Chat ID (optional): ")
	chatID, _ := reader.ReadString('\n')
	chatID = strings.TrimSpace(chatID)

	fmt.Print("Enter Password: ")
	pwBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	if len(pwBytes) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword(pwBytes, cfg.BcryptCost)
	if err != nil {
		fmt.Printf("Error hashing password: %v\n", err)
		return
	}

	op := &model.Operator{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		ChatID:       chatID,
	}
	if err := operatorRepo.Create(ctx, op); err != nil {
		fmt.Printf("Error creating operator: %v\n", err)
		return
	}

	fmt.Printf("Operator created: %s <%s> (id %s)\n", op.Name, op.Email, op.ID)
}
