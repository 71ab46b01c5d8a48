package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/civiport/civiport/domain/access"
	"github.com/civiport/civiport/domain/entity"
	"github.com/civiport/civiport/infrastructure/adapter/postgres"
	"github.com/civiport/civiport/infrastructure/config"
	"github.com/civiport/civiport/infrastructure/service/password"
)

// Bootstraps the first admin account. Further officers are created through
// the admin API.
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	userRepo := postgres.NewUserRepository(db)

	if len(os.Args) < 3 {
		log.Fatal("usage: createadmin <email> <password> [name]")
	}
	email := os.Args[1]
	adminPassword := os.Args[2]
	name := "Administrator"
	if len(os.Args) > 3 {
		name = os.Args[3]
	}

	passwordService := password.NewBcryptPasswordService(10)
	hashedPassword, err := passwordService.HashPassword(adminPassword)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	adminUser := entity.NewUser(
		uuid.New().String(),
		name,
		email,
		hashedPassword,
		string(access.RoleAdmin),
	)

	if err := userRepo.Create(ctx, adminUser); err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}

	fmt.Printf("Admin user created\n")
	fmt.Printf("  Email: %s\n", email)
	fmt.Printf("  Name:  %s\n", name)
	fmt.Printf("  ID:    %s\n", adminUser.ID)
}
