// seed inserts a development admin account for local testing.
// Idempotent: skips the insert if the dev user already exists.
package main

import (
	"context"
	"log"
	"time"

	"tenant-auth-control-plane/internal/config"
	"tenant-auth-control-plane/internal/db"
	"tenant-auth-control-plane/internal/db/migrate"
	"tenant-auth-control-plane/internal/security"
	userdomain "tenant-auth-control-plane/internal/user/domain"
	userrepo "tenant-auth-control-plane/internal/user/repository"
)

const (
	devTenantID = "dev"
	devUsername = "devadmin"
	devPassword = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	dsn := cfg.DatabaseURL
	if cfg.DBDriver == "sqlite" {
		dsn = cfg.SQLitePath
	}
	conn, err := db.Open(cfg.DBDriver, dsn)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	if cfg.DBDriver == "sqlite" {
		if err := migrate.Run(conn, "sqlite", "up"); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	var repo userrepo.Repository
	switch cfg.DBDriver {
	case "postgres":
		repo = userrepo.NewPostgresRepository(conn)
	default:
		repo = userrepo.NewSQLiteRepository(conn)
	}

	ctx := context.Background()
	existing, err := repo.FindOne(ctx, devTenantID, devUsername)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if existing != nil {
		log.Printf("seed: %s/%s already exists, nothing to do", devTenantID, devUsername)
		return
	}

	hash, err := security.NewHasher(cfg.BcryptCost).Hash(devPassword)
	if err != nil {
		log.Fatalf("seed: hash: %v", err)
	}
	now := time.Now().UTC()
	user := &userdomain.User{
		TenantID:      devTenantID,
		Username:      devUsername,
		DisplayName:   "Dev Admin",
		PasswordHash:  hash,
		Admin:         true,
		Permissions:   map[string]bool{"users:read": true, "users:write": true},
		RegisterDate:  now,
		LastLoginDate: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repo.Create(ctx, user); err != nil {
		log.Fatalf("seed: create: %v", err)
	}
	log.Printf("seed: created %s/%s (password %q)", devTenantID, devUsername, devPassword)
}
