package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/PauloHFS/faceauth/internal/logging"
	"golang.org/x/crypto/bcrypt"
)

const (
	seedAdminUsername = "admin"
	seedAdminEmail    = "admin@admin.com"
	seedAdminPassword = "admin123"
)

// Seed cria a conta admin (admin@admin.com / admin123). Admins não passam
// pelo fator facial, então a conta não tem imagem de referência.
func Seed(ctx context.Context, dbConn *sql.DB) error {
	queries := New(dbConn)

	_, err := queries.GetUserByUsername(ctx, seedAdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	_, err = queries.CreateUser(ctx, CreateUserParams{
		Username:     seedAdminUsername,
		Email:        seedAdminEmail,
		PasswordHash: string(hash),
		RoleID:       "admin",
	})
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	logging.Get().Info("database seeded successfully",
		slog.String("admin_username", seedAdminUsername),
		slog.String("admin_email", seedAdminEmail),
		slog.String("default_password", seedAdminPassword),
	)
	return nil
}
