package auth

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"investment-platform/internal/database"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultAdminEmail is used when ADMIN_EMAIL is not set
	DefaultAdminEmail = "admin@investment-platform.local"
	// AdminBcryptCost is the bcrypt cost for the admin password
	AdminBcryptCost = 12
)

// SeedAdminOperator ensures an admin account exists. The password comes
// from ADMIN_PASSWORD; when unset, seeding is skipped rather than
// shipping a default credential.
func SeedAdminOperator(ctx context.Context, db *database.DB) error {
	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = DefaultAdminEmail
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		log.Printf("ADMIN_PASSWORD not set, skipping admin seeding")
		return nil
	}

	repo := database.NewRepository(db)

	operator, err := repo.GetOperatorByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check for admin account: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), AdminBcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	if operator == nil {
		log.Printf("Admin account not found. Creating admin: %s", email)

		admin := &database.Operator{
			ID:           uuid.New().String(),
			Email:        email,
			PasswordHash: string(hashedPassword),
			Name:         "Administrator",
			Role:         RoleAdmin,
		}

		if err := repo.CreateOperator(ctx, admin); err != nil {
			return fmt.Errorf("failed to create admin account: %w", err)
		}

		log.Printf("Admin account created with ID: %s", admin.ID)
		return nil
	}

	// Account exists: resync the password when it no longer matches.
	if err := bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(password)); err != nil {
		log.Printf("Updating admin password for: %s", email)

		if err := repo.UpdateOperatorPassword(ctx, operator.ID, string(hashedPassword)); err != nil {
			return fmt.Errorf("failed to update admin password: %w", err)
		}
	}

	return nil
}
