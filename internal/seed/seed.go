package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/repositories"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/auth"
)

const adminUsername = "admin"

// AdminAccount describes the bootstrap administrator
type AdminAccount struct {
	Email    string
	Password string
}

// CreateDefaultData creates the admin account if it does not exist yet.
// Admins cannot sign up through the API, so this is the only way one is created.
func CreateDefaultData(ctx context.Context, users repositories.UserRepository, hasher *auth.PasswordHasher, admin AdminAccount, lgr zerolog.Logger) error {
	email := strings.ToLower(strings.TrimSpace(admin.Email))
	if email == "" || admin.Password == "" {
		lgr.Info().Msg("No admin account configured, skipping seed")
		return nil
	}

	exists, err := users.EmailExists(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check admin account: %w", err)
	}
	if exists {
		lgr.Debug().Str("email", email).Msg("Admin account already present")
		return nil
	}

	hash, err := hasher.Hash(admin.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	user := &models.User{
		Name:     "Administrator",
		Username: adminUsername,
		Email:    email,
		Password: hash,
		Role:     models.RoleAdmin,
	}
	if err := users.Create(ctx, user); err != nil {
		// Another instance may have seeded concurrently
		if apperrors.Is(err, apperrors.ErrEmailAlreadyExists, apperrors.ErrUsernameAlreadyExists) {
			lgr.Warn().Err(err).Msg("Admin account collided with an existing user")
			return nil
		}
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	lgr.Info().Str("email", email).Str("userID", user.ID).Msg("Admin account created")
	return nil
}

// errAdminRole guards against a seeded account losing its role
var errAdminRole = errors.New("seeded account is not an admin")

// VerifyAdmin checks that the configured admin email belongs to an admin
func VerifyAdmin(ctx context.Context, users repositories.UserRepository, email string) error {
	user, err := users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if !user.IsAdmin() {
		return errAdminRole
	}
	return nil
}
