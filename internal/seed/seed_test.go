package seed

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/repositories/memory"
	"github.com/yigit/coursehub/internal/pkg/auth"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateDefaultData(t *testing.T) {
	ctx := context.Background()
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)

	tests := []struct {
		name      string
		admin     AdminAccount
		wantAdmin bool
	}{
		{"not configured", AdminAccount{}, false},
		{"password missing", AdminAccount{Email: "root@example.com"}, false},
		{"configured", AdminAccount{Email: " Root@Example.com ", Password: "Admin1!pass"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := memory.NewUserRepository(memory.NewDB())
			require.NoError(t, CreateDefaultData(ctx, users, hasher, tt.admin, zerolog.Nop()))

			user, err := users.GetByEmail(ctx, "root@example.com")
			if !tt.wantAdmin {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.RoleAdmin, user.Role)
			assert.True(t, hasher.Check(user.Password, tt.admin.Password))
			assert.NoError(t, VerifyAdmin(ctx, users, tt.admin.Email))
		})
	}
}

func TestCreateDefaultDataIsIdempotent(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository(memory.NewDB())
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	admin := AdminAccount{Email: "root@example.com", Password: "Admin1!pass"}

	require.NoError(t, CreateDefaultData(ctx, users, hasher, admin, zerolog.Nop()))
	first, err := users.GetByEmail(ctx, admin.Email)
	require.NoError(t, err)

	require.NoError(t, CreateDefaultData(ctx, users, hasher, admin, zerolog.Nop()))
	second, err := users.GetByEmail(ctx, admin.Email)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestVerifyAdminRejectsOtherRoles(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository(memory.NewDB())
	require.NoError(t, users.Create(ctx, &models.User{
		Username: "taken", Email: "root@example.com", Role: models.RoleStudent,
	}))

	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	admin := AdminAccount{Email: "root@example.com", Password: "Admin1!pass"}
	require.NoError(t, CreateDefaultData(ctx, users, hasher, admin, zerolog.Nop()))

	assert.ErrorIs(t, VerifyAdmin(ctx, users, admin.Email), errAdminRole)
}
