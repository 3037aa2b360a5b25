package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/auth"
)

func signupRequest(username, role string) *dto.SignupRequest {
	return &dto.SignupRequest{
		Username: username,
		Email:    username + "@Example.com",
		Password: "Secret1!",
		Phone:    "+90 555 111 2233",
		Role:     role,
		Grade:    "12",
	}
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.services.Auth.Signup(ctx, signupRequest("jane", "student"))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "jane@example.com", resp.User.Email, "email is lowercased")
	assert.Equal(t, "jane", resp.User.Name, "name defaults to username")
	assert.Equal(t, "12", resp.User.Grade)
	assert.Empty(t, resp.User.EnrolledCourses)

	teacher, err := env.services.Auth.Signup(ctx, signupRequest("john", "teacher"))
	require.NoError(t, err)
	assert.Empty(t, teacher.User.Grade, "grade is kept for students only")

	tests := []struct {
		name    string
		mutate  func(*dto.SignupRequest)
		wantErr error
	}{
		{"duplicate email", func(r *dto.SignupRequest) { r.Username = "other" }, apperrors.ErrEmailAlreadyExists},
		{"duplicate username", func(r *dto.SignupRequest) { r.Email = "new@example.com" }, apperrors.ErrUsernameAlreadyExists},
		{"weak password", func(r *dto.SignupRequest) { r.Username, r.Email, r.Password = "alice", "alice@example.com", "password" }, apperrors.ErrValidationFailed},
		{"bad username", func(r *dto.SignupRequest) { r.Username, r.Email = "bad name", "b@example.com" }, apperrors.ErrValidationFailed},
		{"bad phone", func(r *dto.SignupRequest) { r.Username, r.Email, r.Phone = "carl", "carl@example.com", "call me" }, apperrors.ErrValidationFailed},
		{"admin role", func(r *dto.SignupRequest) { r.Username, r.Email, r.Role = "dave", "dave@example.com", "admin" }, apperrors.ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := signupRequest("jane", "student")
			tt.mutate(req)
			_, err := env.services.Auth.Signup(ctx, req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.services.Auth.Signup(ctx, signupRequest("jane", "teacher"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid, case insensitive email", "JANE@example.com", "Secret1!", nil},
		{"wrong password", "jane@example.com", "Secret2!", apperrors.ErrInvalidCredentials},
		{"unknown email", "nobody@example.com", "Secret1!", apperrors.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.services.Auth.Login(ctx, &dto.LoginRequest{Email: tt.email, Password: tt.password})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "teacher", resp.User.Role)
		})
	}
}

func TestRefreshAcceptsExpiredTokenButAuthenticateDoesNot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signup, err := env.services.Auth.Signup(ctx, signupRequest("jane", "student"))
	require.NoError(t, err)

	user, err := env.services.Auth.Authenticate(ctx, signup.Token)
	require.NoError(t, err)
	expired, err := env.jwt.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).GenerateToken(user)
	require.NoError(t, err)
	env.jwt.WithClock(time.Now)

	_, err = env.services.Auth.Authenticate(ctx, expired.Token)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)

	_, err = env.services.Auth.VerifyToken(expired.Token)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)

	refreshed, err := env.services.Auth.RefreshToken(ctx, expired.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refreshed.User.ID)

	verified, err := env.services.Auth.VerifyToken(refreshed.Token)
	require.NoError(t, err)
	assert.True(t, verified.Valid)
	assert.Equal(t, user.ID, verified.UserID)

	_, err = env.services.Auth.RefreshToken(ctx, "garbage")
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)

	other := auth.NewJWTService(auth.JWTConfig{SecretKey: "other", TokenIssuer: "coursehub"})
	forged, err := other.GenerateToken(user)
	require.NoError(t, err)
	_, err = env.services.Auth.RefreshToken(ctx, forged.Token)
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	jane, err := env.services.Auth.Signup(ctx, signupRequest("jane", "student"))
	require.NoError(t, err)
	_, err = env.services.Auth.Signup(ctx, signupRequest("john", "student"))
	require.NoError(t, err)

	resp, err := env.services.Auth.UpdateProfile(ctx, jane.User.ID, &dto.UpdateProfileRequest{
		Name:  "Jane Doe",
		Email: "Jane.Doe@example.com",
		Phone: "+905551112233",
		Grade: "11",
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", resp.User.Name)
	assert.Equal(t, "jane.doe@example.com", resp.User.Email)
	assert.Equal(t, "11", resp.User.Grade)

	claims, err := env.jwt.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@example.com", claims.Email, "new token carries the new email")

	_, err = env.services.Auth.UpdateProfile(ctx, jane.User.ID, &dto.UpdateProfileRequest{
		Name: "Jane", Email: "john@example.com", Phone: "+905551112233",
	})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	jane, err := env.services.Auth.Signup(ctx, signupRequest("jane", "teacher"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     dto.ChangePasswordRequest
		wantErr error
	}{
		{"wrong current", dto.ChangePasswordRequest{CurrentPassword: "Nope1!aa", NewPassword: "Newer1!x"}, apperrors.ErrInvalidPassword},
		{"same password", dto.ChangePasswordRequest{CurrentPassword: "Secret1!", NewPassword: "Secret1!"}, apperrors.ErrValidationFailed},
		{"weak new", dto.ChangePasswordRequest{CurrentPassword: "Secret1!", NewPassword: "weakweak"}, apperrors.ErrValidationFailed},
		{"ok", dto.ChangePasswordRequest{CurrentPassword: "Secret1!", NewPassword: "Newer1!x"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.services.Auth.ChangePassword(ctx, jane.User.ID, &tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	_, err = env.services.Auth.Login(ctx, &dto.LoginRequest{Email: "jane@example.com", Password: "Newer1!x"})
	assert.NoError(t, err)
	_, err = env.services.Auth.Login(ctx, &dto.LoginRequest{Email: "jane@example.com", Password: "Secret1!"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}
