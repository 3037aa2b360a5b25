package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/app/repositories"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/auth"
	"github.com/yigit/coursehub/internal/pkg/validation"
)

// Auth service errors with client-facing messages
var (
	ErrWeakPassword = apperrors.NewValidationError("password",
		"Password must be at least 8 characters and contain upper and lower case letters, a digit and one of "+validation.PasswordSpecialChars)
	ErrCurrentPasswordIncorrect = &apperrors.CustomError{
		Err:     apperrors.ErrInvalidPassword,
		Message: "Current password is incorrect",
		Field:   "currentPassword",
	}
	ErrSamePassword = apperrors.NewValidationError("newPassword", "New password must differ from the current password")
)

// AuthService handles authentication operations
type AuthService struct {
	userRepo   repositories.UserRepository
	jwtService *auth.JWTService
	hasher     *auth.PasswordHasher
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo repositories.UserRepository,
	jwtService *auth.JWTService,
	hasher *auth.PasswordHasher,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		hasher:     hasher,
		logger:     logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateSignup checks the fields binding tags cannot express
func (s *AuthService) validateSignup(req *dto.SignupRequest) error {
	if !validation.IsValidEmail(req.Email) {
		return apperrors.NewValidationError("email", "Invalid email format")
	}
	if !validation.IsValidUsername(req.Username) {
		return apperrors.NewValidationError("username", "Username may only contain letters, digits, '_', '.' and '-'")
	}
	if !validation.IsValidPhone(req.Phone) {
		return apperrors.NewValidationError("phone", "Invalid phone number")
	}
	if !validation.IsStrongPassword(req.Password) {
		return ErrWeakPassword
	}
	return nil
}

// Signup registers a new account and returns a session token
func (s *AuthService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validateSignup(req); err != nil {
		return nil, err
	}

	role := models.RoleType(req.Role)
	if role != models.RoleStudent && role != models.RoleTeacher {
		return nil, apperrors.NewValidationError("role", "Role must be student or teacher")
	}

	exists, err := s.userRepo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error checking email: %w", err)
	}
	if exists {
		return nil, apperrors.ErrEmailAlreadyExists
	}
	exists, err = s.userRepo.UsernameExists(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("error checking username: %w", err)
	}
	if exists {
		return nil, apperrors.ErrUsernameAlreadyExists
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error hashing password")
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = req.Username
	}

	user := &models.User{
		Name:            name,
		Username:        req.Username,
		Email:           req.Email,
		Password:        hashed,
		Phone:           strings.TrimSpace(req.Phone),
		Role:            role,
		EnrolledCourses: []string{},
	}
	if role == models.RoleStudent {
		user.Grade = strings.TrimSpace(req.Grade)
	}

	// The repository re-checks uniqueness so concurrent signups still conflict
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("userID", user.ID).Str("role", string(user.Role)).Msg("User registered")
	return s.generateAuthResponse(user)
}

// Login authenticates a user by email and password
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Check(user.Password, req.Password) {
		s.logger.Debug().Str("userID", user.ID).Msg("Login rejected, password mismatch")
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.generateAuthResponse(user)
}

// VerifyToken checks a token without touching the user store
func (s *AuthService) VerifyToken(token string) (*dto.VerifyTokenResponse, error) {
	claims, err := s.jwtService.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return &dto.VerifyTokenResponse{
		Valid:     true,
		UserID:    claims.UserID,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Authenticate validates a bearer token and resolves its user
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.jwtService.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, claims.UserID)
}

// RefreshToken issues a new token for a signed, possibly expired, token whose user still exists
func (s *AuthService) RefreshToken(ctx context.Context, token string) (*dto.AuthResponse, error) {
	claims, err := s.jwtService.ParseIgnoringExpiry(token)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("userID", user.ID).Msg("Token refreshed")
	return s.generateAuthResponse(user)
}

// GetProfile returns the public view of a user
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponse(user), nil
}

// UpdateProfile changes name, email, phone and, for students, grade.
// A new token is returned because name and email are token claims.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	if !validation.IsValidEmail(email) {
		return nil, apperrors.NewValidationError("email", "Invalid email format")
	}
	if !validation.IsValidPhone(req.Phone) {
		return nil, apperrors.NewValidationError("phone", "Invalid phone number")
	}

	if email != user.Email {
		exists, err := s.userRepo.EmailExists(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("error checking email: %w", err)
		}
		if exists {
			return nil, apperrors.ErrEmailAlreadyExists
		}
	}

	user.Name = strings.TrimSpace(req.Name)
	user.Email = email
	user.Phone = strings.TrimSpace(req.Phone)
	if user.Role == models.RoleStudent {
		user.Grade = strings.TrimSpace(req.Grade)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("userID", user.ID).Msg("Profile updated")
	return s.generateAuthResponse(user)
}

// ChangePassword replaces the password after checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !s.hasher.Check(user.Password, req.CurrentPassword) {
		return ErrCurrentPasswordIncorrect
	}
	if req.CurrentPassword == req.NewPassword {
		return ErrSamePassword
	}
	if !validation.IsStrongPassword(req.NewPassword) {
		return ErrWeakPassword
	}

	hashed, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error hashing password")
		return fmt.Errorf("error hashing password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return err
	}

	s.logger.Info().Str("userID", user.ID).Msg("Password changed")
	return nil
}

// generateAuthResponse signs a token for user
func (s *AuthService) generateAuthResponse(user *models.User) (*dto.AuthResponse, error) {
	issued, err := s.jwtService.GenerateToken(user)
	if err != nil {
		s.logger.Error().Err(err).Str("userID", user.ID).Msg("Error generating token")
		return nil, err
	}

	return &dto.AuthResponse{
		Token:     issued.Token,
		TokenType: "Bearer",
		ExpiresIn: issued.ExpiresIn,
		ExpiresAt: issued.ExpiresAt,
		User:      dto.NewUserResponse(user),
	}, nil
}
