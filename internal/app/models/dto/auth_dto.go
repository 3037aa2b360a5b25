package dto

import (
	"time"

	"github.com/yigit/coursehub/internal/app/models"
)

// SignupRequest represents a new account
type SignupRequest struct {
	Name     string `json:"name" binding:"omitempty,max=100" example:"Jane Doe"`
	Username string `json:"username" binding:"required,min=3,max=50" example:"jdoe"`
	Email    string `json:"email" binding:"required,email" example:"jane@example.com"`
	Password string `json:"password" binding:"required,min=8" example:"Secret1!"`
	Phone    string `json:"phone" binding:"required" example:"+905551112233"`
	Role     string `json:"role" binding:"required,oneof=student teacher" example:"student"`
	Grade    string `json:"grade" binding:"omitempty,max=50" example:"12"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"jane@example.com"`
	Password string `json:"password" binding:"required" example:"Secret1!"`
}

// VerifyTokenRequest carries a token in the body
type VerifyTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// UpdateProfileRequest represents profile update data
type UpdateProfileRequest struct {
	Name  string `json:"name" binding:"required,max=100" example:"Jane Doe"`
	Email string `json:"email" binding:"required,email" example:"jane@example.com"`
	Phone string `json:"phone" binding:"required" example:"+905551112233"`
	Grade string `json:"grade" binding:"omitempty,max=50" example:"11"`
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

// UserResponse is the public view of an account
type UserResponse struct {
	ID              string    `json:"id" example:"4c0f7f1e-8a0c-4a53-9f5e-0f8b5b2c7d11"`
	Name            string    `json:"name" example:"Jane Doe"`
	Username        string    `json:"username" example:"jdoe"`
	Email           string    `json:"email" example:"jane@example.com"`
	Phone           string    `json:"phone" example:"+905551112233"`
	Role            string    `json:"role" example:"teacher"`
	Grade           string    `json:"grade,omitempty" example:"12"`
	EnrolledCourses []string  `json:"enrolledCourses"`
	CreatedAt       time.Time `json:"createdAt"`
}

// NewUserResponse builds the public view of user
func NewUserResponse(user *models.User) *UserResponse {
	enrolled := user.EnrolledCourses
	if enrolled == nil {
		enrolled = []string{}
	}
	return &UserResponse{
		ID:              user.ID,
		Name:            user.Name,
		Username:        user.Username,
		Email:           user.Email,
		Phone:           user.Phone,
		Role:            string(user.Role),
		Grade:           user.Grade,
		EnrolledCourses: enrolled,
		CreatedAt:       user.CreatedAt,
	}
}

// AuthResponse represents successful authentication response
type AuthResponse struct {
	Token     string        `json:"token"`
	TokenType string        `json:"tokenType" example:"Bearer"`
	ExpiresIn int64         `json:"expiresIn" example:"3600"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      *UserResponse `json:"user"`
}

// VerifyTokenResponse reports a valid token
type VerifyTokenResponse struct {
	Valid     bool      `json:"valid" example:"true"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role" example:"student"`
	ExpiresAt time.Time `json:"expiresAt"`
}
