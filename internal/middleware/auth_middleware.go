package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	authz "github.com/yigit/coursehub/internal/app/auth"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/auth"
)

// Context keys set by JWTAuth
const (
	ContextUserID = "userID"
	ContextEmail  = "email"
	ContextRole   = "role"
	ContextName   = "name"
)

// TokenQueryParam carries a token on media URLs used by <video> and <a> elements
const TokenQueryParam = "token"

// Authenticator validates a token and resolves the user it names
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	authenticator Authenticator
	logger        zerolog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(authenticator Authenticator, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authenticator: authenticator,
		logger:        logger,
	}
}

func abortUnauthorized(c *gin.Context, code dto.ErrorCode, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(dto.NewErrorDetail(code, message)))
}

// JWTAuth validates the bearer token and stores the caller on the context.
// With allowQuery the token may also come from ?token=, which only media routes enable.
func (m *AuthMiddleware) JWTAuth(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractBearerToken(c.GetHeader("Authorization"))
		if errors.Is(err, apperrors.ErrTokenMissing) && allowQuery {
			if q := c.Query(TokenQueryParam); q != "" {
				token, err = q, nil
			}
		}
		if err != nil {
			if errors.Is(err, apperrors.ErrTokenMissing) {
				abortUnauthorized(c, dto.ErrorCodeTokenMissing, "No token, authorization denied")
				return
			}
			abortUnauthorized(c, dto.ErrorCodeInvalidToken, "Invalid authorization header")
			return
		}

		user, err := m.authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrTokenExpired):
				abortUnauthorized(c, dto.ErrorCodeExpiredToken, "Token has expired")
			case errors.Is(err, apperrors.ErrTokenInvalid):
				abortUnauthorized(c, dto.ErrorCodeInvalidToken, "Token is not valid")
			case errors.Is(err, apperrors.ErrUserNotFound):
				abortUnauthorized(c, dto.ErrorCodeUserNotFound, "User not found")
			default:
				m.logger.Error().Err(err).Msg("Error authenticating request")
				HandleAPIError(c, err)
			}
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextEmail, user.Email)
		c.Set(ContextRole, string(user.Role))
		c.Set(ContextName, user.Name)

		c.Next()
	}
}

// RoleRequired rejects callers whose role is not in roles
func (m *AuthMiddleware) RoleRequired(roles ...models.RoleType) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "" {
			abortUnauthorized(c, dto.ErrorCodeUnauthorized, "Authentication required")
			return
		}

		for _, r := range roles {
			if string(r) == role {
				c.Next()
				return
			}
		}

		errorDetail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Access denied").
			WithDetails("You don't have sufficient permissions for this operation")
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
	}
}

// CurrentPrincipal returns the caller stored by JWTAuth
func CurrentPrincipal(c *gin.Context) (authz.Principal, bool) {
	userID := c.GetString(ContextUserID)
	if userID == "" {
		return authz.Principal{}, false
	}
	return authz.Principal{
		UserID: userID,
		Email:  c.GetString(ContextEmail),
		Name:   c.GetString(ContextName),
		Role:   models.RoleType(c.GetString(ContextRole)),
	}, true
}
