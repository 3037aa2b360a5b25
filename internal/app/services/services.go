package services

import (
	"github.com/rs/zerolog"
	authz "github.com/yigit/coursehub/internal/app/auth"
	"github.com/yigit/coursehub/internal/app/repositories"
	"github.com/yigit/coursehub/internal/pkg/auth"
	"github.com/yigit/coursehub/internal/pkg/filestorage"
)

// Services groups every business service used by the HTTP layer
type Services struct {
	Auth          *AuthService
	Course        *CourseService
	Media         *MediaService
	Authorization *authz.AuthorizationService
}

// NewServices wires the services over one set of repositories
func NewServices(
	repos *repositories.Repositories,
	jwtService *auth.JWTService,
	hasher *auth.PasswordHasher,
	storage filestorage.FileStorage,
	logger zerolog.Logger,
) *Services {
	authorization := authz.NewAuthorizationService(repos.CourseRepository, logger.With().Str("component", "authorization").Logger())
	return &Services{
		Auth:          NewAuthService(repos.UserRepository, jwtService, hasher, logger.With().Str("component", "auth_service").Logger()),
		Course:        NewCourseService(repos.CourseRepository, authorization, storage, logger.With().Str("component", "course_service").Logger()),
		Media:         NewMediaService(storage, logger.With().Str("component", "media_service").Logger()),
		Authorization: authorization,
	}
}
