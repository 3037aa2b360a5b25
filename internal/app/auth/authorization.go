package auth

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/repositories"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
)

// Authorization errors reported to clients as FORBIDDEN
var (
	ErrNotTeacher = apperrors.NewForbiddenError("Only teachers can create courses")
	ErrNotOwner   = apperrors.NewForbiddenError("Only the course instructor or an admin can modify this course")
)

// Principal is the authenticated caller
type Principal struct {
	UserID string
	Email  string
	Name   string
	Role   models.RoleType
}

// IsAdmin reports whether the caller has the admin role
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// AuthorizationService handles authorization operations
type AuthorizationService struct {
	courseRepo repositories.CourseRepository
	logger     zerolog.Logger
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(courseRepo repositories.CourseRepository, logger zerolog.Logger) *AuthorizationService {
	return &AuthorizationService{
		courseRepo: courseRepo,
		logger:     logger,
	}
}

// ValidateTeacher returns ErrNotTeacher unless the caller is a teacher
func (s *AuthorizationService) ValidateTeacher(p Principal) error {
	if p.Role != models.RoleTeacher {
		return ErrNotTeacher
	}
	return nil
}

// CanModifyCourse reports whether p owns course or is an admin
func (s *AuthorizationService) CanModifyCourse(p Principal, course *models.Course) bool {
	return p.IsAdmin() || course.OwnedBy(p.UserID)
}

// AuthorizeCourseChange loads the course and checks that p may mutate it.
// The loaded course is returned so callers avoid a second read.
func (s *AuthorizationService) AuthorizeCourseChange(ctx context.Context, courseID string, p Principal) (*models.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrCourseNotFound) && !errors.Is(err, apperrors.ErrInvalidID) {
			s.logger.Error().Err(err).Str("courseID", courseID).Msg("Error loading course for authorization")
		}
		return nil, err
	}

	if !s.CanModifyCourse(p, course) {
		s.logger.Warn().
			Str("courseID", courseID).
			Str("userID", p.UserID).
			Str("role", string(p.Role)).
			Msg("Course modification denied")
		return nil, ErrNotOwner
	}
	return course, nil
}
