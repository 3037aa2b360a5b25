package repositories

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/db"
)

// UserRepository defines the account storage operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)

	// Update persists name, username, email, phone and grade
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// ContentUpdate carries the optional long-form course fields. Empty values are left untouched.
type ContentUpdate struct {
	DetailedDescription string
	Syllabus            string
}

// IsEmpty reports whether nothing would change
func (u ContentUpdate) IsEmpty() bool {
	return u.DetailedDescription == "" && u.Syllabus == ""
}

// CourseRepository defines the course aggregate storage operations.
//
// Append operations draw the item order from a per-course counter in one atomic step,
// so concurrent appends never share an order. Remove operations address the
// order-sorted list by position and never renumber the remaining items.
type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	List(ctx context.Context) ([]*models.Course, error)
	GetByID(ctx context.Context, id string) (*models.Course, error)
	GetByTitle(ctx context.Context, title string) (*models.Course, error)
	Delete(ctx context.Context, id string) error
	UpdateContent(ctx context.Context, id string, update ContentUpdate) (*models.Course, error)

	AppendVideo(ctx context.Context, courseID string, video models.Video) (*models.Course, error)
	AppendDocument(ctx context.Context, courseID string, document models.Document) (*models.Course, error)
	RemoveVideo(ctx context.Context, courseID string, index int) (*models.Video, error)
	RemoveDocument(ctx context.Context, courseID string, index int) (*models.Document, error)

	Stats(ctx context.Context) (*models.CourseStats, error)
}

// Pinger is implemented by every backing store
type Pinger interface {
	Ping(ctx context.Context) error
}

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository   UserRepository
	CourseRepository CourseRepository
	Store            Pinger
}

// NewRepositories initializes the postgres repositories
func NewRepositories(database *db.PostgresDB, logger zerolog.Logger) *Repositories {
	return &Repositories{
		UserRepository:   NewPostgresUserRepository(database.Pool, logger),
		CourseRepository: NewPostgresCourseRepository(database, logger),
		Store:            database,
	}
}
