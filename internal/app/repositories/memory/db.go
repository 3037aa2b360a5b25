// Package memory implements the repositories in process memory.
// It backs the memory driver and the test suites.
package memory

import (
	"context"
	"sync"

	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/repositories"
)

// DB holds every table behind one lock
type DB struct {
	mu      sync.RWMutex
	users   map[string]*models.User
	courses map[string]*models.Course
}

// NewDB creates an empty store
func NewDB() *DB {
	return &DB{
		users:   make(map[string]*models.User),
		courses: make(map[string]*models.Course),
	}
}

// Ping always succeeds
func (db *DB) Ping(context.Context) error {
	return nil
}

// NewRepositories wires the memory repositories
func NewRepositories(db *DB) *repositories.Repositories {
	return &repositories.Repositories{
		UserRepository:   NewUserRepository(db),
		CourseRepository: NewCourseRepository(db),
		Store:            db,
	}
}
