package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/repositories"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
)

type userRepository struct {
	db *DB
}

// NewUserRepository creates a memory UserRepository
func NewUserRepository(db *DB) repositories.UserRepository {
	return &userRepository{db: db}
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.EnrolledCourses = append([]string{}, u.EnrolledCourses...)
	return &c
}

// checkUnique must be called with the lock held
func (r *userRepository) checkUnique(user *models.User) error {
	for _, u := range r.db.users {
		if u.ID == user.ID {
			continue
		}
		if u.Email == user.Email {
			return apperrors.ErrEmailAlreadyExists
		}
		if u.Username == user.Username {
			return apperrors.ErrUsernameAlreadyExists
		}
	}
	return nil
}

func (r *userRepository) Create(_ context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if err := r.checkUnique(user); err != nil {
		return err
	}
	if user.EnrolledCourses == nil {
		user.EnrolledCourses = []string{}
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	r.db.users[user.ID] = copyUser(user)
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if u, ok := r.db.users[id]; ok {
		return copyUser(u), nil
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r *userRepository) UsernameExists(_ context.Context, username string) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *userRepository) Update(_ context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	orig, ok := r.db.users[user.ID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	if err := r.checkUnique(user); err != nil {
		return err
	}
	orig.Name = user.Name
	orig.Username = user.Username
	orig.Email = user.Email
	orig.Phone = user.Phone
	orig.Grade = user.Grade
	orig.UpdatedAt = time.Now().UTC()
	user.UpdatedAt = orig.UpdatedAt
	return nil
}

func (r *userRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.Password = passwordHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}
