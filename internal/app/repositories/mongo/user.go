package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/dberrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository stores users in the users collection
type UserRepository struct {
	coll   *mongo.Collection
	logger zerolog.Logger
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *mongo.Database, logger zerolog.Logger) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection), logger: logger}
}

func duplicateUserError(err error) error {
	if !dberrors.IsDuplicateKeyError(err) {
		return nil
	}
	if strings.Contains(err.Error(), "username") {
		return apperrors.ErrUsernameAlreadyExists
	}
	return apperrors.ErrEmailAlreadyExists
}

// Create inserts a new user and assigns its ID
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	doc := userDocument{
		ID:              primitive.NewObjectID(),
		Name:            user.Name,
		Username:        user.Username,
		Email:           user.Email,
		Password:        user.Password,
		Phone:           user.Phone,
		Role:            string(user.Role),
		Grade:           user.Grade,
		EnrolledCourses: user.EnrolledCourses,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if doc.EnrolledCourses == nil {
		doc.EnrolledCourses = []string{}
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if dupErr := duplicateUserError(err); dupErr != nil {
			return dupErr
		}
		r.logger.Error().Err(err).Str("email", user.Email).Msg("Error inserting user")
		return fmt.Errorf("error creating user: %w", err)
	}

	user.ID = doc.ID.Hex()
	user.EnrolledCourses = doc.EnrolledCourses
	user.CreatedAt, user.UpdatedAt = now, now
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrUserNotFound
		}
		r.logger.Error().Err(err).Msg("Error finding user")
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return doc.toModel(), nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("error checking user existence: %w", err)
	}
	return n > 0, nil
}

// EmailExists checks if an email already exists
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, bson.M{"email": email})
}

// UsernameExists checks if a username already exists
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, bson.M{"username": username})
}

// Update persists the profile fields of user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return apperrors.ErrUserNotFound
	}

	now := time.Now().UTC()
	res, err := r.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"name":      user.Name,
		"username":  user.Username,
		"email":     user.Email,
		"phone":     user.Phone,
		"grade":     user.Grade,
		"updatedAt": now,
	}})
	if err != nil {
		if dupErr := duplicateUserError(err); dupErr != nil {
			return dupErr
		}
		r.logger.Error().Err(err).Str("userID", user.ID).Msg("Error updating user")
		return fmt.Errorf("error updating user: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrUserNotFound
	}
	user.UpdatedAt = now
	return nil
}

// UpdatePassword replaces the stored password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.ErrUserNotFound
	}

	res, err := r.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"password":  passwordHash,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		r.logger.Error().Err(err).Str("userID", id).Msg("Error updating password")
		return fmt.Errorf("error updating password: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}
