package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/repositories"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
)

type courseRepository struct {
	db *DB
}

// NewCourseRepository creates a memory CourseRepository
func NewCourseRepository(db *DB) repositories.CourseRepository {
	return &courseRepository{db: db}
}

func copyCourse(c *models.Course) *models.Course {
	out := *c
	out.Videos = append([]models.Video{}, c.Videos...)
	out.Documents = append([]models.Document{}, c.Documents...)
	return &out
}

// find must be called with the lock held
func (r *courseRepository) find(id string) (*models.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repositories.ErrInvalidCourseID
	}
	c, ok := r.db.courses[id]
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	return c, nil
}

func (r *courseRepository) Create(_ context.Context, course *models.Course) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt, course.UpdatedAt = now, now
	course.Videos = []models.Video{}
	course.Documents = []models.Document{}
	course.VideoSeq, course.DocumentSeq = 0, 0
	r.db.courses[course.ID] = copyCourse(course)
	return nil
}

func (r *courseRepository) List(_ context.Context) ([]*models.Course, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	courses := make([]*models.Course, 0, len(r.db.courses))
	for _, c := range r.db.courses {
		courses = append(courses, copyCourse(c))
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })
	return courses, nil
}

func (r *courseRepository) GetByID(_ context.Context, id string) (*models.Course, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, err := r.find(id)
	if err != nil {
		return nil, err
	}
	return copyCourse(c), nil
}

func (r *courseRepository) GetByTitle(_ context.Context, title string) (*models.Course, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var found *models.Course
	for _, c := range r.db.courses {
		if c.Title == title && (found == nil || c.CreatedAt.Before(found.CreatedAt)) {
			found = c
		}
	}
	if found == nil {
		return nil, apperrors.ErrCourseNotFound
	}
	return copyCourse(found), nil
}

func (r *courseRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, err := r.find(id); err != nil {
		return err
	}
	delete(r.db.courses, id)
	return nil
}

func (r *courseRepository) UpdateContent(_ context.Context, id string, update repositories.ContentUpdate) (*models.Course, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, err := r.find(id)
	if err != nil {
		return nil, err
	}
	if update.DetailedDescription != "" {
		c.DetailedDescription = update.DetailedDescription
	}
	if update.Syllabus != "" {
		c.Syllabus = update.Syllabus
	}
	if !update.IsEmpty() {
		c.UpdatedAt = time.Now().UTC()
	}
	return copyCourse(c), nil
}

func (r *courseRepository) AppendVideo(_ context.Context, courseID string, video models.Video) (*models.Course, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, err := r.find(courseID)
	if err != nil {
		return nil, err
	}
	c.VideoSeq++
	video.Order = c.VideoSeq
	c.Videos = append(c.Videos, video)
	c.UpdatedAt = time.Now().UTC()
	return copyCourse(c), nil
}

func (r *courseRepository) AppendDocument(_ context.Context, courseID string, document models.Document) (*models.Course, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, err := r.find(courseID)
	if err != nil {
		return nil, err
	}
	c.DocumentSeq++
	document.Order = c.DocumentSeq
	c.Documents = append(c.Documents, document)
	c.UpdatedAt = time.Now().UTC()
	return copyCourse(c), nil
}

// Items are appended in order, so slice position is the order-sorted position.
func (r *courseRepository) RemoveVideo(_ context.Context, courseID string, index int) (*models.Video, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, err := r.find(courseID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(c.Videos) {
		return nil, apperrors.ErrVideoNotFound
	}
	removed := c.Videos[index]
	c.Videos = append(c.Videos[:index:index], c.Videos[index+1:]...)
	c.UpdatedAt = time.Now().UTC()
	return &removed, nil
}

func (r *courseRepository) RemoveDocument(_ context.Context, courseID string, index int) (*models.Document, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, err := r.find(courseID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(c.Documents) {
		return nil, apperrors.ErrDocumentNotFound
	}
	removed := c.Documents[index]
	c.Documents = append(c.Documents[:index:index], c.Documents[index+1:]...)
	c.UpdatedAt = time.Now().UTC()
	return &removed, nil
}

func (r *courseRepository) Stats(_ context.Context) (*models.CourseStats, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	stats := &models.CourseStats{}
	var price, duration float64
	for _, c := range r.db.courses {
		stats.TotalCourses++
		price += c.Price
		duration += c.Duration
		stats.TotalEnrolled += int64(c.EnrolledCount)
	}
	if stats.TotalCourses > 0 {
		stats.AveragePrice = price / float64(stats.TotalCourses)
		stats.AverageDuration = duration / float64(stats.TotalCourses)
	}
	return stats, nil
}
