package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/db"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
)

// ErrInvalidCourseID is returned for IDs the store could never have issued
var ErrInvalidCourseID = apperrors.NewCustomError(apperrors.ErrInvalidID, "Invalid course ID format")

var courseColumns = []string{
	"id", "title", "instructor", "owner_id", "duration", "price", "description",
	"detailed_description", "image", "enrolled_count", "syllabus", "video_seq", "document_seq",
	"created_at", "updated_at",
}

// PostgresCourseRepository stores courses with their videos and documents in child tables
type PostgresCourseRepository struct {
	db     *db.PostgresDB
	sb     squirrel.StatementBuilderType
	logger zerolog.Logger
}

// NewPostgresCourseRepository creates a new PostgresCourseRepository
func NewPostgresCourseRepository(database *db.PostgresDB, logger zerolog.Logger) *PostgresCourseRepository {
	return &PostgresCourseRepository{
		db:     database,
		sb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		logger: logger,
	}
}

func scanCourse(row pgx.Row) (*models.Course, error) {
	c := &models.Course{Videos: []models.Video{}, Documents: []models.Document{}}
	err := row.Scan(
		&c.ID, &c.Title, &c.Instructor, &c.OwnerID, &c.Duration, &c.Price, &c.Description,
		&c.DetailedDescription, &c.Image, &c.EnrolledCount, &c.Syllabus, &c.VideoSeq, &c.DocumentSeq,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a course with empty content lists
func (r *PostgresCourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}

	sql, args, err := r.sb.Insert("courses").
		Columns("id", "title", "instructor", "owner_id", "duration", "price", "description",
			"detailed_description", "image", "enrolled_count", "syllabus").
		Values(course.ID, course.Title, course.Instructor, course.OwnerID, course.Duration, course.Price,
			course.Description, course.DetailedDescription, course.Image, course.EnrolledCount, course.Syllabus).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create course query: %w", err)
	}

	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&course.CreatedAt, &course.UpdatedAt); err != nil {
		r.logger.Error().Err(err).Str("title", course.Title).Msg("Error executing create course query")
		return fmt.Errorf("error creating course: %w", err)
	}
	course.Videos = []models.Video{}
	course.Documents = []models.Document{}
	return nil
}

// List returns every course with its content, newest first
func (r *PostgresCourseRepository) List(ctx context.Context) ([]*models.Course, error) {
	sql, args, err := r.sb.Select(courseColumns...).
		From("courses").
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list courses query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("Error executing list courses query")
		return nil, fmt.Errorf("error querying courses: %w", err)
	}
	defer rows.Close()

	courses := []*models.Course{}
	byID := map[string]*models.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning course row: %w", err)
		}
		courses = append(courses, c)
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating course rows: %w", err)
	}

	if len(courses) == 0 {
		return courses, nil
	}
	if err := r.loadContent(ctx, byID); err != nil {
		return nil, err
	}
	return courses, nil
}

// loadContent fills Videos and Documents of every course in byID
func (r *PostgresCourseRepository) loadContent(ctx context.Context, byID map[string]*models.Course) error {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	sql, args, err := r.sb.Select("course_id", "title", "url", "description", "thumbnail", "duration", "seq").
		From("course_videos").
		Where(squirrel.Eq{"course_id": ids}).
		OrderBy("course_id", "seq ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build videos query: %w", err)
	}
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error querying videos: %w", err)
	}
	for rows.Next() {
		var courseID string
		var v models.Video
		if err := rows.Scan(&courseID, &v.Title, &v.URL, &v.Description, &v.Thumbnail, &v.Duration, &v.Order); err != nil {
			rows.Close()
			return fmt.Errorf("error scanning video row: %w", err)
		}
		if c, ok := byID[courseID]; ok {
			c.Videos = append(c.Videos, v)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating video rows: %w", err)
	}

	sql, args, err = r.sb.Select("course_id", "title", "url", "description", "type", "seq").
		From("course_documents").
		Where(squirrel.Eq{"course_id": ids}).
		OrderBy("course_id", "seq ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build documents query: %w", err)
	}
	rows, err = r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error querying documents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var courseID string
		var d models.Document
		if err := rows.Scan(&courseID, &d.Title, &d.URL, &d.Description, &d.Type, &d.Order); err != nil {
			return fmt.Errorf("error scanning document row: %w", err)
		}
		if c, ok := byID[courseID]; ok {
			c.Documents = append(c.Documents, d)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating document rows: %w", err)
	}
	return nil
}

func (r *PostgresCourseRepository) getOne(ctx context.Context, where squirrel.Eq) (*models.Course, error) {
	sql, args, err := r.sb.Select(courseColumns...).
		From("courses").
		Where(where).
		OrderBy("created_at ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get course query: %w", err)
	}

	c, err := scanCourse(r.db.Pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCourseNotFound
		}
		r.logger.Error().Err(err).Msg("Error scanning course row")
		return nil, fmt.Errorf("error getting course: %w", err)
	}

	if err := r.loadContent(ctx, map[string]*models.Course{c.ID: c}); err != nil {
		return nil, err
	}
	return c, nil
}

// GetByID retrieves a course by ID
func (r *PostgresCourseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidCourseID
	}
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByTitle retrieves the oldest course with an exactly matching title
func (r *PostgresCourseRepository) GetByTitle(ctx context.Context, title string) (*models.Course, error) {
	return r.getOne(ctx, squirrel.Eq{"title": title})
}

// Delete removes a course. Child rows go with it through ON DELETE CASCADE.
func (r *PostgresCourseRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidCourseID
	}

	sql, args, err := r.sb.Delete("courses").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete course query: %w", err)
	}

	cmdTag, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("courseID", id).Msg("Error executing delete course query")
		return fmt.Errorf("error deleting course: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrCourseNotFound
	}
	return nil
}

// UpdateContent sets the non-empty fields of update
func (r *PostgresCourseRepository) UpdateContent(ctx context.Context, id string, update ContentUpdate) (*models.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidCourseID
	}
	if update.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	set := map[string]interface{}{"updated_at": squirrel.Expr("NOW()")}
	if update.DetailedDescription != "" {
		set["detailed_description"] = update.DetailedDescription
	}
	if update.Syllabus != "" {
		set["syllabus"] = update.Syllabus
	}

	sql, args, err := r.sb.Update("courses").SetMap(set).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update content query: %w", err)
	}

	cmdTag, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("courseID", id).Msg("Error executing update content query")
		return nil, fmt.Errorf("error updating course content: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, apperrors.ErrCourseNotFound
	}
	return r.GetByID(ctx, id)
}

// nextSeq bumps the named counter column under the course row lock
func nextSeq(ctx context.Context, tx pgx.Tx, courseID, column string) (int, error) {
	var seq int
	err := tx.QueryRow(ctx,
		fmt.Sprintf(`UPDATE courses SET %[1]s = %[1]s + 1, updated_at = NOW() WHERE id = $1 RETURNING %[1]s`, column),
		courseID).Scan(&seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperrors.ErrCourseNotFound
	}
	return seq, err
}

// AppendVideo adds a video with the next order value
func (r *PostgresCourseRepository) AppendVideo(ctx context.Context, courseID string, video models.Video) (*models.Course, error) {
	if _, err := uuid.Parse(courseID); err != nil {
		return nil, ErrInvalidCourseID
	}

	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		seq, err := nextSeq(ctx, tx, courseID, "video_seq")
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO course_videos (course_id, seq, title, url, description, thumbnail, duration)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			courseID, seq, video.Title, video.URL, video.Description, video.Thumbnail, video.Duration)
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrCourseNotFound) {
			return nil, err
		}
		r.logger.Error().Err(err).Str("courseID", courseID).Msg("Error appending video")
		return nil, fmt.Errorf("error appending video: %w", err)
	}
	return r.GetByID(ctx, courseID)
}

// AppendDocument adds a document with the next order value
func (r *PostgresCourseRepository) AppendDocument(ctx context.Context, courseID string, document models.Document) (*models.Course, error) {
	if _, err := uuid.Parse(courseID); err != nil {
		return nil, ErrInvalidCourseID
	}

	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		seq, err := nextSeq(ctx, tx, courseID, "document_seq")
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO course_documents (course_id, seq, title, url, description, type)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			courseID, seq, document.Title, document.URL, document.Description, document.Type)
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrCourseNotFound) {
			return nil, err
		}
		r.logger.Error().Err(err).Str("courseID", courseID).Msg("Error appending document")
		return nil, fmt.Errorf("error appending document: %w", err)
	}
	return r.GetByID(ctx, courseID)
}

// lockCourse takes the course row lock so removals by position see a stable list
func lockCourse(ctx context.Context, tx pgx.Tx, courseID string) error {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM courses WHERE id = $1 FOR UPDATE`, courseID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrCourseNotFound
	}
	return err
}

// RemoveVideo deletes the video at position index of the order-sorted list
func (r *PostgresCourseRepository) RemoveVideo(ctx context.Context, courseID string, index int) (*models.Video, error) {
	if _, err := uuid.Parse(courseID); err != nil {
		return nil, ErrInvalidCourseID
	}
	if index < 0 {
		return nil, apperrors.ErrVideoNotFound
	}

	var removed models.Video
	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := lockCourse(ctx, tx, courseID); err != nil {
			return err
		}
		err := tx.QueryRow(ctx, `
			DELETE FROM course_videos
			WHERE course_id = $1 AND seq = (
				SELECT seq FROM course_videos WHERE course_id = $1 ORDER BY seq LIMIT 1 OFFSET $2
			)
			RETURNING title, url, description, thumbnail, duration, seq`,
			courseID, index).Scan(&removed.Title, &removed.URL, &removed.Description,
			&removed.Thumbnail, &removed.Duration, &removed.Order)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrVideoNotFound
		}
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE courses SET updated_at = NOW() WHERE id = $1`, courseID)
		return err
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrCourseNotFound, apperrors.ErrVideoNotFound) {
			return nil, err
		}
		r.logger.Error().Err(err).Str("courseID", courseID).Msg("Error removing video")
		return nil, fmt.Errorf("error removing video: %w", err)
	}
	return &removed, nil
}

// RemoveDocument deletes the document at position index of the order-sorted list
func (r *PostgresCourseRepository) RemoveDocument(ctx context.Context, courseID string, index int) (*models.Document, error) {
	if _, err := uuid.Parse(courseID); err != nil {
		return nil, ErrInvalidCourseID
	}
	if index < 0 {
		return nil, apperrors.ErrDocumentNotFound
	}

	var removed models.Document
	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := lockCourse(ctx, tx, courseID); err != nil {
			return err
		}
		err := tx.QueryRow(ctx, `
			DELETE FROM course_documents
			WHERE course_id = $1 AND seq = (
				SELECT seq FROM course_documents WHERE course_id = $1 ORDER BY seq LIMIT 1 OFFSET $2
			)
			RETURNING title, url, description, type, seq`,
			courseID, index).Scan(&removed.Title, &removed.URL, &removed.Description, &removed.Type, &removed.Order)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrDocumentNotFound
		}
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE courses SET updated_at = NOW() WHERE id = $1`, courseID)
		return err
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrCourseNotFound, apperrors.ErrDocumentNotFound) {
			return nil, err
		}
		r.logger.Error().Err(err).Str("courseID", courseID).Msg("Error removing document")
		return nil, fmt.Errorf("error removing document: %w", err)
	}
	return &removed, nil
}

// Stats aggregates price, duration and enrollment over all courses
func (r *PostgresCourseRepository) Stats(ctx context.Context) (*models.CourseStats, error) {
	sql, args, err := r.sb.Select(
		"COUNT(*)",
		"COALESCE(AVG(price), 0)",
		"COALESCE(AVG(duration), 0)",
		"COALESCE(SUM(enrolled_count), 0)",
	).From("courses").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build stats query: %w", err)
	}

	stats := &models.CourseStats{}
	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(
		&stats.TotalCourses, &stats.AveragePrice, &stats.AverageDuration, &stats.TotalEnrolled,
	); err != nil {
		r.logger.Error().Err(err).Msg("Error executing stats query")
		return nil, fmt.Errorf("error getting course stats: %w", err)
	}
	return stats, nil
}
