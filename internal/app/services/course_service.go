package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/rs/zerolog"
	authz "github.com/yigit/coursehub/internal/app/auth"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/app/repositories"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/filestorage"
	"github.com/yigit/coursehub/internal/pkg/validation"
)

// Course service validation errors
var (
	ErrCourseImageRequired = apperrors.NewValidationError("image", "Course image file or imageUrl is required")
	ErrVideoSourceRequired = apperrors.NewValidationError("video", "Video file or videoUrl is required")
	ErrDocSourceRequired   = apperrors.NewValidationError("document", "Document file or url is required")
)

// externalDocumentType is recorded for documents added by URL
const externalDocumentType = "pdf"

// CourseService handles course catalog and content operations
type CourseService struct {
	courseRepo repositories.CourseRepository
	authz      *authz.AuthorizationService
	storage    filestorage.FileStorage
	logger     zerolog.Logger
}

// NewCourseService creates a new CourseService
func NewCourseService(
	courseRepo repositories.CourseRepository,
	authzService *authz.AuthorizationService,
	storage filestorage.FileStorage,
	logger zerolog.Logger,
) *CourseService {
	return &CourseService{
		courseRepo: courseRepo,
		authz:      authzService,
		storage:    storage,
		logger:     logger,
	}
}

func invalidURL(field string) error {
	return apperrors.NewValidationError(field, field+" must be an absolute http or https URL")
}

// CreateCourse stores a new course owned by the caller. The image comes from the
// "image" upload or, when no file is sent, from req.ImageURL.
func (s *CourseService) CreateCourse(ctx context.Context, p authz.Principal, req *dto.CreateCourseRequest, image *multipart.FileHeader) (*models.Course, error) {
	if err := s.authz.ValidateTeacher(p); err != nil {
		return nil, err
	}

	batch := filestorage.NewBatch(s.storage, s.logger)

	var imageURL string
	switch {
	case image != nil:
		stored, err := batch.Save(filestorage.FieldImage, image)
		if err != nil {
			return nil, err
		}
		imageURL = stored.URL
	case req.ImageURL != "":
		if !validation.IsHTTPURL(req.ImageURL) {
			return nil, invalidURL("imageUrl")
		}
		imageURL = req.ImageURL
	default:
		return nil, ErrCourseImageRequired
	}

	instructor := strings.TrimSpace(req.Instructor)
	if instructor == "" {
		instructor = p.Name
	}

	course := &models.Course{
		Title:       strings.TrimSpace(req.Title),
		Instructor:  instructor,
		OwnerID:     p.UserID,
		Duration:    req.Duration,
		Price:       req.Price,
		Description: req.Description,
		Image:       imageURL,
	}
	if err := s.courseRepo.Create(ctx, course); err != nil {
		batch.Rollback()
		return nil, err
	}

	s.logger.Info().Str("courseID", course.ID).Str("ownerID", p.UserID).Msg("Course created")
	return course, nil
}

// ListCourses returns every course, newest first
func (s *CourseService) ListCourses(ctx context.Context) ([]*models.Course, error) {
	return s.courseRepo.List(ctx)
}

// GetCourseByTitle returns the course with an exactly matching title
func (s *CourseService) GetCourseByTitle(ctx context.Context, title string) (*models.Course, error) {
	return s.courseRepo.GetByTitle(ctx, title)
}

// GetStats aggregates the catalog
func (s *CourseService) GetStats(ctx context.Context) (*models.CourseStats, error) {
	return s.courseRepo.Stats(ctx)
}

// DeleteCourse removes a course and the local files it references
func (s *CourseService) DeleteCourse(ctx context.Context, p authz.Principal, courseID string) error {
	course, err := s.authz.AuthorizeCourseChange(ctx, courseID, p)
	if err != nil {
		return err
	}

	if err := s.courseRepo.Delete(ctx, courseID); err != nil {
		return err
	}

	urls := []string{course.Image}
	for _, v := range course.Videos {
		urls = append(urls, v.URL, v.Thumbnail)
	}
	for _, d := range course.Documents {
		urls = append(urls, d.URL)
	}
	s.unlink(urls...)

	s.logger.Info().Str("courseID", courseID).Str("userID", p.UserID).Msg("Course deleted")
	return nil
}

// UpdateContent applies the non-empty long-form fields
func (s *CourseService) UpdateContent(ctx context.Context, p authz.Principal, courseID string, req *dto.UpdateContentRequest) (*models.Course, error) {
	if _, err := s.authz.AuthorizeCourseChange(ctx, courseID, p); err != nil {
		return nil, err
	}
	return s.courseRepo.UpdateContent(ctx, courseID, repositories.ContentUpdate{
		DetailedDescription: strings.TrimSpace(req.DetailedDescription),
		Syllabus:            strings.TrimSpace(req.Syllabus),
	})
}

// AddVideo appends a video. Every file written is removed if any later step fails.
func (s *CourseService) AddVideo(ctx context.Context, p authz.Principal, courseID string, req *dto.AddVideoRequest, videoFile, thumbnailFile *multipart.FileHeader) (*models.Course, error) {
	course, err := s.authz.AuthorizeCourseChange(ctx, courseID, p)
	if err != nil {
		return nil, err
	}

	if videoFile == nil {
		if req.VideoURL == "" {
			return nil, ErrVideoSourceRequired
		}
		if !validation.IsHTTPURL(req.VideoURL) {
			return nil, invalidURL("videoUrl")
		}
	}

	batch := filestorage.NewBatch(s.storage, s.logger)

	video := models.Video{
		Title:       strings.TrimSpace(req.Title),
		URL:         req.VideoURL,
		Description: req.Description,
		Duration:    req.Duration,
	}

	if videoFile != nil {
		stored, err := batch.Save(filestorage.FieldVideo, videoFile)
		if err != nil {
			return nil, err
		}
		video.URL = stored.URL
	}

	switch {
	case thumbnailFile != nil:
		stored, err := batch.Save(filestorage.FieldThumbnail, thumbnailFile)
		if err != nil {
			batch.Rollback()
			return nil, err
		}
		video.Thumbnail = stored.URL
	case validation.IsHTTPURL(req.ThumbnailURL):
		video.Thumbnail = req.ThumbnailURL
	default:
		video.Thumbnail = course.Image
	}

	updated, err := s.courseRepo.AppendVideo(ctx, courseID, video)
	if err != nil {
		batch.Rollback()
		return nil, err
	}

	s.logger.Info().Str("courseID", courseID).Int("videos", len(updated.Videos)).Msg("Video added")
	return updated, nil
}

// RemoveVideo deletes the video at index of the order-sorted list and its local files
func (s *CourseService) RemoveVideo(ctx context.Context, p authz.Principal, courseID string, index int) (*models.Course, error) {
	course, err := s.authz.AuthorizeCourseChange(ctx, courseID, p)
	if err != nil {
		return nil, err
	}

	removed, err := s.courseRepo.RemoveVideo(ctx, courseID, index)
	if err != nil {
		return nil, err
	}

	s.unlink(removed.URL)
	// The thumbnail may be the fallback course image
	if removed.Thumbnail != course.Image {
		s.unlink(removed.Thumbnail)
	}

	return s.courseRepo.GetByID(ctx, courseID)
}

// AddDocument appends a document from the "document" upload or req.URL
func (s *CourseService) AddDocument(ctx context.Context, p authz.Principal, courseID string, req *dto.AddDocumentRequest, file *multipart.FileHeader) (*models.Course, error) {
	if _, err := s.authz.AuthorizeCourseChange(ctx, courseID, p); err != nil {
		return nil, err
	}

	document := models.Document{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
	}

	batch := filestorage.NewBatch(s.storage, s.logger)
	switch {
	case file != nil:
		stored, err := batch.Save(filestorage.FieldDocument, file)
		if err != nil {
			return nil, err
		}
		document.URL = stored.URL
		document.Type = strings.TrimPrefix(stored.Ext, ".")
	case req.URL != "":
		if !validation.IsHTTPURL(req.URL) {
			return nil, invalidURL("url")
		}
		document.URL = req.URL
		document.Type = externalDocumentType
	default:
		return nil, ErrDocSourceRequired
	}

	updated, err := s.courseRepo.AppendDocument(ctx, courseID, document)
	if err != nil {
		batch.Rollback()
		return nil, err
	}

	s.logger.Info().Str("courseID", courseID).Int("documents", len(updated.Documents)).Msg("Document added")
	return updated, nil
}

// RemoveDocument deletes the document at index of the order-sorted list and its local file
func (s *CourseService) RemoveDocument(ctx context.Context, p authz.Principal, courseID string, index int) (*models.Course, error) {
	if _, err := s.authz.AuthorizeCourseChange(ctx, courseID, p); err != nil {
		return nil, err
	}

	removed, err := s.courseRepo.RemoveDocument(ctx, courseID, index)
	if err != nil {
		return nil, err
	}
	s.unlink(removed.URL)

	return s.courseRepo.GetByID(ctx, courseID)
}

// unlink removes local files, logging failures. External URLs are skipped by the storage.
func (s *CourseService) unlink(urls ...string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := s.storage.Delete(url); err != nil && !errors.Is(err, apperrors.ErrFileNotFound) {
			s.logger.Error().Err(err).Str("url", url).Msg("Failed to remove course file")
		}
	}
}
