package controllers

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/app/services"
	"github.com/yigit/coursehub/internal/middleware"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/filestorage"
)

// CourseController handles course and course content endpoints
type CourseController struct {
	courseService *services.CourseService
	logger        zerolog.Logger
}

// NewCourseController creates a new CourseController
func NewCourseController(courseService *services.CourseService, logger zerolog.Logger) *CourseController {
	return &CourseController{
		courseService: courseService,
		logger:        logger,
	}
}

// formFile returns the first upload of field, or nil when the request has none
func formFile(ctx *gin.Context, field string) *multipart.FileHeader {
	form := ctx.Request.MultipartForm
	if form == nil || len(form.File[field]) == 0 {
		return nil
	}
	return form.File[field][0]
}

func parseIndex(ctx *gin.Context) (int, bool) {
	index, err := strconv.Atoi(ctx.Param("idx"))
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("Index must be an integer"))
		return 0, false
	}
	return index, true
}

// CreateCourse handles course creation
// @Summary Create a course
// @Description Creates a course owned by the calling teacher. The image is an "image" file or an imageUrl.
// @Tags courses
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Course title"
// @Param instructor formData string false "Instructor display name, defaults to the caller"
// @Param duration formData number true "Duration in hours"
// @Param price formData number false "Price"
// @Param description formData string true "Short description"
// @Param image formData file false "Course image"
// @Param imageUrl formData string false "External image URL, used when no file is sent"
// @Success 201 {object} dto.APIResponse{data=models.Course} "Course created"
// @Failure 400 {object} dto.ErrorResponse "Validation error or unsupported file"
// @Failure 403 {object} dto.ErrorResponse "Only teachers can create courses"
// @Failure 413 {object} dto.ErrorResponse "File too large"
// @Router /courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrTokenMissing)
		return
	}

	var req dto.CreateCourseRequest
	if !middleware.BindForm(ctx, &req) {
		return
	}

	course, err := c.courseService.CreateCourse(ctx.Request.Context(), principal, &req, formFile(ctx, filestorage.FieldImage))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewStructuredResponse(course, "Course created successfully"))
}

// ListCourses returns every course
// @Summary List courses
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Course}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	courses, err := c.courseService.ListCourses(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(courses))
}

// GetStats returns catalog aggregates
// @Summary Course statistics
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.CourseStats}
// @Router /courses/stats [get]
func (c *CourseController) GetStats(ctx *gin.Context) {
	stats, err := c.courseService.GetStats(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(stats))
}

// GetCourseByTitle looks a course up by its exact title
// @Summary Get a course by title
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param title path string true "Exact course title"
// @Success 200 {object} dto.APIResponse{data=models.Course}
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /courses/{title} [get]
func (c *CourseController) GetCourseByTitle(ctx *gin.Context) {
	course, err := c.courseService.GetCourseByTitle(ctx.Request.Context(), ctx.Param("title"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(course))
}

// DeleteCourse removes a course and its files
// @Summary Delete a course
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} dto.APIResponse{data=dto.MessageResponse} "Course deleted successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid course ID"
// @Failure 403 {object} dto.ErrorResponse "Not the course instructor"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /courses/{id} [delete]
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrTokenMissing)
		return
	}

	if err := c.courseService.DeleteCourse(ctx.Request.Context(), principal, ctx.Param("id")); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(
		dto.MessageResponse{Message: "Course deleted successfully"}, "Course deleted successfully"))
}

// UpdateContent updates the detailed description and syllabus
// @Summary Update course content
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param request body dto.UpdateContentRequest true "Fields to change, empty values are ignored"
// @Success 200 {object} dto.APIResponse{data=models.Course}
// @Failure 403 {object} dto.ErrorResponse "Not the course instructor"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /courses/{id}/content [patch]
func (c *CourseController) UpdateContent(ctx *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrTokenMissing)
		return
	}

	var req dto.UpdateContentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	course, err := c.courseService.UpdateContent(ctx.Request.Context(), principal, ctx.Param("id"), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(course, "Course content updated successfully"))
}

// AddVideo uploads a video and appends it to the course
// @Summary Add a video
// @Description Accepts a "video" file or a videoUrl. The thumbnail is a "thumbnail" file, a thumbnailUrl, or the course image.
// @Tags courses
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param title formData string true "Video title"
// @Param description formData string false "Description"
// @Param duration formData number false "Duration in minutes"
// @Param video formData file false "Video file"
// @Param videoUrl formData string false "External video URL"
// @Param thumbnail formData file false "Thumbnail image"
// @Param thumbnailUrl formData string false "External thumbnail URL"
// @Success 201 {object} dto.APIResponse{data=models.Course} "Video added successfully"
// @Failure 400 {object} dto.ErrorResponse "Validation error or unsupported file"
// @Failure 403 {object} dto.ErrorResponse "Not the course instructor"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Failure 413 {object} dto.ErrorResponse "File too large"
// @Router /courses/{id}/videos [post]
func (c *CourseController) AddVideo(ctx *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrTokenMissing)
		return
	}

	var req dto.AddVideoRequest
	if !middleware.BindForm(ctx, &req) {
		return
	}

	course, err := c.courseService.AddVideo(ctx.Request.Context(), principal, ctx.Param("id"), &req,
		formFile(ctx, filestorage.FieldVideo), formFile(ctx, filestorage.FieldThumbnail))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewStructuredResponse(course, "Video added successfully"))
}

// RemoveVideo deletes a video by position
// @Summary Remove a video
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param idx path int true "Position in the order-sorted video list"
// @Success 200 {object} dto.APIResponse{data=models.Course} "Video removed successfully"
// @Failure 403 {object} dto.ErrorResponse "Not the course instructor"
// @Failure 404 {object} dto.ErrorResponse "Course or video not found"
// @Router /courses/{id}/videos/{idx} [delete]
func (c *CourseController) RemoveVideo(ctx *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrTokenMissing)
		return
	}
	index, ok := parseIndex(ctx)
	if !ok {
		return
	}

	course, err := c.courseService.RemoveVideo(ctx.Request.Context(), principal, ctx.Param("id"), index)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(course, "Video removed successfully"))
}

// AddDocument uploads a document and appends it to the course
// @Summary Add a document
// @Description Accepts a "document" file (pdf, doc, docx) or a url
// @Tags courses
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param title formData string true "Document title"
// @Param description formData string false "Description"
// @Param document formData file false "Document file"
// @Param url formData string false "External document URL"
// @Success 201 {object} dto.APIResponse{data=models.Course} "Document added successfully"
// @Failure 400 {object} dto.ErrorResponse "Validation error or unsupported file"
// @Failure 403 {object} dto.ErrorResponse "Not the course instructor"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Failure 413 {object} dto.ErrorResponse "File too large"
// @Router /courses/{id}/documents [post]
func (c *CourseController) AddDocument(ctx *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrTokenMissing)
		return
	}

	var req dto.AddDocumentRequest
	if !middleware.BindForm(ctx, &req) {
		return
	}

	course, err := c.courseService.AddDocument(ctx.Request.Context(), principal, ctx.Param("id"), &req,
		formFile(ctx, filestorage.FieldDocument))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewStructuredResponse(course, "Document added successfully"))
}

// RemoveDocument deletes a document by position
// @Summary Remove a document
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param idx path int true "Position in the order-sorted document list"
// @Success 200 {object} dto.APIResponse{data=models.Course} "Document removed successfully"
// @Failure 403 {object} dto.ErrorResponse "Not the course instructor"
// @Failure 404 {object} dto.ErrorResponse "Course or document not found"
// @Router /courses/{id}/documents/{idx} [delete]
func (c *CourseController) RemoveDocument(ctx *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrTokenMissing)
		return
	}
	index, ok := parseIndex(ctx)
	if !ok {
		return
	}

	course, err := c.courseService.RemoveDocument(ctx.Request.Context(), principal, ctx.Param("id"), index)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewStructuredResponse(course, "Document removed successfully"))
}
