package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/coursehub/internal/app/services"
	"github.com/yigit/coursehub/internal/middleware"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/filestorage"
	"github.com/yigit/coursehub/internal/pkg/mediaserver"
)

const pdfCacheControl = "public, max-age=3600"

// MediaController streams stored uploads with range support
type MediaController struct {
	mediaService *services.MediaService
	server       *mediaserver.Server
	logger       zerolog.Logger
}

// NewMediaController creates a new MediaController
func NewMediaController(mediaService *services.MediaService, server *mediaserver.Server, logger zerolog.Logger) *MediaController {
	return &MediaController{
		mediaService: mediaService,
		server:       server,
		logger:       logger,
	}
}

// serve writes the file, or an error envelope when nothing was sent yet
func (c *MediaController) serve(ctx *gin.Context, path string, opts mediaserver.Options) {
	err := c.server.Serve(ctx.Writer, ctx.Request, path, opts)
	if err == nil {
		return
	}

	if errors.Is(err, mediaserver.ErrStreamAborted) || ctx.Writer.Written() {
		c.logger.Warn().Err(err).Str("filename", ctx.Param("filename")).Msg("Media stream interrupted")
		ctx.Abort()
		return
	}
	middleware.HandleAPIError(ctx, err)
}

// StreamVideo streams a course video
// @Summary Stream a video
// @Description Serves a stored video with Range support. The token may be sent as ?token= for media elements.
// @Tags media
// @Produce video/mp4
// @Security BearerAuth
// @Param filename path string true "Stored file name"
// @Param Range header string false "Byte range, e.g. bytes=0-1023"
// @Param token query string false "Access token when headers cannot be set"
// @Success 200 {file} binary "Full content"
// @Success 206 {file} binary "Partial content"
// @Failure 400 {object} dto.ErrorResponse "Invalid filename or malformed range"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Access denied"
// @Failure 404 {object} dto.ErrorResponse "File not found"
// @Failure 416 {string} string "Range not satisfiable"
// @Router /stream/{filename} [get]
func (c *MediaController) StreamVideo(ctx *gin.Context) {
	path, err := c.mediaService.Locate(filestorage.KindVideo, ctx.Param("filename"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.serve(ctx, path, mediaserver.Options{Disposition: mediaserver.DispositionInline})
}

// ServePDF serves a course document as a download
// @Summary Download a PDF
// @Tags media
// @Produce application/pdf
// @Security BearerAuth
// @Param filename path string true "Stored file name ending in .pdf"
// @Param Range header string false "Byte range"
// @Param token query string false "Access token when headers cannot be set"
// @Success 200 {file} binary "Full content"
// @Success 206 {file} binary "Partial content"
// @Failure 400 {object} dto.ErrorResponse "Invalid filename"
// @Failure 404 {object} dto.ErrorResponse "File not found"
// @Failure 429 {object} dto.ErrorResponse "Too many requests"
// @Router /pdf/{filename} [get]
func (c *MediaController) ServePDF(ctx *gin.Context) {
	path, err := c.mediaService.LocatePDF(ctx.Param("filename"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.serve(ctx, path, mediaserver.Options{
		Disposition:  mediaserver.DispositionAttachment,
		CacheControl: pdfCacheControl,
	})
}

// ServeMedia serves any stored upload by kind
// @Summary Serve a stored file
// @Tags media
// @Produce octet-stream
// @Security BearerAuth
// @Param kind path string true "videos, documents or images"
// @Param filename path string true "Stored file name"
// @Param Range header string false "Byte range"
// @Param token query string false "Access token when headers cannot be set"
// @Success 200 {file} binary "Full content"
// @Success 206 {file} binary "Partial content"
// @Failure 400 {object} dto.ErrorResponse "Invalid filename"
// @Failure 404 {object} dto.ErrorResponse "File not found"
// @Router /media/{kind}/{filename} [get]
func (c *MediaController) ServeMedia(ctx *gin.Context) {
	kind, ok := filestorage.ParseKind(ctx.Param("kind"))
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrFileNotFound)
		return
	}

	path, err := c.mediaService.Locate(kind, ctx.Param("filename"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.serve(ctx, path, mediaserver.Options{Disposition: mediaserver.DispositionInline})
}

// ServeImage serves public course images without a token
func (c *MediaController) ServeImage(ctx *gin.Context) {
	path, err := c.mediaService.Locate(filestorage.KindImage, ctx.Param("filename"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.serve(ctx, path, mediaserver.Options{
		Disposition:  mediaserver.DispositionInline,
		CacheControl: "public, max-age=86400",
	})
}
