package services

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/filestorage"
)

// ErrNotPDF rejects non-pdf names on the pdf route
var ErrNotPDF = &apperrors.CustomError{
	Err:     apperrors.ErrInvalidFilename,
	Message: "Only PDF files can be served from this route",
	Field:   "filename",
}

// MediaService maps client supplied names to files inside the upload roots
type MediaService struct {
	storage filestorage.FileStorage
	logger  zerolog.Logger
}

// NewMediaService creates a new MediaService
func NewMediaService(storage filestorage.FileStorage, logger zerolog.Logger) *MediaService {
	return &MediaService{storage: storage, logger: logger}
}

// Locate returns the on-disk path for name under the kind root
func (s *MediaService) Locate(kind filestorage.Kind, name string) (string, error) {
	path, err := s.storage.Resolve(kind, name)
	if err != nil {
		// Only the client value is logged, never the resolved path
		s.logger.Warn().Err(err).Str("kind", string(kind)).Str("filename", name).Msg("Rejected media filename")
		return "", err
	}
	return path, nil
}

// LocatePDF is Locate restricted to .pdf names in the documents root
func (s *MediaService) LocatePDF(name string) (string, error) {
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return "", ErrNotPDF
	}
	return s.Locate(filestorage.KindDocument, name)
}
