// Package mediaserver streams stored files with HTTP range support.
package mediaserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
)

const copyBufferSize = 64 * 1024

// ErrStreamAborted marks a failure after the status line was committed.
// Callers must not write another response for it.
var ErrStreamAborted = errors.New("media stream aborted")

// Disposition values for the Content-Disposition header
const (
	DispositionInline     = "inline"
	DispositionAttachment = "attachment"
)

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".ogg":  "video/ogg",
	".ogv":  "video/ogg",
	".mov":  "video/quicktime",
	".qt":   "video/quicktime",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ContentType maps a file extension to its media type
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Options controls the response headers of one Serve call
type Options struct {
	Disposition  string
	CacheControl string
}

// Server writes files to HTTP responses
type Server struct {
	logger zerolog.Logger
}

// NewServer creates a media server
func NewServer(logger zerolog.Logger) *Server {
	return &Server{logger: logger}
}

// Serve streams the file at path honoring the request Range header.
//
// Errors returned before anything is written are ErrFileNotFound, ErrMalformedRange or a
// wrapped filesystem error. An unsatisfiable range is answered here with 416 and no body.
// When the copy fails after headers were sent the error wraps ErrStreamAborted and is for logging only.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, path string, opts Options) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperrors.ErrFileNotFound
		}
		return fmt.Errorf("failed to open media file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat media file: %w", err)
	}
	if info.IsDir() {
		return apperrors.ErrFileNotFound
	}
	size := info.Size()
	name := filepath.Base(path)

	span := Span{Start: 0, End: size - 1}
	status := http.StatusOK
	if header := r.Header.Get("Range"); header != "" {
		span, err = ParseRange(header, size)
		switch {
		case errors.Is(err, apperrors.ErrRangeNotSatisfiable):
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
			w.Header().Set("Accept-Ranges", "bytes")
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			s.logger.Debug().Str("file", name).Str("range", header).Int64("size", size).Msg("Range not satisfiable")
			return nil
		case err != nil:
			return err
		}
		status = http.StatusPartialContent
	}

	h := w.Header()
	h.Set("Content-Type", ContentType(name))
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Length", strconv.FormatInt(span.Length(), 10))
	h.Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cross-Origin-Resource-Policy", "cross-origin")
	disposition := opts.Disposition
	if disposition == "" {
		disposition = DispositionInline
	}
	h.Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": name}))
	if opts.CacheControl != "" {
		h.Set("Cache-Control", opts.CacheControl)
	}
	if status == http.StatusPartialContent {
		h.Set("Content-Range", span.ContentRange(size))
	}
	w.WriteHeader(status)

	if r.Method == http.MethodHead || span.Length() <= 0 {
		return nil
	}

	body := &contextReader{
		ctx: r.Context(),
		r:   io.NewSectionReader(file, span.Start, span.Length()),
	}
	written, err := io.CopyBuffer(w, body, make([]byte, copyBufferSize))
	if err != nil {
		return fmt.Errorf("%w after %d of %d bytes: %w", ErrStreamAborted, written, span.Length(), err)
	}

	s.logger.Debug().
		Str("file", name).
		Int("status", status).
		Int64("bytes", written).
		Msg("Media served")
	return nil
}

// contextReader stops reading once the request context is done, so a client
// disconnect tears the copy down and releases the file.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
