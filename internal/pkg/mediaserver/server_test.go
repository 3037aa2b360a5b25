package mediaserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
)

func TestParseRange(t *testing.T) {
	const size = 100

	tests := []struct {
		name    string
		header  string
		want    Span
		wantErr error
	}{
		{"closed", "bytes=0-9", Span{0, 9}, nil},
		{"last byte", "bytes=99-99", Span{99, 99}, nil},
		{"open ended", "bytes=50-", Span{50, 99}, nil},
		{"suffix", "bytes=-10", Span{90, 99}, nil},
		{"suffix larger than file", "bytes=-500", Span{0, 99}, nil},
		{"first of list", "bytes=10-19, 30-39", Span{10, 19}, nil},
		{"spaces", "bytes= 5 - 6 ", Span{5, 6}, nil},
		{"start past end", "bytes=100-", Span{}, apperrors.ErrRangeNotSatisfiable},
		{"end past size", "bytes=0-100", Span{}, apperrors.ErrRangeNotSatisfiable},
		{"inverted", "bytes=20-10", Span{}, apperrors.ErrRangeNotSatisfiable},
		{"zero suffix", "bytes=-0", Span{}, apperrors.ErrRangeNotSatisfiable},
		{"wrong unit", "items=0-9", Span{}, apperrors.ErrMalformedRange},
		{"no dash", "bytes=10", Span{}, apperrors.ErrMalformedRange},
		{"not numeric", "bytes=a-b", Span{}, apperrors.ErrMalformedRange},
		{"negative start", "bytes=--5", Span{}, apperrors.ErrMalformedRange},
		{"empty", "bytes=-", Span{}, apperrors.ErrMalformedRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.header, size)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.End-tt.want.Start+1, got.Length())
		})
	}
}

func writeMedia(t *testing.T, name string, size int) (string, []byte) {
	t.Helper()
	content := make([]byte, size)
	for i := range content {
		content[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path, content
}

func TestServeFullContent(t *testing.T) {
	path, content := writeMedia(t, "clip.mp4", 4096)
	srv := NewServer(zerolog.Nop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stream/clip.mp4", nil)
	require.NoError(t, srv.Serve(rec, req, path, Options{Disposition: DispositionInline}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t, "4096", rec.Header().Get("Content-Length"))
	assert.Equal(t, `inline; filename=clip.mp4`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, rec.Header().Get("Content-Range"))
	assert.Equal(t, content, rec.Body.Bytes())
}

func TestServePartialContent(t *testing.T) {
	const size = 1000
	path, content := writeMedia(t, "notes.pdf", size)
	srv := NewServer(zerolog.Nop())

	spans := []Span{{0, 0}, {0, 999}, {10, 19}, {500, 999}, {999, 999}, {123, 877}}
	for _, span := range spans {
		t.Run(fmt.Sprintf("%d-%d", span.Start, span.End), func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/pdf/notes.pdf", nil)
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", span.Start, span.End))

			require.NoError(t, srv.Serve(rec, req, path, Options{
				Disposition:  DispositionAttachment,
				CacheControl: "public, max-age=3600",
			}))

			assert.Equal(t, http.StatusPartialContent, rec.Code)
			assert.Equal(t, fmt.Sprintf("bytes %d-%d/%d", span.Start, span.End, size), rec.Header().Get("Content-Range"))
			assert.Equal(t, fmt.Sprint(span.Length()), rec.Header().Get("Content-Length"))
			assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
			assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
			assert.Equal(t, `attachment; filename=notes.pdf`, rec.Header().Get("Content-Disposition"))
			assert.Len(t, rec.Body.Bytes(), int(span.Length()))
			assert.Equal(t, content[span.Start:span.End+1], rec.Body.Bytes())
		})
	}
}

func TestServeUnsatisfiableRange(t *testing.T) {
	path, _ := writeMedia(t, "clip.webm", 100)
	srv := NewServer(zerolog.Nop())

	for _, header := range []string{"bytes=100-", "bytes=0-100", "bytes=150-200", "bytes=50-10"} {
		t.Run(header, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/stream/clip.webm", nil)
			req.Header.Set("Range", header)

			require.NoError(t, srv.Serve(rec, req, path, Options{}))
			assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
			assert.Equal(t, "bytes */100", rec.Header().Get("Content-Range"))
			assert.Zero(t, rec.Body.Len())
		})
	}
}

func TestServeErrorsBeforeWriting(t *testing.T) {
	path, _ := writeMedia(t, "clip.mp4", 10)
	srv := NewServer(zerolog.Nop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Range", "bytes=x-y")
	assert.ErrorIs(t, srv.Serve(rec, req, path, Options{}), apperrors.ErrMalformedRange)
	assert.False(t, rec.Flushed)
	assert.Zero(t, rec.Body.Len())

	rec = httptest.NewRecorder()
	err := srv.Serve(rec, httptest.NewRequest(http.MethodGet, "/", nil), filepath.Join(filepath.Dir(path), "missing.mp4"), Options{})
	assert.ErrorIs(t, err, apperrors.ErrFileNotFound)
	assert.Zero(t, rec.Body.Len())
}

func TestServeStopsOnCancelledContext(t *testing.T) {
	path, _ := writeMedia(t, "clip.mp4", 256*1024)
	srv := NewServer(zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)

	err := srv.Serve(rec, req, path, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrStreamAborted)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "video/mp4", ContentType("a.MP4"))
	assert.Equal(t, "video/quicktime", ContentType("a.mov"))
	assert.Equal(t, "image/webp", ContentType("a.webp"))
	assert.Equal(t, "application/octet-stream", ContentType("a.bin"))
}
