package filestorage

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
)

func newFileHeader(t *testing.T, field, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File[field][0]
}

func newTestStorage(t *testing.T, limits Limits) *LocalStorage {
	t.Helper()
	ls, err := NewLocalStorage(t.TempDir(), NewPolicy(limits), zerolog.Nop())
	require.NoError(t, err)
	return ls
}

var testLimits = Limits{MaxVideoSize: 1 << 10, MaxDocumentSize: 1 << 10, MaxImageSize: 64}

func TestNewLocalStorageCreatesKindDirectories(t *testing.T) {
	ls := newTestStorage(t, testLimits)
	for _, kind := range Kinds {
		info, err := os.Stat(ls.Root(kind))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestSave(t *testing.T) {
	tests := []struct {
		name        string
		field       string
		filename    string
		contentType string
		content     []byte
		wantKind    Kind
		wantErr     error
	}{
		{"video mp4", FieldVideo, "lecture.MP4", "video/mp4", []byte("mp4-bytes"), KindVideo, nil},
		{"video quicktime", FieldVideo, "clip.mov", "video/quicktime", []byte("mov"), KindVideo, nil},
		{"thumbnail png", FieldThumbnail, "thumb.png", "image/png", []byte("png"), KindImage, nil},
		{"document docx", FieldDocument, "notes.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", []byte("docx"), KindDocument, nil},
		{"spoofed extension", FieldVideo, "evil.exe", "video/mp4", []byte("x"), "", apperrors.ErrUnsupportedMediaType},
		{"wrong mime for field", FieldVideo, "image.png", "image/png", []byte("x"), "", apperrors.ErrUnsupportedMediaType},
		{"mismatched pair", FieldDocument, "notes.pdf", "application/msword", []byte("x"), "", apperrors.ErrUnsupportedMediaType},
		{"too large", FieldImage, "big.png", "image/png", bytes.Repeat([]byte("a"), 65), "", apperrors.ErrFileTooLarge},
		{"unknown field", "avatar", "a.png", "image/png", []byte("x"), "", apperrors.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ls := newTestStorage(t, testLimits)
			fh := newFileHeader(t, tt.field, tt.filename, tt.contentType, tt.content)

			stored, err := ls.Save(tt.field, fh)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				for _, kind := range Kinds {
					entries, _ := os.ReadDir(ls.Root(kind))
					assert.Empty(t, entries, "nothing may be left behind in %s", kind)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, stored.Kind)
			assert.True(t, strings.HasPrefix(stored.URL, "/uploads/"+string(tt.wantKind)+"/"))
			assert.NotContains(t, stored.Name, strings.TrimSuffix(tt.filename, filepath.Ext(tt.filename)))
			assert.Equal(t, strings.ToLower(filepath.Ext(tt.filename)), stored.Ext)

			data, err := os.ReadFile(stored.Path)
			require.NoError(t, err)
			assert.Equal(t, tt.content, data)
		})
	}
}

func TestSaveNamesAreUnique(t *testing.T) {
	ls := newTestStorage(t, testLimits)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		stored, err := ls.Save(FieldVideo, newFileHeader(t, FieldVideo, "same.mp4", "video/mp4", []byte("v")))
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9a-f]{32}\.mp4$`, stored.Name)
		assert.False(t, seen[stored.Name])
		seen[stored.Name] = true
	}
}

func TestResolve(t *testing.T) {
	ls := newTestStorage(t, testLimits)

	tests := []struct {
		name    string
		file    string
		wantErr error
	}{
		{"plain", "abc.mp4", nil},
		{"traversal", "../../etc/passwd", apperrors.ErrInvalidFilename},
		{"dotdot", "..", apperrors.ErrInvalidFilename},
		{"absolute", "/etc/passwd", apperrors.ErrInvalidFilename},
		{"encoded", "..%2fsecret", apperrors.ErrInvalidFilename},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ls.Resolve(KindVideo, tt.file)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(ls.Root(KindVideo), tt.file), got)
		})
	}
}

func TestDelete(t *testing.T) {
	ls := newTestStorage(t, testLimits)
	stored, err := ls.Save(FieldDocument, newFileHeader(t, FieldDocument, "a.pdf", "application/pdf", []byte("%PDF")))
	require.NoError(t, err)

	require.NoError(t, ls.Delete(stored.URL))
	_, err = os.Stat(stored.Path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, ls.Delete(stored.URL), "deleting twice is a no-op")
	assert.NoError(t, ls.Delete("https://cdn.example.com/video.mp4"))
	assert.NoError(t, ls.Delete("/uploads/videos/../../etc/passwd"))
}

func TestBatchRollback(t *testing.T) {
	ls := newTestStorage(t, testLimits)
	batch := NewBatch(ls, zerolog.Nop())

	video, err := batch.Save(FieldVideo, newFileHeader(t, FieldVideo, "v.mp4", "video/mp4", []byte("v")))
	require.NoError(t, err)
	_, err = batch.Save(FieldThumbnail, newFileHeader(t, FieldThumbnail, "t.exe", "image/png", []byte("t")))
	require.Error(t, err)

	assert.Len(t, batch.Files(), 1)
	batch.Rollback()

	_, err = os.Stat(video.Path)
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, batch.Files())
}

func TestLocalKindAndName(t *testing.T) {
	kind, name, ok := LocalKindAndName("/uploads/images/abc.png")
	assert.True(t, ok)
	assert.Equal(t, KindImage, kind)
	assert.Equal(t, "abc.png", name)

	for _, url := range []string{"https://x.test/a.png", "/uploads/other/a.png", "/uploads/images/", "/uploads/images/a/b.png"} {
		_, _, ok := LocalKindAndName(url)
		assert.False(t, ok, url)
	}
}

func TestPolicyMaxRequestSize(t *testing.T) {
	policy := NewPolicy(Limits{MaxVideoSize: 500, MaxDocumentSize: 100, MaxImageSize: 10})
	assert.Equal(t, int64(510), policy.MaxRequestSize())

	policy = NewPolicy(Limits{MaxVideoSize: 50, MaxDocumentSize: 100, MaxImageSize: 10})
	assert.Equal(t, int64(110), policy.MaxRequestSize())
}

func TestTooLargeMessageShowsReadableLimit(t *testing.T) {
	policy := NewPolicy(Limits{MaxVideoSize: 10 << 20, MaxDocumentSize: 1 << 20, MaxImageSize: 512})

	fh := newFileHeader(t, FieldImage, "big.png", "image/png", bytes.Repeat([]byte("a"), 600))
	_, _, err := policy.Check(FieldImage, fh)
	require.ErrorIs(t, err, apperrors.ErrFileTooLarge)
	assert.Equal(t, "image exceeds the 512 B limit", apperrors.Message(err, ""))

	video, _ := policy.Rule(FieldVideo)
	assert.Equal(t, "video exceeds the 10 MiB limit", apperrors.Message(tooLarge(FieldVideo, video), ""))
}
