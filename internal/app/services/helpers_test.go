package services

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/yigit/coursehub/internal/app/repositories/memory"
	"github.com/yigit/coursehub/internal/pkg/auth"
	"github.com/yigit/coursehub/internal/pkg/filestorage"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	services *Services
	storage  *filestorage.LocalStorage
	jwt      *auth.JWTService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	storage, err := filestorage.NewLocalStorage(t.TempDir(), filestorage.NewPolicy(filestorage.Limits{
		MaxVideoSize:    1 << 12,
		MaxDocumentSize: 1 << 12,
		MaxImageSize:    1 << 10,
	}), zerolog.Nop())
	require.NoError(t, err)

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "coursehub",
	})

	repos := memory.NewRepositories(memory.NewDB())
	return &testEnv{
		services: NewServices(repos, jwtService, auth.NewPasswordHasher(bcrypt.MinCost), storage, zerolog.Nop()),
		storage:  storage,
		jwt:      jwtService,
	}
}

func fileHeader(t *testing.T, field, filename, contentType string, content []byte) *multipart.FileHeader {
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

// storedFiles lists every file under the kind root
func storedFiles(t *testing.T, storage *filestorage.LocalStorage, kind filestorage.Kind) []string {
	t.Helper()
	entries, err := os.ReadDir(storage.Root(kind))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func localPath(t *testing.T, storage *filestorage.LocalStorage, url string) string {
	t.Helper()
	kind, name, ok := filestorage.LocalKindAndName(url)
	require.True(t, ok, "not a local url: %s", url)
	return filepath.Join(storage.Root(kind), name)
}
