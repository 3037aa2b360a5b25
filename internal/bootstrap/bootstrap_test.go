package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/app/models/dto"
	"github.com/yigit/coursehub/internal/config"
)

const testPassword = "Secret1!"

type testApp struct {
	router *gin.Engine
	deps   *Dependencies
}

type appOptions struct {
	authLimit  int
	adminEmail string
}

func newTestApp(t *testing.T, opts appOptions) *testApp {
	t.Helper()

	rateLimitEnabled := opts.authLimit > 0
	authLimit := opts.authLimit
	if authLimit == 0 {
		authLimit = 10
	}
	adminPassword := ""
	if opts.adminEmail != "" {
		adminPassword = testPassword
	}

	dir := t.TempDir()
	yaml := fmt.Sprintf(`
server:
  mode: test
  environment: production
  storage_path: %q
database:
  driver: memory
jwt:
  secret: router-test-secret
rate_limit:
  enabled: %t
  auth:
    limit: %d
    window: 1h
upload:
  max_video_size: 4096
  max_document_size: 4096
  max_image_size: 1024
seed:
  admin_email: %q
  admin_password: %q
`, filepath.Join(dir, "uploads"), rateLimitEnabled, authLimit, opts.adminEmail, adminPassword)

	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0o600))
	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)

	lgr := zerolog.Nop()
	repos, closeStore, err := SetupDatabase(cfg, lgr)
	require.NoError(t, err)
	t.Cleanup(closeStore)

	deps, err := BuildDependencies(cfg, repos, lgr)
	require.NoError(t, err)
	t.Cleanup(deps.Close)

	return &testApp{router: SetupRouter(cfg, deps, lgr), deps: deps}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, target, token string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

type upload struct {
	field, filename, contentType string
	content                      []byte
}

func multipartRequest(t *testing.T, target, token string, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.filename))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	return envelope.Data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorCode {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func (a *testApp) signup(t *testing.T, username string, role models.RoleType) string {
	t.Helper()
	w := a.do(jsonRequest(t, http.MethodPost, "/api/auth/signup", "", dto.SignupRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
		Phone:    "+905551112233",
		Role:     string(role),
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.AuthResponse](t, w).Token
}

var coverPNG = []byte("\x89PNG\r\n\x1a\nfake-image")

func (a *testApp) createCourse(t *testing.T, token, title string) models.Course {
	t.Helper()
	w := a.do(multipartRequest(t, "/api/courses", token, map[string]string{
		"title":       title,
		"duration":    "10",
		"price":       "5",
		"description": "An introduction",
	}, upload{"image", "cover.png", "image/png", coverPNG}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Course](t, w)
}

func (a *testApp) addVideo(t *testing.T, token, courseID string, content []byte) models.Course {
	t.Helper()
	w := a.do(multipartRequest(t, "/api/courses/"+courseID+"/videos", token,
		map[string]string{"title": "Lecture", "duration": "3"},
		upload{"video", "lecture.mp4", "video/mp4", content}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Course](t, w)
}

func videoContent() []byte {
	return []byte(strings.Repeat("0123456789", 10))
}

func TestHealthAndUnknownRoute(t *testing.T) {
	app := newTestApp(t, appOptions{})

	w := app.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var health dto.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, dto.HealthResponse{Status: "ok", DB: "connected"}, health)

	w = app.do(httptest.NewRequest(http.MethodGet, "/api/nothing-here", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrorCodeResourceNotFound, errorCode(t, w))
}

func TestAuthRoutes(t *testing.T) {
	app := newTestApp(t, appOptions{})
	token := app.signup(t, "alice", models.RoleStudent)

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
		wantCode   dto.ErrorCode
	}{
		{
			name:       "me with bearer",
			req:        jsonRequest(t, http.MethodGet, "/api/auth/me", token, nil),
			wantStatus: http.StatusOK,
		},
		{
			name:       "me with query token is refused",
			req:        jsonRequest(t, http.MethodGet, "/api/auth/me?token="+token, "", nil),
			wantStatus: http.StatusUnauthorized,
			wantCode:   dto.ErrorCodeTokenMissing,
		},
		{
			name:       "courses with query token is refused",
			req:        jsonRequest(t, http.MethodGet, "/api/courses?token="+token, "", nil),
			wantStatus: http.StatusUnauthorized,
			wantCode:   dto.ErrorCodeTokenMissing,
		},
		{
			name: "wrong password",
			req: jsonRequest(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{
				Email: "alice@example.com", Password: "Wrong1!x",
			}),
			wantStatus: http.StatusUnauthorized,
			wantCode:   dto.ErrorCodeInvalidCredentials,
		},
		{
			name: "admin signup is rejected",
			req: jsonRequest(t, http.MethodPost, "/api/auth/signup", "", dto.SignupRequest{
				Username: "mallory", Email: "mallory@example.com", Password: testPassword,
				Phone: "+905551112233", Role: "admin",
			}),
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrorCodeValidationFailed,
		},
		{
			name: "duplicate email",
			req: jsonRequest(t, http.MethodPost, "/api/auth/signup", "", dto.SignupRequest{
				Username: "alice2", Email: "alice@example.com", Password: testPassword,
				Phone: "+905551112233", Role: "student",
			}),
			wantStatus: http.StatusConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(tt.req)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, w))
			}
		})
	}

	w := app.do(jsonRequest(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{
		Email: "ALICE@example.com", Password: testPassword,
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[dto.AuthResponse](t, w)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "alice", resp.User.Username)
}

func TestRefreshAcceptsExpiredToken(t *testing.T) {
	app := newTestApp(t, appOptions{})
	app.signup(t, "carl", models.RoleTeacher)

	user, err := app.deps.Repos.UserRepository.GetByEmail(context.Background(), "carl@example.com")
	require.NoError(t, err)

	app.deps.JWTService.WithClock(func() time.Time { return time.Now().Add(-3 * time.Hour) })
	expired, err := app.deps.JWTService.GenerateToken(user)
	app.deps.JWTService.WithClock(time.Now)
	require.NoError(t, err)

	w := app.do(jsonRequest(t, http.MethodGet, "/api/auth/me", expired.Token, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrorCodeExpiredToken, errorCode(t, w))

	w = app.do(jsonRequest(t, http.MethodPost, "/api/auth/refresh-token", expired.Token, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	fresh := decode[dto.AuthResponse](t, w).Token

	w = app.do(jsonRequest(t, http.MethodGet, "/api/auth/me", fresh, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	app.deps.JWTService.WithClock(func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) })
	stale, err := app.deps.JWTService.GenerateToken(user)
	app.deps.JWTService.WithClock(time.Now)
	require.NoError(t, err)
	w = app.do(jsonRequest(t, http.MethodPost, "/api/auth/refresh-token", stale.Token, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrorCodeExpiredToken, errorCode(t, w))

	w = app.do(jsonRequest(t, http.MethodPost, "/api/auth/refresh-token", "not-a-jwt", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadThenStream(t *testing.T) {
	app := newTestApp(t, appOptions{})
	token := app.signup(t, "dave", models.RoleTeacher)

	course := app.createCourse(t, token, "Go-Basics")
	assert.True(t, strings.HasPrefix(course.Image, "/uploads/images/"), course.Image)
	assert.NotContains(t, course.Image, app.deps.FileStorage.Root("images"), "no filesystem paths in responses")

	content := videoContent()
	course = app.addVideo(t, token, course.ID, content)
	require.Len(t, course.Videos, 1)
	assert.Equal(t, 1, course.Videos[0].Order)
	assert.Equal(t, course.Image, course.Videos[0].Thumbnail, "thumbnail falls back to the course image")
	name := path.Base(course.Videos[0].URL)

	t.Run("partial content", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/stream/"+name+"?token="+token, nil)
		req.Header.Set("Range", "bytes=10-19")
		w := app.do(req)

		require.Equal(t, http.StatusPartialContent, w.Code)
		assert.Equal(t, content[10:20], w.Body.Bytes())
		assert.Equal(t, "bytes 10-19/100", w.Header().Get("Content-Range"))
		assert.Equal(t, "10", w.Header().Get("Content-Length"))
		assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	})

	t.Run("full content with bearer header", func(t *testing.T) {
		w := app.do(jsonRequest(t, http.MethodGet, "/api/stream/"+name, token, nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, content, w.Body.Bytes())
	})

	t.Run("unsatisfiable range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/stream/"+name+"?token="+token, nil)
		req.Header.Set("Range", "bytes=500-")
		w := app.do(req)

		assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code)
		assert.Empty(t, w.Body.Bytes())
	})

	t.Run("media route by kind", func(t *testing.T) {
		w := app.do(httptest.NewRequest(http.MethodGet, "/api/media/videos/"+name+"?token="+token, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("public image", func(t *testing.T) {
		w := app.do(httptest.NewRequest(http.MethodGet, course.Image, nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, coverPNG, w.Body.Bytes())
	})

	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{"no token", "/api/stream/" + name, http.StatusUnauthorized},
		{"bad token", "/api/stream/" + name + "?token=garbage", http.StatusUnauthorized},
		{"backslash traversal", "/api/stream/..%5Csecret.mp4?token=" + token, http.StatusBadRequest},
		{"missing file", "/api/stream/missing.mp4?token=" + token, http.StatusNotFound},
		{"unknown kind", "/api/media/secrets/" + name + "?token=" + token, http.StatusNotFound},
		{"video through pdf route", "/api/pdf/" + name + "?token=" + token, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.NotContains(t, w.Body.String(), app.deps.FileStorage.Root("videos"))
		})
	}
}

func TestDocumentDownload(t *testing.T) {
	app := newTestApp(t, appOptions{})
	token := app.signup(t, "erin", models.RoleTeacher)
	course := app.createCourse(t, token, "Notes")

	pdf := []byte("%PDF-1.4 test document")
	w := app.do(multipartRequest(t, "/api/courses/"+course.ID+"/documents", token,
		map[string]string{"title": "Week 1"},
		upload{"document", "week1.pdf", "application/pdf", pdf}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	course = decode[models.Course](t, w)
	require.Len(t, course.Documents, 1)
	assert.Equal(t, "pdf", course.Documents[0].Type)

	name := path.Base(course.Documents[0].URL)
	w = app.do(httptest.NewRequest(http.MethodGet, "/api/pdf/"+name+"?token="+token, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pdf, w.Body.Bytes())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	w = app.do(multipartRequest(t, "/api/courses/"+course.ID+"/documents", token,
		map[string]string{"title": "Script"},
		upload{"document", "run.sh", "application/x-sh", []byte("#!/bin/sh")}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrorCodeUnsupportedMedia, errorCode(t, w))
}

func TestOwnershipRules(t *testing.T) {
	app := newTestApp(t, appOptions{adminEmail: "root@example.com"})
	ownerToken := app.signup(t, "frank", models.RoleTeacher)
	otherToken := app.signup(t, "grace", models.RoleTeacher)
	studentToken := app.signup(t, "heidi", models.RoleStudent)

	course := app.createCourse(t, ownerToken, "Owned")
	app.addVideo(t, ownerToken, course.ID, videoContent())

	w := app.do(multipartRequest(t, "/api/courses", studentToken, map[string]string{
		"title": "Nope", "duration": "1", "description": "x", "imageUrl": "https://example.com/a.png",
	}))
	assert.Equal(t, http.StatusForbidden, w.Code, "students cannot create courses")

	w = app.do(jsonRequest(t, http.MethodDelete, "/api/courses/"+course.ID+"/videos/0", otherToken, nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(jsonRequest(t, http.MethodGet, "/api/courses/Owned", otherToken, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.Course](t, w).Videos, 1, "a denied removal leaves the list unchanged")

	w = app.do(jsonRequest(t, http.MethodDelete, "/api/courses/"+course.ID+"/videos/5", ownerToken, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(jsonRequest(t, http.MethodDelete, "/api/courses/"+course.ID+"/videos/x", ownerToken, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(jsonRequest(t, http.MethodDelete, "/api/courses/not-a-uuid", ownerToken, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(jsonRequest(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{
		Email: "root@example.com", Password: testPassword,
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	admin := decode[dto.AuthResponse](t, w)
	assert.Equal(t, string(models.RoleAdmin), admin.User.Role)

	w = app.do(jsonRequest(t, http.MethodDelete, "/api/courses/"+course.ID, admin.Token, nil))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(jsonRequest(t, http.MethodGet, "/api/courses/Owned", ownerToken, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthRateLimit(t *testing.T) {
	app := newTestApp(t, appOptions{authLimit: 2})

	login := func() *httptest.ResponseRecorder {
		return app.do(jsonRequest(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{
			Email: "nobody@example.com", Password: testPassword,
		}))
	}

	assert.Equal(t, http.StatusUnauthorized, login().Code)
	assert.Equal(t, http.StatusUnauthorized, login().Code)

	w := login()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, dto.ErrorCodeRateLimited, errorCode(t, w))

	// The auth budget does not cover unrelated routes
	w = app.do(httptest.NewRequest(http.MethodGet, "/api/courses", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
