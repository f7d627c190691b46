package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/menfessboard/menfess/config"
	"github.com/menfessboard/menfess/models"
	"github.com/menfessboard/menfess/services"
	"github.com/menfessboard/menfess/utils"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type menfessPayload struct {
	Menfess struct {
		ID           uint    `json:"id"`
		Approved     bool    `json:"approved"`
		DisplayName  *string `json:"display_name"`
		Rendered     string  `json:"rendered"`
		VoiceNote    *string `json:"voice_note"`
		VoiceNoteURL string  `json:"voice_note_url"`
		LikeCount    int64   `json:"like_count"`
	} `json:"menfess"`
}

type feedPayload struct {
	Items []struct {
		ID       uint   `json:"id"`
		Rendered string `json:"rendered"`
	} `json:"items"`
	Pagination services.Pagination `json:"pagination"`
}

type testServer struct {
	t      *testing.T
	r      *gin.Engine
	db     *gorm.DB
	upload string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	upload := t.TempDir()
	config.Override(config.AppConfig{
		JWTSecret:          "router-test-secret",
		GinMode:            "test",
		UploadDir:          upload,
		UploadMaxMB:        1,
		RateLimitPerMinute: 100000,
	})
	utils.UseRedis(nil)

	db, err := config.OpenDatabase(config.AppConfig{DBDriver: "sqlite", DatabaseURI: "file::memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, models.All()...))
	require.NoError(t, services.Bootstrap(context.Background(), db, services.SeedConfig{
		AdminUsername: "admin", AdminEmail: "admin@example.com", AdminPassword: "admin123",
	}))

	cfg := config.Get()
	media := services.NewMediaStore(cfg.UploadDir, cfg.UploadMaxBytes())
	require.NoError(t, media.EnsureDirs())
	return &testServer{t: t, r: SetupRouter(db, media), db: db, upload: upload}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func (s *testServer) multipart(path, token string, fields map[string]string, fileField, fileName string, content []byte) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(s.t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(s.t, err)
		_, err = fw.Write(content)
		require.NoError(s.t, err)
	}
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out), string(env.Data))
	}
	return env
}

func (s *testServer) register(username string) {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": username, "email": username + "@example.com", "password": "pass-" + username,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	decode(s.t, w, &out)
	return out.Token
}

func (s *testServer) userID(username string) uint {
	s.t.Helper()
	var u models.User
	require.NoError(s.t, s.db.Where("username = ?", username).First(&u).Error)
	return u.ID
}

func (s *testServer) signup(username string) string {
	s.register(username)
	return s.login(username, "pass-"+username)
}

func (s *testServer) promote(adminToken, username, role string) {
	s.t.Helper()
	w := s.do(http.MethodPatch, fmt.Sprintf("/api/v1/admin/users/%d", s.userID(username)), adminToken, gin.H{"role": role})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
}

func TestModerationFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", "admin123")
	alice := s.signup("alice")
	bob := s.signup("bob")
	mod := s.signup("mod")
	s.promote(admin, "mod", models.RoleModerator)

	w := s.do(http.MethodPost, "/api/v1/menfess", alice, gin.H{"content": "#bold#hi#bold#", "display_name_type": "username"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created menfessPayload
	decode(t, w, &created)
	id := created.Menfess.ID
	assert.False(t, created.Menfess.Approved)
	require.NotNil(t, created.Menfess.DisplayName)
	assert.Equal(t, "alice", *created.Menfess.DisplayName)

	var feed feedPayload
	decode(t, s.do(http.MethodGet, "/api/v1/menfess", "", nil), &feed)
	assert.Empty(t, feed.Items)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, fmt.Sprintf("/api/v1/menfess/%d", id), "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, fmt.Sprintf("/api/v1/menfess/%d", id), alice, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, fmt.Sprintf("/api/v1/menfess/%d/like", id), bob, nil).Code)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/menfess/%d/approve", id), bob, nil).Code)
	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/menfess/%d/approve", id), mod, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	decode(t, s.do(http.MethodGet, "/api/v1/menfess", "", nil), &feed)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "<strong>hi</strong>", feed.Items[0].Rendered)

	var like services.LikeResult
	decode(t, s.do(http.MethodPost, fmt.Sprintf("/api/v1/menfess/%d/like", id), bob, nil), &like)
	assert.Equal(t, services.LikeResult{Liked: true, TotalLikes: 1}, like)
	decode(t, s.do(http.MethodPost, fmt.Sprintf("/api/v1/menfess/%d/like", id), bob, nil), &like)
	assert.Equal(t, services.LikeResult{Liked: false, TotalLikes: 0}, like)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, fmt.Sprintf("/api/v1/menfess/%d", id), bob, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, fmt.Sprintf("/api/v1/menfess/%d", id), alice, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, fmt.Sprintf("/api/v1/menfess/%d", id), admin, nil).Code)
}

func TestRegistrationAndSession(t *testing.T) {
	s := newTestServer(t)
	s.register("carol")

	w := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "carol", "email": "other@example.com", "password": "x"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "", "email": "e@example.com", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "carol", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "longpass", "email": "longpass@example.com", "password": strings.Repeat("p", 80),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	token := s.login("carol", "pass-carol")
	var me struct {
		User map[string]interface{} `json:"user"`
	}
	decode(t, s.do(http.MethodGet, "/api/v1/auth/me", token, nil), &me)
	assert.Equal(t, "carol", me.User["username"])
	assert.NotContains(t, me.User, "password_hash")

	w = s.do(http.MethodPatch, "/api/v1/auth/profile", token, gin.H{"theme_preference": "dark"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &me)
	assert.Equal(t, "dark", me.User["theme_preference"])

	w = s.do(http.MethodPost, "/api/v1/auth/theme", "", gin.H{"theme": "light"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodPost, "/api/v1/auth/theme", "", gin.H{"theme": "purple"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/auth/logout", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/auth/me", token, nil).Code)
}

func TestSuspendedUserIsBlocked(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", "admin123")
	dave := s.signup("dave")

	w := s.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/users/%d/suspend", s.userID("dave")), admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/menfess", dave, gin.H{"content": "hello"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "dave", "password": "pass-dave"})
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		User struct {
			Suspended bool `json:"suspended"`
		} `json:"user"`
	}
	decode(t, w, &out)
	assert.True(t, out.User.Suspended)

	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/users/%d/suspend", s.userID("admin")), admin, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	ed := s.signup("ed")
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/v1/admin/users/9999/suspend", ed, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/v1/admin/users/9999/suspend", admin, nil).Code)
}

func TestVoiceNoteLifecycle(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", "admin123")

	w := s.multipart("/api/v1/menfess", admin, map[string]string{"content": "listen"}, "voice_note", "clip.OGG", []byte("ogg-data"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created menfessPayload
	decode(t, w, &created)
	require.NotNil(t, created.Menfess.VoiceNote)
	ref := *created.Menfess.VoiceNote
	assert.True(t, strings.HasSuffix(ref, ".ogg"))
	assert.Equal(t, "/uploads/voice_notes/"+ref, created.Menfess.VoiceNoteURL)

	served := s.do(http.MethodGet, created.Menfess.VoiceNoteURL, "", nil)
	assert.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, "ogg-data", served.Body.String())

	path := filepath.Join(s.upload, "voice_notes", ref)
	_, err := os.Stat(path)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, fmt.Sprintf("/api/v1/menfess/%d", created.Menfess.ID), admin, nil).Code)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	w = s.multipart("/api/v1/menfess", admin, map[string]string{"content": "bad"}, "voice_note", "clip.exe", []byte("x"))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = s.multipart("/api/v1/menfess", admin, map[string]string{"content": "   "}, "voice_note", "clip.mp3", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.multipart("/api/v1/menfess", admin, map[string]string{"content": "huge"}, "voice_note", "clip.mp3", bytes.Repeat([]byte("x"), 3<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	entries, err := os.ReadDir(filepath.Join(s.upload, "voice_notes"))
	require.NoError(t, err)
	assert.Empty(t, entries, "failed submissions leave no blobs")
}

func TestCommentsReportsAndQueues(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", "admin123")
	erin := s.signup("erin")

	w := s.do(http.MethodPost, "/api/v1/menfess", admin, gin.H{"content": "published"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created menfessPayload
	decode(t, w, &created)
	id := created.Menfess.ID
	assert.True(t, created.Menfess.Approved)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, fmt.Sprintf("/api/v1/menfess/%d/comments", id), erin, gin.H{"content": " "}).Code)
	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/menfess/%d/comments", id), erin, gin.H{"content": "first!"})
	require.Equal(t, http.StatusCreated, w.Code)
	var comment struct {
		Comment services.CommentView `json:"comment"`
	}
	decode(t, w, &comment)
	assert.Equal(t, "erin", comment.Comment.Author.Username)

	var comments struct {
		Items []services.CommentView `json:"items"`
	}
	decode(t, s.do(http.MethodGet, fmt.Sprintf("/api/v1/menfess/%d/comments", id), "", nil), &comments)
	require.Len(t, comments.Items, 1)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, fmt.Sprintf("/api/v1/menfess/%d/reports", id), erin, gin.H{"reason": ""}).Code)
	assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, fmt.Sprintf("/api/v1/menfess/%d/reports", id), erin, gin.H{"reason": "rude"}).Code)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/admin/reports", erin, nil).Code)
	var reports services.ReportPage
	decode(t, s.do(http.MethodGet, "/api/v1/admin/reports", admin, nil), &reports)
	require.Len(t, reports.Items, 1)
	assert.Equal(t, "rude", reports.Items[0].Reason)

	var stats map[string]int64
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/admin/stats", erin, nil).Code)
	decode(t, s.do(http.MethodGet, "/api/v1/admin/stats", admin, nil), &stats)
	assert.Equal(t, int64(1), stats["approved_count"])
	assert.Equal(t, int64(1), stats["report_count"])
	assert.Equal(t, int64(1), stats["comment_count"])

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", comment.Comment.ID), s.signup("frank"), nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", comment.Comment.ID), erin, nil).Code)
}

func TestCategoriesOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", "admin123")
	gina := s.signup("gina")

	var list struct {
		Items []models.Category `json:"items"`
	}
	decode(t, s.do(http.MethodGet, "/api/v1/categories", "", nil), &list)
	assert.Len(t, list.Items, len(services.DefaultCategories))

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/v1/admin/categories", gina, gin.H{"name": "Memes"}).Code)
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/v1/admin/categories", admin, gin.H{"name": "General"}).Code)
	w := s.do(http.MethodPost, "/api/v1/admin/categories", admin, gin.H{"name": "Memes", "description": "funny"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Category models.Category `json:"category"`
	}
	decode(t, w, &created)

	w = s.do(http.MethodPost, "/api/v1/menfess", gina, gin.H{"content": "lol", "category_id": fmt.Sprint(created.Category.ID)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, http.StatusConflict, s.do(http.MethodDelete, fmt.Sprintf("/api/v1/admin/categories/%d", created.Category.ID), admin, nil).Code)

	w = s.do(http.MethodGet, "/api/v1/menfess?category=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServiceEndpoints(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/metrics", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/nope", "", nil).Code)

	var uploads struct {
		MaxBytes   int64 `json:"max_bytes"`
		VoiceNote  struct {
			Extensions []string `json:"extensions"`
		} `json:"voice_note"`
	}
	decode(t, s.do(http.MethodGet, "/api/v1/config/uploads", "", nil), &uploads)
	assert.Equal(t, int64(1<<20), uploads.MaxBytes)
	assert.Equal(t, []string{"mp3", "ogg", "wav", "webm"}, uploads.VoiceNote.Extensions)
}
