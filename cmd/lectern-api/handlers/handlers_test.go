package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/observability"
	"github.com/lectern-ai/lectern/internal/storage"
	"github.com/lectern-ai/lectern/internal/tasks"
)

type fakeSubmitter struct {
	taskID  string
	err     error
	lastReq domain.GenerateRequest
}

func (f *fakeSubmitter) Submit(ctx context.Context, req domain.GenerateRequest) (string, error) {
	f.lastReq = req
	return f.taskID, f.err
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := &config.StorageConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{
			Path:         filepath.Join(t.TempDir(), "handlers_test.sqlite"),
			MaxOpenConns: 1,
		},
	}
	db, err := storage.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, err := writer.CreateFormFile("pdf_file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadAcceptsPDF(t *testing.T) {
	submitter := &fakeSubmitter{taskID: "task-123"}
	handler := NewUploadHandler(observability.Nop(), submitter, t.TempDir(), 10<<20)

	body, contentType := multipartUpload(t, map[string]string{
		"user_name":    "alice",
		"chapter_name": "KWC05",
		"skip_images":  "true",
	}, "chapter.pdf", []byte("%PDF-1.7\ncontent"))

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.Upload(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "task-123", resp["task_id"])

	assert.Equal(t, "alice", submitter.lastReq.UserName)
	assert.Equal(t, "KWC05", submitter.lastReq.ChapterName)
	assert.Equal(t, "chapter.pdf", submitter.lastReq.PDFFilename)
	assert.True(t, submitter.lastReq.SkipImages)
	assert.FileExists(t, submitter.lastReq.PDFPath)
}

func TestUploadRejectsMissingFile(t *testing.T) {
	handler := NewUploadHandler(observability.Nop(), &fakeSubmitter{}, t.TempDir(), 10<<20)

	body, contentType := multipartUpload(t, map[string]string{"user_name": "alice"}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "pdf_file is required")
}

func TestUploadRejectsMissingUserName(t *testing.T) {
	handler := NewUploadHandler(observability.Nop(), &fakeSubmitter{}, t.TempDir(), 10<<20)

	body, contentType := multipartUpload(t, nil, "chapter.pdf", []byte("%PDF-1.7\n"))
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "user_name is required")
}

func TestUploadRejectsNonPDFExtension(t *testing.T) {
	handler := NewUploadHandler(observability.Nop(), &fakeSubmitter{}, t.TempDir(), 10<<20)

	body, contentType := multipartUpload(t, map[string]string{"user_name": "alice"}, "notes.txt", []byte("text"))
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "only PDF files are accepted")
}

func TestUploadRejectsRenamedNonPDF(t *testing.T) {
	handler := NewUploadHandler(observability.Nop(), &fakeSubmitter{}, t.TempDir(), 10<<20)

	// .pdf extension but no PDF magic bytes.
	body, contentType := multipartUpload(t, map[string]string{"user_name": "alice"}, "fake.pdf", []byte("not a pdf"))
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func taskRouter(handler *TaskHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/tasks/{taskID}", handler.Get)
	r.Get("/api/tasks/{taskID}/download/{kind}", handler.Download)
	return r
}

func TestTaskGetAndNotFound(t *testing.T) {
	store := tasks.NewMemoryStore()
	task := &domain.Task{ID: "task-1", Status: domain.TaskStatusProcessing, Progress: "Structuring presentation"}
	require.NoError(t, store.Create(context.Background(), task))

	router := taskRouter(NewTaskHandler(observability.Nop(), store))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks/task-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Structuring presentation")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskDownload(t *testing.T) {
	deckPath := filepath.Join(t.TempDir(), "KWC05_GRUPG_presentation.pptx")
	require.NoError(t, os.WriteFile(deckPath, []byte("PK\x03\x04"), 0o644))

	store := tasks.NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), &domain.Task{
		ID: "done", Status: domain.TaskStatusCompleted, PPTXPath: deckPath,
	}))
	require.NoError(t, store.Create(context.Background(), &domain.Task{
		ID: "running", Status: domain.TaskStatusProcessing,
	}))

	router := taskRouter(NewTaskHandler(observability.Nop(), store))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks/done/download/pptx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "KWC05_GRUPG_presentation.pptx")
	assert.Contains(t, rec.Header().Get("Content-Type"), "presentationml")

	// Artifact kinds are a closed set.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks/done/download/zip", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unfinished tasks have nothing to download.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks/running/download/pptx", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A completed docx slot that was never rendered is a 404.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks/done/download/docx", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsKeysMasking(t *testing.T) {
	db := newTestDB(t)
	handler := NewSettingsHandler(observability.Nop(), db)

	// Nothing stored yet: both keys come back empty.
	rec := httptest.NewRecorder()
	handler.GetKeys(rec, httptest.NewRequest(http.MethodGet, "/api/settings/keys", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Empty(t, payload["anthropic_api_key"])
	assert.Empty(t, payload["google_api_key"])

	// Store a key and read it back masked.
	putBody := strings.NewReader(`{"anthropic_api_key": "sk-ant-0123456789"}`)
	rec = httptest.NewRecorder()
	handler.PutKeys(rec, httptest.NewRequest(http.MethodPut, "/api/settings/keys", putBody))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	masked := payload["anthropic_api_key"]
	assert.True(t, strings.HasSuffix(masked, "6789"), masked)
	assert.True(t, strings.HasPrefix(masked, "****"), masked)
	assert.NotContains(t, masked, "sk-ant")

	// The stored value is the real key, not the mask.
	stored, err := storage.NewSettingsRepository(db).Get(context.Background(), storage.SettingAnthropicAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-0123456789", stored)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", maskKey(""))
	assert.Equal(t, "", maskKey("short"))
	assert.Equal(t, "", maskKey("1234567")) // too short to reveal anything
	assert.Equal(t, "****5678", maskKey("12345678"))
}
