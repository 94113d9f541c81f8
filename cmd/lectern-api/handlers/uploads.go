package handlers

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/observability"
	"github.com/lectern-ai/lectern/internal/pdf"
)

// Submitter accepts a generation request and returns the task id for
// polling.
type Submitter interface {
	Submit(ctx context.Context, req domain.GenerateRequest) (string, error)
}

// UploadHandler accepts chapter PDFs and starts generation tasks.
type UploadHandler struct {
	logger         *observability.Logger
	submitter      Submitter
	validator      *pdf.Validator
	uploadDir      string
	maxUploadBytes int64
}

// NewUploadHandler creates a new upload handler. Uploaded files are
// kept under uploadDir for the lifetime of their task.
func NewUploadHandler(logger *observability.Logger, submitter Submitter, uploadDir string, maxUploadBytes int64) *UploadHandler {
	return &UploadHandler{
		logger:         logger,
		submitter:      submitter,
		validator:      pdf.NewValidator(),
		uploadDir:      uploadDir,
		maxUploadBytes: maxUploadBytes,
	}
}

// uploadResponse is the 202 reply body.
type uploadResponse struct {
	TaskID string `json:"task_id"`
}

// Upload handles POST /api/uploads. The multipart form carries the
// chapter PDF plus the generation parameters; the reply is the task id
// the client polls for progress.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("pdf_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "pdf_file is required")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "only PDF files are accepted")
		return
	}

	userName := strings.TrimSpace(r.FormValue("user_name"))
	if userName == "" {
		writeError(w, http.StatusBadRequest, "user_name is required")
		return
	}

	pdfPath, err := h.saveUpload(file)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to store upload")
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	if err := h.validator.ValidatePDFPath(pdfPath); err != nil {
		os.Remove(pdfPath)
		writeDomainError(w, err)
		return
	}

	req := domain.GenerateRequest{
		PDFPath:      pdfPath,
		PDFFilename:  filepath.Base(header.Filename),
		ChapterName:  r.FormValue("chapter_name"),
		GroupName:    r.FormValue("group_name"),
		UserName:     userName,
		SkipImages:   r.FormValue("skip_images") == "true",
		AnthropicKey: r.FormValue("anthropic_api_key"),
		GoogleKey:    r.FormValue("google_api_key"),
	}

	taskID, err := h.submitter.Submit(r.Context(), req)
	if err != nil {
		os.Remove(pdfPath)
		h.logger.Error().Err(err).Msg("Task submission failed")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, uploadResponse{TaskID: taskID})
}

// saveUpload streams the uploaded file to disk under a fresh name.
func (h *UploadHandler) saveUpload(src io.Reader) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(h.uploadDir, uuid.NewString()+".pdf")
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
