package handlers

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/chatdesk/internal/models"
	"github.com/iudanet/chatdesk/internal/server/storage"
	"github.com/iudanet/chatdesk/internal/validation"
	"github.com/iudanet/chatdesk/pkg/api"
)

const (
	// MaxUploadSize ограничение на размер документа
	MaxUploadSize = 32 << 20
	// multipartMemory часть формы, которая держится в памяти
	multipartMemory = 8 << 20
)

// Indexer управляет задачей сборки базы знаний
type Indexer interface {
	Start(path string)
	Status() models.JobStatus
	Cancel() bool
}

// FileHandler обрабатывает загрузку документа и статус индексации
type FileHandler struct {
	responder
	fileStorage storage.FileStorage
	indexer     Indexer
	uploadDir   string
}

// NewFileHandler создает новый handler для /file
func NewFileHandler(logger *slog.Logger, fileStorage storage.FileStorage, indexer Indexer, uploadDir string) *FileHandler {
	return &FileHandler{
		responder:   responder{logger: logger},
		fileStorage: fileStorage,
		indexer:     indexer,
		uploadDir:   uploadDir,
	}
}

// Upload обрабатывает POST /file/upload.
// Новый документ заменяет предыдущий и сразу запускает сборку.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.sendError(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.sendError(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.sendError(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if err := validation.ValidateUploadFilename(name); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if header.Size > MaxUploadSize {
		h.sendError(w, "file too large", http.StatusRequestEntityTooLarge)
		return
	}

	id := uuid.New().String()
	path := filepath.Join(h.uploadDir, id+"_"+name)
	if err := saveFile(path, file); err != nil {
		h.logger.ErrorContext(ctx, "failed to save upload", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	record := &models.UploadedFile{
		ID:         id,
		Filename:   name,
		Filepath:   path,
		UploadedAt: time.Now().UTC(),
	}
	previous, err := h.fileStorage.ReplaceFile(ctx, record)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to store file record", slog.Any("error", err))
		_ = os.Remove(path)
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if previous != nil && previous.Filepath != path {
		if err := os.Remove(previous.Filepath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			h.logger.WarnContext(ctx, "failed to remove previous document", slog.Any("error", err))
		}
	}

	h.indexer.Start(path)
	h.logger.InfoContext(ctx, "document uploaded",
		slog.String("file_id", id),
		slog.String("filename", name),
		slog.Int64("size", header.Size))

	h.sendJSON(w, api.UploadResponse{
		ID:         record.ID,
		Filename:   record.Filename,
		Filepath:   record.Filepath,
		UploadedAt: record.UploadedAt.Format(time.RFC3339Nano),
	}, http.StatusOK)
}

// VectorStatus обрабатывает GET /file/vector-status
func (h *FileHandler) VectorStatus(w http.ResponseWriter, _ *http.Request) {
	h.sendJSON(w, api.FromModel(h.indexer.Status()), http.StatusOK)
}

// VectorCancel обрабатывает POST /file/vector-cancel
func (h *FileHandler) VectorCancel(w http.ResponseWriter, r *http.Request) {
	if h.indexer.Cancel() {
		h.logger.InfoContext(r.Context(), "index build cancelled by request")
	}
	h.sendJSON(w, api.MessageResponse{Message: "Cancellation requested"}, http.StatusOK)
}

func saveFile(path string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create upload dir: %w", err)
	}
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}
