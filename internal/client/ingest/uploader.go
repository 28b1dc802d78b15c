package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/iudanet/chatdesk/internal/client/api"
	"github.com/iudanet/chatdesk/internal/models"
	"github.com/iudanet/chatdesk/internal/validation"
	pkgapi "github.com/iudanet/chatdesk/pkg/api"
)

const (
	uploadPath = "/file/upload"
	// MaxUploadSize ограничение на размер документа
	MaxUploadSize = 32 << 20
)

// Uploader отправляет документ в базу знаний
type Uploader struct {
	transport Transport
	poller    *Poller
	logger    *slog.Logger
}

// NewUploader creates an uploader. poller may be nil.
func NewUploader(transport Transport, poller *Poller, logger *slog.Logger) *Uploader {
	return &Uploader{
		transport: transport,
		poller:    poller,
		logger:    logger,
	}
}

// UploadFile uploads the file at path.
func (u *Uploader) UploadFile(ctx context.Context, path string) (*models.UploadedFile, error) {
	if err := validation.ValidateUploadFilename(filepath.Base(path)); err != nil {
		return nil, &api.ValidationError{Field: "file", Reason: err.Error(), Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			u.logger.Warn("failed to close file", "path", path, "error", cerr)
		}
	}()

	return u.Upload(ctx, filepath.Base(path), f)
}

// Upload sends content as the multipart "file" field. On success the poller
// is reset to idle awaiting the new job.
func (u *Uploader) Upload(ctx context.Context, filename string, content io.Reader) (*models.UploadedFile, error) {
	if err := validation.ValidateUploadFilename(filename); err != nil {
		return nil, &api.ValidationError{Field: "file", Reason: err.Error(), Err: err}
	}

	body, contentType, err := buildMultipart(filename, content)
	if err != nil {
		return nil, err
	}

	resp, err := u.transport.Execute(ctx, api.Request{
		Method:      http.MethodPost,
		Path:        uploadPath,
		ContentType: contentType,
		Body:        body,
	})
	if err != nil {
		return nil, err
	}

	var wire pkgapi.UploadResponse
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		return nil, &api.ValidationError{Field: uploadPath, Reason: "malformed response", Err: err}
	}
	file, err := wire.ToModel()
	if err != nil {
		return nil, &api.ValidationError{Field: uploadPath, Reason: "malformed response", Err: err}
	}
	if file.Filename == "" {
		file.Filename = filename
	}

	u.logger.Info("document uploaded", "file_id", file.ID, "filename", file.Filename)
	if u.poller != nil {
		u.poller.MarkSubmitted()
	}
	return &file, nil
}

func buildMultipart(filename string, content io.Reader) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	n, err := io.Copy(part, io.LimitReader(content, MaxUploadSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	if n > MaxUploadSize {
		return nil, "", &api.ValidationError{Field: "file", Reason: fmt.Sprintf("file exceeds %d bytes", MaxUploadSize)}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
