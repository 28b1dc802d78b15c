package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/iudanet/chatdesk/internal/client/api"
	"github.com/iudanet/chatdesk/internal/models"
	"github.com/iudanet/chatdesk/internal/validation"
	pkgapi "github.com/iudanet/chatdesk/pkg/api"
)

const (
	listPath   = "/contact/"
	countPath  = "/contact/count"
	createPath = "/contact/create-contact"
)

// Transport is the subset of api.Executor used by this package.
type Transport interface {
	DoJSON(ctx context.Context, method, path string, query url.Values, in, out any) error
}

// Service работа с заявками обратной связи. Все эндпоинты требуют авторизации.
type Service struct {
	transport Transport
	logger    *slog.Logger
}

// NewService creates a contact service.
func NewService(transport Transport, logger *slog.Logger) *Service {
	return &Service{transport: transport, logger: logger}
}

// List returns all contacts, newest first as the server orders them.
func (s *Service) List(ctx context.Context) ([]models.Contact, error) {
	var resp []pkgapi.ContactResponse
	if err := s.transport.DoJSON(ctx, http.MethodGet, listPath, nil, nil, &resp); err != nil {
		return nil, err
	}

	contacts := make([]models.Contact, 0, len(resp))
	for i := range resp {
		c, err := resp[i].ToModel()
		if err != nil {
			return nil, &api.ValidationError{Field: listPath, Reason: fmt.Sprintf("contact %d: %v", i, err), Err: err}
		}
		contacts = append(contacts, c)
	}
	s.logger.Debug("contacts loaded", "count", len(contacts))
	return contacts, nil
}

// Count returns the number of stored contacts; the server sends a bare integer.
func (s *Service) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.transport.DoJSON(ctx, http.MethodGet, countPath, nil, nil, &n); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, &api.ValidationError{Field: countPath, Reason: fmt.Sprintf("negative count %d", n)}
	}
	return n, nil
}

// Create submits a contact request and returns the stored record.
func (s *Service) Create(ctx context.Context, req pkgapi.ContactRequest) (*models.Contact, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	var resp pkgapi.ContactResponse
	if err := s.transport.DoJSON(ctx, http.MethodPost, createPath, nil, req, &resp); err != nil {
		return nil, err
	}
	c, err := resp.ToModel()
	if err != nil {
		return nil, &api.ValidationError{Field: createPath, Reason: err.Error(), Err: err}
	}
	s.logger.Info("contact created", "contact_id", c.ID)
	return &c, nil
}

// validateRequest переводит ошибку формы в ValidationError
func validateRequest(req *pkgapi.ContactRequest) error {
	err := validation.ValidateContact(req)
	var fe *validation.FieldError
	if errors.As(err, &fe) {
		return &api.ValidationError{Field: fe.Field, Reason: fe.Err.Error(), Err: fe.Err}
	}
	return err
}
