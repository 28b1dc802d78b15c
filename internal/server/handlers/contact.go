package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/chatdesk/internal/models"
	"github.com/iudanet/chatdesk/internal/server/storage"
	"github.com/iudanet/chatdesk/internal/validation"
	"github.com/iudanet/chatdesk/pkg/api"
)

// ContactHandler обрабатывает заявки формы обратной связи
type ContactHandler struct {
	responder
	contactStorage storage.ContactStorage
}

// NewContactHandler создает новый handler для /contact
func NewContactHandler(logger *slog.Logger, contactStorage storage.ContactStorage) *ContactHandler {
	return &ContactHandler{
		responder:      responder{logger: logger},
		contactStorage: contactStorage,
	}
}

// Create обрабатывает POST /contact/create-contact
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateContact(&req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	c := &models.Contact{
		FullName:    req.FullName,
		Email:       req.Email,
		Phone:       req.Phone,
		Company:     req.Company,
		InquiryType: req.InquiryType,
		Subject:     req.Subject,
		Message:     req.Message,
	}
	if err := h.contactStorage.CreateContact(ctx, c); err != nil {
		h.logger.ErrorContext(ctx, "failed to create contact", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "contact request stored", slog.Int64("contact_id", c.ID))
	h.sendJSON(w, contactResponse(*c), http.StatusOK)
}

// List обрабатывает GET /contact/
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contacts, err := h.contactStorage.ListContacts(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list contacts", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := make([]api.ContactResponse, 0, len(contacts))
	for _, c := range contacts {
		resp = append(resp, contactResponse(c))
	}
	h.sendJSON(w, resp, http.StatusOK)
}

// Count обрабатывает GET /contact/count; ответ - голое число
func (h *ContactHandler) Count(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	n, err := h.contactStorage.CountContacts(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to count contacts", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.sendJSON(w, n, http.StatusOK)
}

func contactResponse(c models.Contact) api.ContactResponse {
	return api.ContactResponse{
		ContactRequest: api.ContactRequest{
			FullName:    c.FullName,
			Email:       c.Email,
			Phone:       c.Phone,
			Company:     c.Company,
			InquiryType: c.InquiryType,
			Subject:     c.Subject,
			Message:     c.Message,
		},
		ID:        c.ID,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
