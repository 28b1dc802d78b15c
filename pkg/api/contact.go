package api

import (
	"errors"

	"github.com/iudanet/chatdesk/internal/models"
)

// ContactRequest представляет тело POST /contact/create-contact
type ContactRequest struct {
	FullName    string `json:"fullname"`
	Email       string `json:"email"`
	Phone       string `json:"phoneno,omitempty"`
	Company     string `json:"company,omitempty"`
	InquiryType string `json:"inquirytype"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
}

// ContactResponse представляет запись заявки в ответах /contact
type ContactResponse struct {
	ContactRequest
	CreatedAt string `json:"createdAt"`
	ID        int64  `json:"id"`
}

// ToModel validates the record and converts it.
func (c *ContactResponse) ToModel() (models.Contact, error) {
	if c.ID == 0 {
		return models.Contact{}, errors.New("contact id is missing")
	}
	if c.Email == "" {
		return models.Contact{}, errors.New("contact email is missing")
	}
	return models.Contact{
		ID:          c.ID,
		FullName:    c.FullName,
		Email:       c.Email,
		Phone:       c.Phone,
		Company:     c.Company,
		InquiryType: c.InquiryType,
		Subject:     c.Subject,
		Message:     c.Message,
		CreatedAt:   models.ParseTimestamp(c.CreatedAt),
	}, nil
}
