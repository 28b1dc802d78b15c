package validation

import (
	"errors"
	"strings"

	pkgapi "github.com/iudanet/chatdesk/pkg/api"
)

// ErrEmpty is wrapped by FieldError for missing required fields.
var ErrEmpty = errors.New("cannot be empty")

// FieldError указывает поле формы, не прошедшее проверку (имя как в JSON)
type FieldError struct {
	Err   error
	Field string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ValidateContact обрезает пробелы и проверяет обязательные поля заявки.
// Возвращает *FieldError.
func ValidateContact(req *pkgapi.ContactRequest) error {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Company = strings.TrimSpace(req.Company)
	req.InquiryType = strings.TrimSpace(req.InquiryType)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)

	required := []struct {
		field string
		value string
	}{
		{"fullname", req.FullName},
		{"inquirytype", req.InquiryType},
		{"subject", req.Subject},
		{"message", req.Message},
	}
	for _, r := range required {
		if r.value == "" {
			return &FieldError{Field: r.field, Err: ErrEmpty}
		}
	}
	if err := ValidateEmail(req.Email); err != nil {
		return &FieldError{Field: "email", Err: err}
	}
	return nil
}
