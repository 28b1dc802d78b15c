package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgapi "github.com/iudanet/chatdesk/pkg/api"
)

func validContact() pkgapi.ContactRequest {
	return pkgapi.ContactRequest{
		FullName:    " Jane Doe ",
		Email:       "jane@example.com ",
		InquiryType: "sales",
		Subject:     "Pricing",
		Message:     "How much?",
	}
}

func TestValidateContact(t *testing.T) {
	req := validContact()
	require.NoError(t, ValidateContact(&req))
	assert.Equal(t, "Jane Doe", req.FullName)
	assert.Equal(t, "jane@example.com", req.Email)

	tests := []struct {
		mutate func(*pkgapi.ContactRequest)
		name   string
		field  string
	}{
		{name: "no name", field: "fullname", mutate: func(r *pkgapi.ContactRequest) { r.FullName = "  " }},
		{name: "no inquiry type", field: "inquirytype", mutate: func(r *pkgapi.ContactRequest) { r.InquiryType = "" }},
		{name: "no subject", field: "subject", mutate: func(r *pkgapi.ContactRequest) { r.Subject = "" }},
		{name: "no message", field: "message", mutate: func(r *pkgapi.ContactRequest) { r.Message = "\n" }},
		{name: "bad email", field: "email", mutate: func(r *pkgapi.ContactRequest) { r.Email = "nope" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validContact()
			tt.mutate(&req)

			err := ValidateContact(&req)
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}
