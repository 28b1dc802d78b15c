package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatdesk/internal/models"
)

func TestContactStorage(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	n, err := s.CountContacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	first := &models.Contact{
		FullName:    "Jane Doe",
		Email:       "jane@example.com",
		InquiryType: "sales",
		Subject:     "Pricing",
		Message:     "How much?",
	}
	second := &models.Contact{
		FullName:    "John Roe",
		Email:       "john@example.com",
		Phone:       "+1 555 0100",
		Company:     "Acme",
		InquiryType: "support",
		Subject:     "Bug",
		Message:     "It broke",
	}
	require.NoError(t, s.CreateContact(ctx, first))
	require.NoError(t, s.CreateContact(ctx, second))
	assert.NotZero(t, first.ID)
	assert.Greater(t, second.ID, first.ID)

	contacts, err := s.ListContacts(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 2)

	// новые первыми
	assert.Equal(t, second.ID, contacts[0].ID)
	assert.Equal(t, "Acme", contacts[0].Company)
	assert.Equal(t, "+1 555 0100", contacts[0].Phone)
	assert.Equal(t, "Jane Doe", contacts[1].FullName)
	assert.Empty(t, contacts[1].Phone)
	assert.False(t, contacts[1].CreatedAt.IsZero())

	n, err = s.CountContacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
