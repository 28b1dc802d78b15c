package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		errMsg  string
		wantErr bool
	}{
		{name: "valid email", email: "admin@example.com"},
		{name: "valid email with plus", email: "ops+chat@example.org"},
		{name: "empty", email: "", wantErr: true, errMsg: "email cannot be empty"},
		{name: "spaces only", email: "   ", wantErr: true, errMsg: "email cannot be empty"},
		{name: "no at sign", email: "admin.example.com", wantErr: true, errMsg: "not a valid address"},
		{name: "display name form", email: "Admin <admin@example.com>", wantErr: true, errMsg: "not a valid address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("x"))
	assert.NoError(t, ValidatePassword("short"))

	err := ValidatePassword("")
	require.Error(t, err)
	assert.Equal(t, "password cannot be empty", err.Error())
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "hello", want: "hello"},
		{name: "trimmed", input: "  hello there \n", want: "hello there"},
		{name: "unicode", input: "привет", want: "привет"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: " \t\n ", wantErr: true},
		{name: "too long", input: strings.Repeat("a", MaxMessageLen+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateMessage(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateThreadID(t *testing.T) {
	assert.NoError(t, ValidateThreadID("b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5"))
	assert.Error(t, ValidateThreadID(""))
	assert.Error(t, ValidateThreadID("a/b"))
	assert.Error(t, ValidateThreadID("a?b"))
	assert.Error(t, ValidateThreadID(strings.Repeat("x", MaxThreadIDLen+1)))
}

func TestValidateUploadFilename(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantErr bool
	}{
		{name: "pdf", file: "handbook.pdf"},
		{name: "upper case txt", file: "NOTES.TXT"},
		{name: "docx in dir", file: "/tmp/docs/policy.docx"},
		{name: "image", file: "photo.png", wantErr: true},
		{name: "no extension", file: "README", wantErr: true},
		{name: "empty", file: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUploadFilename(tt.file)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
