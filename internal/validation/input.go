package validation

import (
	"fmt"
	"net/mail"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	// MaxMessageLen максимальная длина сообщения в чате (в символах)
	MaxMessageLen = 8000
	// MaxThreadIDLen ограничение на длину идентификатора треда
	MaxThreadIDLen = 128
)

// AllowedUploadExtensions форматы документов, которые принимает база знаний
var AllowedUploadExtensions = []string{".pdf", ".txt", ".docx"}

// ValidateEmail проверяет, что email непустой и синтаксически корректен.
// Политику паролей и блокировок клиент не реализует - это зона сервера.
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("email cannot be empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("email %q is not a valid address", email)
	}
	return nil
}

// ValidatePassword проверяет только наличие пароля
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	return nil
}

// ValidateMessage проверяет текст сообщения и возвращает его без крайних пробелов
func ValidateMessage(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("message cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > MaxMessageLen {
		return "", fmt.Errorf("message must not exceed %d characters", MaxMessageLen)
	}
	return trimmed, nil
}

// ValidateThreadID проверяет непрозрачный идентификатор треда.
// Идентификатор попадает в путь URL, поэтому '/' запрещен.
func ValidateThreadID(id string) error {
	if id == "" {
		return fmt.Errorf("thread id cannot be empty")
	}
	if len(id) > MaxThreadIDLen {
		return fmt.Errorf("thread id must not exceed %d characters", MaxThreadIDLen)
	}
	if strings.ContainsAny(id, "/?#") {
		return fmt.Errorf("thread id contains reserved characters")
	}
	return nil
}

// ValidateUploadFilename проверяет расширение загружаемого документа
func ValidateUploadFilename(name string) error {
	if name == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range AllowedUploadExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("unsupported file type %q, allowed: %s", ext, strings.Join(AllowedUploadExtensions, ", "))
}
