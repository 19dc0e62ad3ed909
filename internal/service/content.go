package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"pulse/internal/models"
)

// normalizeContent trims text bodies and enforces 1..MaxContentLength characters.
func normalizeContent(content, field string) (string, error) {
	return normalizeText(content, field, models.MaxContentLength)
}

func normalizeText(text, field string, maxLen int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", models.NewValidationError(field + " is required")
	}
	if utf8.RuneCountInString(text) > maxLen {
		return "", models.NewValidationError(fmt.Sprintf("%s too long (max %d characters)", field, maxLen))
	}
	return text, nil
}
