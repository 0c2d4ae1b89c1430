package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxNameLen        = 100
	maxEmailLen       = 255
	maxTitleLen       = 255
	maxAuthorLen      = 255
	maxDescriptionLen = 2000
)

var emailPattern = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email cannot be empty", ErrValidation)
	}
	if utf8.RuneCountInString(email) > maxEmailLen {
		return fmt.Errorf("%w: input exceeds maximum length", ErrValidation)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	return nil
}

// requireText trims s and checks it is non-empty and at most limit runes.
func requireText(field, s string, limit int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: %s cannot be empty", ErrValidation, field)
	}
	if utf8.RuneCountInString(s) > limit {
		return "", fmt.Errorf("%w: %s exceeds maximum length", ErrValidation, field)
	}
	return s, nil
}
