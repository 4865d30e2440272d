package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/taskhub/internal/apperr"
)

var (
	emailRE     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	subdomainRE = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)
)

const (
	MinPasswordLen = 8
	maxNameLen     = 255
	maxPasswordLen = 72 // bcrypt ignores bytes past 72
)

func validateEmail(email string) error {
	if !emailRE.MatchString(email) || len(email) > maxNameLen {
		return apperr.Validation("Invalid email format")
	}
	return nil
}

func validatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < MinPasswordLen {
		return apperr.Validation("Password must be at least 8 characters long")
	}
	if len(pw) > maxPasswordLen {
		return apperr.Validation("Password must be at most 72 bytes long")
	}
	return nil
}

func validateSubdomain(s string) error {
	if !subdomainRE.MatchString(s) {
		return apperr.Validation("Invalid subdomain format. Use lowercase letters, numbers, and hyphens only")
	}
	return nil
}

// validateName checks a required display field after trimming.
func validateName(value, field string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", apperr.Validation(field + " is required")
	}
	if utf8.RuneCountInString(v) > maxNameLen {
		return "", apperr.Validation(field + " must be at most 255 characters")
	}
	return v, nil
}
