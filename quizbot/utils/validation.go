package utils

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var phoneRe = regexp.MustCompile(`^8\d{10}$`)

var (
	ErrDateInFuture = errors.New("дата рождения не может быть в будущем")
	ErrDateTooEarly = errors.New("слишком ранняя дата рождения")
	ErrBadDate      = errors.New("неверный формат даты")
	ErrBadPhone     = errors.New("неверный формат номера телефона")
)

// NormalizePhone brings a phone number to the canonical 8xxxxxxxxxx form:
// +7 becomes 8, spaces and dashes are dropped, a bare 10-digit number gets
// the leading 8.
func NormalizePhone(phone string) string {
	phone = strings.ReplaceAll(phone, "+7", "8")
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	if len(phone) == 10 {
		phone = "8" + phone
	}
	return phone
}

// ParsePhone normalizes and validates a phone number.
func ParsePhone(input string) (string, error) {
	phone := NormalizePhone(strings.TrimSpace(input))
	if !phoneRe.MatchString(phone) {
		return "", ErrBadPhone
	}
	return phone, nil
}

// ParseDateOfBirth parses a YYYY-MM-DD date and rejects future dates and
// dates before 1900.
func ParseDateOfBirth(input string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", strings.TrimSpace(input))
	if err != nil {
		return time.Time{}, ErrBadDate
	}
	if d.After(time.Now()) {
		return time.Time{}, ErrDateInFuture
	}
	if d.Year() < 1900 {
		return time.Time{}, ErrDateTooEarly
	}
	return d, nil
}

// ParsePositiveInt accepts only a positive decimal integer.
func ParsePositiveInt(input string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// IsDigits reports whether the string is a non-empty run of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// TrimExplanation strips the surrounding quote pair the source data carries
// around answer explanations.
func TrimExplanation(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
