package validation

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrInvalidSlug is returned when a slug doesn't match the required format
	ErrInvalidSlug = errors.New("invalid slug format")

	// ErrSlugTooShort is returned when a slug is too short
	ErrSlugTooShort = errors.New("slug must be at least 3 characters")

	// ErrSlugTooLong is returned when a slug is too long
	ErrSlugTooLong = errors.New("slug must be at most 64 characters")

	// ErrInvalidInterval is returned when a time interval does not satisfy start < end
	ErrInvalidInterval = errors.New("start must be before end")

	// slugRegex: starts and ends with alphanumeric, hyphens allowed in the middle
	slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$`)
)

// ValidateSlug validates a field slug:
// - 3-64 characters
// - starts and ends with lowercase alphanumeric (a-z, 0-9)
// - hyphens allowed in the middle, nothing else
func ValidateSlug(slug string) error {
	slug = strings.ToLower(strings.TrimSpace(slug))

	if len(slug) < 3 {
		return ErrSlugTooShort
	}
	if len(slug) > 64 {
		return ErrSlugTooLong
	}

	if !slugRegex.MatchString(slug) {
		return ErrInvalidSlug
	}

	return nil
}

// NormalizeSlug normalizes a slug by converting to lowercase and trimming whitespace
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// ValidateInterval checks the half-open interval [start, end).
// Zero instants and start >= end are rejected before any state is touched.
func ValidateInterval(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return ErrInvalidInterval
	}
	if !start.Before(end) {
		return ErrInvalidInterval
	}
	return nil
}
