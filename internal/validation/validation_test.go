package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateSlug(t *testing.T) {
	tests := []struct {
		name    string
		slug    string
		wantErr error
	}{
		{"valid simple", "north-pitch", nil},
		{"valid with digits", "field-7", nil},
		{"too short", "ab", ErrSlugTooShort},
		{"leading hyphen", "-north", ErrInvalidSlug},
		{"trailing hyphen", "north-", ErrInvalidSlug},
		{"underscore", "north_pitch", ErrInvalidSlug},
		{"uppercase normalized", "North-Pitch", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSlug(tt.slug)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateInterval(t *testing.T) {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, ValidateInterval(base, base.Add(time.Hour)))
	require.ErrorIs(t, ValidateInterval(base, base), ErrInvalidInterval)
	require.ErrorIs(t, ValidateInterval(base.Add(time.Hour), base), ErrInvalidInterval)
	require.ErrorIs(t, ValidateInterval(time.Time{}, base), ErrInvalidInterval)
}
