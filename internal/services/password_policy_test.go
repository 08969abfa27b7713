package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	attrs := PasswordAttributes{Email: "countess@example.com", FirstName: "Ada", LastName: "Lovelace"}

	cases := []struct {
		name     string
		password string
		want     []string
	}{
		{"strong", strongPassword, nil},
		{"short", "Zq9!x", []string{"This password is too short. It must contain at least 8 characters."}},
		{"common", "password123", []string{"This password is too common."}},
		{"numeric", "48213957", []string{"This password is entirely numeric."}},
		{"common and numeric", "12345678", []string{"This password is too common.", "This password is entirely numeric."}},
		{"short numeric", "1234", []string{
			"This password is too short. It must contain at least 8 characters.",
			"This password is too common.",
			"This password is entirely numeric.",
		}},
		{"similar to last name", "lovelace1", []string{"The password is too similar to the last name."}},
		{"similar to email", "countess@example", []string{"The password is too similar to the email."}},
		{"too long", strings.Repeat("Kayak-Glacier-", 6), []string{"This password is too long. It must contain at most 72 bytes."}},
		{"multibyte at the limit", strings.Repeat("ü", 36), nil},
		{"multibyte over the limit", strings.Repeat("ü", 37), []string{"This password is too long. It must contain at most 72 bytes."}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ValidatePasswordStrength(tc.password, attrs))
		})
	}
}

func TestSimilarityRatio(t *testing.T) {
	require.InDelta(t, 1.0, similarityRatio("abcd", "abcd"), 1e-9)
	require.InDelta(t, 0.0, similarityRatio("abcd", "wxyz"), 1e-9)
	// "abcd" vs "bcde": matching block "bcd" → 2*3/8
	require.InDelta(t, 0.75, similarityRatio("abcd", "bcde"), 1e-9)
}

func TestHashPasswordReportsOverLongPasswordAsFieldError(t *testing.T) {
	_, err := hashPassword("password", strings.Repeat("x", 73))
	requireFieldError(t, err, "password", "This password is too long. It must contain at most 72 bytes.")

	hashed, err := hashPassword("password", strings.Repeat("x", 72))
	require.NoError(t, err)
	require.NotEmpty(t, hashed)
}
