package services

import (
	"bufio"
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/charlesng35/accounts/pkg/crypto"
)

const (
	minPasswordLength     = 8
	maxPasswordSimilarity = 0.7
)

var msgPasswordTooLong = fmt.Sprintf("This password is too long. It must contain at most %d bytes.", crypto.MaxPasswordBytes)

//go:embed common_passwords.txt
var commonPasswordsRaw string

var (
	commonPasswordsOnce sync.Once
	commonPasswords     map[string]struct{}

	attributeSplitter = regexp.MustCompile(`\W+`)
)

// PasswordAttributes are the account fields a password must not resemble.
type PasswordAttributes struct {
	Email     string
	FirstName string
	LastName  string
}

// ValidatePasswordStrength returns one message per failed rule, in the order similarity,
// length, common list, numeric. Length counts characters for the minimum and bytes for the maximum. An empty result means the password is acceptable.
func ValidatePasswordStrength(password string, attrs PasswordAttributes) []string {
	var problems []string

	if label := similarAttribute(password, attrs); label != "" {
		problems = append(problems, fmt.Sprintf("The password is too similar to the %s.", label))
	}
	if len([]rune(password)) < minPasswordLength {
		problems = append(problems, fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength))
	}
	if len(password) > crypto.MaxPasswordBytes {
		problems = append(problems, msgPasswordTooLong)
	}
	if isCommonPassword(password) {
		problems = append(problems, "This password is too common.")
	}
	if isNumeric(password) {
		problems = append(problems, "This password is entirely numeric.")
	}

	return problems
}

func isCommonPassword(password string) bool {
	commonPasswordsOnce.Do(func() {
		commonPasswords = make(map[string]struct{})
		scanner := bufio.NewScanner(strings.NewReader(commonPasswordsRaw))
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				commonPasswords[strings.ToLower(line)] = struct{}{}
			}
		}
	})
	_, ok := commonPasswords[strings.ToLower(strings.TrimSpace(password))]
	return ok
}

func isNumeric(password string) bool {
	if password == "" {
		return false
	}
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func similarAttribute(password string, attrs PasswordAttributes) string {
	candidates := []struct {
		label string
		value string
	}{
		{"email", attrs.Email},
		{"first name", attrs.FirstName},
		{"last name", attrs.LastName},
	}

	password = strings.ToLower(password)
	for _, candidate := range candidates {
		value := strings.ToLower(strings.TrimSpace(candidate.value))
		if value == "" {
			continue
		}
		parts := append(attributeSplitter.Split(value, -1), value)
		for _, part := range parts {
			if part == "" {
				continue
			}
			if similarityRatio(password, part) >= maxPasswordSimilarity {
				return candidate.label
			}
		}
	}
	return ""
}

// similarityRatio is the Ratcliff/Obershelp ratio 2*M/T where M counts characters in
// recursively matched common substrings.
func similarityRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingCharacters(ra, rb)) / float64(total)
}

func matchingCharacters(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	i, j, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingCharacters(a[:i], b[:j]) +
		matchingCharacters(a[i+size:], b[j+size:])
}

func longestCommonSubstring(a, b []rune) (int, int, int) {
	bestI, bestJ, bestSize := 0, 0, 0
	prev := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		cur := make([]int, len(b)+1)
		for j := 1; j <= len(b); j++ {
			if a[i-1] != b[j-1] {
				continue
			}
			cur[j] = prev[j-1] + 1
			if cur[j] > bestSize {
				bestSize = cur[j]
				bestI, bestJ = i-cur[j], j-cur[j]
			}
		}
		prev = cur
	}
	return bestI, bestJ, bestSize
}
