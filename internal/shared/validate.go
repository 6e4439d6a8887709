package shared

import (
	"regexp"
	"strings"
)

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	lowerPattern   = regexp.MustCompile(`[a-z]`)
	numberPattern  = regexp.MustCompile(`\d`)
	specialPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// PasswordChecks records which password requirements a candidate meets.
type PasswordChecks struct {
	Length    bool
	Uppercase bool
	Lowercase bool
	Number    bool
	Special   bool
}

// Score counts the satisfied requirements.
func (p PasswordChecks) Score() int {
	score := 0
	for _, ok := range []bool{p.Length, p.Uppercase, p.Lowercase, p.Number, p.Special} {
		if ok {
			score++
		}
	}
	return score
}

// Valid reports whether every requirement is met.
func (p PasswordChecks) Valid() bool {
	return p.Score() == 5
}

// ValidateEmail reports whether email looks like an address.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// ValidatePassword evaluates password against every requirement.
func ValidatePassword(password string) PasswordChecks {
	return PasswordChecks{
		Length:    len(password) >= MinPasswordLength,
		Uppercase: upperPattern.MatchString(password),
		Lowercase: lowerPattern.MatchString(password),
		Number:    numberPattern.MatchString(password),
		Special:   specialPattern.MatchString(password),
	}
}
