package auth

import "github.com/desertthunder/oracle/internal/shared"

// Strength levels.
const (
	StrengthWeak   = "weak"
	StrengthMedium = "medium"
	StrengthStrong = "strong"
)

// Strength rates a candidate password.
type Strength struct {
	Score    int
	Level    string
	Color    string
	Checks   shared.PasswordChecks
	Feedback []string
}

// CheckPasswordStrength scores password against [shared.ValidatePassword]: 4 or more checks is strong, 3 is medium.
func CheckPasswordStrength(password string) Strength {
	checks := shared.ValidatePassword(password)
	s := Strength{Score: checks.Score(), Level: StrengthWeak, Color: "red", Checks: checks}

	switch {
	case s.Score >= 4:
		s.Level, s.Color = StrengthStrong, "green"
	case s.Score >= 3:
		s.Level, s.Color = StrengthMedium, "yellow"
	}

	if !checks.Length {
		s.Feedback = append(s.Feedback, "Use at least 8 characters")
	}
	if !checks.Uppercase {
		s.Feedback = append(s.Feedback, "Add uppercase letters")
	}
	if !checks.Lowercase {
		s.Feedback = append(s.Feedback, "Add lowercase letters")
	}
	if !checks.Number {
		s.Feedback = append(s.Feedback, "Add numbers")
	}
	if !checks.Special {
		s.Feedback = append(s.Feedback, "Add special characters")
	}
	return s
}
