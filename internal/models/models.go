package models

import (
	"fmt"
	"time"
)

// Validator is implemented by models that accept user input.
type Validator interface {
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// User is an authenticated account.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsDemo    bool      `json:"is_demo,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// DisplayName returns the user's name, falling back to fallback when empty.
func (u *User) DisplayName(fallback string) string {
	if u == nil || u.Name == "" {
		return fallback
	}
	return u.Name
}

// Credentials are the login form fields.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

// Validate checks that both fields are present.
func (c Credentials) Validate() error {
	if c.Email == "" || c.Password == "" {
		return fmt.Errorf("email and password are required")
	}
	return nil
}

// Registration is the account creation form.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks that every field is present.
func (r Registration) Validate() error {
	if r.Name == "" || r.Email == "" || r.Password == "" {
		return fmt.Errorf("name, email and password are required")
	}
	return nil
}

// ProfileUpdate carries editable profile fields. Empty fields are left unchanged.
type ProfileUpdate struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// AuthPayload is the body returned by the login, register, demo and refresh endpoints.
type AuthPayload struct {
	User    *User  `json:"user,omitempty"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

// UserStats are the dashboard totals for a user.
type UserStats struct {
	TotalSessions     int `json:"totalSessions"`
	TrainingTime      int `json:"trainingTime"` // minutes
	TechniquesLearned int `json:"techniquesLearned"`
	CurrentStreak     int `json:"currentStreak"`
}

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Status  string    `json:"status"`
	Version string    `json:"version,omitempty"`
	Time    time.Time `json:"time,omitzero"`
}
