package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/shared"
)

func (d *DevAPI) login(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := DecodeJSON(r, &creds); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := creds.Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	d.mu.Lock()
	u := d.users[d.emails[normalizeEmail(creds.Email)]]
	d.mu.Unlock()

	if u == nil || u.hash == nil || bcrypt.CompareHashAndPassword(u.hash, []byte(creds.Password)) != nil {
		WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	d.mu.Lock()
	token := d.issueToken(u.user.ID)
	user := u.user
	d.mu.Unlock()

	d.logger.Debug("login", "user", user.ID)
	WriteJSON(w, http.StatusOK, models.AuthPayload{User: &user, Token: token, Message: "Login successful"})
}

func (d *DevAPI) register(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := DecodeJSON(r, &reg); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	reg.Name = strings.TrimSpace(reg.Name)
	if err := reg.Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}
	if !shared.ValidateEmail(reg.Email) {
		WriteError(w, http.StatusBadRequest, "Please enter a valid email address")
		return
	}
	if !shared.ValidatePassword(reg.Password).Length {
		WriteError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), d.cost)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	email := normalizeEmail(reg.Email)
	if _, taken := d.emails[email]; taken {
		WriteError(w, http.StatusConflict, "An account with this email already exists")
		return
	}

	u := &devUser{
		user: models.User{ID: "user_" + uuid.New().String(), Name: reg.Name, Email: email, CreatedAt: d.now().UTC()},
		hash: hash,
	}
	d.users[u.user.ID] = u
	d.emails[email] = u.user.ID
	token := d.issueToken(u.user.ID)

	d.logger.Info("registered", "user", u.user.ID, "email", email)
	user := u.user
	WriteJSON(w, http.StatusCreated, models.AuthPayload{User: &user, Token: token, Message: "Account created"})
}

// demo creates a throwaway account without a password.
func (d *DevAPI) demo(w http.ResponseWriter, _ *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := uuid.New().String()
	u := &devUser{user: models.User{
		ID:        "demo_" + id,
		Name:      "Demo Fighter",
		Email:     "demo-" + id[:8] + "@oracle.local",
		IsDemo:    true,
		CreatedAt: d.now().UTC(),
	}}
	d.users[u.user.ID] = u
	d.emails[u.user.Email] = u.user.ID
	token := d.issueToken(u.user.ID)

	user := u.user
	WriteJSON(w, http.StatusOK, models.AuthPayload{User: &user, Token: token, Message: "Demo session started"})
}

// logout revokes the presented token. It succeeds without one.
func (d *DevAPI) logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := bearerToken(r); ok {
		d.mu.Lock()
		delete(d.tokens, token)
		d.mu.Unlock()
	}
	WriteJSON(w, http.StatusOK, ErrorBody{Message: "Logged out"})
}

func (d *DevAPI) refresh(w http.ResponseWriter, r *http.Request, u *devUser) {
	old, _ := bearerToken(r)

	d.mu.Lock()
	delete(d.tokens, old)
	token := d.issueToken(u.user.ID)
	user := u.user
	d.mu.Unlock()

	WriteJSON(w, http.StatusOK, models.AuthPayload{User: &user, Token: token})
}

func (d *DevAPI) verify(w http.ResponseWriter, _ *http.Request, u *devUser) {
	d.mu.Lock()
	user := u.user
	d.mu.Unlock()
	WriteJSON(w, http.StatusOK, models.AuthPayload{User: &user})
}

// requestReset answers the same way for known and unknown addresses.
func (d *DevAPI) requestReset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !shared.ValidateEmail(body.Email) {
		WriteError(w, http.StatusBadRequest, "Please enter a valid email address")
		return
	}

	d.mu.Lock()
	if id, ok := d.emails[normalizeEmail(body.Email)]; ok {
		for token, userID := range d.resets {
			if userID == id {
				delete(d.resets, token)
			}
		}
		token := uuid.New().String()
		d.resets[token] = id
		d.logger.Info("password reset requested", "email", body.Email, "token", token)
	}
	d.mu.Unlock()

	WriteJSON(w, http.StatusOK, ErrorBody{Message: "If an account exists for that email, a reset link has been sent"})
}

func (d *DevAPI) confirmReset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !shared.ValidatePassword(body.Password).Length {
		WriteError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), d.cost)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.resets[body.Token]
	u := d.users[id]
	if !ok || u == nil {
		WriteError(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	delete(d.resets, body.Token)
	u.hash = hash
	d.revokeUser(id)

	WriteJSON(w, http.StatusOK, ErrorBody{Message: "Password has been reset"})
}

func (d *DevAPI) profile(w http.ResponseWriter, _ *http.Request, u *devUser) {
	d.mu.Lock()
	user := u.user
	d.mu.Unlock()
	WriteJSON(w, http.StatusOK, user)
}

func (d *DevAPI) updateProfile(w http.ResponseWriter, r *http.Request, u *devUser) {
	var update models.ProfileUpdate
	if err := DecodeJSON(r, &update); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if update.Email != "" && !shared.ValidateEmail(update.Email) {
		WriteError(w, http.StatusBadRequest, "Please enter a valid email address")
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if update.Email != "" {
		email := normalizeEmail(update.Email)
		if owner, taken := d.emails[email]; taken && owner != u.user.ID {
			WriteError(w, http.StatusConflict, "An account with this email already exists")
			return
		}
		delete(d.emails, u.user.Email)
		d.emails[email] = u.user.ID
		u.user.Email = email
	}
	if name := strings.TrimSpace(update.Name); name != "" {
		u.user.Name = name
	}

	WriteJSON(w, http.StatusOK, u.user)
}
