package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/desertthunder/oracle/internal/models"
)

// AuthResult is the outcome of an auth wrapper. Message is set when Success is false.
type AuthResult struct {
	Success bool
	User    *models.User
	Token   string
	Message string
}

// Login signs in with credentials and persists the returned token.
func (c *Client) Login(ctx context.Context, credentials models.Credentials) AuthResult {
	return c.authenticate(ctx, "/auth/login", credentials, "Login failed")
}

// Register creates an account and persists the returned token.
func (c *Client) Register(ctx context.Context, registration models.Registration) AuthResult {
	return c.authenticate(ctx, "/auth/register", registration, "Registration failed")
}

// DemoLogin starts a demo session and persists the returned token.
func (c *Client) DemoLogin(ctx context.Context) AuthResult {
	return c.authenticate(ctx, "/auth/demo", nil, "Demo login failed")
}

func (c *Client) authenticate(ctx context.Context, path string, body any, fallback string) AuthResult {
	var payload models.AuthPayload
	if err := c.sendJSON(ctx, http.MethodPost, path, body, &payload); err != nil {
		return AuthResult{Message: errorMessage(err, fallback)}
	}

	if payload.Token != "" {
		c.storeToken(payload.Token)
	}

	return AuthResult{Success: true, User: payload.User, Token: payload.Token}
}

// Logout notifies the server and always clears the local token.
func (c *Client) Logout(ctx context.Context) AuthResult {
	if _, err := c.Post(ctx, "/auth/logout", nil); err != nil {
		c.logger.Warn("logout request failed", "error", err)
	}
	c.clearToken()
	return AuthResult{Success: true}
}

// RefreshToken exchanges the current token for a new one. The local token is cleared when the request fails.
func (c *Client) RefreshToken(ctx context.Context) AuthResult {
	var payload models.AuthPayload
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/refresh", nil, &payload); err != nil {
		c.clearToken()
		return AuthResult{Message: errorMessage(err, "")}
	}

	if payload.Token == "" {
		return AuthResult{}
	}

	c.storeToken(payload.Token)
	return AuthResult{Success: true, Token: payload.Token}
}

// VerifyToken checks the current token and returns the user it belongs to.
func (c *Client) VerifyToken(ctx context.Context) AuthResult {
	var payload models.AuthPayload
	if err := c.getJSON(ctx, "/auth/verify", nil, &payload); err != nil {
		return AuthResult{Message: errorMessage(err, "")}
	}
	return AuthResult{Success: true, User: payload.User}
}

// RequestPasswordReset asks the server to email a reset link.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := c.Post(ctx, "/auth/reset-password", map[string]string{"email": email})
	return err
}

// ResetPassword sets a new password using a reset token.
func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	_, err := c.Post(ctx, "/auth/reset-password/confirm", map[string]string{"token": token, "password": password})
	return err
}

func (c *Client) storeToken(token string) {
	if err := c.tokens.SetToken(token); err != nil {
		c.logger.Error("failed to persist token", "error", err)
	}
}

func (c *Client) clearToken() {
	if err := c.tokens.ClearToken(); err != nil {
		c.logger.Error("failed to clear token", "error", err)
	}
}

// errorMessage prefers the server supplied message, then fallback, then the error text.
func errorMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if fallback != "" {
		return fallback
	}
	return err.Error()
}
