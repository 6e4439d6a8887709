package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/oracle/internal/models"
	"github.com/desertthunder/oracle/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin signs in with email and password and stores the token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	credentials := models.Credentials{
		Email:    cmd.String("email"),
		Password: cmd.String("password"),
		Remember: cmd.Bool("remember"),
	}
	r.logger.Info("signing in", "email", credentials.Email)

	result := r.auth.Login(ctx, credentials)
	if !result.Success {
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, result.Message)
	}
	return r.writeWelcome()
}

// AuthRegister creates an account and signs in.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	registration := models.Registration{
		Name:     cmd.String("name"),
		Email:    cmd.String("email"),
		Password: cmd.String("password"),
	}
	r.logger.Info("registering", "email", registration.Email)

	result := r.auth.Register(ctx, registration)
	if !result.Success {
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, result.Message)
	}
	return r.writeWelcome()
}

// AuthDemo starts a demo session.
func (r *Runner) AuthDemo(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	result := r.auth.DemoLogin(ctx)
	if !result.Success {
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, result.Message)
	}
	return r.writeWelcome()
}

// AuthLogout signs out on the server and clears the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	if !r.auth.IsUserAuthenticated() && r.client.Tokens().Token() == "" {
		return r.writePlain("Not signed in\n")
	}
	r.auth.Logout(ctx)
	r.logger.Info("signed out")
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus restores the stored session and shows who is signed in.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	r.logger.Info("checking auth status")
	if !r.auth.Init(ctx) {
		return r.writePlain("Authentication: ✗ Not signed in\n")
	}

	user := r.auth.CurrentUser()
	r.writePlain("Authentication: ✓ Signed in\n")
	r.writePlain("Name: %s\n", user.Name)
	r.writePlain("Email: %s\n", user.Email)
	if r.auth.IsDemoSession() || user.IsDemo {
		r.writePlain("Demo session: yes\n")
	}
	return nil
}

// AuthVerify checks the stored token against the API without touching the session.
func (r *Runner) AuthVerify(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	if r.client.Tokens().Token() == "" {
		return fmt.Errorf("%w: no stored token", shared.ErrNotAuthenticated)
	}

	result := r.client.VerifyToken(ctx)
	if !result.Success {
		return fmt.Errorf("%w: %s", shared.ErrTokenExpired, result.Message)
	}
	name := "unknown user"
	if result.User != nil {
		name = result.User.Email
	}
	return r.writePlain("✓ Token valid for %s\n", name)
}

// AuthReset requests a password reset email.
func (r *Runner) AuthReset(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	result := r.auth.RequestPasswordReset(ctx, cmd.String("email"))
	if !result.Success {
		return fmt.Errorf("%w: %s", shared.ErrInvalidInput, result.Message)
	}
	return r.writePlain("✓ %s\n", result.Message)
}

func (r *Runner) writeWelcome() error {
	user := r.auth.CurrentUser()
	if user == nil {
		return r.writePlain("✓ Signed in\n")
	}
	r.logger.Info("authentication successful", "user", user.ID)
	return r.writePlain("✓ Signed in as %s <%s>\n", user.Name, user.Email)
}
