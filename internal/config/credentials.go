package config

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// Default credentials selected by the --test flag.
const (
	DefaultTestUser     = "a@a.com"
	DefaultTestPassword = "aaaaaa"
)

// MinPasswordLength is the shortest password the registry accepts.
const MinPasswordLength = 6

// Credentials is a resolved username/password pair.
type Credentials struct {
	Username string
	Password string
}

// CredentialSource resolves account credentials for the orchestrator
// without it knowing whether they came from flags, defaults, or a
// terminal prompt.
type CredentialSource interface {
	// Credentials resolves a full username/password pair.
	Credentials(ctx context.Context) (Credentials, error)

	// Username resolves only a username.
	Username(ctx context.Context) (string, error)

	// Password resolves only a password.
	Password(ctx context.Context) (string, error)
}

// ResolveSource picks the credential source for the given options, in
// mutually exclusive precedence order: explicit flags, test defaults,
// interactive prompt.
func ResolveSource(o *Options) CredentialSource {
	if o.AdminUser != "" && o.AdminPassword != "" {
		return StaticSource{Credentials{Username: o.AdminUser, Password: o.AdminPassword}}
	}
	if o.Test {
		return TestSource{}
	}
	return InteractiveSource{}
}

// ValidateUsername checks the username looks like an email address.
func ValidateUsername(username string) error {
	if !strings.Contains(username, "@") || strings.HasPrefix(username, "@") || strings.HasSuffix(username, "@") {
		return fmt.Errorf("invalid username %q: must be an email address", username)
	}
	return nil
}

// ValidatePassword checks the password meets the registry's minimum.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// HashPassword derives the digest the registry stores and compares.
// Passwords are never transmitted in the clear.
func HashPassword(username, password string) string {
	sum := sha1.Sum([]byte(username + password))
	return hex.EncodeToString(sum[:])
}

// StaticSource returns fixed credentials supplied via flags or a
// deployment file.
type StaticSource struct {
	Value Credentials
}

// Credentials returns the fixed pair after validation.
func (s StaticSource) Credentials(_ context.Context) (Credentials, error) {
	if err := ValidateUsername(s.Value.Username); err != nil {
		return Credentials{}, err
	}
	if err := ValidatePassword(s.Value.Password); err != nil {
		return Credentials{}, err
	}
	return s.Value, nil
}

// Username returns the fixed username.
func (s StaticSource) Username(_ context.Context) (string, error) {
	if err := ValidateUsername(s.Value.Username); err != nil {
		return "", err
	}
	return s.Value.Username, nil
}

// Password returns the fixed password.
func (s StaticSource) Password(_ context.Context) (string, error) {
	if err := ValidatePassword(s.Value.Password); err != nil {
		return "", err
	}
	return s.Value.Password, nil
}

// TestSource returns the well-known test credentials.
type TestSource struct{}

func (TestSource) Credentials(_ context.Context) (Credentials, error) {
	return Credentials{Username: DefaultTestUser, Password: DefaultTestPassword}, nil
}

func (TestSource) Username(_ context.Context) (string, error) {
	return DefaultTestUser, nil
}

func (TestSource) Password(_ context.Context) (string, error) {
	return DefaultTestPassword, nil
}

// InteractiveSource prompts on the terminal. It refuses to prompt when
// stdin is not a terminal so automation fails fast instead of hanging.
type InteractiveSource struct{}

func (InteractiveSource) Credentials(ctx context.Context) (Credentials, error) {
	if err := requireTerminal(); err != nil {
		return Credentials{}, err
	}

	var creds Credentials
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email address").
				Value(&creds.Username).
				Validate(ValidateUsername),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&creds.Password).
				Validate(ValidatePassword),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return Credentials{}, fmt.Errorf("credential prompt failed: %w", err)
	}
	return creds, nil
}

func (s InteractiveSource) Username(ctx context.Context) (string, error) {
	if err := requireTerminal(); err != nil {
		return "", err
	}

	var username string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email address").
				Value(&username).
				Validate(ValidateUsername),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return "", fmt.Errorf("username prompt failed: %w", err)
	}
	return username, nil
}

func (s InteractiveSource) Password(ctx context.Context) (string, error) {
	if err := requireTerminal(); err != nil {
		return "", err
	}

	var password string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(ValidatePassword),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return "", fmt.Errorf("password prompt failed: %w", err)
	}
	return password, nil
}

// Confirm asks a yes/no question on the terminal.
func Confirm(ctx context.Context, question string) (bool, error) {
	if err := requireTerminal(); err != nil {
		return false, err
	}

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Value(&confirmed),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	return confirmed, nil
}

func requireTerminal() error {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return fmt.Errorf("stdin is not a terminal; pass explicit credentials or --test")
	}
	return nil
}
