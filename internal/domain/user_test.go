package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/mkrupp/taskmanager/internal/domain"
)

func TestRegistration_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		reg     domain.Registration
		wantErr error
	}{
		{
			name:    "valid registration",
			reg:     domain.Registration{Username: "alice", Email: "alice@example.com", Password: "password1"},
			wantErr: nil,
		},
		{
			name:    "missing username",
			reg:     domain.Registration{Email: "alice@example.com", Password: "password1"},
			wantErr: domain.ErrMissingFields,
		},
		{
			name:    "missing password",
			reg:     domain.Registration{Username: "alice", Email: "alice@example.com"},
			wantErr: domain.ErrMissingFields,
		},
		{
			name:    "username too short",
			reg:     domain.Registration{Username: "al", Email: "alice@example.com", Password: "password1"},
			wantErr: domain.ErrInvalidUsername,
		},
		{
			name:    "username too long",
			reg:     domain.Registration{Username: strings.Repeat("a", 31), Email: "alice@example.com", Password: "password1"},
			wantErr: domain.ErrInvalidUsername,
		},
		{
			name:    "malformed email",
			reg:     domain.Registration{Username: "alice", Email: "alice-at-example", Password: "password1"},
			wantErr: domain.ErrInvalidEmail,
		},
		{
			name:    "password too short",
			reg:     domain.Registration{Username: "alice", Email: "alice@example.com", Password: "short"},
			wantErr: domain.ErrPasswordTooShort,
		},
		{
			name:    "password of exactly eight characters",
			reg:     domain.Registration{Username: "alice", Email: "alice@example.com", Password: "12345678"},
			wantErr: nil,
		},
		{
			name:    "password longer than bcrypt accepts",
			reg:     domain.Registration{Username: "alice", Email: "alice@example.com", Password: strings.Repeat("p", 73)},
			wantErr: domain.ErrPasswordTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.reg.Normalize().Validate()
			if !errors.Is(err, tt.wantErr) || (err == nil) != (tt.wantErr == nil) {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Validate() error = %v is not a validation error", err)
			}
		})
	}
}

func TestRegistration_Normalize(t *testing.T) {
	t.Parallel()

	reg := domain.Registration{
		Username: "  Alice ",
		Email:    " Alice@Example.COM ",
		Password: " secret password ",
	}.Normalize()

	if reg.Username != "Alice" {
		t.Errorf("Username = %q, want %q", reg.Username, "Alice")
	}
	if reg.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", reg.Email, "alice@example.com")
	}
	if reg.Password != " secret password " {
		t.Errorf("Password was modified: %q", reg.Password)
	}
}
func TestCredentials_Login(t *testing.T) {
	t.Parallel()

	tests := []struct {
		creds domain.Credentials
		want  string
	}{
		{domain.Credentials{UsernameOrEmail: " bob@example.com "}, "bob@example.com"},
		{domain.Credentials{Username: "bob"}, "bob"},
		{domain.Credentials{UsernameOrEmail: "alice", Username: "bob"}, "alice"},
		{domain.Credentials{UsernameOrEmail: "  ", Username: " bob"}, "bob"},
		{domain.Credentials{}, ""},
	}

	for _, tt := range tests {
		if got := tt.creds.Login(); got != tt.want {
			t.Errorf("%+v.Login() = %q, want %q", tt.creds, got, tt.want)
		}
	}
}

func TestError_Kinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		kind error
	}{
		{domain.ErrUsernameTaken, domain.ErrConflict},
		{domain.ErrEmailTaken, domain.ErrConflict},
		{domain.ErrInvalidCredentials, domain.ErrUnauthenticated},
		{domain.ErrTokenExpired, domain.ErrUnauthenticated},
		{domain.ErrTaskForbidden, domain.ErrForbidden},
		{domain.ErrTaskNotFound, domain.ErrNotFound},
		{domain.ErrEmptyTitle, domain.ErrValidation},
		{domain.ErrWrongCurrentPassword, domain.ErrValidation},
	}

	for _, tt := range tests {
		wrapped := errors.Join(errors.New("driver failure"), tt.err)
		if !errors.Is(wrapped, tt.kind) {
			t.Errorf("%v: expected kind %v", tt.err, tt.kind)
		}

		pub, ok := domain.PublicError(wrapped)
		if !ok || pub != tt.err {
			t.Errorf("PublicError(%v) = %v, %v", wrapped, pub, ok)
		}
	}

	if _, ok := domain.PublicError(errors.New("boom")); ok {
		t.Error("PublicError() found a public error in a plain error")
	}
}
