package handlers

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/felixgeelhaar/gptutor/internal/domain"
)

func TestValidator_Struct(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		input   any
		wantErr string
	}{
		{
			name:  "valid registration",
			input: RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "pw", PasswordConfirm: "pw"},
		},
		{
			name:    "missing username",
			input:   RegisterRequest{Email: "alice@example.com", Password: "pw", PasswordConfirm: "pw"},
			wantErr: "username is required",
		},
		{
			name:    "bad email",
			input:   RegisterRequest{Username: "alice", Email: "alice", Password: "pw", PasswordConfirm: "pw"},
			wantErr: "email must be a valid email",
		},
		{
			name:  "reset needs no options",
			input: StartRequest{Action: "reset"},
		},
		{
			name:    "start needs a level",
			input:   StartRequest{Action: "start", Topic: "Go", Duration: "5 minutes"},
			wantErr: "level is required",
		},
		{
			name:    "unknown action",
			input:   StartRequest{Action: "stop"},
			wantErr: "action must be one of: start reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Struct() error = %v", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("Struct() error = %v, want ErrValidation", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Struct() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidator_Decode(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"email":"a@example.com","password":"pw"}`, false},
		{"malformed", `{"email":`, true},
		{"unknown field", `{"email":"a@example.com","password":"pw","admin":true}`, true},
		{"missing password", `{"email":"a@example.com"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			var dst LoginRequest
			err := v.decode(httptest.NewRecorder(), req, &dst)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrValidation) {
				t.Errorf("decode() error = %v, want ErrValidation", err)
			}
		})
	}
}
