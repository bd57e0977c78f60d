package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "e1@example.com", false},
		{"Plus Addressing", "first.last+tag@mail.example.org", false},
		{"Mixed Case Kept", "Someone@Example.com", false},
		{"Empty", "", true},
		{"Missing At", "example.com", true},
		{"Missing Domain", "user@", true},
		{"Missing TLD", "user@example", true},
		{"Spaces", "user name@example.com", true},
		{"Too Long", strings.Repeat("a", 250) + "@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Simple", "password_1", false},
		{"Single Character", "x", false},
		{"Exactly Max Bytes", strings.Repeat("a", MaxPasswordBytes), false},
		{"Empty", "", true},
		{"Too Long", strings.Repeat("a", MaxPasswordBytes+1), true},
		{"Multibyte Over Limit", strings.Repeat("é", 37), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePostContent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		title   string
		content string
		wantErr bool
	}{
		{"Valid", "T", "C", false},
		{"Missing Title", "", "C", true},
		{"Blank Title", "   ", "C", true},
		{"Missing Content", "T", "", true},
		{"Title Too Long", strings.Repeat("t", 256), "C", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePostContent(tt.title, tt.content)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
