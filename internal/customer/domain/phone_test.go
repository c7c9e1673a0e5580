package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"digits only", "5551234567", "5551234567"},
		{"international prefix", "+15551234567", "+15551234567"},
		{"formatting stripped", "(555) 123-4567", "5551234567"},
		{"dots and spaces stripped", "555.123 4567", "5551234567"},
		{"leading whitespace", "  +44 20 7946 0958 ", "+442079460958"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.input)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePhone_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"letters", "555-CALL-NOW"},
		{"too short", "123456"},
		{"too long", "12345678901234567"},
		{"plus not leading", "555+1234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizePhone(tt.input)
			assert.ErrorIs(t, err, ErrInvalidPhone)
		})
	}
}
