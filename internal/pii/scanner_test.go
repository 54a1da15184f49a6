package pii_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/darshil0/ai-testing/internal/pii"
)

func TestScanEmail(t *testing.T) {
	s := pii.New(context.Background(), map[string]string{
		"email": `[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`,
	})
	found, types := s.Scan("My email is test@example.com")
	assert.True(t, found)
	assert.Equal(t, []string{"email"}, types)
}

func TestScanDefaults(t *testing.T) {
	s := pii.New(context.Background(), pii.DefaultPatterns())

	tests := []struct {
		name  string
		text  string
		found bool
		types []string
	}{
		{"clean", "The capital of France is Paris.", false, nil},
		{"ssn", "SSN on file: 123-45-6789", true, []string{"ssn"}},
		{"phone", "Call me at 555-123-4567 tomorrow", true, []string{"phone"}},
		{"email and card", "a@b.io paid with 4111 1111 1111 1111", true, []string{"credit_card", "email"}},
		{"empty", "", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, types := s.Scan(tt.text)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.types, types)
		})
	}
}

func TestInvalidPatternSkipped(t *testing.T) {
	s := pii.New(context.Background(), map[string]string{
		"broken": `([a-z`,
		"digits": `\d{4}`,
	})
	assert.Equal(t, []string{"digits"}, s.Names())

	found, types := s.Scan("pin 1234")
	assert.True(t, found)
	assert.Equal(t, []string{"digits"}, types)
}

func TestNilScanner(t *testing.T) {
	var s *pii.Scanner
	found, types := s.Scan("test@example.com")
	assert.False(t, found)
	assert.Empty(t, types)
}
