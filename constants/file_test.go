package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"receipts/2024-01-05.html", FormatHTML, true},
		{"receipts/old.HTM", FormatHTML, true},
		{"ticket.json", FormatJSON, true},
		{"receipts/2024-01-05.meta.json", "", false},
		{"receipt.pdf", "", false},
		{"README", "", false},
	}
	for _, tt := range tests {
		got, ok := FormatForPath(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}
