package legacy

import "testing"

func TestNormalizeMonth(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"2026-03", "2026-03"},
		{"03/2026", "2026-03"},
		{"12/2019", "2019-12"},
		{"mars 2026", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := normalizeMonth(tt.input); got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}
