package sanitize

import "testing"

func TestForLogFileName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", "agent"},
		{"simple name", "plan", "plan"},
		{"nested path", "core/review", "core-review"},
		{"windows separators", `core\\review`, "core-review"},
		{"uppercase and spaces", "Bug Hunter", "bug-hunter"},
		{"special characters", "qa@v2#final", "qa-v2-final"},
		{"multiple dashes", "a---b", "a-b"},
		{"leading and trailing junk", "/agents/", "agents"},
		{"only junk", "@@@", "agent"},
		{"keeps dots and underscores", "spec_v1.2", "spec_v1.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ForLogFileName(tt.input)
			if result != tt.expected {
				t.Errorf("ForLogFileName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo world", 5); got != "héllo" {
		t.Errorf("Truncate by runes = %q, want %q", got, "héllo")
	}
	if got := Truncate("short", 200); got != "short" {
		t.Errorf("Truncate should keep short strings, got %q", got)
	}
	if got := Truncate("anything", 0); got != "" {
		t.Errorf("Truncate with zero max should be empty, got %q", got)
	}
}
