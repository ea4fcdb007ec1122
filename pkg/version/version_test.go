package version

import (
	"testing"
)

func TestParseProtocol_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  Protocol
	}{
		{"1.7", Legacy},
		{"1.5", Legacy},
		{"2.0", V2},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := ParseProtocol(tt.input)
			if err != nil {
				t.Fatalf("ParseProtocol(%q) returned error: %v", tt.input, err)
			}
			if v != tt.want {
				t.Errorf("ParseProtocol(%q) = %v, want %v", tt.input, v, tt.want)
			}
		})
	}
}

func TestParseProtocol_Invalid(t *testing.T) {
	tests := []string{
		"",
		"2",
		"abc",
		"3.0",
		"2.x",
		"-1.0",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			if _, err := ParseProtocol(input); err == nil {
				t.Errorf("ParseProtocol(%q) should return error", input)
			}
		})
	}
}

func TestProtocol_String(t *testing.T) {
	if Legacy.String() != "1.7" {
		t.Errorf("Legacy.String() = %q", Legacy.String())
	}
	if V2.String() != "2.0" {
		t.Errorf("V2.String() = %q", V2.String())
	}
	if Current != V2 {
		t.Errorf("Current = %v, want 2.0", Current)
	}
}
