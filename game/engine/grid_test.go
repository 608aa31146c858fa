package engine

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerateGrid(t *testing.T) {
	for i := 0; i < 50; i++ {
		grid := GenerateGrid()
		if err := grid.Validate(); err != nil {
			t.Fatalf("Generated grid is invalid: %v", err)
		}
	}
}

func TestGridValidate(t *testing.T) {
	var grid Grid
	if err := grid.Validate(); !errors.Is(err, ErrInvalidGrid) {
		t.Errorf("Zero grid should be invalid, got %v", err)
	}

	grid = GenerateGrid()
	grid[0][0], grid[0][1] = grid[0][1], grid[0][1]
	if err := grid.Validate(); !errors.Is(err, ErrInvalidGrid) {
		t.Errorf("Grid with a repeat should be invalid, got %v", err)
	}
}

func TestGridContains(t *testing.T) {
	grid := GenerateGrid()
	for n := 1; n <= MaxNumber; n++ {
		if !grid.Contains(n) {
			t.Errorf("Expected grid to contain %d", n)
		}
	}
	if grid.Contains(0) || grid.Contains(26) {
		t.Error("Grid should not contain numbers outside 1..25")
	}
}

func TestNewRoomCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := NewRoomCode()
		if len(code) != CodeLength {
			t.Fatalf("Expected length %d, got %q", CodeLength, code)
		}
		if code != strings.ToUpper(code) {
			t.Errorf("Expected upper case code, got %q", code)
		}
		if err := ValidateCode(code); err != nil {
			t.Errorf("Minted code %q failed validation: %v", code, err)
		}
		seen[code] = true
	}
	if len(seen) < 90 {
		t.Errorf("Expected mostly unique codes, got %d distinct of 100", len(seen))
	}
}

func TestValidateCode(t *testing.T) {
	tests := []struct {
		code    string
		wantErr bool
	}{
		{"ABC123", false},
		{NormalizeCode(" abc123 "), false},
		{"", true},
		{"AB-123", true},
		{"abc123", true},
		{"AB", true},
		{"ABCDEFG", true},
		{"ABCDEFGHIJ", true},
	}

	for _, test := range tests {
		err := ValidateCode(test.code)
		if (err != nil) != test.wantErr {
			t.Errorf("ValidateCode(%q): wantErr=%v, got %v", test.code, test.wantErr, err)
		}
	}
}
