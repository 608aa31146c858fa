package engine

import (
	"crypto/rand"
	"fmt"
	mrand "math/rand/v2"
	"strings"
)

const (
	// GridSize is the width and height of a bingo card.
	GridSize = 5

	// MaxNumber is the highest number on a card. Numbers run 1..MaxNumber.
	MaxNumber = GridSize * GridSize

	// CodeLength is the length of a room code.
	CodeLength = 6

	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Grid is a player's 5x5 card, row major.
type Grid [GridSize][GridSize]int

// GenerateGrid returns the numbers 1..25 shuffled into a 5x5 card.
func GenerateGrid() Grid {
	numbers := make([]int, MaxNumber)
	for i := range numbers {
		numbers[i] = i + 1
	}
	mrand.Shuffle(len(numbers), func(i, j int) {
		numbers[i], numbers[j] = numbers[j], numbers[i]
	})

	var g Grid
	for i, n := range numbers {
		g[i/GridSize][i%GridSize] = n
	}
	return g
}

// Validate checks that every number 1..25 appears exactly once.
func (g Grid) Validate() error {
	var seen [MaxNumber + 1]bool
	for y, row := range g {
		for x, n := range row {
			if n < 1 || n > MaxNumber {
				return fmt.Errorf("%w: %d at (%d,%d) out of range", ErrInvalidGrid, n, x, y)
			}
			if seen[n] {
				return fmt.Errorf("%w: %d repeated", ErrInvalidGrid, n)
			}
			seen[n] = true
		}
	}
	return nil
}

// Contains reports whether n is on the card.
func (g Grid) Contains(n int) bool {
	for _, row := range g {
		for _, v := range row {
			if v == n {
				return true
			}
		}
	}
	return false
}

// NewRoomCode mints a random 6 character code from A-Z and 0-9.
func NewRoomCode() string {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	out := make([]byte, CodeLength)
	for i := range out {
		out[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(out)
}

// NormalizeCode trims and upper-cases a user supplied room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCode checks a normalized code is CodeLength characters of A-Z, 0-9.
func ValidateCode(code string) error {
	if code == "" {
		return fmt.Errorf("%w: empty", ErrInvalidCode)
	}
	if len(code) != CodeLength {
		return fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	for _, c := range code {
		if !strings.ContainsRune(codeAlphabet, c) {
			return fmt.Errorf("%w: %q", ErrInvalidCode, code)
		}
	}
	return nil
}
