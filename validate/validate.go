// Command validate checks the room files written by the file store. For each
// <CODE>.json in the rooms directory it verifies:
//   - JSON structure and a well-formed code matching the file name
//   - Player 1 is seated (every room is created with one)
//   - Each seated player has a card holding 1..25 exactly once, and empty
//     seats have no card
//   - The current turn is empty or a known player
//   - Rematch votes name known players at most once each
//
// Usage: validate [rooms-dir] (default "rooms")
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wricardo/bingo-duel/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateRoom loads and validates a single room file.
func validateRoom(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var room engine.Room
	if err := json.Unmarshal(data, &room); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	// Code
	if err := engine.ValidateCode(room.Code); err != nil {
		result.fail("Bad code %q: %v", room.Code, err)
	}
	if want := strings.TrimSuffix(result.File, ".json"); room.Code != want {
		result.fail("Code %q does not match file name %s", room.Code, result.File)
	}

	// Seats and cards
	if !room.Occupied(engine.Player1) {
		result.fail("Player 1 seat is empty")
	}
	for _, slot := range engine.Slots {
		grid, hasGrid := room.Grids[slot]
		switch {
		case room.Occupied(slot) && !hasGrid:
			result.fail("%s is seated but has no card", slot.DisplayName())
		case !room.Occupied(slot) && hasGrid:
			result.fail("%s seat is empty but has a card", slot.DisplayName())
		case hasGrid:
			if err := grid.Validate(); err != nil {
				result.fail("%s card: %v", slot.DisplayName(), err)
			}
		}
	}
	for slot := range room.Grids {
		if !slot.Valid() {
			result.fail("Card for unknown player %q", slot)
		}
	}

	// Turn
	if room.CurrentTurn != engine.NoSlot && !room.CurrentTurn.Valid() {
		result.fail("current_turn %q is not a player", room.CurrentTurn)
	}

	// Rematch votes
	seen := make(map[engine.Slot]bool)
	for _, vote := range room.RematchVotes {
		if !vote.Valid() {
			result.fail("Rematch vote for unknown player %q", vote)
			continue
		}
		if seen[vote] {
			result.fail("Duplicate rematch vote for %s", vote.DisplayName())
		}
		seen[vote] = true
	}

	// Timestamps
	if room.CreatedAt.IsZero() {
		result.fail("created_at is missing")
	} else if room.UpdatedAt.Before(room.CreatedAt) {
		result.fail("updated_at (%s) is before created_at (%s)",
			room.UpdatedAt.Format(time.RFC3339), room.CreatedAt.Format(time.RFC3339))
	}

	// Add informational data
	if result.Valid {
		turn := "not started"
		if room.CurrentTurn != engine.NoSlot {
			turn = room.CurrentTurn.DisplayName()
		}
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Code: %s", room.Code))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Players: %d/2", room.PlayersCount()))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Turn: %s", turn))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Rematch votes: %d", len(room.RematchVotes)))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Last update: %s", room.UpdatedAt.Format(time.RFC3339)))
	}

	return result
}

// validateDir validates every room file in dir. It reports whether all of
// them are valid.
func validateDir(dir string) ([]ValidationResult, bool, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, false, fmt.Errorf("error finding room files: %w", err)
	}

	allValid := true
	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		result := validateRoom(file)
		if !result.Valid {
			allValid = false
		}
		results = append(results, result)
	}
	return results, allValid, nil
}

// main validates the rooms directory, printing a concise report and exiting
// with non-zero status if any room is invalid.
func main() {
	dir := "rooms"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	results, allValid, err := validateDir(dir)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	for _, result := range results {
		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
			continue
		}

		fmt.Println("❌ INVALID")
		for _, err := range result.Errors {
			fmt.Println("  ❌ " + err)
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	switch {
	case len(results) == 0:
		fmt.Printf("No room files in %s\n", dir)
	case allValid:
		fmt.Printf("✅ All %d rooms are valid!\n", len(results))
	default:
		fmt.Println("❌ Some rooms have errors")
		os.Exit(1)
	}
}
