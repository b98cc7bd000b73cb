package render

import (
	"strings"

	"github.com/xelth-com/catalogbot/internal/models"
)

// FormatSizes renders the size summary used by {sizes}. Simple sizes become
// "S, M, L". A combination grid becomes one "<first axis>: <values>" line per
// first-axis value, preceded by a newline so the block starts on its own line.
func FormatSizes(sizes []models.Size) string {
	simple, lines := splitSizes(sizes)
	if len(lines) > 0 {
		return "\n" + strings.Join(lines, "\n")
	}
	return strings.Join(simple, ", ")
}

// FormatSizesInline renders {sizes_inline}: the same data on a single line
func FormatSizesInline(sizes []models.Size) string {
	simple, lines := splitSizes(sizes)
	if len(lines) > 0 {
		return strings.Join(lines, "; ")
	}
	return strings.Join(simple, ", ")
}

// splitSizes returns simple labels and formatted combination lines.
// Rows whose combination data cannot be decoded are skipped.
func splitSizes(sizes []models.Size) (simple []string, lines []string) {
	for _, s := range sizes {
		if s.DeletedAt.Valid {
			continue
		}
		if !s.IsCombination() {
			if s.SizeValue != nil && *s.SizeValue != "" {
				simple = append(simple, *s.SizeValue)
			}
			continue
		}
		combos, err := s.Combinations()
		if err != nil {
			continue
		}
		for _, first := range models.SortedAxisValues(combos) {
			lines = append(lines, first+": "+strings.Join(combos[first], " "))
		}
	}
	return simple, lines
}
