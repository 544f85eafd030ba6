package deck

import (
	"strings"

	"github.com/pkortright/flashdeck/internal/card"
	"github.com/pkortright/flashdeck/internal/labels"
)

// Query holds the active filter criteria. Zero-valued fields mean "any".
type Query struct {
	// Search is matched case-insensitively as a substring of the card's
	// question, joined categories, and answer
	Search string `json:"search,omitempty"`

	// Category must be present in the card's categories when set
	Category string `json:"category,omitempty"`

	// Difficulty is matched against the card's effective difficulty when set
	Difficulty string `json:"difficulty,omitempty"`

	// Usefulness is matched against the card's effective usefulness when set
	Usefulness string `json:"usefulness,omitempty"`
}

// IsEmpty reports whether no criteria are set.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Search) == "" && q.Category == "" && q.Difficulty == "" && q.Usefulness == ""
}

// ComputeOrder returns the indices of cards satisfying all active criteria,
// preserving card store order. Pure function: no side effects. With an
// all-empty query it returns the identity sequence without scanning, so the
// unfiltered order is always load order.
func ComputeOrder(cards []card.Card, labelMap map[string]labels.Label, q Query) []int {
	if q.IsEmpty() {
		order := make([]int, len(cards))
		for i := range order {
			order[i] = i
		}
		return order
	}

	// Trim and case-fold only: interior whitespace is significant, so a
	// query with a run of spaces still matches text containing the run.
	search := strings.ToLower(strings.TrimSpace(q.Search))

	order := make([]int, 0, len(cards))
	for i := range cards {
		if matches(&cards[i], labelMap, search, q) {
			order = append(order, i)
		}
	}
	return order
}

// matches evaluates all four predicates; a card matches only when every
// active one holds. Difficulty and usefulness compare effective values
// (label override, else card field, else default) so filtering and display
// never diverge.
func matches(c *card.Card, labelMap map[string]labels.Label, search string, q Query) bool {
	if search != "" {
		haystack := strings.ToLower(c.Question + " " + strings.Join(c.Categories, " ") + " " + c.Answer)
		if !strings.Contains(haystack, search) {
			return false
		}
	}

	if q.Category != "" && !containsCategory(c.Categories, q.Category) {
		return false
	}

	var diffOverride, useOverride *string
	if lbl, ok := labelMap[c.ID]; ok {
		diffOverride = lbl.Difficulty
		useOverride = lbl.Usefulness
	}

	if q.Difficulty != "" && c.EffectiveDifficulty(diffOverride) != q.Difficulty {
		return false
	}
	if q.Usefulness != "" && c.EffectiveUsefulness(useOverride) != q.Usefulness {
		return false
	}

	return true
}

func containsCategory(categories []string, want string) bool {
	for _, cat := range categories {
		if cat == want {
			return true
		}
	}
	return false
}
