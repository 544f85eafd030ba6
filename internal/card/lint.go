package card

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Fuzzy-match cutoffs, tuned to match the historical validator behavior.
const (
	enumMatchCutoff     = 0.6  // enum typo → closest allowed value
	categoryMatchCutoff = 0.85 // near-duplicate category pairs
)

// iso8601Regex matches a plain date or a full timestamp with optional
// fractional seconds and zone offset.
var iso8601Regex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(?:[Tt ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+\-]\d{2}:\d{2})?)?$`)

// Suggestion describes one safe fix the linter proposes for a card.
type Suggestion struct {
	Index   int    `json:"index"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Applied bool   `json:"applied,omitempty"`
}

// LintResult contains lint suggestions and, when fixes were applied, the
// fixed copy of the dataset.
type LintResult struct {
	Suggestions []Suggestion `json:"suggestions"`
	Cards       []Card       `json:"cards,omitempty"`
}

// Lint inspects cards for common dataset mistakes (enum typos, category
// hyphenation, disallowed id characters, malformed timestamps) and proposes
// safe fixes. When applyFixes is true the fixes are applied to a copy of the
// dataset, returned in LintResult.Cards; the input is never mutated.
func Lint(cards []Card, applyFixes bool) *LintResult {
	result := &LintResult{}

	var fixed []Card
	if applyFixes {
		fixed = make([]Card, len(cards))
		for i, c := range cards {
			fixed[i] = cloneCard(c)
		}
	}

	categoriesSeen := make(map[string][]int)

	for i, c := range cards {
		lintID(i, c, applyFixes, fixed, result)
		lintEnum(i, "difficulty", c.Difficulty, AllowedDifficulties, applyFixes, fixed, result)
		lintEnum(i, "usefulness", c.Usefulness, AllowedUsefulness, applyFixes, fixed, result)
		lintCategories(i, c, applyFixes, fixed, result, categoriesSeen)
		lintCreatedAt(i, c, applyFixes, fixed, result)
		lintGrasped(i, c, applyFixes, fixed, result)
	}

	lintSimilarCategories(categoriesSeen, result)

	result.Cards = fixed
	return result
}

func lintID(i int, c Card, applyFixes bool, fixed []Card, result *LintResult) {
	if c.ID == "" {
		s := Suggestion{
			Index:   i,
			Field:   "id",
			Message: "missing 'id'; a generated id can be assigned with --fix",
		}
		if applyFixes {
			generated := newID()
			fixed[i].ID = generated
			s.Message = fmt.Sprintf("missing 'id'; assigned generated id %q", generated)
			s.Applied = true
		}
		result.Suggestions = append(result.Suggestions, s)
		return
	}

	if !ValidID(c.ID) {
		suggested := SanitizeID(c.ID)
		s := Suggestion{
			Index:   i,
			Field:   "id",
			Message: fmt.Sprintf("id %q contains disallowed characters; suggested id: %q", c.ID, suggested),
		}
		if applyFixes {
			fixed[i].ID = suggested
			s.Applied = true
		}
		result.Suggestions = append(result.Suggestions, s)
	}
}

func lintEnum(i int, field, value string, allowed []string, applyFixes bool, fixed []Card, result *LintResult) {
	if value == "" {
		return
	}
	norm := Normalize(value)
	if contains(allowed, norm) {
		if norm != value {
			// Case/whitespace-only deviation: trivially fixable.
			s := Suggestion{
				Index:   i,
				Field:   field,
				Message: fmt.Sprintf("%s %q should be %q", field, value, norm),
			}
			if applyFixes {
				setEnumField(&fixed[i], field, norm)
				s.Applied = true
			}
			result.Suggestions = append(result.Suggestions, s)
		}
		return
	}

	match, ok := closestMatch(norm, allowed, enumMatchCutoff)
	if !ok {
		result.Suggestions = append(result.Suggestions, Suggestion{
			Index:   i,
			Field:   field,
			Message: fmt.Sprintf("invalid %s %q; allowed: %s", field, value, strings.Join(allowed, ", ")),
		})
		return
	}

	s := Suggestion{
		Index:   i,
		Field:   field,
		Message: fmt.Sprintf("unknown %s %q; suggest %q", field, value, match),
	}
	if applyFixes {
		setEnumField(&fixed[i], field, match)
		s.Applied = true
	}
	result.Suggestions = append(result.Suggestions, s)
}

func lintCategories(i int, c Card, applyFixes bool, fixed []Card, result *LintResult, seen map[string][]int) {
	for j, cat := range c.Categories {
		normalized := NormalizeCategory(cat)
		seen[normalized] = append(seen[normalized], i)

		if strings.Contains(cat, " ") {
			s := Suggestion{
				Index:   i,
				Field:   fmt.Sprintf("categories[%d]", j),
				Message: fmt.Sprintf("category %q contains spaces; consider hyphenation (%q)", cat, normalized),
			}
			if applyFixes {
				fixed[i].Categories[j] = normalized
				s.Applied = true
			}
			result.Suggestions = append(result.Suggestions, s)
		} else if lowered := strings.ToLower(strings.TrimSpace(cat)); lowered != cat {
			s := Suggestion{
				Index:   i,
				Field:   fmt.Sprintf("categories[%d]", j),
				Message: fmt.Sprintf("category %q should be lowercased (%q)", cat, lowered),
			}
			if applyFixes {
				fixed[i].Categories[j] = lowered
				s.Applied = true
			}
			result.Suggestions = append(result.Suggestions, s)
		}
	}
}

func lintCreatedAt(i int, c Card, applyFixes bool, fixed []Card, result *LintResult) {
	if c.CreatedAt == "" {
		return
	}
	if checkISO8601(c.CreatedAt) {
		return
	}

	s := Suggestion{
		Index:   i,
		Field:   "created_at",
		Message: fmt.Sprintf("'created_at' looks malformed (%q); suggest ISO8601 'YYYY-MM-DD' or a full timestamp", c.CreatedAt),
	}
	// Only plain slash-separated dates are safe to auto-fix.
	if applyFixes {
		if m := regexp.MustCompile(`^(\d{4})[-/](\d{2})[-/](\d{2})$`).FindStringSubmatch(strings.TrimSpace(c.CreatedAt)); m != nil {
			fixed[i].CreatedAt = fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
			s.Applied = true
		}
	}
	result.Suggestions = append(result.Suggestions, s)
}

func lintGrasped(i int, c Card, applyFixes bool, fixed []Card, result *LintResult) {
	if c.Grasped == nil {
		return
	}
	if _, ok := c.Grasped.(bool); ok {
		return
	}

	if str, ok := c.Grasped.(string); ok && boolLike(str) {
		s := Suggestion{
			Index:   i,
			Field:   "grasped",
			Message: fmt.Sprintf("'grasped' is the string %q; suggest boolean %v", str, toBool(str)),
		}
		if applyFixes {
			fixed[i].Grasped = toBool(str)
			s.Applied = true
		}
		result.Suggestions = append(result.Suggestions, s)
		return
	}

	result.Suggestions = append(result.Suggestions, Suggestion{
		Index:   i,
		Field:   "grasped",
		Message: fmt.Sprintf("'grasped' must be a boolean (true/false), got %v", c.Grasped),
	})
}

// boolLike reports whether s spells a boolean ("true", "no", "1", ...).
func boolLike(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "false", "yes", "no", "0", "1":
		return true
	}
	return false
}

// toBool converts a boolean-like string to its boolean value.
func toBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true
	}
	return false
}

// lintSimilarCategories flags near-duplicate category names across the whole
// dataset (typos like "privlege-escalation" vs "privilege-escalation").
func lintSimilarCategories(seen map[string][]int, result *LintResult) {
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}

	for i, a := range names {
		for _, b := range names[i+1:] {
			if similarity(a, b) >= categoryMatchCutoff {
				result.Suggestions = append(result.Suggestions, Suggestion{
					Message: fmt.Sprintf("categories %q and %q look similar; consider normalizing to one of them", a, b),
				})
			}
		}
	}
}

// checkISO8601 reports whether s parses as a plain date or full timestamp.
func checkISO8601(s string) bool {
	if !iso8601Regex.MatchString(s) {
		return false
	}
	if strings.ContainsAny(s, "Tt ") {
		normalized := strings.Replace(strings.Replace(s, "t", "T", 1), " ", "T", 1)
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
			if _, err := time.Parse(layout, strings.Replace(normalized, "Z", "+00:00", 1)); err == nil {
				return true
			}
			if _, err := time.Parse(layout, normalized); err == nil {
				return true
			}
		}
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// closestMatch returns the allowed value most similar to v, if its
// similarity meets the cutoff.
func closestMatch(v string, allowed []string, cutoff float64) (string, bool) {
	best := ""
	bestScore := 0.0
	for _, a := range allowed {
		if score := similarity(v, a); score > bestScore {
			best = a
			bestScore = score
		}
	}
	if bestScore >= cutoff {
		return best, true
	}
	return "", false
}

// similarity returns an edit-distance ratio in [0,1]: 1 for identical strings.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}
	longest := la
	if lb > longest {
		longest = lb
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, min(cur[j-1]+1, prev[j-1]+cost))
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func setEnumField(c *Card, field, value string) {
	switch field {
	case "difficulty":
		c.Difficulty = value
	case "usefulness":
		c.Usefulness = value
	}
}

func cloneCard(c Card) Card {
	out := c
	if c.Hints != nil {
		out.Hints = append([]string(nil), c.Hints...)
	}
	if c.Categories != nil {
		out.Categories = append([]string(nil), c.Categories...)
	}
	if c.Meta != nil {
		out.Meta = make(map[string]any, len(c.Meta))
		for k, v := range c.Meta {
			out.Meta[k] = v
		}
	}
	return out
}

// newID generates a lowercased ULID suitable for the card id charset.
func newID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String())
}
