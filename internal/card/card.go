package card

// Allowed enum values for card judgment fields.
var (
	AllowedDifficulties = []string{"easy", "medium", "hard"}
	AllowedUsefulness   = []string{"useful", "dangerous", "information"}
)

// Defaults applied when a card omits (or mistypes) an enum field.
const (
	DefaultDifficulty = "medium"
	DefaultUsefulness = "useful"
)

// Card represents one flashcard record from the dataset.
// Fields correspond to the cards JSON schema.
type Card struct {
	// ID uniquely identifies the card within a dataset
	ID string `json:"id"`

	// Question is the prompt shown before the answer is revealed
	Question string `json:"question"`

	// Answer is the full answer text (markdown)
	Answer string `json:"answer"`

	// Hints is an ordered list of progressive hints (optional)
	Hints []string `json:"hints,omitempty"`

	// Categories tags the card; order is preserved for display
	Categories []string `json:"categories,omitempty"`

	// Difficulty is one of easy|medium|hard (optional, defaults to medium)
	Difficulty string `json:"difficulty,omitempty"`

	// Usefulness is one of useful|dangerous|information (optional, defaults to useful)
	Usefulness string `json:"usefulness,omitempty"`

	// CreatedAt is an opaque timestamp string, carried through unmodified
	CreatedAt string `json:"created_at,omitempty"`

	// Grasped is a per-card flag from older datasets; the label store is
	// authoritative at runtime. Kept loosely typed so boolean-like strings
	// survive to the linter.
	Grasped any `json:"grasped,omitempty"`

	// Meta holds free-form key-value pairs, round-tripped on export
	Meta map[string]any `json:"meta,omitempty"`
}

// ParseDifficulty returns the normalized difficulty, or DefaultDifficulty
// for empty or unrecognized input. Defaulting applies uniformly: the same
// value drives both display and filtering.
func ParseDifficulty(s string) string {
	v := Normalize(s)
	for _, d := range AllowedDifficulties {
		if v == d {
			return d
		}
	}
	return DefaultDifficulty
}

// ParseUsefulness returns the normalized usefulness, or DefaultUsefulness
// for empty or unrecognized input.
func ParseUsefulness(s string) string {
	v := Normalize(s)
	for _, u := range AllowedUsefulness {
		if v == u {
			return u
		}
	}
	return DefaultUsefulness
}

// EffectiveDifficulty resolves the card's difficulty: override if non-nil,
// else the card's own field, else the default.
func (c *Card) EffectiveDifficulty(override *string) string {
	if override != nil && *override != "" {
		return ParseDifficulty(*override)
	}
	return ParseDifficulty(c.Difficulty)
}

// EffectiveUsefulness resolves the card's usefulness: override if non-nil,
// else the card's own field, else the default.
func (c *Card) EffectiveUsefulness(override *string) string {
	if override != nil && *override != "" {
		return ParseUsefulness(*override)
	}
	return ParseUsefulness(c.Usefulness)
}

// IndexByID builds an id → index map over cards. Duplicate ids resolve to
// the last occurrence, matching documented last-match-wins lookup behavior.
func IndexByID(cards []Card) map[string]int {
	m := make(map[string]int, len(cards))
	for i, c := range cards {
		m[c.ID] = i
	}
	return m
}
