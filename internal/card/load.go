package card

import (
	"encoding/json"
	"fmt"

	"github.com/pkortright/flashdeck/internal/errors"
)

// Issue codes reported by Load.
const (
	IssueNotObject         = "not_object"
	IssueMissingID         = "missing_id"
	IssueDuplicateID       = "duplicate_id"
	IssueMissingQuestion   = "missing_question"
	IssueMissingAnswer     = "missing_answer"
	IssueBadFieldType      = "bad_field_type"
	IssueUnknownDifficulty = "unknown_difficulty"
	IssueUnknownUsefulness = "unknown_usefulness"
)

// Issue describes one per-record schema violation found while loading.
// Issues never abort a load: the offending record is retained as-is and
// the caller decides whether to surface a partial-success warning.
type Issue struct {
	Index  int    `json:"index"`
	Field  string `json:"field,omitempty"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// LoadResult contains the validated card list plus any per-record issues.
type LoadResult struct {
	Cards  []Card  `json:"cards"`
	Issues []Issue `json:"issues"`
}

// Load validates a parsed JSON array of loosely-typed card records.
// Required fields (id, question, answer) must be non-empty strings; optional
// fields receive documented defaults when read through the Effective helpers.
// Malformed individual records are flagged but kept, so the rest of the
// dataset stays usable.
func Load(raw []json.RawMessage) *LoadResult {
	result := &LoadResult{
		Cards: make([]Card, 0, len(raw)),
	}

	seenIDs := make(map[string]int)

	for i, rec := range raw {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(rec, &fields); err != nil {
			result.Issues = append(result.Issues, Issue{
				Index:  i,
				Code:   IssueNotObject,
				Reason: "card entry must be a JSON object",
			})
			result.Cards = append(result.Cards, Card{})
			continue
		}

		c := decodeFields(i, fields, result)

		if c.ID == "" {
			result.Issues = append(result.Issues, Issue{
				Index:  i,
				Field:  "id",
				Code:   IssueMissingID,
				Reason: "missing or empty 'id'",
			})
		} else if prev, ok := seenIDs[c.ID]; ok {
			result.Issues = append(result.Issues, Issue{
				Index:  i,
				Field:  "id",
				Code:   IssueDuplicateID,
				Reason: fmt.Sprintf("duplicate id %q also at index %d; lookup by id is last-match-wins", c.ID, prev),
			})
			seenIDs[c.ID] = i
		} else {
			seenIDs[c.ID] = i
		}

		if c.Question == "" {
			result.Issues = append(result.Issues, Issue{
				Index:  i,
				Field:  "question",
				Code:   IssueMissingQuestion,
				Reason: "missing or empty 'question'",
			})
		}
		if c.Answer == "" {
			result.Issues = append(result.Issues, Issue{
				Index:  i,
				Field:  "answer",
				Code:   IssueMissingAnswer,
				Reason: "missing or empty 'answer'",
			})
		}

		result.Cards = append(result.Cards, c)
	}

	return result
}

// LoadJSON parses and validates a JSON document expected to hold a card array.
// A top-level shape other than an array is an error, not an issue.
func LoadJSON(data []byte) (*LoadResult, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewLoadFailed("dataset", fmt.Errorf("top-level JSON must be an array of card objects: %w", err))
	}
	return Load(raw), nil
}

// decodeFields coerces the loosely-typed record fields into a Card, flagging
// wrong-typed fields without dropping the record.
func decodeFields(idx int, fields map[string]json.RawMessage, result *LoadResult) Card {
	var c Card

	c.ID = decodeString(idx, fields, "id", result)
	c.Question = decodeString(idx, fields, "question", result)
	c.Answer = decodeString(idx, fields, "answer", result)
	c.Difficulty = decodeString(idx, fields, "difficulty", result)
	c.Usefulness = decodeString(idx, fields, "usefulness", result)
	c.CreatedAt = decodeString(idx, fields, "created_at", result)
	c.Hints = decodeStringSlice(idx, fields, "hints", result)
	c.Categories = decodeStringSlice(idx, fields, "categories", result)

	if raw, ok := fields["grasped"]; ok && !isNull(raw) {
		var g any
		if err := json.Unmarshal(raw, &g); err == nil {
			c.Grasped = g
		}
	}

	if raw, ok := fields["meta"]; ok && !isNull(raw) {
		var meta map[string]any
		if err := json.Unmarshal(raw, &meta); err != nil {
			result.Issues = append(result.Issues, Issue{
				Index:  idx,
				Field:  "meta",
				Code:   IssueBadFieldType,
				Reason: "'meta' must be an object",
			})
		} else {
			c.Meta = meta
		}
	}

	if c.Difficulty != "" && !contains(AllowedDifficulties, Normalize(c.Difficulty)) {
		result.Issues = append(result.Issues, Issue{
			Index:  idx,
			Field:  "difficulty",
			Code:   IssueUnknownDifficulty,
			Reason: fmt.Sprintf("unknown difficulty %q; treated as %q", c.Difficulty, DefaultDifficulty),
		})
	}
	if c.Usefulness != "" && !contains(AllowedUsefulness, Normalize(c.Usefulness)) {
		result.Issues = append(result.Issues, Issue{
			Index:  idx,
			Field:  "usefulness",
			Code:   IssueUnknownUsefulness,
			Reason: fmt.Sprintf("unknown usefulness %q; treated as %q", c.Usefulness, DefaultUsefulness),
		})
	}

	return c
}

func decodeString(idx int, fields map[string]json.RawMessage, name string, result *LoadResult) string {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		result.Issues = append(result.Issues, Issue{
			Index:  idx,
			Field:  name,
			Code:   IssueBadFieldType,
			Reason: fmt.Sprintf("'%s' must be a string", name),
		})
		return ""
	}
	return s
}

func decodeStringSlice(idx int, fields map[string]json.RawMessage, name string, result *LoadResult) []string {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		result.Issues = append(result.Issues, Issue{
			Index:  idx,
			Field:  name,
			Code:   IssueBadFieldType,
			Reason: fmt.Sprintf("'%s' must be an array of strings", name),
		})
		return nil
	}
	out := make([]string, 0, len(items))
	for j, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			result.Issues = append(result.Issues, Issue{
				Index:  idx,
				Field:  fmt.Sprintf("%s[%d]", name, j),
				Code:   IssueBadFieldType,
				Reason: fmt.Sprintf("each entry of '%s' must be a string", name),
			})
			continue
		}
		out = append(out, s)
	}
	return out
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
