package deck

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/pkortright/flashdeck/internal/card"
	"github.com/pkortright/flashdeck/internal/labels"
)

func strPtr(s string) *string { return &s }

var filterCards = []card.Card{
	{ID: "a", Question: "What does chmod do?", Answer: "Changes file modes", Categories: []string{"linux", "permissions"}, Difficulty: "easy"},
	{ID: "b", Question: "Explain SQL injection", Answer: "Untrusted input in queries", Categories: []string{"web"}, Difficulty: "hard", Usefulness: "dangerous"},
	{ID: "c", Question: "What is ARP?", Answer: "Address resolution", Categories: []string{"networking"}},
	{ID: "d", Question: "Define RAID 5", Answer: "Striping with parity", Categories: []string{"storage", "linux"}, Difficulty: "medium", Usefulness: "information"},
}

func TestComputeOrder_EmptyQueryFastPath(t *testing.T) {
	order := ComputeOrder(filterCards, nil, Query{})
	if len(order) != len(filterCards) {
		t.Fatalf("len = %d, want %d", len(order), len(filterCards))
	}
	for i, idx := range order {
		if idx != i {
			t.Fatalf("order = %v, want identity sequence", order)
		}
	}
}

func TestComputeOrder_SearchCaseInsensitive(t *testing.T) {
	order := ComputeOrder(filterCards, nil, Query{Search: "  SQL "})
	if len(order) != 1 || order[0] != 1 {
		t.Errorf("order = %v, want [1]", order)
	}
}

func TestComputeOrder_SearchKeepsInteriorWhitespace(t *testing.T) {
	cards := []card.Card{
		{ID: "x", Question: "col1  col2 alignment", Answer: "two spaces between columns"},
	}
	order := ComputeOrder(cards, nil, Query{Search: "col1  col2"})
	if len(order) != 1 || order[0] != 0 {
		t.Errorf("order = %v, want [0]: interior whitespace must not be collapsed", order)
	}
	if order := ComputeOrder(cards, nil, Query{Search: "col1 col2"}); len(order) != 0 {
		t.Errorf("order = %v, want no match for a single-space query", order)
	}
}

func TestComputeOrder_SearchSpansCategories(t *testing.T) {
	// "networking" appears only in card c's categories.
	order := ComputeOrder(filterCards, nil, Query{Search: "networking"})
	if len(order) != 1 || order[0] != 2 {
		t.Errorf("order = %v, want [2]", order)
	}
}

func TestComputeOrder_CategoryExactMatch(t *testing.T) {
	order := ComputeOrder(filterCards, nil, Query{Category: "linux"})
	if len(order) != 2 || order[0] != 0 || order[1] != 3 {
		t.Errorf("order = %v, want [0 3] in load order", order)
	}
}

func TestComputeOrder_DifficultyUsesDefaults(t *testing.T) {
	// Card c has no difficulty; it defaults to medium for filtering too.
	order := ComputeOrder(filterCards, nil, Query{Difficulty: "medium"})
	if len(order) != 2 || order[0] != 2 || order[1] != 3 {
		t.Errorf("order = %v, want [2 3]", order)
	}
}

func TestComputeOrder_LabelOverrideAffectsFilter(t *testing.T) {
	labelMap := map[string]labels.Label{
		"a": {Difficulty: strPtr("hard")},
	}
	order := ComputeOrder(filterCards, labelMap, Query{Difficulty: "hard"})
	if len(order) != 2 || order[0] != 0 || order[1] != 1 {
		t.Errorf("order = %v, want [0 1] (override promotes card a)", order)
	}
}

func TestComputeOrder_AllPredicatesConjoin(t *testing.T) {
	order := ComputeOrder(filterCards, nil, Query{Search: "parity", Category: "linux", Difficulty: "medium", Usefulness: "information"})
	if len(order) != 1 || order[0] != 3 {
		t.Errorf("order = %v, want [3]", order)
	}

	order = ComputeOrder(filterCards, nil, Query{Search: "parity", Category: "web"})
	if len(order) != 0 {
		t.Errorf("order = %v, want empty (predicates conjoin)", order)
	}
}

func TestComputeOrder_EmptyResultIsValid(t *testing.T) {
	order := ComputeOrder(filterCards, nil, Query{Search: "no such text anywhere"})
	if order == nil {
		t.Fatal("order = nil, want non-nil empty slice")
	}
	if len(order) != 0 {
		t.Errorf("order = %v, want empty", order)
	}
}

func TestComputeOrder_HardScenario(t *testing.T) {
	cards := []card.Card{
		{ID: "a", Question: "Q1", Answer: "A1", Difficulty: "easy"},
		{ID: "b", Question: "Q2", Answer: "A2", Difficulty: "hard"},
	}
	order := ComputeOrder(cards, nil, Query{Difficulty: "hard"})
	if len(order) != 1 || order[0] != 1 {
		t.Fatalf("order = %v, want [1]", order)
	}

	d := SetOrder(order)
	idx, ok := d.Current()
	if !ok || cards[idx].ID != "b" {
		t.Errorf("current card = %v, want b", cards[idx].ID)
	}
}

// TestComputeOrder_MatchesBruteForce cross-checks the filter against a
// reference predicate over randomly generated cards and queries.
func TestComputeOrder_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1234))
	difficulties := []string{"", "easy", "medium", "hard", "bogus"}
	usefulnesses := []string{"", "useful", "dangerous", "information"}
	categories := []string{"linux", "web", "networking", "storage"}
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon"}

	for trial := 0; trial < 50; trial++ {
		n := rng.Intn(20)
		cards := make([]card.Card, n)
		labelMap := make(map[string]labels.Label)
		for i := range cards {
			cards[i] = card.Card{
				ID:         fmt.Sprintf("c-%d", i),
				Question:   words[rng.Intn(len(words))] + " " + words[rng.Intn(len(words))],
				Answer:     words[rng.Intn(len(words))],
				Difficulty: difficulties[rng.Intn(len(difficulties))],
				Usefulness: usefulnesses[rng.Intn(len(usefulnesses))],
			}
			if rng.Intn(2) == 0 {
				cards[i].Categories = []string{categories[rng.Intn(len(categories))]}
			}
			if rng.Intn(3) == 0 {
				labelMap[cards[i].ID] = labels.Label{
					Difficulty: strPtr(difficulties[1+rng.Intn(3)]),
					Grasped:    rng.Intn(2) == 0,
				}
			}
		}

		q := Query{}
		if rng.Intn(2) == 0 {
			q.Search = words[rng.Intn(len(words))]
		}
		if rng.Intn(2) == 0 {
			q.Category = categories[rng.Intn(len(categories))]
		}
		if rng.Intn(2) == 0 {
			q.Difficulty = []string{"easy", "medium", "hard"}[rng.Intn(3)]
		}
		if rng.Intn(2) == 0 {
			q.Usefulness = []string{"useful", "dangerous", "information"}[rng.Intn(3)]
		}

		got := ComputeOrder(cards, labelMap, q)

		var want []int
		for i := range cards {
			if referenceMatch(&cards[i], labelMap, q) {
				want = append(want, i)
			}
		}

		if len(got) != len(want) {
			t.Fatalf("trial %d: got %v, want %v (query %+v)", trial, got, want, q)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("trial %d: got %v, want %v (query %+v)", trial, got, want, q)
			}
		}
	}
}

// referenceMatch is a deliberately naive restatement of the filter rules.
func referenceMatch(c *card.Card, labelMap map[string]labels.Label, q Query) bool {
	if s := strings.TrimSpace(strings.ToLower(q.Search)); s != "" {
		hay := strings.ToLower(c.Question + " " + strings.Join(c.Categories, " ") + " " + c.Answer)
		if !strings.Contains(hay, s) {
			return false
		}
	}
	if q.Category != "" {
		found := false
		for _, cat := range c.Categories {
			if cat == q.Category {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	lbl, hasLabel := labelMap[c.ID]
	if q.Difficulty != "" {
		eff := card.ParseDifficulty(c.Difficulty)
		if hasLabel && lbl.Difficulty != nil && *lbl.Difficulty != "" {
			eff = card.ParseDifficulty(*lbl.Difficulty)
		}
		if eff != q.Difficulty {
			return false
		}
	}
	if q.Usefulness != "" {
		eff := card.ParseUsefulness(c.Usefulness)
		if hasLabel && lbl.Usefulness != nil && *lbl.Usefulness != "" {
			eff = card.ParseUsefulness(*lbl.Usefulness)
		}
		if eff != q.Usefulness {
			return false
		}
	}
	return true
}
