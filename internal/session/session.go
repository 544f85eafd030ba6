// Package session implements the controller that composes the card store,
// label store, and deck. It is the only component that touches both cards
// and labels; the deck and filter stay pure underneath it.
package session

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/pkortright/flashdeck/internal/card"
	"github.com/pkortright/flashdeck/internal/config"
	"github.com/pkortright/flashdeck/internal/deck"
	"github.com/pkortright/flashdeck/internal/errors"
	"github.com/pkortright/flashdeck/internal/labels"
)

// MaxIssueSample caps the issues included verbatim in load/import outputs;
// the full count is always reported.
const MaxIssueSample = 10

// Session owns the loaded card store, the in-memory label cache, and the
// deck. All exported methods are safe for concurrent use; suspension points
// (fetch, label writes, import reads) happen outside the lock and commit
// under a generation check so a superseded load can never overwrite state
// established by a newer one.
type Session struct {
	mu    sync.Mutex
	cfg   *config.Config
	store *labels.Store

	cards  []card.Card
	byID   map[string]int
	labels map[string]labels.Label
	deck   deck.Deck
	query  deck.Query
	issues []card.Issue
	source string
	loaded bool

	gen uint64
	rng *rand.Rand
}

// New creates a session over the given collaborators. The label store is
// required; cfg may be nil for defaults.
func New(store *labels.Store, cfg *config.Config) *Session {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Session{
		cfg:   cfg,
		store: store,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// OptionCount is one distinct filter option value with its occurrence count.
type OptionCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Options is the filter option universe derived from the loaded dataset.
type Options struct {
	Categories   []OptionCount `json:"categories"`
	Difficulties []OptionCount `json:"difficulties"`
	Usefulness   []OptionCount `json:"usefulness"`
}

// Stats aggregates over the loaded dataset. Grasped counts labels with
// grasped=true across the entire card store, not just the filtered subset.
type Stats struct {
	Total   int `json:"total"`
	Shown   int `json:"shown"`
	Grasped int `json:"grasped"`
}

// CardView is the displayed card plus its label overlay and position.
type CardView struct {
	Card                card.Card     `json:"card"`
	Label               *labels.Label `json:"label,omitempty"`
	EffectiveDifficulty string        `json:"effective_difficulty"`
	EffectiveUsefulness string        `json:"effective_usefulness"`
	Position            int           `json:"position"` // 1-based within the shown order
	Shown               int           `json:"shown"`
}

// LoadOutput contains the result of a dataset load.
type LoadOutput struct {
	Source     string       `json:"source"`
	Count      int          `json:"count"`
	IssueCount int          `json:"issue_count"`
	Issues     []card.Issue `json:"issues,omitempty"` // sample, up to MaxIssueSample
	Stats      Stats        `json:"stats"`
}

// LoadDataset fetches, validates, and installs a dataset from a file path or
// http(s) URL. Per-record issues do not abort the load; the caller surfaces
// them as a partial-success warning. A load that is superseded by a newer
// one before committing returns CANCELLED and changes nothing.
func (s *Session) LoadDataset(ctx context.Context, source string) (*LoadOutput, error) {
	if source == "" {
		source = s.cfg.Dataset
	}

	gen := s.nextGen()

	timeout := time.Duration(s.cfg.FetchTimeoutSecs) * time.Second
	data, err := FetchDataset(ctx, source, timeout)
	if err != nil {
		return nil, err
	}

	result, err := card.LoadJSON(data)
	if err != nil {
		return nil, err
	}

	labelMap, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.commit(gen, source, result, labelMap); err != nil {
		return nil, err
	}

	return s.loadOutput(source, result), nil
}

// nextGen bumps the load generation and returns the new value.
func (s *Session) nextGen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

// commit installs a fetched dataset, unless a newer load has started since
// gen was taken. The active filter always resets to the empty query.
func (s *Session) commit(gen uint64, source string, result *card.LoadResult, labelMap map[string]labels.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		return errors.NewCancelled("dataset load")
	}

	s.cards = result.Cards
	s.byID = card.IndexByID(result.Cards)
	s.labels = labelMap
	s.issues = result.Issues
	s.source = source
	s.loaded = true
	s.query = deck.Query{}
	s.deck = deck.SetOrder(deck.ComputeOrder(s.cards, s.labels, s.query))
	if s.cfg.ShuffleOnLoad {
		s.deck = s.deck.Shuffle(s.rng)
	}
	return nil
}

func (s *Session) loadOutput(source string, result *card.LoadResult) *LoadOutput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &LoadOutput{
		Source:     source,
		Count:      len(result.Cards),
		IssueCount: len(result.Issues),
		Issues:     sampleIssues(result.Issues),
		Stats:      s.statsLocked(),
	}
}

// FilterOutput contains the result of a filter change.
type FilterOutput struct {
	Query     deck.Query `json:"query"`
	Shown     int        `json:"shown"`
	Total     int        `json:"total"`
	NoMatches bool       `json:"no_matches"`
}

// SetFilter recomputes the order for q and repositions the deck at the
// start. An empty result is a valid "no matches" state, not an error.
func (s *Session) SetFilter(q deck.Query) (*FilterOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return nil, errors.NewNoDataset()
	}

	s.query = q
	s.deck = deck.SetOrder(deck.ComputeOrder(s.cards, s.labels, q))

	return &FilterOutput{
		Query:     q,
		Shown:     s.deck.Len(),
		Total:     len(s.cards),
		NoMatches: s.deck.Empty(),
	}, nil
}

// Query returns the active filter.
func (s *Session) Query() deck.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Current returns the card under the cursor with its label overlay.
func (s *Session) Current() (*CardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

// Next advances to the next card with wraparound and returns it.
func (s *Session) Next() (*CardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, errors.NewNoDataset()
	}
	s.deck = s.deck.Next()
	return s.currentLocked()
}

// Prev retreats to the previous card with wraparound and returns it.
func (s *Session) Prev() (*CardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, errors.NewNoDataset()
	}
	s.deck = s.deck.Prev()
	return s.currentLocked()
}

// Shuffle randomly permutes the current order and repositions at the start.
func (s *Session) Shuffle() (*CardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, errors.NewNoDataset()
	}
	s.deck = s.deck.Shuffle(s.rng)
	return s.currentLocked()
}

// Reset moves the cursor back to the start of the current order.
func (s *Session) Reset() (*CardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, errors.NewNoDataset()
	}
	s.deck = s.deck.Reset()
	return s.currentLocked()
}

func (s *Session) currentLocked() (*CardView, error) {
	if !s.loaded {
		return nil, errors.NewNoDataset()
	}
	idx, ok := s.deck.Current()
	if !ok {
		return nil, errors.NewNoCard()
	}
	return s.viewLocked(idx, s.deck.Cursor+1), nil
}

// viewLocked builds the view for the card at store index idx, shown at the
// given 1-based position within the current order.
func (s *Session) viewLocked(idx, position int) *CardView {
	c := s.cards[idx]
	view := &CardView{
		Card:                c,
		EffectiveDifficulty: c.EffectiveDifficulty(nil),
		EffectiveUsefulness: c.EffectiveUsefulness(nil),
		Position:            position,
		Shown:               s.deck.Len(),
	}
	if lbl, ok := s.labels[c.ID]; ok {
		l := lbl
		view.Label = &l
		view.EffectiveDifficulty = c.EffectiveDifficulty(lbl.Difficulty)
		view.EffectiveUsefulness = c.EffectiveUsefulness(lbl.Usefulness)
	}
	return view
}

// Views returns a view for every card in the current order. An empty slice
// is a valid "no matches" result, not an error.
func (s *Session) Views() ([]*CardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, errors.NewNoDataset()
	}
	out := make([]*CardView, 0, s.deck.Len())
	for pos, idx := range s.deck.Order {
		out = append(out, s.viewLocked(idx, pos+1))
	}
	return out, nil
}

// LabelOutput contains the result of a label edit.
type LabelOutput struct {
	ID    string       `json:"id"`
	Label labels.Label `json:"label"`
	Stats Stats        `json:"stats"`
}

// ToggleGrasped flips the grasped flag for the card with the given id, or
// the current card when id is empty. The mutation is persisted immediately.
func (s *Session) ToggleGrasped(ctx context.Context, id string) (*LabelOutput, error) {
	s.mu.Lock()
	id, err := s.resolveIDLocked(id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	grasped := !s.labels[id].Grasped
	s.mu.Unlock()

	return s.applyLabel(ctx, id, labels.Patch{Grasped: &grasped})
}

// SetDifficulty records a difficulty override for the card.
func (s *Session) SetDifficulty(ctx context.Context, id, value string) (*LabelOutput, error) {
	v := card.Normalize(value)
	if !validEnum(v, card.AllowedDifficulties) {
		return nil, errors.NewInvalidRequest("difficulty must be one of: easy, medium, hard")
	}

	s.mu.Lock()
	id, err := s.resolveIDLocked(id)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return s.applyLabel(ctx, id, labels.Patch{Difficulty: &v})
}

// SetUsefulness records a usefulness override for the card.
func (s *Session) SetUsefulness(ctx context.Context, id, value string) (*LabelOutput, error) {
	v := card.Normalize(value)
	if !validEnum(v, card.AllowedUsefulness) {
		return nil, errors.NewInvalidRequest("usefulness must be one of: useful, dangerous, information")
	}

	s.mu.Lock()
	id, err := s.resolveIDLocked(id)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return s.applyLabel(ctx, id, labels.Patch{Usefulness: &v})
}

// applyLabel persists the patch, then updates the in-memory cache. On a
// persistence failure the cache keeps the last-known-good label: the edit
// failed and everything else is unaffected.
func (s *Session) applyLabel(ctx context.Context, id string, patch labels.Patch) (*LabelOutput, error) {
	merged, err := s.store.Set(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels[id] = merged

	return &LabelOutput{
		ID:    id,
		Label: merged,
		Stats: s.statsLocked(),
	}, nil
}

// resolveIDLocked maps an empty id to the current card's id and verifies a
// non-empty id exists in the card store.
func (s *Session) resolveIDLocked(id string) (string, error) {
	if !s.loaded {
		return "", errors.NewNoDataset()
	}
	if id == "" {
		idx, ok := s.deck.Current()
		if !ok {
			return "", errors.NewNoCard()
		}
		return s.cards[idx].ID, nil
	}
	if _, ok := s.byID[id]; !ok {
		return "", errors.NewNotFound(id)
	}
	return id, nil
}

// Stats returns the current aggregate counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *Session) statsLocked() Stats {
	grasped := 0
	for _, c := range s.cards {
		if s.labels[c.ID].Grasped {
			grasped++
		}
	}
	return Stats{
		Total:   len(s.cards),
		Shown:   s.deck.Len(),
		Grasped: grasped,
	}
}

// Options derives the filter option universe: distinct categories with
// occurrence counts sorted ascending lexicographically, and effective
// difficulty/usefulness counts in their canonical enum order.
func (s *Session) Options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()

	catCounts := make(map[string]int)
	diffCounts := make(map[string]int)
	useCounts := make(map[string]int)

	for _, c := range s.cards {
		for _, cat := range c.Categories {
			catCounts[cat]++
		}
		var diffOverride, useOverride *string
		if lbl, ok := s.labels[c.ID]; ok {
			diffOverride = lbl.Difficulty
			useOverride = lbl.Usefulness
		}
		diffCounts[c.EffectiveDifficulty(diffOverride)]++
		useCounts[c.EffectiveUsefulness(useOverride)]++
	}

	categories := make([]OptionCount, 0, len(catCounts))
	for value, count := range catCounts {
		categories = append(categories, OptionCount{Value: value, Count: count})
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Value < categories[j].Value })

	return Options{
		Categories:   categories,
		Difficulties: enumCounts(card.AllowedDifficulties, diffCounts),
		Usefulness:   enumCounts(card.AllowedUsefulness, useCounts),
	}
}

// enumCounts lists allowed values in canonical order, including zero counts.
func enumCounts(allowed []string, counts map[string]int) []OptionCount {
	out := make([]OptionCount, 0, len(allowed))
	for _, v := range allowed {
		out = append(out, OptionCount{Value: v, Count: counts[v]})
	}
	return out
}

// Issues returns the validation issues from the last load/import.
func (s *Session) Issues() []card.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]card.Issue(nil), s.issues...)
}

// Cards returns a snapshot of the loaded card store.
func (s *Session) Cards() []card.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]card.Card(nil), s.cards...)
}

// Labels returns a snapshot of the in-memory label mapping.
func (s *Session) Labels() map[string]labels.Label {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]labels.Label, len(s.labels))
	for k, v := range s.labels {
		out[k] = v
	}
	return out
}

// Loaded reports whether a dataset has been installed.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Source returns the source of the currently loaded dataset.
func (s *Session) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

func sampleIssues(issues []card.Issue) []card.Issue {
	if len(issues) <= MaxIssueSample {
		return append([]card.Issue(nil), issues...)
	}
	return append([]card.Issue(nil), issues[:MaxIssueSample]...)
}

func validEnum(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
