package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkortright/flashdeck/internal/config"
	"github.com/pkortright/flashdeck/internal/deck"
	"github.com/pkortright/flashdeck/internal/errors"
	"github.com/pkortright/flashdeck/internal/labels"
)

const testDataset = `[
  {"id": "go-slices", "question": "What does append do when capacity is exceeded?", "answer": "Allocates a new backing array.", "categories": ["go", "memory"], "difficulty": "easy"},
  {"id": "go-maps", "question": "Are map iterations ordered?", "answer": "No, iteration order is randomized.", "categories": ["go"], "difficulty": "medium", "usefulness": "information"},
  {"id": "sql-injection", "question": "How do you prevent SQL injection?", "answer": "Parameterized queries.", "categories": ["security", "sql"], "difficulty": "hard", "usefulness": "dangerous"}
]`

func newTestSession(t *testing.T) (*Session, *labels.Store) {
	t.Helper()
	store, err := labels.Init(t.TempDir())
	if err != nil {
		t.Fatalf("labels.Init: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store, config.DefaultConfig()), store
}

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cards.json")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

func loadTestSession(t *testing.T) *Session {
	t.Helper()
	s, _ := newTestSession(t)
	out, err := s.LoadDataset(context.Background(), writeDataset(t, testDataset))
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if out.Count != 3 {
		t.Fatalf("Count = %d, want 3", out.Count)
	}
	return s
}

func TestLoadDatasetFromFile(t *testing.T) {
	s := loadTestSession(t)

	view, err := s.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if view.Card.ID != "go-slices" {
		t.Errorf("first card = %q, want go-slices", view.Card.ID)
	}
	if view.Position != 1 || view.Shown != 3 {
		t.Errorf("position/shown = %d/%d, want 1/3", view.Position, view.Shown)
	}
	if view.EffectiveUsefulness != "useful" {
		t.Errorf("default usefulness = %q, want useful", view.EffectiveUsefulness)
	}
}

func TestViewsFollowFilterOrder(t *testing.T) {
	s := loadTestSession(t)

	views, err := s.Views()
	if err != nil {
		t.Fatalf("Views: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("len = %d, want 3", len(views))
	}
	for i, v := range views {
		if v.Position != i+1 {
			t.Errorf("views[%d].Position = %d, want %d", i, v.Position, i+1)
		}
	}

	if _, err := s.SetFilter(deck.Query{Category: "security"}); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	views, err = s.Views()
	if err != nil {
		t.Fatalf("Views: %v", err)
	}
	if len(views) != 1 || views[0].Card.ID != "sql-injection" {
		t.Errorf("filtered views = %v, want only sql-injection", views)
	}

	if _, err := New(nil, nil).Views(); !errors.Is(err, errors.ErrNoDataset) {
		t.Error("Views before load should return NO_DATASET")
	}
}

func TestLoadDatasetMissingFile(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.LoadDataset(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, errors.ErrFileNotFound) {
		t.Errorf("error = %v, want FILE_NOT_FOUND", err)
	}
	if s.Loaded() {
		t.Error("session should not be loaded after failed load")
	}
}

func TestLoadDatasetFromHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testDataset))
	}))
	defer srv.Close()

	s, _ := newTestSession(t)
	out, err := s.LoadDataset(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if out.Count != 3 {
		t.Errorf("Count = %d, want 3", out.Count)
	}
}

func TestLoadDatasetHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	s, _ := newTestSession(t)
	_, err := s.LoadDataset(context.Background(), srv.URL)
	if !errors.Is(err, errors.ErrLoadFailed) {
		t.Errorf("error = %v, want LOAD_FAILED", err)
	}
}

func TestSupersededLoadIsCancelled(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.Write([]byte(`[{"id": "stale", "question": "q", "answer": "a"}]`))
	}))
	defer srv.Close()

	s, _ := newTestSession(t)

	slowErr := make(chan error, 1)
	go func() {
		_, err := s.LoadDataset(context.Background(), srv.URL)
		slowErr <- err
	}()

	// The slow load has taken its generation once its fetch is in flight.
	<-started

	if _, err := s.LoadDataset(context.Background(), writeDataset(t, testDataset)); err != nil {
		t.Fatalf("fast LoadDataset: %v", err)
	}
	close(release)

	if err := <-slowErr; !errors.Is(err, errors.ErrCancelled) {
		t.Errorf("superseded load error = %v, want CANCELLED", err)
	}
	if got := s.Stats().Total; got != 3 {
		t.Errorf("total after races = %d, want 3 (fast dataset retained)", got)
	}
	if s.Source() == srv.URL {
		t.Error("stale source overwrote newer load")
	}
}

func TestNavigationWraparound(t *testing.T) {
	s := loadTestSession(t)

	ids := []string{}
	for i := 0; i < 4; i++ {
		view, err := s.Current()
		if err != nil {
			t.Fatalf("Current: %v", err)
		}
		ids = append(ids, view.Card.ID)
		if _, err := s.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	if ids[0] != ids[3] {
		t.Errorf("after 3 Next calls got %q, want wraparound to %q", ids[3], ids[0])
	}

	if _, err := s.Prev(); err != nil {
		t.Fatalf("Prev: %v", err)
	}
	view, _ := s.Current()
	if view.Card.ID != "sql-injection" {
		t.Errorf("Prev from first card = %q, want sql-injection (wraparound)", view.Card.ID)
	}
}

func TestNavigationRequiresDataset(t *testing.T) {
	s, _ := newTestSession(t)
	for name, fn := range map[string]func() (*CardView, error){
		"Current": s.Current,
		"Next":    s.Next,
		"Prev":    s.Prev,
		"Shuffle": s.Shuffle,
		"Reset":   s.Reset,
	} {
		if _, err := fn(); !errors.Is(err, errors.ErrNoDataset) {
			t.Errorf("%s error = %v, want NO_DATASET", name, err)
		}
	}
}

func TestSetFilterAndNoMatches(t *testing.T) {
	s := loadTestSession(t)

	out, err := s.SetFilter(deck.Query{Category: "security"})
	if err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	if out.Shown != 1 || out.NoMatches {
		t.Fatalf("shown = %d, noMatches = %v, want 1/false", out.Shown, out.NoMatches)
	}
	view, _ := s.Current()
	if view.Card.ID != "sql-injection" {
		t.Errorf("filtered card = %q, want sql-injection", view.Card.ID)
	}

	out, err = s.SetFilter(deck.Query{Search: "no such text anywhere"})
	if err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	if !out.NoMatches {
		t.Error("expected no matches")
	}
	if _, err := s.Current(); !errors.Is(err, errors.ErrNoCard) {
		t.Errorf("Current in empty view = %v, want NO_CARD", err)
	}

	// Clearing the filter restores the full deck.
	out, _ = s.SetFilter(deck.Query{})
	if out.Shown != 3 {
		t.Errorf("cleared filter shown = %d, want 3", out.Shown)
	}
}

func TestToggleGraspedCurrentCard(t *testing.T) {
	s := loadTestSession(t)

	out, err := s.ToggleGrasped(context.Background(), "")
	if err != nil {
		t.Fatalf("ToggleGrasped: %v", err)
	}
	if out.ID != "go-slices" || !out.Label.Grasped {
		t.Errorf("toggle = %+v, want go-slices grasped", out)
	}
	if out.Stats.Grasped != 1 {
		t.Errorf("grasped count = %d, want 1", out.Stats.Grasped)
	}

	out, err = s.ToggleGrasped(context.Background(), "go-slices")
	if err != nil {
		t.Fatalf("ToggleGrasped: %v", err)
	}
	if out.Label.Grasped {
		t.Error("second toggle should clear grasped")
	}
}

func TestSetDifficultyValidation(t *testing.T) {
	s := loadTestSession(t)

	if _, err := s.SetDifficulty(context.Background(), "go-maps", "impossible"); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("invalid difficulty error = %v, want INVALID_REQUEST", err)
	}
	if _, err := s.SetDifficulty(context.Background(), "missing-card", "hard"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("unknown id error = %v, want NOT_FOUND", err)
	}

	out, err := s.SetDifficulty(context.Background(), "go-maps", "  HARD ")
	if err != nil {
		t.Fatalf("SetDifficulty: %v", err)
	}
	if out.Label.Difficulty == nil || *out.Label.Difficulty != "hard" {
		t.Errorf("difficulty override = %v, want hard", out.Label.Difficulty)
	}
}

func TestLabelOverrideAffectsFilterAndView(t *testing.T) {
	s := loadTestSession(t)

	if _, err := s.SetDifficulty(context.Background(), "go-slices", "hard"); err != nil {
		t.Fatalf("SetDifficulty: %v", err)
	}

	out, err := s.SetFilter(deck.Query{Difficulty: "hard"})
	if err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	if out.Shown != 2 {
		t.Errorf("hard cards = %d, want 2 (override promoted go-slices)", out.Shown)
	}
	view, _ := s.Current()
	if view.EffectiveDifficulty != "hard" {
		t.Errorf("effective difficulty = %q, want hard", view.EffectiveDifficulty)
	}
}

func TestLabelEditDoesNotReorderDeck(t *testing.T) {
	s := loadTestSession(t)

	if _, err := s.SetFilter(deck.Query{Difficulty: "easy"}); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	view, _ := s.Current()
	if view.Card.ID != "go-slices" {
		t.Fatalf("easy card = %q, want go-slices", view.Card.ID)
	}

	// Relabeling the shown card away from the filter keeps it on screen
	// until the filter is reapplied.
	if _, err := s.SetDifficulty(context.Background(), "", "hard"); err != nil {
		t.Fatalf("SetDifficulty: %v", err)
	}
	view, err := s.Current()
	if err != nil {
		t.Fatalf("Current after relabel: %v", err)
	}
	if view.Card.ID != "go-slices" {
		t.Errorf("card changed to %q after label edit", view.Card.ID)
	}

	out, _ := s.SetFilter(deck.Query{Difficulty: "easy"})
	if !out.NoMatches {
		t.Error("reapplied filter should drop the relabeled card")
	}
}

func TestShuffleAndReset(t *testing.T) {
	s := loadTestSession(t)

	for i := 0; i < 2; i++ {
		if _, err := s.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	view, err := s.Shuffle()
	if err != nil {
		t.Fatalf("Shuffle: %v", err)
	}
	if view.Position != 1 {
		t.Errorf("position after shuffle = %d, want 1", view.Position)
	}

	if _, err := s.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	view, err = s.Reset()
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if view.Position != 1 {
		t.Errorf("position after reset = %d, want 1", view.Position)
	}
}

func TestOptionsSortedWithCounts(t *testing.T) {
	s := loadTestSession(t)

	opts := s.Options()
	wantCats := []OptionCount{
		{Value: "go", Count: 2},
		{Value: "memory", Count: 1},
		{Value: "security", Count: 1},
		{Value: "sql", Count: 1},
	}
	if len(opts.Categories) != len(wantCats) {
		t.Fatalf("categories = %v, want %v", opts.Categories, wantCats)
	}
	for i, want := range wantCats {
		if opts.Categories[i] != want {
			t.Errorf("categories[%d] = %v, want %v", i, opts.Categories[i], want)
		}
	}

	// Canonical enum order, zero counts included.
	if opts.Difficulties[0].Value != "easy" || opts.Difficulties[0].Count != 1 {
		t.Errorf("difficulties[0] = %v, want easy/1", opts.Difficulties[0])
	}
	if opts.Usefulness[1].Value != "dangerous" || opts.Usefulness[1].Count != 1 {
		t.Errorf("usefulness[1] = %v, want dangerous/1", opts.Usefulness[1])
	}
}

func TestImportBadInputLeavesStateUnchanged(t *testing.T) {
	s := loadTestSession(t)
	ctx := context.Background()

	if _, err := s.ImportJSON(ctx, []byte(`"just a string"`), "inline"); !errors.Is(err, errors.ErrImportFormat) {
		t.Errorf("string input error = %v, want IMPORT_FORMAT", err)
	}
	if _, err := s.ImportJSON(ctx, []byte(`{broken`), "inline"); !errors.Is(err, errors.ErrImportParse) {
		t.Errorf("bad JSON error = %v, want IMPORT_PARSE", err)
	}
	if _, err := s.ImportJSON(ctx, []byte(`garbage`), "inline"); !errors.Is(err, errors.ErrImportParse) {
		t.Errorf("non-JSON input error = %v, want IMPORT_PARSE", err)
	}
	if _, err := s.ImportJSON(ctx, []byte(`42`), "inline"); !errors.Is(err, errors.ErrImportFormat) {
		t.Errorf("number input error = %v, want IMPORT_FORMAT", err)
	}
	if _, err := s.ImportJSON(ctx, []byte(`{"labels": {}}`), "inline"); !errors.Is(err, errors.ErrImportFormat) {
		t.Errorf("missing dataset error = %v, want IMPORT_FORMAT", err)
	}

	if got := s.Stats().Total; got != 3 {
		t.Errorf("total after failed imports = %d, want 3", got)
	}
	view, err := s.Current()
	if err != nil || view.Card.ID != "go-slices" {
		t.Errorf("current after failed imports = %v/%v, want go-slices", view, err)
	}
}

func TestImportBareArrayKeepsLabels(t *testing.T) {
	s := loadTestSession(t)
	ctx := context.Background()

	if _, err := s.ToggleGrasped(ctx, "go-maps"); err != nil {
		t.Fatalf("ToggleGrasped: %v", err)
	}

	out, err := s.ImportJSON(ctx, []byte(testDataset), "inline")
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if out.Cards != 3 {
		t.Errorf("imported cards = %d, want 3", out.Cards)
	}
	if !s.Labels()["go-maps"].Grasped {
		t.Error("bare-array import must preserve existing labels")
	}
}
