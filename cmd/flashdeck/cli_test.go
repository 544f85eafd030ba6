package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkortright/flashdeck/internal/config"
	"github.com/pkortright/flashdeck/internal/labels"
	"github.com/pkortright/flashdeck/internal/session"
)

// setupTestStore creates a temporary label store for testing.
func setupTestStore(t *testing.T) *labels.Store {
	t.Helper()
	store, err := labels.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// testConfig returns a config suitable for temp-dir tests.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true
	return cfg
}

// writeCards writes a dataset file and returns its path.
func writeCards(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cards.json")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write cards: %v", err)
	}
	return path
}

// runApp runs the CLI app capturing stdout.
func runApp(t *testing.T, store *labels.Store, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	app := newCLIApp(store, cfg)

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := app.Run(append([]string{"flashdeck"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), err
}

const goodCards = `[
  {"id": "card-a", "question": "Q1", "answer": "A1", "categories": ["go"], "difficulty": "easy"},
  {"id": "card-b", "question": "Q2", "answer": "A2", "categories": ["go"], "difficulty": "hard", "usefulness": "dangerous"}
]`

const messyCards = `[
  {"id": "My Card!", "question": "Q1", "answer": "A1", "difficulty": "mediun"},
  {"question": "no id", "answer": "A2"}
]`

func TestCLIValidate(t *testing.T) {
	store := setupTestStore(t)
	cfg := testConfig()

	out, err := runApp(t, store, cfg, "validate", writeCards(t, goodCards))
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	var result struct {
		Cards       int   `json:"cards"`
		Issues      []any `json:"issues"`
		Suggestions []any `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("parse output: %v\nOutput: %s", err, out)
	}
	if result.Cards != 2 || len(result.Issues) != 0 {
		t.Errorf("cards = %d, issues = %d, want 2/0", result.Cards, len(result.Issues))
	}
}

func TestCLIValidateFixToFile(t *testing.T) {
	store := setupTestStore(t)
	cfg := testConfig()
	outPath := filepath.Join(t.TempDir(), "fixed.json")

	_, err := runApp(t, store, cfg, "validate", "--fix", "--out", outPath, writeCards(t, messyCards))
	if err != nil {
		t.Fatalf("validate --fix failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read fixed file: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, `"my-card-"`) {
		t.Errorf("expected sanitized id in output: %s", text)
	}
	if !strings.Contains(text, `"medium"`) {
		t.Errorf("expected fuzzy-fixed difficulty in output: %s", text)
	}
}

func TestCLIValidateMissingSource(t *testing.T) {
	store := setupTestStore(t)
	if _, err := runApp(t, store, testConfig(), "validate"); err == nil {
		t.Fatal("expected error for missing source argument")
	}
}

func TestCLIStats(t *testing.T) {
	store := setupTestStore(t)
	out, err := runApp(t, store, testConfig(), "stats", writeCards(t, goodCards))
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	var result struct {
		Stats session.Stats `json:"stats"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("parse output: %v\nOutput: %s", err, out)
	}
	if result.Stats.Total != 2 {
		t.Errorf("total = %d, want 2", result.Stats.Total)
	}
}

func TestCLIFetchPrintsMatchedCards(t *testing.T) {
	store := setupTestStore(t)
	out, err := runApp(t, store, testConfig(), "fetch", "--difficulty", "hard", writeCards(t, goodCards))
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	var result struct {
		Shown int                 `json:"shown"`
		Total int                 `json:"total"`
		Cards []*session.CardView `json:"cards"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("parse output: %v\nOutput: %s", err, out)
	}
	if result.Total != 2 || result.Shown != 1 {
		t.Errorf("shown/total = %d/%d, want 1/2", result.Shown, result.Total)
	}
	if len(result.Cards) != 1 || result.Cards[0].Card.ID != "card-b" {
		t.Errorf("cards = %v, want only card-b", result.Cards)
	}
	if result.Cards[0].Position != 1 {
		t.Errorf("position = %d, want 1", result.Cards[0].Position)
	}
}

func TestCLIFetchNoMatchesIsEmptyNotError(t *testing.T) {
	store := setupTestStore(t)
	out, err := runApp(t, store, testConfig(), "fetch", "--search", "nothing matches this", writeCards(t, goodCards))
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	var result struct {
		Shown int `json:"shown"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("parse output: %v\nOutput: %s", err, out)
	}
	if result.Shown != 0 {
		t.Errorf("shown = %d, want 0", result.Shown)
	}
}

func TestCLILabelsListAndClear(t *testing.T) {
	store := setupTestStore(t)
	cfg := testConfig()

	out, err := runApp(t, store, cfg, "labels", "list")
	if err != nil {
		t.Fatalf("labels list failed: %v", err)
	}
	if strings.TrimSpace(out) != "{}" {
		t.Errorf("empty store list = %q, want {}", strings.TrimSpace(out))
	}

	// clear without --confirm is refused
	if _, err := runApp(t, store, cfg, "labels", "clear"); err == nil {
		t.Fatal("expected error without --confirm")
	}
	if _, err := runApp(t, store, cfg, "labels", "clear", "--confirm"); err != nil {
		t.Fatalf("labels clear failed: %v", err)
	}
}

func TestCLIExportImportRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	cfg := testConfig()
	exportPath := filepath.Join(t.TempDir(), "export.json")

	out, err := runApp(t, store, cfg, "export", "--out", exportPath, writeCards(t, goodCards))
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	var exportOut session.ExportOutput
	if err := json.Unmarshal([]byte(out), &exportOut); err != nil {
		t.Fatalf("parse export output: %v\nOutput: %s", err, out)
	}
	if exportOut.Cards != 2 {
		t.Errorf("exported cards = %d, want 2", exportOut.Cards)
	}

	out, err = runApp(t, store, cfg, "import", exportPath)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	var importOut session.ImportOutput
	if err := json.Unmarshal([]byte(out), &importOut); err != nil {
		t.Fatalf("parse import output: %v\nOutput: %s", err, out)
	}
	if importOut.Cards != 2 {
		t.Errorf("imported cards = %d, want 2", importOut.Cards)
	}
}

func TestIsCLIModeDetection(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"flashdeck"}, false},
		{[]string{"flashdeck", "validate"}, true},
		{[]string{"flashdeck", "fetch"}, true},
		{[]string{"flashdeck", "serve"}, true},
		{[]string{"flashdeck", "--help"}, true},
		{[]string{"flashdeck", "-v"}, true},
		{[]string{"flashdeck", "bogus"}, false},
	}
	for _, tt := range tests {
		os.Args = tt.args
		if got := isCLIMode(); got != tt.want {
			t.Errorf("isCLIMode(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}
