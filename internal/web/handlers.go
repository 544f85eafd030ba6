package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkortright/flashdeck/internal/config"
	"github.com/pkortright/flashdeck/internal/deck"
	"github.com/pkortright/flashdeck/internal/errors"
	"github.com/pkortright/flashdeck/internal/session"
)

// maxImportUpload bounds the size of an uploaded import file.
const maxImportUpload = 32 << 20

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	session  *session.Session
	cfg      *config.Config
	renderer *Renderer
}

// HandleDeck handles GET /deck — show the current card with filter controls.
func (h *Handlers) HandleDeck(w http.ResponseWriter, r *http.Request) {
	q := h.session.Query()

	data := DeckPageData{
		PageData: PageData{
			Title:   "Deck",
			Version: h.renderer.version,
			Nav:     "deck",
		},
		Loaded:         h.session.Loaded(),
		Source:         h.session.Source(),
		Options:        h.session.Options(),
		Stats:          h.session.Stats(),
		FilterSearch:   q.Search,
		FilterCategory: q.Category,
		FilterDiff:     q.Difficulty,
		FilterUse:      q.Usefulness,
	}

	if data.Loaded {
		view, err := h.session.Current()
		switch {
		case err == nil:
			data.View = view
			data.QuestionHTML = renderMarkdown(view.Card.Question)
			data.AnswerHTML = renderMarkdown(view.Card.Answer)
			for i, hint := range view.Card.Hints {
				data.Hints = append(data.Hints, HintView{Number: i + 1, HTML: renderMarkdown(hint)})
			}
		case errors.Is(err, errors.ErrNoCard):
			data.NoMatches = true
		default:
			h.renderer.renderError(w, r, err)
			return
		}
	}

	h.renderer.renderPage(w, r, "deck", data)
}

// HandleLoad handles POST /deck/load — load a dataset from a path or URL.
func (h *Handlers) HandleLoad(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	if _, err := h.session.LoadDataset(r.Context(), r.FormValue("source")); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.redirectDeck(w, r)
}

// HandleNav handles POST /deck/{next,prev,shuffle,reset}.
func (h *Handlers) HandleNav(action func() (*session.CardView, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, err := action()
		if err != nil && !errors.Is(err, errors.ErrNoCard) {
			h.renderer.renderError(w, r, err)
			return
		}
		h.redirectDeck(w, r)
	}
}

// HandleFilter handles POST /deck/filter — apply search/category/enum filters.
func (h *Handlers) HandleFilter(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	q := deck.Query{
		Search:     r.FormValue("search"),
		Category:   r.FormValue("category"),
		Difficulty: r.FormValue("difficulty"),
		Usefulness: r.FormValue("usefulness"),
	}
	if _, err := h.session.SetFilter(q); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.redirectDeck(w, r)
}

// HandleGrasped handles POST /cards/{id}/grasped — toggle the grasped flag.
func (h *Handlers) HandleGrasped(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	out, err := h.session.ToggleGrasped(r.Context(), id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, out)
		return
	}
	h.redirectDeck(w, r)
}

// HandleDifficulty handles POST /cards/{id}/difficulty.
func (h *Handlers) HandleDifficulty(w http.ResponseWriter, r *http.Request) {
	h.handleLabelValue(w, r, h.session.SetDifficulty)
}

// HandleUsefulness handles POST /cards/{id}/usefulness.
func (h *Handlers) HandleUsefulness(w http.ResponseWriter, r *http.Request) {
	h.handleLabelValue(w, r, h.session.SetUsefulness)
}

func (h *Handlers) handleLabelValue(w http.ResponseWriter, r *http.Request, set func(ctx context.Context, id, value string) (*session.LabelOutput, error)) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	id := r.PathValue("id")
	out, err := set(r.Context(), id, r.FormValue("value"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, out)
		return
	}
	h.redirectDeck(w, r)
}

// HandleStats handles GET /stats — aggregate counters and load issues.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	data := StatsPageData{
		PageData: PageData{
			Title:   "Stats",
			Version: h.renderer.version,
			Nav:     "stats",
		},
		Loaded:  h.session.Loaded(),
		Source:  h.session.Source(),
		Stats:   h.session.Stats(),
		Options: h.session.Options(),
		Issues:  h.session.Issues(),
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, map[string]any{
			"stats":   data.Stats,
			"options": data.Options,
			"issues":  data.Issues,
		})
		return
	}

	h.renderer.renderPage(w, r, "stats", data)
}

// HandleExport handles GET /deck/export — download the dataset and labels.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	data, err := h.session.ExportJSON()
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", session.DefaultExportName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandleImport handles POST /deck/import — upload an export file or a bare
// card array.
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportUpload); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid upload"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("file field is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportUpload))
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}

	out, err := h.session.ImportJSON(r.Context(), data, header.Filename)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, out)
		return
	}
	h.redirectDeck(w, r)
}

// redirectDeck returns the browser to the deck page. HTMX requests get an
// HX-Redirect header instead of a 302.
func (h *Handlers) redirectDeck(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/deck")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/deck", http.StatusFound)
}
