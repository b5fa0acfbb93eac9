package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/hzchen/limitboard/internal/provider"
	"github.com/hzchen/limitboard/internal/quote"
	"github.com/hzchen/limitboard/pkg/logger"
)

// quoteFinder resolves a single instrument's live quote
type quoteFinder interface {
	Name() string
	FetchQuote(ctx context.Context, code string) (quote.Quote, error)
}

// symbolSuggester produces code/name suggestions for a keyword
type symbolSuggester interface {
	SearchSymbols(ctx context.Context, keyword string, count int) ([]provider.Symbol, error)
}

// SearchHandler serves ad-hoc single-stock lookups
type SearchHandler struct {
	finder    quoteFinder
	suggester symbolSuggester
	logger    *logger.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(finder quoteFinder, suggester symbolSuggester, log *logger.Logger) *SearchHandler {
	return &SearchHandler{
		finder:    finder,
		suggester: suggester,
		logger:    log,
	}
}

// stockResult is one search hit plus where it came from
type stockResult struct {
	quote.Quote
	Source string `json:"source"`
}

// Search returns the live quote for one stock code. Bare 6-digit codes
// are accepted and qualified by number range.
// GET /api/stock/search?code=600519
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("code"))
	if raw == "" {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "code is required")
		return
	}

	q, err := h.finder.FetchQuote(r.Context(), quote.NormalizeCode(raw))
	if err != nil {
		h.logger.WithError(err).Error("Stock search failed")
		respondError(w, http.StatusInternalServerError, CodeServerError, "Stock search failed")
		return
	}
	if !q.HasQuote {
		respondError(w, http.StatusNotFound, CodeNotFound, "No such stock or no quote available")
		return
	}

	respondData(w, http.StatusOK, stockResult{Quote: q, Source: h.finder.Name()})
}

// Suggest returns code/name suggestions for a keyword. Failures degrade
// to an empty list rather than an error: suggestions are a convenience,
// not a fact.
// GET /api/stock/suggest?q=茅台
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("q"))
	if keyword == "" {
		respondData(w, http.StatusOK, []provider.Symbol{})
		return
	}

	symbols, err := h.suggester.SearchSymbols(r.Context(), keyword, 5)
	if err != nil {
		h.logger.WithError(err).Warn("Symbol suggest failed")
		respondData(w, http.StatusOK, []provider.Symbol{})
		return
	}
	if symbols == nil {
		symbols = []provider.Symbol{}
	}

	respondData(w, http.StatusOK, symbols)
}
