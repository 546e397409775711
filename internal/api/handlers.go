package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-tracker/internal/catalog"
	"github.com/trogers1052/portfolio-tracker/internal/models"
	"github.com/trogers1052/portfolio-tracker/internal/portfolio"
	"github.com/trogers1052/portfolio-tracker/internal/quotes"
	"github.com/trogers1052/portfolio-tracker/internal/report"
)

const (
	msgQuotesUnavailable = "Unable to retrieve price data at this time. CoinGecko may be rate limiting requests."
	headerQuotesStale    = "X-Quotes-Stale"
)

// QuoteFetcher serves quotes for arbitrary asset ids
type QuoteFetcher interface {
	Fetch(ctx context.Context, ids []string) (models.QuoteBatch, error)
}

// QuoteRefresher refreshes quotes for the held assets on demand
type QuoteRefresher interface {
	Refresh(ctx context.Context) (models.QuoteBatch, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	portfolio *portfolio.Service
	quotes    QuoteFetcher
	refresher QuoteRefresher
	log       zerolog.Logger
}

// NewHandler creates a new Handler
func NewHandler(svc *portfolio.Service, q QuoteFetcher, refresher QuoteRefresher, log zerolog.Logger) *Handler {
	return &Handler{
		portfolio: svc,
		quotes:    q,
		refresher: refresher,
		log:       log.With().Str("component", "api").Logger(),
	}
}

// SearchAssets handles GET /assets?q=
func (h *Handler) SearchAssets(w http.ResponseWriter, r *http.Request) {
	assets := catalog.Search(r.URL.Query().Get("q"))
	if assets == nil {
		assets = []models.AssetDescriptor{}
	}
	respondJSON(w, http.StatusOK, assets)
}

// GetAsset handles GET /assets/{id}
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	asset, ok := catalog.FindByID(id)
	if !ok {
		respondError(w, http.StatusNotFound, "asset not found: "+id)
		return
	}
	respondJSON(w, http.StatusOK, asset)
}

// GetHoldings handles GET /holdings
func (h *Handler) GetHoldings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.portfolio.Snapshot().Holdings)
}

// CreateHolding handles POST /holdings
func (h *Handler) CreateHolding(w http.ResponseWriter, r *http.Request) {
	var in models.HoldingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.upsert(w, r, in, http.StatusCreated)
}

// UpdateHolding handles PUT /holdings/{id}
func (h *Handler) UpdateHolding(w http.ResponseWriter, r *http.Request) {
	var in models.HoldingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.ID = mux.Vars(r)["id"]
	h.upsert(w, r, in, http.StatusOK)
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request, in models.HoldingInput, status int) {
	holding, err := h.portfolio.Upsert(r.Context(), in)
	if err != nil {
		if portfolio.IsValidation(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to save holding")
		respondError(w, http.StatusInternalServerError, "failed to save holding")
		return
	}
	respondJSON(w, status, holding)
}

// DeleteHolding handles DELETE /holdings/{id}
func (h *Handler) DeleteHolding(w http.ResponseWriter, r *http.Request) {
	if err := h.portfolio.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.log.Error().Err(err).Msg("Failed to delete holding")
		respondError(w, http.StatusInternalServerError, "failed to delete holding")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetPortfolio handles POST /portfolio/reset
func (h *Handler) ResetPortfolio(w http.ResponseWriter, r *http.Request) {
	if err := h.portfolio.Reset(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Failed to reset portfolio")
		respondError(w, http.StatusInternalServerError, "failed to reset portfolio")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPortfolio handles GET /portfolio
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	ov := h.portfolio.Overview(r.Context())
	if ov.Stale {
		w.Header().Set(headerQuotesStale, "true")
	}
	respondJSON(w, http.StatusOK, ov)
}

// GetSummary handles GET /portfolio/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := report.Write(w, h.portfolio.Overview(r.Context())); err != nil {
		h.log.Warn().Err(err).Msg("Failed to write summary")
	}
}

// GetPrices handles GET /prices?ids=a,b
func (h *Handler) GetPrices(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		batch, _ := h.quotes.Fetch(r.Context(), nil)
		respondJSON(w, http.StatusOK, batch)
		return
	}

	ids := catalog.Filter(strings.Split(raw, ","))
	if len(ids) == 0 {
		respondError(w, http.StatusBadRequest, quotes.ErrNoAssets.Error())
		return
	}

	batch, err := h.quotes.Fetch(r.Context(), ids)
	h.respondQuotes(w, batch, err)
}

// RefreshPrices handles POST /prices/refresh
func (h *Handler) RefreshPrices(w http.ResponseWriter, r *http.Request) {
	batch, err := h.refresher.Refresh(r.Context())
	h.respondQuotes(w, batch, err)
}

func (h *Handler) respondQuotes(w http.ResponseWriter, batch models.QuoteBatch, err error) {
	switch {
	case err == nil:
	case quotes.IsStale(err):
		w.Header().Set(headerQuotesStale, "true")
	default:
		h.log.Error().Err(err).Msg("Failed to fetch quotes")
		respondError(w, http.StatusServiceUnavailable, msgQuotesUnavailable)
		return
	}
	respondJSON(w, http.StatusOK, batch)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
