// Package handlers provides HTTP handlers for asset and portfolio views.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/aristath/wallet/internal/domain"
	"github.com/aristath/wallet/internal/modules/portfolio"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	assets       *portfolio.AssetService
	consolidator *portfolio.Consolidator
	log          zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(
	assets *portfolio.AssetService,
	consolidator *portfolio.Consolidator,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		assets:       assets,
		consolidator: consolidator,
		log:          log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetAsset handles GET /api/assets/{source}/{asset}
func (h *Handler) HandleGetAsset(w http.ResponseWriter, r *http.Request) {
	source, asset, ok := AssetParams(w, r)
	if !ok {
		return
	}

	summary, err := h.assets.GetAsset(r.Context(), source, asset)
	if err != nil {
		if errors.Is(err, portfolio.ErrAssetNotFound) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error().Err(err).Str("asset", asset).Msg("Failed to consolidate asset")
		h.writeError(w, http.StatusInternalServerError, "Failed to consolidate asset")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": summary,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetConsolidated handles GET /api/portfolio/consolidated
func (h *Handler) HandleGetConsolidated(w http.ResponseWriter, r *http.Request) {
	summary, err := h.consolidator.ConsolidateAll(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to consolidate portfolio")
		h.writeError(w, http.StatusInternalServerError, "Failed to consolidate portfolio")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": summary,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"groups":    len(summary.Groups),
		},
	})
}

// AssetParams reads and validates the {source} and {asset} path parameters,
// answering 400 itself when they are unusable.
func AssetParams(w http.ResponseWriter, r *http.Request) (domain.AssetSource, string, bool) {
	source := domain.AssetSource(chi.URLParam(r, "source"))
	if !source.Valid() {
		http.Error(w, "unknown asset source", http.StatusBadRequest)
		return "", "", false
	}

	asset, err := url.PathUnescape(chi.URLParam(r, "asset"))
	if err != nil || asset == "" {
		http.Error(w, "invalid asset", http.StatusBadRequest)
		return "", "", false
	}
	return source, asset, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
