// Package handlers provides HTTP handlers for replayed asset history.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/wallet/internal/modules/historical"
	"github.com/aristath/wallet/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/wallet/internal/modules/portfolio/handlers"
	"github.com/rs/zerolog"
)

// Handler handles historical HTTP requests
type Handler struct {
	replayer *historical.Replayer
	log      zerolog.Logger
}

// NewHandler creates a new historical handler
func NewHandler(replayer *historical.Replayer, log zerolog.Logger) *Handler {
	return &Handler{
		replayer: replayer,
		log:      log.With().Str("handler", "historical").Logger(),
	}
}

// HandleGetHistory handles GET /api/assets/{source}/{asset}/history?step=N
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	source, asset, ok := portfoliohandlers.AssetParams(w, r)
	if !ok {
		return
	}

	step := 0
	if raw := r.URL.Query().Get("step"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "step must be a positive integer")
			return
		}
		step = parsed
	}

	history, err := h.replayer.Replay(r.Context(), source, asset, step)
	if err != nil {
		switch {
		case errors.Is(err, portfolio.ErrAssetNotFound), errors.Is(err, historical.ErrNoHistory):
			h.writeError(w, http.StatusNotFound, err.Error())
		default:
			h.log.Error().Err(err).Str("asset", asset).Msg("Failed to replay history")
			h.writeError(w, http.StatusInternalServerError, "Failed to replay history")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": history,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"count":     len(history.Points),
		},
	})
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
