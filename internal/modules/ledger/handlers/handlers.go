// Package handlers provides HTTP handlers for statement imports and ledger listings.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/wallet/internal/domain"
	"github.com/aristath/wallet/internal/modules/importer"
	"github.com/aristath/wallet/internal/modules/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// maxUploadSize bounds statement uploads kept in memory while parsing the form
const maxUploadSize = 32 << 20

// Handler handles ledger HTTP requests
type Handler struct {
	repo       *ledger.Repository
	importer   *importer.Importer
	uploadsDir string
	log        zerolog.Logger
}

// NewHandler creates a new ledger handler. Uploaded statements are kept in uploadsDir.
func NewHandler(
	repo *ledger.Repository,
	imp *importer.Importer,
	uploadsDir string,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		repo:       repo,
		importer:   imp,
		uploadsDir: uploadsDir,
		log:        log.With().Str("handler", "ledger").Logger(),
	}
}

// HandleImport handles POST /api/imports/{source}
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	source, ok := h.sourceParam(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Missing statement file")
		return
	}
	defer file.Close()

	path, err := h.save(source, file, header.Filename)
	if err != nil {
		h.log.Error().Err(err).Str("file", header.Filename).Msg("Failed to store upload")
		h.writeError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}

	table, err := readTable(path)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.importer.Import(r.Context(), source, table, path)
	if err != nil {
		if errors.Is(err, importer.ErrMissingColumn) {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.log.Error().Err(err).Str("file", path).Msg("Import failed")
		h.writeError(w, http.StatusInternalServerError, "Import failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"result":   result,
			"messages": result.Messages(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"file":      filepath.Base(path),
			"rows":      len(table.Rows),
		},
	})
}

// HandleListTransactions handles GET /api/transactions/{source}
//
// Every query parameter other than limit and order filters a column: numeric
// columns match exactly, text columns by substring.
func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	source, ok := h.sourceParam(w, r)
	if !ok {
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.repo.List(r.Context(), source, filter)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidFilter) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("source", string(source)).Msg("Failed to list transactions")
		h.writeError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}
	if rows == nil {
		rows = []domain.Transaction{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": rows,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"count":     len(rows),
		},
	})
}

func (h *Handler) sourceParam(w http.ResponseWriter, r *http.Request) (domain.Source, bool) {
	source := domain.Source(chi.URLParam(r, "source"))
	if !source.Valid() {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown transaction source: %q", source))
		return "", false
	}
	return source, true
}

// save copies an upload to uploadsDir/<source>/<name>. The path is part of every
// row's origin id, so uploading the same statement again resolves to the same
// ids and its rows are discarded as duplicates.
func (h *Handler) save(source domain.Source, src io.Reader, filename string) (string, error) {
	dir := filepath.Join(h.uploadsDir, string(source))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}

	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." {
		name = "statement.csv"
	}
	path := filepath.Join(dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func readTable(path string) (*importer.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return importer.ReadCSV(f)
}

func parseFilter(r *http.Request) (ledger.Filter, error) {
	filter := ledger.Filter{
		Like:  make(map[string]string),
		Exact: make(map[string]float64),
	}

	for key, values := range r.URL.Query() {
		if len(values) == 0 {
			continue
		}
		value := values[0]

		switch key {
		case "limit":
			limit, err := strconv.Atoi(value)
			if err != nil || limit < 0 {
				return filter, fmt.Errorf("limit must be a non-negative integer")
			}
			filter.Limit = limit
		case "order":
			filter.Ascending = strings.EqualFold(value, "asc")
		case "quantity", "unit_price", "total_value", "balance":
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return filter, fmt.Errorf("%s must be numeric", key)
			}
			filter.Exact[key] = n
		default:
			filter.Like[key] = value
		}
	}
	return filter, nil
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
