package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/wallet/internal/database"
	"github.com/aristath/wallet/internal/domain"
	"github.com/aristath/wallet/internal/scheduler"
)

// LedgerCounter counts stored rows per statement source
type LedgerCounter interface {
	Count(ctx context.Context, source domain.Source) (int, error)
}

// JobRunner runs a job outside its schedule
type JobRunner interface {
	RunNow(job scheduler.Job) error
}

// SystemHandlers serves process, host and database status
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	databases []*database.DB
	ledger    LedgerCounter
	runner    JobRunner
	jobs      map[string]scheduler.Job
	startedAt time.Time
}

// DatabaseStatus is the health and size of one database
type DatabaseStatus struct {
	Name      string  `json:"name"`
	Healthy   bool    `json:"healthy"`
	Error     string  `json:"error,omitempty"`
	SizeMB    float64 `json:"size_mb"`
	WALSizeMB float64 `json:"wal_size_mb"`
}

// SystemStatusResponse is the payload of GET /api/system/status
type SystemStatusResponse struct {
	Status          string           `json:"status"` // healthy or degraded
	UptimeSeconds   int64            `json:"uptime_seconds"`
	GoVersion       string           `json:"go_version"`
	Goroutines      int              `json:"goroutines"`
	CPUPercent      float64          `json:"cpu_percent"`
	MemoryPercent   float64          `json:"memory_percent"`
	DiskUsedPercent float64          `json:"disk_used_percent"`
	DiskFreeGB      float64          `json:"disk_free_gb"`
	Databases       []DatabaseStatus `json:"databases"`
	LedgerRows      map[string]int   `json:"ledger_rows"`
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	databases []*database.DB,
	ledger LedgerCounter,
) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		databases: databases,
		ledger:    ledger,
		jobs:      make(map[string]scheduler.Job),
		startedAt: time.Now(),
	}
}

// SetJobs registers job instances for manual triggering through runner.
// Nil jobs are skipped.
func (h *SystemHandlers) SetJobs(runner JobRunner, cacheCleanup, backup scheduler.Job) {
	h.runner = runner
	if cacheCleanup != nil {
		h.jobs["cache-cleanup"] = cacheCleanup
	}
	if backup != nil {
		h.jobs["backup"] = backup
	}
}

// GetSystemStatusSnapshot collects the current status. A failing database
// marks the system degraded; host metrics that cannot be read stay zero.
func (h *SystemHandlers) GetSystemStatusSnapshot(ctx context.Context) SystemStatusResponse {
	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		Databases:     make([]DatabaseStatus, 0, len(h.databases)),
		LedgerRows:    make(map[string]int),
	}

	response.CPUPercent, response.MemoryPercent = h.getSystemStats()

	if usage, err := disk.Usage(h.dataDir); err == nil {
		response.DiskUsedPercent = usage.UsedPercent
		response.DiskFreeGB = float64(usage.Free) / 1024 / 1024 / 1024
	} else {
		h.log.Warn().Err(err).Str("dir", h.dataDir).Msg("Failed to get disk usage")
	}

	for _, db := range h.databases {
		status := DatabaseStatus{Name: db.Name(), Healthy: true}
		if err := db.HealthCheck(ctx); err != nil {
			status.Healthy = false
			status.Error = err.Error()
			response.Status = "degraded"
		}
		if stats, err := db.GetStats(); err == nil {
			status.SizeMB = float64(stats.SizeBytes) / 1024 / 1024
			status.WALSizeMB = float64(stats.WALSizeBytes) / 1024 / 1024
		}
		response.Databases = append(response.Databases, status)
	}

	if h.ledger != nil {
		for _, source := range domain.AllSources {
			n, err := h.ledger.Count(ctx, source)
			if err != nil {
				h.log.Warn().Err(err).Str("source", string(source)).Msg("Failed to count ledger rows")
				response.Status = "degraded"
				continue
			}
			response.LedgerRows[string(source)] = n
		}
	}

	return response
}

// HealthResponse is the payload of GET /health
type HealthResponse struct {
	Status     string            `json:"status"` // healthy or unhealthy
	Service    string            `json:"service"`
	Databases  map[string]string `json:"databases"`
	LedgerRows int               `json:"ledger_rows"`
}

// HandleHealth handles GET /health. It only pings the databases and counts the
// ledger, skipping host metrics, and answers 503 when a database is unreachable.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Service:   "wallet",
		Databases: make(map[string]string, len(h.databases)),
	}

	for _, db := range h.databases {
		if err := db.HealthCheck(r.Context()); err != nil {
			response.Databases[db.Name()] = err.Error()
			response.Status = "unhealthy"
			continue
		}
		response.Databases[db.Name()] = "ok"
	}

	if h.ledger != nil && response.Status == "healthy" {
		for _, source := range domain.AllSources {
			n, err := h.ledger.Count(r.Context(), source)
			if err != nil {
				h.log.Warn().Err(err).Str("source", string(source)).Msg("Health check could not count ledger rows")
				response.Status = "unhealthy"
				break
			}
			response.LedgerRows += n
		}
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, response)
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": h.GetSystemStatusSnapshot(r.Context()),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleTriggerJob handles POST /api/system/jobs/{job}, running the job immediately
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "job")
	job, ok := h.jobs[name]
	if !ok || h.runner == nil {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown job: " + name})
		return
	}

	start := time.Now()
	if err := h.runner.RunNow(job); err != nil {
		h.log.Error().Err(err).Str("job", job.Name()).Msg("Triggered job failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"job":         job.Name(),
			"status":      "completed",
			"duration_ms": time.Since(start).Milliseconds(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// getSystemStats calculates CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// 100ms sample keeps the endpoint responsive
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
