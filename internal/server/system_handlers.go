package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/deltastar/cfs/internal/database"
	"github.com/deltastar/cfs/internal/scheduler"
)

// SystemHandlers serves operational endpoints: ledger status, host metrics and
// manual job triggers.
type SystemHandlers struct {
	ledgerDB  *database.DB
	scheduler *scheduler.Scheduler
	startedAt time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates new system handlers.
func NewSystemHandlers(ledgerDB *database.DB, sched *scheduler.Scheduler, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		ledgerDB:  ledgerDB,
		scheduler: sched,
		startedAt: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// SystemStatusResponse is the system status payload.
type SystemStatusResponse struct {
	Status             string  `json:"status"`
	UptimeSeconds      int64   `json:"uptime_seconds"`
	Customers          int     `json:"customers"`
	Funds              int     `json:"funds"`
	PendingTransitions int     `json:"pending_transitions"`
	DatabaseSizeBytes  int64   `json:"database_size_bytes"`
	WALSizeBytes       int64   `json:"wal_size_bytes"`
	CPUPercent         float64 `json:"cpu_percent"`
	MemoryPercent      float64 `json:"memory_percent"`
}

// HandleSystemStatus handles GET /system/status.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}

	conn := h.ledgerDB.Conn()
	if err := conn.QueryRow("SELECT COUNT(*) FROM customers").Scan(&response.Customers); err != nil {
		h.log.Error().Err(err).Msg("Failed to count customers")
		response.Status = "degraded"
	}
	if err := conn.QueryRow("SELECT COUNT(*) FROM funds").Scan(&response.Funds); err != nil {
		h.log.Error().Err(err).Msg("Failed to count funds")
		response.Status = "degraded"
	}
	err := conn.QueryRow("SELECT COUNT(*) FROM transitions WHERE status = 'PENDING'").
		Scan(&response.PendingTransitions)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count pending transitions")
		response.Status = "degraded"
	}

	if stats, err := h.ledgerDB.GetStats(); err == nil {
		response.DatabaseSizeBytes = stats.SizeBytes
		response.WALSizeBytes = stats.WALSizeBytes
	}

	response.CPUPercent, response.MemoryPercent = h.getSystemStats()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// HandleTriggerJob handles POST /system/jobs/{name}/run - run a scheduled job
// immediately.
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.scheduler.RunNow(name); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Job executed: " + name,
	})
}

// getSystemStats returns host CPU and memory utilization percentages.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent := 0.0
	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		cpuPercent = percents[0]
	}

	memPercent := 0.0
	if memStat, err := mem.VirtualMemory(); err == nil {
		memPercent = memStat.UsedPercent
	}

	return cpuPercent, memPercent
}
