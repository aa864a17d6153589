package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/holdings/internal/database"
	"github.com/aristath/holdings/internal/quotecache"
	"github.com/aristath/holdings/internal/utils"
)

// HealthChecker is a named dependency probed by /health.
type HealthChecker struct {
	Name  string
	Check func(ctx context.Context) error
}

// StatsSource reports sqlite statistics.
type StatsSource interface {
	GetStats() (*database.Stats, error)
}

// SubscriberCounter reports live websocket subscribers.
type SubscriberCounter interface {
	Len() int
}

// SystemHandlers serves health and status endpoints
type SystemHandlers struct {
	checks    []HealthChecker
	databases []StatsSource
	cache     *quotecache.Cache
	hub       SubscriberCounter
	started   time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates system handlers. cache and hub may be nil.
func NewSystemHandlers(checks []HealthChecker, databases []StatsSource, cache *quotecache.Cache, hub SubscriberCounter, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		checks:    checks,
		databases: databases,
		cache:     cache,
		hub:       hub,
		started:   time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// HandleHealth probes every dependency; any failure yields 503.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			h.log.Warn().Err(err).Str("check", c.Name).Msg("Health check failed")
			checks[c.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	utils.WriteJSON(w, h.log, status, map[string]interface{}{
		"status": state,
		"checks": checks,
	})
}

// StatusResponse is the body of /api/system/status.
type StatusResponse struct {
	UptimeSeconds int64             `json:"uptime_seconds"`
	CPUPercent    float64           `json:"cpu_percent"`
	MemoryPercent float64           `json:"memory_percent"`
	Goroutines    int               `json:"goroutines"`
	HeapAllocMB   float64           `json:"heap_alloc_mb"`
	Databases     []*database.Stats `json:"databases"`
	Cache         *quotecache.Stats `json:"cache,omitempty"`
	Subscribers   int               `json:"ws_subscribers"`
}

// HandleStatus reports host and process statistics.
func (h *SystemHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	resp := StatusResponse{
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(ms.HeapAlloc) / 1024 / 1024,
		Databases:     make([]*database.Stats, 0, len(h.databases)),
	}
	for _, db := range h.databases {
		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to read database stats")
			continue
		}
		resp.Databases = append(resp.Databases, stats)
	}
	if h.cache != nil {
		stats := h.cache.Stats()
		resp.Cache = &stats
	}
	if h.hub != nil {
		resp.Subscribers = h.hub.Len()
	}

	utils.WriteJSON(w, h.log, http.StatusOK, resp)
}

// getSystemStats returns CPU and RAM usage percentages, sampling CPU over 100ms.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
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
