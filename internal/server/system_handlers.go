package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStatusResponse reports process and host health plus a few
// dataset counters.
type SystemStatusResponse struct {
	Status     string  `json:"status"`
	UptimeH    float64 `json:"uptime_hours"`
	CPUPercent float64 `json:"cpu_percent"`
	RAMPercent float64 `json:"ram_percent"`
	Goroutines int     `json:"goroutines"`
	AllocMB    uint64  `json:"alloc_mb"`

	Snapshots       int `json:"snapshots"`
	PricePoints     int `json:"price_points"`
	CachedBacktests int `json:"cached_backtests"`

	CheckedAt string `json:"checked_at"`
}

// handleSystemStatus returns system health and dataset counters
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	resp := SystemStatusResponse{
		Status:     "running",
		Goroutines: runtime.NumGoroutine(),
		CheckedAt:  time.Now().Format(time.RFC3339),
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	resp.AllocMB = m.Alloc / 1024 / 1024

	if percs, err := cpu.Percent(0, false); err == nil && len(percs) > 0 {
		resp.CPUPercent = percs[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		resp.RAMPercent = vm.UsedPercent
	}
	if up, err := host.Uptime(); err == nil {
		resp.UptimeH = float64(up) / 3600
	}

	// Dataset counters are best-effort; a failed count is logged, not fatal.
	for _, q := range []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM snapshots", &resp.Snapshots},
		{"SELECT COUNT(*) FROM daily_prices", &resp.PricePoints},
		{"SELECT COUNT(*) FROM backtest_results", &resp.CachedBacktests},
	} {
		if err := s.store.DB().QueryRow(q.query).Scan(q.dest); err != nil {
			s.log.Warn().Err(err).Str("query", q.query).Msg("Dataset count failed")
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}
