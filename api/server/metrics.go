// metrics.go - Metrics collection for the medchain node
package server

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
)

// NodeMetrics holds health metrics for the node.
type NodeMetrics struct {
	UptimeSeconds  int64   `json:"uptime_seconds"`
	BlockHeight    int     `json:"block_height"`
	Difficulty     int     `json:"difficulty"`
	ChainValid     bool    `json:"chain_valid"`
	CPULoadPercent float64 `json:"cpu_load_percent"`
	MemoryMB       float64 `json:"memory_mb"`
	DiskFreeMB     float64 `json:"disk_free_mb"`
	LastBlockTime  string  `json:"last_block_time"`
}

// GetNodeMetrics returns current health metrics for the node.
func (s *Server) GetNodeMetrics() NodeMetrics {
	chain := s.svc.Chain()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	diskFreeMB := 0.0
	if usage, err := disk.Usage("/"); err == nil {
		diskFreeMB = float64(usage.Free) / (1024 * 1024)
	}

	cpuLoad := 0.0
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		cpuLoad = pcts[0]
	}

	last := ""
	if len(chain) > 0 {
		last = chain[len(chain)-1].Timestamp.Format(time.RFC3339)
	}

	return NodeMetrics{
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
		BlockHeight:    len(chain),
		Difficulty:     s.svc.Difficulty(),
		ChainValid:     s.svc.ValidateChain(),
		CPULoadPercent: cpuLoad,
		MemoryMB:       float64(m.Alloc) / (1024 * 1024),
		DiskFreeMB:     diskFreeMB,
		LastBlockTime:  last,
	}
}

// nodeStatus derives a one-word status from metrics.
func nodeStatus(m NodeMetrics) string {
	switch {
	case m.BlockHeight == 0:
		return "initializing"
	case !m.ChainValid:
		return "degraded"
	default:
		return "healthy"
	}
}
