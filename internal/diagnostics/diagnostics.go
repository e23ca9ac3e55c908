// Package diagnostics reports host-side resource and interface context
// alongside WCM status for the control plane's status route. It never
// feeds back into FSM decisions — the WCM operates purely on driver events
// and the profile store — this package exists only to give an operator
// visibility into the host the dispatcher runs on.
package diagnostics

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
)

// HostStats is a single sample of host resource usage.
type HostStats struct {
	Timestamp     time.Time
	CPUPercent    float64
	CPUCores      int
	MemoryPercent float64
	MemoryUsed    uint64
	MemoryTotal   uint64
}

// InterfaceCounters summarizes one network interface's traffic counters.
type InterfaceCounters struct {
	Name    string
	RxBytes uint64
	TxBytes uint64
}

// Collector samples the host this daemon runs on. It keeps no state of its
// own: the control plane only ever needs a point-in-time snapshot, not a
// rolling history.
type Collector struct{}

// NewCollector returns a ready-to-use Collector.
func NewCollector() *Collector { return &Collector{} }

// Sample reads current CPU and memory usage. cpu.Percent briefly blocks for
// the given interval to compute a delta; 100ms keeps the status route
// responsive.
func (c *Collector) Sample() HostStats {
	s := HostStats{Timestamp: time.Now(), CPUCores: runtime.NumCPU()}

	if pct, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	if v, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = v.UsedPercent
		s.MemoryUsed = v.Used
		s.MemoryTotal = v.Total
	}
	return s
}

// Interfaces reports per-NIC byte counters for every non-loopback
// interface with traffic counters available.
func (c *Collector) Interfaces() []InterfaceCounters {
	counters, err := psnet.IOCounters(true)
	if err != nil {
		return nil
	}
	out := make([]InterfaceCounters, 0, len(counters))
	for _, ioc := range counters {
		if ioc.Name == "lo" {
			continue
		}
		out = append(out, InterfaceCounters{Name: ioc.Name, RxBytes: ioc.BytesRecv, TxBytes: ioc.BytesSent})
	}
	return out
}
