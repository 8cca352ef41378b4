package ws

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/siphon/backend/internal/inject"
)

// Stats is the operator view served at /api/stats: registry counts plus
// host load.
type Stats struct {
	Projects int `json:"projects"`
	Clients  int `json:"clients"`
	Sessions int `json:"sessions"`

	CPUPercent float64 `json:"cpuPercent"`
	MemUsed    uint64  `json:"memUsed"`
	MemTotal   uint64  `json:"memTotal"`
	MemPercent float64 `json:"memPercent"`
}

func collectStats(registry *inject.Registry) Stats {
	var st Stats
	st.Projects, st.Clients, st.Sessions = registry.Counts()

	// Host metrics are best-effort; a probe failure leaves zeros.
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		st.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		st.MemUsed = vm.Used
		st.MemTotal = vm.Total
		st.MemPercent = vm.UsedPercent
	}

	return st
}
