package metrics

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// HostStats is one sample of host-level resource usage. These reflect the
// host (node), not container limits.
type HostStats struct {
	CPUPercent      float64
	MemoryPercent   float64
	MemoryUsedBytes uint64
}

// HostSampler produces host resource samples. Injectable for tests.
type HostSampler interface {
	Sample() (HostStats, error)
}

// PsutilSampler reads host CPU and memory via gopsutil. The CPU call is
// non-blocking: it reports usage since the previous call, so the first
// sample after startup reads as zero.
type PsutilSampler struct{}

func (PsutilSampler) Sample() (HostStats, error) {
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return HostStats{}, fmt.Errorf("sample cpu: %w", err)
	}
	var cpuPct float64
	if len(percents) > 0 {
		cpuPct = percents[0]
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return HostStats{}, fmt.Errorf("sample memory: %w", err)
	}
	return HostStats{
		CPUPercent:      cpuPct,
		MemoryPercent:   vm.UsedPercent,
		MemoryUsedBytes: vm.Used,
	}, nil
}
