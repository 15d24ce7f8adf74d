package health

import (
	"context"
	"errors"
	"runtime"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/mem"

	"github.com/cyberwave-os/cyberwave-edge/internal/models"
)

// CPUCollector reports total CPU utilization.
type CPUCollector struct{}

func (c *CPUCollector) Name() string {
	return "cpu"
}

func (c *CPUCollector) Collect(ctx context.Context, snapshot *models.StatusSnapshot) error {
	percentages, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return err
	}
	if len(percentages) == 0 {
		return errors.New("health: empty CPU usage data")
	}
	snapshot.CPUUsage = &percentages[0]
	return nil
}

// MemoryCollector reports virtual memory utilization.
type MemoryCollector struct{}

func (m *MemoryCollector) Name() string {
	return "memory"
}

func (m *MemoryCollector) Collect(ctx context.Context, snapshot *models.StatusSnapshot) error {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return err
	}
	snapshot.MemoryUsage = &vm.UsedPercent
	return nil
}

// DiskCollector reports root filesystem utilization.
type DiskCollector struct{}

func (d *DiskCollector) Name() string {
	return "disk"
}

func (d *DiskCollector) Collect(ctx context.Context, snapshot *models.StatusSnapshot) error {
	usage, err := disk.UsageWithContext(ctx, "/")
	if err != nil {
		return err
	}
	snapshot.DiskUsage = &usage.UsedPercent
	return nil
}

// GoroutineCollector reports the process goroutine count, a cheap proxy
// for runaway concurrency inside the agent itself.
type GoroutineCollector struct{}

func (g *GoroutineCollector) Name() string {
	return "goroutines"
}

func (g *GoroutineCollector) Collect(_ context.Context, snapshot *models.StatusSnapshot) error {
	n := runtime.NumGoroutine()
	snapshot.Goroutines = &n
	return nil
}
