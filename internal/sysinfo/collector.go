// Package sysinfo takes a snapshot of the host: platform, addresses, memory,
// disk, uptime and the busiest processes.
package sysinfo

import (
	"context"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	psnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
)

const gib = 1 << 30

// Collector gathers a SystemInfo snapshot. The zero value is usable.
type Collector struct {
	DiskPath    string // defaults to "/"
	PublicIPURL string // empty disables the public address lookup
	Client      *http.Client
	TopN        int
	Logger      *zap.Logger
}

// NewCollector returns a collector that looks up the public address at
// consts.PublicIPURL.
func NewCollector(logger *zap.Logger) *Collector {
	return &Collector{
		DiskPath:    "/",
		PublicIPURL: consts.PublicIPURL,
		Client:      &http.Client{Timeout: consts.PublicIPTimeout},
		TopN:        consts.TopProcessCount,
		Logger:      logger,
	}
}

// Collect takes one snapshot. Platform, memory and disk figures are required;
// addresses and processes are filled in when available.
func (c *Collector) Collect(ctx context.Context) (*scan.SystemInfo, error) {
	info := &scan.SystemInfo{TopProcesses: []scan.ProcessUsage{}}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		h, err := host.InfoWithContext(gctx)
		if err != nil {
			return fmt.Errorf("read host info: %w", err)
		}
		info.Hostname = h.Hostname
		info.OSName = firstNonEmpty(h.Platform, h.OS)
		info.OSVersion = firstNonEmpty(h.PlatformVersion, h.KernelVersion)
		info.UptimeSeconds = h.Uptime
		info.Uptime = FormatUptime(h.Uptime)
		return nil
	})
	g.Go(func() error {
		vm, err := mem.VirtualMemoryWithContext(gctx)
		if err != nil {
			return fmt.Errorf("read memory usage: %w", err)
		}
		info.RAMTotal = toGiB(vm.Total)
		info.RAMUsed = toGiB(vm.Used)
		info.RAMPercentage = round(vm.UsedPercent, 1)
		return nil
	})
	g.Go(func() error {
		path := c.DiskPath
		if path == "" {
			path = "/"
		}
		du, err := disk.UsageWithContext(gctx, path)
		if err != nil {
			return fmt.Errorf("read disk usage of %s: %w", path, err)
		}
		info.DiskTotal = toGiB(du.Total)
		info.DiskUsed = toGiB(du.Used)
		info.DiskFree = toGiB(du.Free)
		info.DiskPercentage = round(du.UsedPercent, 1)
		return nil
	})
	g.Go(func() error {
		info.LocalIP = c.localIP(gctx)
		return nil
	})
	g.Go(func() error {
		info.PublicIP = c.publicIP(gctx)
		return nil
	})
	g.Go(func() error {
		info.TopProcesses = c.topProcesses(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return info, nil
}

func (c *Collector) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// localIP picks the first IPv4 address of an interface that is up and not
// loopback.
func (c *Collector) localIP(ctx context.Context) string {
	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		c.logger().Debug("interface listing failed", zap.Error(err))
		return ""
	}
	for _, iface := range ifaces {
		if !slices.Contains(iface.Flags, "up") || slices.Contains(iface.Flags, "loopback") {
			continue
		}
		for _, addr := range iface.Addrs {
			ip, _, err := net.ParseCIDR(addr.Addr)
			if err != nil {
				ip = net.ParseIP(addr.Addr)
			}
			if ip4 := ip.To4(); ip4 != nil && !ip4.IsLoopback() && !ip4.IsLinkLocalUnicast() {
				return ip4.String()
			}
		}
	}
	return ""
}

func (c *Collector) publicIP(ctx context.Context) *string {
	if c.PublicIPURL == "" {
		return nil
	}
	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: consts.PublicIPTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PublicIPURL, nil)
	if err != nil {
		return nil
	}
	resp, err := client.Do(req)
	if err != nil {
		c.logger().Debug("public address lookup failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.logger().Debug("public address lookup failed", zap.Int("status", resp.StatusCode))
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return nil
	}
	ip := net.ParseIP(strings.TrimSpace(string(body)))
	if ip == nil {
		return nil
	}
	s := ip.String()
	return &s
}

// topProcesses ranks processes by CPU share since they started. Processes
// that exit or deny access mid-scan are skipped.
func (c *Collector) topProcesses(ctx context.Context) []scan.ProcessUsage {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		c.logger().Debug("process listing failed", zap.Error(err))
		return []scan.ProcessUsage{}
	}
	usage := make([]scan.ProcessUsage, 0, len(procs))
	for _, p := range procs {
		if ctx.Err() != nil {
			break
		}
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		cpu, err := p.CPUPercentWithContext(ctx)
		if err != nil {
			continue
		}
		memPct, _ := p.MemoryPercentWithContext(ctx)
		usage = append(usage, scan.ProcessUsage{
			PID:           p.Pid,
			Name:          name,
			CPUPercent:    round(cpu, 1),
			MemoryPercent: round(float64(memPct), 1),
		})
	}
	return TopByCPU(usage, c.topN())
}

func (c *Collector) topN() int {
	if c.TopN <= 0 {
		return consts.TopProcessCount
	}
	return c.TopN
}

// TopByCPU returns the n busiest entries, highest CPU first; ties keep
// ascending PID order.
func TopByCPU(usage []scan.ProcessUsage, n int) []scan.ProcessUsage {
	sorted := slices.Clone(usage)
	slices.SortStableFunc(sorted, func(a, b scan.ProcessUsage) int {
		switch {
		case a.CPUPercent > b.CPUPercent:
			return -1
		case a.CPUPercent < b.CPUPercent:
			return 1
		default:
			return int(a.PID) - int(b.PID)
		}
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	if sorted == nil {
		return []scan.ProcessUsage{}
	}
	return sorted
}

// FormatUptime renders seconds as "H:MM:SS", prefixed with a day count once
// the host has been up a day or more.
func FormatUptime(seconds uint64) string {
	d := time.Duration(seconds) * time.Second
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hms := fmt.Sprintf("%d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
	switch days {
	case 0:
		return hms
	case 1:
		return "1 day, " + hms
	default:
		return fmt.Sprintf("%d days, %s", days, hms)
	}
}

func toGiB(b uint64) float64 {
	return round(float64(b)/gib, 2)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
