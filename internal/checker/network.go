package checker

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
	"github.com/khanhnv2901/secakit/internal/probe"
	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
)

// PortScanner checks a set of TCP ports on one host
type PortScanner struct {
	Resolver probe.Resolver
	Dialer   probe.Dialer
	Timeout  time.Duration // per-port connect timeout
	Workers  int           // concurrent connects, clamped to [1, MaxPortWorkers]
	MaxPorts int           // largest accepted port set
}

// Scan resolves target once, connects to every port in spec and partitions
// the ports into open and closed. The partition does not depend on the
// order in which connects complete.
func (s *PortScanner) Scan(ctx context.Context, target, spec string) (*scan.PortScanResult, error) {
	target = strings.TrimSpace(target)
	host := ExtractHost(target)
	if host == "" {
		return nil, sharedErrors.ErrEmptyTarget
	}

	ports, err := ParsePortSpec(spec, s.MaxPorts)
	if err != nil {
		return nil, err
	}

	ip, err := probe.ResolveIPv4(ctx, s.Resolver, host)
	if err != nil {
		return nil, err
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = consts.DefaultPortTimeout
	}

	startTime := time.Now()
	open := make([]bool, len(ports))

	var g errgroup.Group
	g.SetLimit(s.workers())
	for i, port := range ports {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			_, err := probe.ConnectTCP(ctx, s.Dialer, ip, port, timeout)
			open[i] = err == nil
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &scan.PortScanResult{
		Meta:         scan.NewMeta(),
		Target:       target,
		ResolvedIP:   ip.String(),
		OpenPorts:    []scan.OpenPort{},
		ClosedPorts:  []int{},
		ScanDuration: time.Since(startTime).Seconds(),
	}
	for i, port := range ports {
		if open[i] {
			result.OpenPorts = append(result.OpenPorts, scan.OpenPort{
				Port:    port,
				Service: getServiceName(port),
				Status:  "open",
				Risk:    getPortRisk(port),
			})
			continue
		}
		result.ClosedPorts = append(result.ClosedPorts, port)
	}
	return result, nil
}

func (s *PortScanner) workers() int {
	switch {
	case s.Workers <= 0:
		return consts.DefaultPortWorkers
	case s.Workers > consts.MaxPortWorkers:
		return consts.MaxPortWorkers
	}
	return s.Workers
}
