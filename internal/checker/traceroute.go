package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
	"github.com/khanhnv2901/secakit/internal/probe"
	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
)

// TracerouteEngine discovers the hops toward a host with TTL-limited probes
type TracerouteEngine struct {
	Resolver     probe.Resolver
	NewHopper    probe.HopperFactory
	ProbeTimeout time.Duration
	ProbesPerHop int
	RDNSTimeout  time.Duration
}

// Trace probes TTL 1..maxHops in order and stops early once the target
// itself answers. Silent hops are reported with IP "*" and no timing.
func (e *TracerouteEngine) Trace(ctx context.Context, target string, maxHops int) (*scan.TracerouteResult, error) {
	target = strings.TrimSpace(target)
	host := ExtractHost(target)
	if host == "" {
		return nil, sharedErrors.ErrEmptyTarget
	}
	if maxHops < 1 || maxHops > consts.MaxHops {
		return nil, fmt.Errorf("%w: max_hops must be between 1 and %d", sharedErrors.ErrOutOfRange, consts.MaxHops)
	}

	ip, err := probe.ResolveIPv4(ctx, e.Resolver, host)
	if err != nil {
		return nil, err
	}
	if ip.To4() == nil {
		return nil, fmt.Errorf("%w: traceroute supports IPv4 targets only", sharedErrors.ErrInvalidInput)
	}

	hopper, err := e.NewHopper()
	if err != nil {
		if errors.Is(err, probe.ErrSocketUnavailable) {
			return nil, fmt.Errorf("%w: %v", sharedErrors.ErrProbeUnavailable, err)
		}
		return nil, fmt.Errorf("open hop socket: %w", err)
	}
	defer hopper.Close()

	result := &scan.TracerouteResult{
		Meta:       scan.NewMeta(),
		Target:     target,
		ResolvedIP: ip.String(),
		MaxHops:    maxHops,
		Hops:       make([]scan.Hop, 0, maxHops),
	}

	for ttl := 1; ttl <= maxHops; ttl++ {
		hop, reached, err := e.probeHop(ctx, hopper, ip, ttl)
		if err != nil {
			return nil, err
		}
		result.Hops = append(result.Hops, hop)
		if reached {
			result.Reached = true
			break
		}
	}
	result.TotalHops = len(result.Hops)
	return result, nil
}

func (e *TracerouteEngine) probeHop(ctx context.Context, hopper probe.Hopper, dst net.IP, ttl int) (scan.Hop, bool, error) {
	hop := scan.Hop{Hop: ttl, IP: scan.NoReplyIP}

	probes := e.ProbesPerHop
	if probes <= 0 {
		probes = consts.DefaultProbesPerHop
	}
	timeout := e.ProbeTimeout
	if timeout <= 0 {
		timeout = consts.DefaultProbeTimeout
	}

	var (
		peer    net.IP
		reached bool
		rtts    []time.Duration
	)
	for i := 0; i < probes; i++ {
		reply, err := hopper.Probe(ctx, dst, ttl, timeout)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return hop, false, ctxErr
			}
			if !errors.Is(err, probe.ErrNoReply) {
				return hop, false, fmt.Errorf("probe ttl %d: %w", ttl, err)
			}
			continue
		}
		if peer == nil {
			peer = reply.Peer
		}
		reached = reached || reply.Reached
		rtts = append(rtts, reply.RTT)
	}
	if peer == nil {
		return hop, false, nil
	}

	hop.IP = peer.String()
	var total time.Duration
	for _, rtt := range rtts {
		total += rtt
	}
	avg := millis(total / time.Duration(len(rtts)))
	hop.AvgTime = &avg

	rdnsTimeout := e.RDNSTimeout
	if rdnsTimeout <= 0 {
		rdnsTimeout = time.Second
	}
	hop.Hostname = probe.ReverseName(ctx, e.Resolver, peer, rdnsTimeout)
	return hop, reached, nil
}
