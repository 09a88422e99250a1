package checker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
	"github.com/khanhnv2901/secakit/internal/probe"
	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
)

// PingProbe measures round-trip latency with sequential echo probes
type PingProbe struct {
	Resolver probe.Resolver
	Echoer   probe.Echoer
	Timeout  time.Duration // per probe
	Interval time.Duration // pause between probes
}

// Ping sends count probes to target one after another. Lost probes count
// toward packet loss; the average covers answered probes only.
func (p *PingProbe) Ping(ctx context.Context, target string, count int) (*scan.PingResult, error) {
	target = strings.TrimSpace(target)
	host := ExtractHost(target)
	if host == "" {
		return nil, sharedErrors.ErrEmptyTarget
	}
	if count < consts.MinPingCount || count > consts.MaxPingCount {
		return nil, fmt.Errorf("%w: count must be between %d and %d", sharedErrors.ErrOutOfRange, consts.MinPingCount, consts.MaxPingCount)
	}

	ip, err := probe.ResolveIPv4(ctx, p.Resolver, host)
	if err != nil {
		return nil, err
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = consts.DefaultProbeTimeout
	}

	result := &scan.PingResult{
		Meta:       scan.NewMeta(),
		Target:     target,
		ResolvedIP: ip.String(),
		Method:     scan.MethodICMP,
	}

	var rtts []time.Duration
	for i := 0; i < count; i++ {
		if i > 0 && p.Interval > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.Interval):
			}
		}

		reply, err := p.Echoer.Echo(ctx, ip, timeout)
		result.PacketsSent++
		if reply.Method != "" {
			result.Method = reply.Method
		}
		switch {
		case err == nil:
			rtts = append(rtts, reply.RTT)
		case errors.Is(err, probe.ErrNoReply):
		case errors.Is(err, probe.ErrSocketUnavailable):
			return nil, fmt.Errorf("%w: %v", sharedErrors.ErrProbeUnavailable, err)
		default:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("echo %s: %w", ip, err)
		}
	}

	summarizeRTTs(result, rtts)
	return result, nil
}

func summarizeRTTs(result *scan.PingResult, rtts []time.Duration) {
	result.PacketsReceived = len(rtts)
	if result.PacketsSent > 0 {
		result.PacketLoss = 100 * float64(result.PacketsSent-result.PacketsReceived) / float64(result.PacketsSent)
	}
	if len(rtts) == 0 {
		return
	}

	var total time.Duration
	minRTT, maxRTT := rtts[0], rtts[0]
	for _, rtt := range rtts {
		total += rtt
		minRTT = min(minRTT, rtt)
		maxRTT = max(maxRTT, rtt)
	}
	avg := millis(total / time.Duration(len(rtts)))
	lo, hi := millis(minRTT), millis(maxRTT)
	result.ResponseTime = &avg
	result.MinTime = &lo
	result.MaxTime = &hi
}

// millis converts a duration to milliseconds with microsecond precision.
func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
