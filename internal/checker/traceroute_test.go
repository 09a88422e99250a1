package checker

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/khanhnv2901/secakit/internal/probe"
	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
)

// fakeHopper answers from a scripted route: routers[ttl-1] answers that TTL,
// nil means silence, and TTLs past the route reach the destination.
type fakeHopper struct {
	routers []net.IP
	closed  bool
	probes  int
}

func (f *fakeHopper) Probe(ctx context.Context, dst net.IP, ttl int, timeout time.Duration) (probe.HopReply, error) {
	f.probes++
	if ttl > len(f.routers) {
		return probe.HopReply{Peer: dst, RTT: 3 * time.Millisecond, Reached: true}, nil
	}
	if r := f.routers[ttl-1]; r != nil {
		return probe.HopReply{Peer: r, RTT: time.Duration(ttl) * time.Millisecond}, nil
	}
	return probe.HopReply{}, probe.ErrNoReply
}

func (f *fakeHopper) Close() error {
	f.closed = true
	return nil
}

type staticResolver struct{}

func (staticResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	return []net.IPAddr{{IP: net.ParseIP("198.51.100.9")}}, nil
}

func (staticResolver) LookupAddr(ctx context.Context, addr string) ([]string, error) {
	if addr == "192.0.2.1" {
		return []string{"gw.example."}, nil
	}
	return nil, errors.New("no ptr")
}

func newTraceEngine(h *fakeHopper) *TracerouteEngine {
	return &TracerouteEngine{
		Resolver:     staticResolver{},
		NewHopper:    func() (probe.Hopper, error) { return h, nil },
		ProbeTimeout: 10 * time.Millisecond,
		ProbesPerHop: 2,
	}
}

func TestTraceStopsAtTarget(t *testing.T) {
	h := &fakeHopper{routers: []net.IP{net.ParseIP("192.0.2.1"), nil, net.ParseIP("192.0.2.3")}}

	res, err := newTraceEngine(h).Trace(context.Background(), "example.test", 30)
	if err != nil {
		t.Fatalf("Trace error: %v", err)
	}
	if !res.Reached || res.TotalHops != 4 || len(res.Hops) != 4 {
		t.Fatalf("reached=%v total=%d hops=%d, want true/4/4", res.Reached, res.TotalHops, len(res.Hops))
	}
	for i, hop := range res.Hops {
		if hop.Hop != i+1 {
			t.Fatalf("hop index %d at position %d", hop.Hop, i)
		}
	}
	if res.Hops[0].IP != "192.0.2.1" || res.Hops[0].Hostname != "gw.example" {
		t.Fatalf("unexpected first hop: %+v", res.Hops[0])
	}
	if res.Hops[1].IP != "*" || res.Hops[1].AvgTime != nil {
		t.Fatalf("silent hop should be '*' with nil time: %+v", res.Hops[1])
	}
	if res.Hops[3].IP != "198.51.100.9" || res.Hops[3].AvgTime == nil || *res.Hops[3].AvgTime != 3 {
		t.Fatalf("unexpected final hop: %+v", res.Hops[3])
	}
	if !h.closed {
		t.Fatal("hopper should be closed")
	}
}

func TestTraceHonorsMaxHops(t *testing.T) {
	h := &fakeHopper{routers: make([]net.IP, 10)}

	res, err := newTraceEngine(h).Trace(context.Background(), "198.51.100.9", 5)
	if err != nil {
		t.Fatalf("Trace error: %v", err)
	}
	if res.Reached || res.TotalHops != 5 {
		t.Fatalf("reached=%v total=%d, want false/5", res.Reached, res.TotalHops)
	}
	if h.probes != 10 {
		t.Fatalf("expected 2 probes per hop without retries, got %d", h.probes)
	}
}

func TestTraceValidatesInput(t *testing.T) {
	e := newTraceEngine(&fakeHopper{})
	for _, hops := range []int{0, 31} {
		if _, err := e.Trace(context.Background(), "example.test", hops); !errors.Is(err, sharedErrors.ErrOutOfRange) {
			t.Errorf("max_hops %d: expected ErrOutOfRange, got %v", hops, err)
		}
	}
	if _, err := e.Trace(context.Background(), "", 5); !errors.Is(err, sharedErrors.ErrEmptyTarget) {
		t.Errorf("expected ErrEmptyTarget, got %v", err)
	}
	e.Resolver = failingResolver{}
	if _, err := e.Trace(context.Background(), "missing.invalid", 5); !errors.Is(err, sharedErrors.ErrResolveFailed) {
		t.Errorf("expected ErrResolveFailed, got %v", err)
	}
}
