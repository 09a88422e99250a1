package checker

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
	"github.com/khanhnv2901/secakit/internal/probe"
	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
)

// scriptedEchoer replays a fixed sequence of replies; a zero RTT means lost.
type scriptedEchoer struct {
	rtts   []time.Duration
	method scan.Method
	calls  int
}

func (s *scriptedEchoer) Echo(ctx context.Context, ip net.IP, timeout time.Duration) (probe.Reply, error) {
	rtt := s.rtts[s.calls%len(s.rtts)]
	s.calls++
	if rtt == 0 {
		return probe.Reply{Method: s.method}, probe.ErrNoReply
	}
	return probe.Reply{RTT: rtt, Method: s.method}, nil
}

func TestPingUnreachableReportsFullLoss(t *testing.T) {
	p := &PingProbe{Echoer: &scriptedEchoer{rtts: []time.Duration{0}, method: scan.MethodICMP}}

	res, err := p.Ping(context.Background(), "192.0.2.1", 4)
	if err != nil {
		t.Fatalf("Ping error: %v", err)
	}
	if res.PacketsSent != 4 || res.PacketsReceived != 0 {
		t.Fatalf("sent/received = %d/%d, want 4/0", res.PacketsSent, res.PacketsReceived)
	}
	if res.PacketLoss != 100 {
		t.Fatalf("packet loss = %v, want 100", res.PacketLoss)
	}
	if res.ResponseTime != nil {
		t.Fatalf("response time should be nil, got %v", *res.ResponseTime)
	}
}

func TestPingAveragesAnsweredProbesOnly(t *testing.T) {
	echoer := &scriptedEchoer{
		rtts:   []time.Duration{10 * time.Millisecond, 0, 30 * time.Millisecond, 0},
		method: scan.MethodTCP,
	}
	p := &PingProbe{Echoer: echoer}

	res, err := p.Ping(context.Background(), "127.0.0.1", 4)
	if err != nil {
		t.Fatalf("Ping error: %v", err)
	}
	if res.PacketsReceived != 2 || res.PacketLoss != 50 {
		t.Fatalf("received=%d loss=%v, want 2 and 50", res.PacketsReceived, res.PacketLoss)
	}
	if res.ResponseTime == nil || *res.ResponseTime != 20 {
		t.Fatalf("average = %v, want 20ms", res.ResponseTime)
	}
	if *res.MinTime != 10 || *res.MaxTime != 30 {
		t.Fatalf("min/max = %v/%v, want 10/30", *res.MinTime, *res.MaxTime)
	}
	if res.Method != scan.MethodTCP {
		t.Fatalf("method = %s, want tcp", res.Method)
	}
	if echoer.calls != 4 {
		t.Fatalf("expected 4 sequential probes, got %d", echoer.calls)
	}
}

func TestPingValidatesCount(t *testing.T) {
	p := &PingProbe{Echoer: &scriptedEchoer{rtts: []time.Duration{time.Millisecond}}}
	for _, count := range []int{0, 11, -1} {
		if _, err := p.Ping(context.Background(), "127.0.0.1", count); !errors.Is(err, sharedErrors.ErrOutOfRange) {
			t.Errorf("count %d: expected ErrOutOfRange, got %v", count, err)
		}
	}
}

func TestPingResolveFailure(t *testing.T) {
	p := &PingProbe{Resolver: failingResolver{}, Echoer: &scriptedEchoer{rtts: []time.Duration{time.Millisecond}}}
	if _, err := p.Ping(context.Background(), "nothing.invalid", 1); !errors.Is(err, sharedErrors.ErrResolveFailed) {
		t.Fatalf("expected ErrResolveFailed, got %v", err)
	}
}

func TestPingRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &PingProbe{Echoer: &scriptedEchoer{rtts: []time.Duration{time.Millisecond}}, Interval: time.Second}
	if _, err := p.Ping(ctx, "127.0.0.1", 3); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
