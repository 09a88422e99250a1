package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-ping/ping"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
)

// Pinger is the subset of *ping.Pinger used here, so tests can swap it.
type Pinger interface {
	Run() error
	Stop()
	Statistics() *ping.Statistics

	SetPrivileged(bool)
	SetCount(int)
	SetInterval(time.Duration)
	SetTimeout(time.Duration)
}

type pingerFactoryFunc func(ip string) (Pinger, error)

// ICMPEchoer sends one ICMP echo request per probe using go-ping.
type ICMPEchoer struct {
	Privileged    bool
	pingerFactory pingerFactoryFunc
}

// NewICMPEchoer returns an echoer backed by github.com/go-ping/ping.
// Unprivileged mode uses datagram ICMP sockets.
func NewICMPEchoer(privileged bool) *ICMPEchoer {
	return &ICMPEchoer{
		Privileged: privileged,
		pingerFactory: func(ip string) (Pinger, error) {
			p, err := ping.NewPinger(ip)
			if err != nil {
				return nil, err
			}
			return &realPingerAdapter{p: p}, nil
		},
	}
}

func (e *ICMPEchoer) Echo(ctx context.Context, ip net.IP, timeout time.Duration) (Reply, error) {
	noReply := Reply{Method: scan.MethodICMP}

	pinger, err := e.pingerFactory(ip.String())
	if err != nil {
		return noReply, fmt.Errorf("create pinger: %w", err)
	}
	pinger.SetPrivileged(e.Privileged)
	pinger.SetCount(1)
	pinger.SetInterval(timeout)
	pinger.SetTimeout(timeout)

	opCtx, cancel := context.WithTimeout(ctx, timeout+500*time.Millisecond)
	defer cancel()
	go func() {
		<-opCtx.Done()
		pinger.Stop()
	}()

	if err := pinger.Run(); err != nil {
		return noReply, fmt.Errorf("%w: %v", ErrSocketUnavailable, err)
	}
	stats := pinger.Statistics()
	if stats == nil || stats.PacketsRecv == 0 {
		return noReply, ErrNoReply
	}
	rtt := stats.AvgRtt
	if len(stats.Rtts) > 0 {
		rtt = stats.Rtts[0]
	}
	return Reply{RTT: rtt, Method: scan.MethodICMP}, nil
}

// realPingerAdapter wraps *ping.Pinger to implement Pinger.
type realPingerAdapter struct {
	p *ping.Pinger
}

func (r *realPingerAdapter) Run() error                   { return r.p.Run() }
func (r *realPingerAdapter) Stop()                        { r.p.Stop() }
func (r *realPingerAdapter) Statistics() *ping.Statistics { return r.p.Statistics() }

func (r *realPingerAdapter) SetPrivileged(v bool)        { r.p.SetPrivileged(v) }
func (r *realPingerAdapter) SetCount(c int)              { r.p.Count = c }
func (r *realPingerAdapter) SetInterval(i time.Duration) { r.p.Interval = i }
func (r *realPingerAdapter) SetTimeout(t time.Duration)  { r.p.Timeout = t }
