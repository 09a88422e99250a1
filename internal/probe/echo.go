package probe

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
)

// ErrSocketUnavailable means the echo socket could not be opened, usually
// for lack of privileges.
var ErrSocketUnavailable = errors.New("echo socket unavailable")

// Reply is the outcome of one echo probe.
type Reply struct {
	RTT    time.Duration
	Method scan.Method
}

// Echoer sends a single echo probe. It returns ErrNoReply when the probe
// times out unanswered.
type Echoer interface {
	Echo(ctx context.Context, ip net.IP, timeout time.Duration) (Reply, error)
}

// TCPEchoer times a TCP handshake to a fixed port. A refused connection
// counts as a reply since the host answered.
type TCPEchoer struct {
	Dialer Dialer
	Port   int
}

func (e *TCPEchoer) Echo(ctx context.Context, ip net.IP, timeout time.Duration) (Reply, error) {
	port := e.Port
	if port <= 0 {
		port = 80
	}
	rtt, err := ConnectTCP(ctx, e.Dialer, ip, port, timeout)
	if err != nil && !IsRefused(err) {
		return Reply{Method: scan.MethodTCP}, ErrNoReply
	}
	return Reply{RTT: rtt, Method: scan.MethodTCP}, nil
}

// AutoEchoer prefers ICMP and switches to TCP for good once the ICMP socket
// turns out to be unavailable.
type AutoEchoer struct {
	ICMP Echoer
	TCP  Echoer

	icmpDisabled atomic.Bool
}

func (e *AutoEchoer) Echo(ctx context.Context, ip net.IP, timeout time.Duration) (Reply, error) {
	if e.ICMP != nil && !e.icmpDisabled.Load() {
		reply, err := e.ICMP.Echo(ctx, ip, timeout)
		if !errors.Is(err, ErrSocketUnavailable) {
			return reply, err
		}
		e.icmpDisabled.Store(true)
	}
	return e.TCP.Echo(ctx, ip, timeout)
}

// NewEchoer builds the echoer for a configured method: "icmp", "tcp" or
// "auto".
func NewEchoer(method string, privileged bool, tcpPort int) Echoer {
	tcp := &TCPEchoer{Dialer: &net.Dialer{}, Port: tcpPort}
	switch method {
	case string(scan.MethodTCP):
		return tcp
	case string(scan.MethodICMP):
		return NewICMPEchoer(privileged)
	default:
		return &AutoEchoer{ICMP: NewICMPEchoer(privileged), TCP: tcp}
	}
}
