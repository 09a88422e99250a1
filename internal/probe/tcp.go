package probe

import (
	"context"
	"errors"
	"net"
	"strconv"
	"syscall"
	"time"
)

// Dialer is satisfied by *net.Dialer.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ConnectTCP attempts a full TCP handshake with ip:port and returns the
// elapsed time. Any failure, including timeout, is returned as an error.
func ConnectTCP(ctx context.Context, d Dialer, ip net.IP, port int, timeout time.Duration) (time.Duration, error) {
	if d == nil {
		d = &net.Dialer{}
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	conn, err := d.DialContext(dialCtx, "tcp", net.JoinHostPort(ip.String(), strconv.Itoa(port)))
	elapsed := time.Since(start)
	if err != nil {
		return elapsed, err
	}
	_ = conn.Close()
	return elapsed, nil
}

// IsRefused reports whether err means the remote host actively rejected the
// connection, which still proves it is alive.
func IsRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
