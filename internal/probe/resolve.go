// Package probe holds the low-level network primitives shared by the
// assessment components: name resolution, TCP connects, echo timing and
// TTL-limited hop probes. Every call carries its own deadline.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
)

// ErrNoReply is returned when a probe times out without an answer.
var ErrNoReply = errors.New("no reply")

// Resolver is satisfied by *net.Resolver.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// DefaultResolver uses the pure Go resolver.
var DefaultResolver Resolver = &net.Resolver{PreferGo: true}

// ResolveIPv4 resolves host to a single address, preferring IPv4. IP
// literals are returned unchanged without a lookup.
func ResolveIPv4(ctx context.Context, r Resolver, host string) (net.IP, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, sharedErrors.ErrEmptyTarget
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}
	if r == nil {
		r = DefaultResolver
	}

	addrs, err := r.LookupIPAddr(ctx, host)
	if err != nil || len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %s", sharedErrors.ErrResolveFailed, host)
	}
	for _, a := range addrs {
		if v4 := a.IP.To4(); v4 != nil {
			return v4, nil
		}
	}
	return addrs[0].IP, nil
}

// ReverseName returns the first PTR name for ip, or "" when none is found
// within timeout.
func ReverseName(ctx context.Context, r Resolver, ip net.IP, timeout time.Duration) string {
	if r == nil {
		r = DefaultResolver
	}
	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	names, err := r.LookupAddr(lookupCtx, ip.String())
	if err != nil || len(names) == 0 {
		return ""
	}
	return strings.TrimSuffix(names[0], ".")
}
