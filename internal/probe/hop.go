package probe

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"sync"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const protocolICMP = 1

// hopNetwork is a raw ICMP socket. Datagram ICMP sockets never surface Time
// Exceeded through ReadFrom, so they cannot trace intermediate hops.
const hopNetwork = "ip4:icmp"

// HopReply describes who answered a TTL-limited probe.
type HopReply struct {
	Peer    net.IP
	RTT     time.Duration
	Reached bool
}

// Hopper sends TTL-limited echo probes. Probe returns ErrNoReply when
// nothing answers within timeout.
type Hopper interface {
	Probe(ctx context.Context, dst net.IP, ttl int, timeout time.Duration) (HopReply, error)
	Close() error
}

// HopperFactory opens a fresh Hopper for one traceroute call.
type HopperFactory func() (Hopper, error)

// ICMPHopper probes with ICMP echo requests over golang.org/x/net/icmp.
type ICMPHopper struct {
	conn *icmp.PacketConn
	id   int

	mu  sync.Mutex
	seq int
}

// NewICMPHopper opens a raw ICMP socket. It fails with ErrSocketUnavailable
// without root or CAP_NET_RAW.
func NewICMPHopper() (*ICMPHopper, error) {
	conn, err := icmp.ListenPacket(hopNetwork, "0.0.0.0")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSocketUnavailable, err)
	}
	return &ICMPHopper{
		conn: conn,
		id:   rand.IntN(0xffff),
	}, nil
}

// ICMPHopperFactory opens a fresh ICMPHopper per traceroute.
func ICMPHopperFactory() (Hopper, error) {
	return NewICMPHopper()
}

func (h *ICMPHopper) Close() error {
	return h.conn.Close()
}

func (h *ICMPHopper) nextSeq() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq = (h.seq + 1) & 0xffff
	return h.seq
}

func (h *ICMPHopper) Probe(ctx context.Context, dst net.IP, ttl int, timeout time.Duration) (HopReply, error) {
	if err := h.conn.IPv4PacketConn().SetTTL(ttl); err != nil {
		return HopReply{}, fmt.Errorf("set ttl: %w", err)
	}

	seq := h.nextSeq()
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: h.id, Seq: seq, Data: []byte("secakit-trace")},
	}
	wire, err := msg.Marshal(nil)
	if err != nil {
		return HopReply{}, fmt.Errorf("marshal echo: %w", err)
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := h.conn.SetReadDeadline(deadline); err != nil {
		return HopReply{}, err
	}

	start := time.Now()
	if _, err := h.conn.WriteTo(wire, &net.IPAddr{IP: dst}); err != nil {
		return HopReply{}, fmt.Errorf("send echo: %w", err)
	}

	buf := make([]byte, 1500)
	for {
		n, peer, err := h.conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return HopReply{}, ErrNoReply
			}
			return HopReply{}, err
		}
		peerIP := addrIP(peer)
		reached, ok := matchHopReply(buf[:n], h.id, seq, peerIP, dst)
		if !ok {
			continue
		}
		return HopReply{
			Peer:    peerIP,
			RTT:     time.Since(start),
			Reached: reached,
		}, nil
	}
}

// matchHopReply decides whether an ICMP packet from peer answers the probe
// (id, seq) sent to dst. Time Exceeded and Destination Unreachable match when
// they quote the probe. reached is true for an echo reply, or for an error
// sent by dst itself; an unreachable from a router on the path is a plain hop.
func matchHopReply(b []byte, id, seq int, peer, dst net.IP) (reached, ok bool) {
	msg, err := icmp.ParseMessage(protocolICMP, b)
	if err != nil {
		return false, false
	}
	switch body := msg.Body.(type) {
	case *icmp.Echo:
		if msg.Type != ipv4.ICMPTypeEchoReply || body.Seq != seq || body.ID != id {
			return false, false
		}
		return true, true
	case *icmp.TimeExceeded:
		return false, innerEchoMatches(body.Data, id, seq)
	case *icmp.DstUnreach:
		if !innerEchoMatches(body.Data, id, seq) {
			return false, false
		}
		return peer != nil && peer.Equal(dst), true
	}
	return false, false
}

// innerEchoMatches inspects the original datagram quoted in an ICMP error.
func innerEchoMatches(data []byte, id, seq int) bool {
	hdr, err := ipv4.ParseHeader(data)
	if err != nil || hdr.Protocol != protocolICMP || len(data) < hdr.Len+8 {
		return false
	}
	inner := data[hdr.Len:]
	if inner[0] != byte(ipv4.ICMPTypeEcho) {
		return false
	}
	innerID := int(binary.BigEndian.Uint16(inner[4:6]))
	innerSeq := int(binary.BigEndian.Uint16(inner[6:8]))
	return innerSeq == seq && innerID == id
}

func addrIP(a net.Addr) net.IP {
	switch v := a.(type) {
	case *net.IPAddr:
		return v.IP
	}
	return nil
}
