package probe

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/go-ping/ping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
)

type fakeResolver struct {
	addrs []net.IPAddr
	names []string
	err   error
}

func (f *fakeResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	return f.addrs, f.err
}

func (f *fakeResolver) LookupAddr(ctx context.Context, addr string) ([]string, error) {
	return f.names, f.err
}

func TestResolveIPv4(t *testing.T) {
	ctx := context.Background()

	ip, err := ResolveIPv4(ctx, nil, " 127.0.0.1 ")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", ip.String())

	r := &fakeResolver{addrs: []net.IPAddr{{IP: net.ParseIP("2001:db8::1")}, {IP: net.ParseIP("192.0.2.7")}}}
	ip, err = ResolveIPv4(ctx, r, "example.test")
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.7", ip.String())

	_, err = ResolveIPv4(ctx, &fakeResolver{err: errors.New("nxdomain")}, "nope.invalid")
	assert.ErrorIs(t, err, sharedErrors.ErrResolveFailed)
	assert.Contains(t, err.Error(), "nope.invalid")

	_, err = ResolveIPv4(ctx, r, "   ")
	assert.ErrorIs(t, err, sharedErrors.ErrEmptyTarget)
}

func TestReverseName(t *testing.T) {
	name := ReverseName(context.Background(), &fakeResolver{names: []string{"router.example."}}, net.ParseIP("192.0.2.1"), time.Second)
	assert.Equal(t, "router.example", name)

	name = ReverseName(context.Background(), &fakeResolver{err: errors.New("nxdomain")}, net.ParseIP("192.0.2.1"), time.Second)
	assert.Empty(t, name)
}

func TestConnectTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port

	_, err = ConnectTCP(context.Background(), nil, net.ParseIP("127.0.0.1"), port, time.Second)
	require.NoError(t, err)

	require.NoError(t, ln.Close())
	_, err = ConnectTCP(context.Background(), nil, net.ParseIP("127.0.0.1"), port, time.Second)
	require.Error(t, err)
	assert.True(t, IsRefused(err))
}

func TestTCPEchoerCountsRefusalAsReply(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	e := &TCPEchoer{Port: port}
	reply, err := e.Echo(context.Background(), net.ParseIP("127.0.0.1"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, scan.MethodTCP, reply.Method)
}

type fakePinger struct {
	runErr error
	stats  *ping.Statistics
}

func (f *fakePinger) Run() error                   { return f.runErr }
func (f *fakePinger) Stop()                        {}
func (f *fakePinger) Statistics() *ping.Statistics { return f.stats }
func (f *fakePinger) SetPrivileged(bool)           {}
func (f *fakePinger) SetCount(int)                 {}
func (f *fakePinger) SetInterval(time.Duration)    {}
func (f *fakePinger) SetTimeout(time.Duration)     {}

func icmpWith(p *fakePinger) *ICMPEchoer {
	return &ICMPEchoer{pingerFactory: func(string) (Pinger, error) { return p, nil }}
}

func TestICMPEchoer(t *testing.T) {
	ip := net.ParseIP("192.0.2.1")

	reply, err := icmpWith(&fakePinger{stats: &ping.Statistics{PacketsRecv: 1, Rtts: []time.Duration{12 * time.Millisecond}}}).
		Echo(context.Background(), ip, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 12*time.Millisecond, reply.RTT)
	assert.Equal(t, scan.MethodICMP, reply.Method)

	_, err = icmpWith(&fakePinger{stats: &ping.Statistics{PacketsSent: 1}}).Echo(context.Background(), ip, time.Second)
	assert.ErrorIs(t, err, ErrNoReply)

	_, err = icmpWith(&fakePinger{runErr: errors.New("socket: operation not permitted")}).Echo(context.Background(), ip, time.Second)
	assert.ErrorIs(t, err, ErrSocketUnavailable)
}

type stubEchoer struct {
	reply Reply
	err   error
	calls int
}

func (s *stubEchoer) Echo(ctx context.Context, ip net.IP, timeout time.Duration) (Reply, error) {
	s.calls++
	return s.reply, s.err
}

func TestAutoEchoerFallsBackOnce(t *testing.T) {
	icmpStub := &stubEchoer{err: ErrSocketUnavailable}
	tcpStub := &stubEchoer{reply: Reply{RTT: time.Millisecond, Method: scan.MethodTCP}}
	e := &AutoEchoer{ICMP: icmpStub, TCP: tcpStub}

	for i := 0; i < 3; i++ {
		reply, err := e.Echo(context.Background(), net.ParseIP("192.0.2.1"), time.Second)
		require.NoError(t, err)
		assert.Equal(t, scan.MethodTCP, reply.Method)
	}
	assert.Equal(t, 1, icmpStub.calls)
	assert.Equal(t, 3, tcpStub.calls)
}

func TestAutoEchoerKeepsICMPNoReply(t *testing.T) {
	icmpStub := &stubEchoer{reply: Reply{Method: scan.MethodICMP}, err: ErrNoReply}
	tcpStub := &stubEchoer{}
	e := &AutoEchoer{ICMP: icmpStub, TCP: tcpStub}

	reply, err := e.Echo(context.Background(), net.ParseIP("192.0.2.1"), time.Second)
	assert.ErrorIs(t, err, ErrNoReply)
	assert.Equal(t, scan.MethodICMP, reply.Method)
	assert.Zero(t, tcpStub.calls)
}

func quotedEcho(t *testing.T, id, seq int) []byte {
	t.Helper()
	echo, err := (&icmp.Message{Type: ipv4.ICMPTypeEcho, Body: &icmp.Echo{ID: id, Seq: seq}}).Marshal(nil)
	require.NoError(t, err)
	hdr := make([]byte, ipv4.HeaderLen)
	hdr[0] = 0x45
	hdr[9] = protocolICMP
	return append(hdr, echo[:8]...)
}

func TestMatchHopReply(t *testing.T) {
	dst := net.ParseIP("192.0.2.9")
	router := net.ParseIP("10.0.0.1")

	reply, err := (&icmp.Message{Type: ipv4.ICMPTypeEchoReply, Body: &icmp.Echo{ID: 7, Seq: 3}}).Marshal(nil)
	require.NoError(t, err)
	reached, ok := matchHopReply(reply, 7, 3, dst, dst)
	assert.True(t, ok)
	assert.True(t, reached)

	_, ok = matchHopReply(reply, 8, 3, dst, dst)
	assert.False(t, ok, "echo replies for another id are ignored")

	exceeded, err := (&icmp.Message{Type: ipv4.ICMPTypeTimeExceeded, Body: &icmp.TimeExceeded{Data: quotedEcho(t, 7, 3)}}).Marshal(nil)
	require.NoError(t, err)
	reached, ok = matchHopReply(exceeded, 7, 3, router, dst)
	assert.True(t, ok)
	assert.False(t, reached)

	_, ok = matchHopReply(exceeded, 7, 4, router, dst)
	assert.False(t, ok)

	_, ok = matchHopReply([]byte{1, 2}, 7, 3, router, dst)
	assert.False(t, ok)
}

func TestMatchHopReplyUnreachable(t *testing.T) {
	dst := net.ParseIP("192.0.2.9")
	router := net.ParseIP("10.0.0.1")

	unreach, err := (&icmp.Message{Type: ipv4.ICMPTypeDestinationUnreachable, Code: 1, Body: &icmp.DstUnreach{Data: quotedEcho(t, 7, 3)}}).Marshal(nil)
	require.NoError(t, err)

	reached, ok := matchHopReply(unreach, 7, 3, router, dst)
	assert.True(t, ok, "a router's unreachable still answers the hop")
	assert.False(t, reached, "a router's unreachable does not reach the target")

	reached, ok = matchHopReply(unreach, 7, 3, dst, dst)
	assert.True(t, ok)
	assert.True(t, reached, "an unreachable sent by the target itself reaches it")

	_, ok = matchHopReply(unreach, 7, 9, router, dst)
	assert.False(t, ok, "unreachables quoting another probe are ignored")
}
