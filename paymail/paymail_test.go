package paymail

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bitfsorg/revsplit-go/revshare"
)

// --- Handle tests ---

func TestParseHandle(t *testing.T) {
	tests := []struct {
		in    string
		want  Handle
		valid bool
	}{
		{"alice@Example.com", Handle{"alice", "example.com"}, true},
		{"  bob@pay.example.org ", Handle{"bob", "pay.example.org"}, true},
		{"alice", Handle{}, false},
		{"@example.com", Handle{}, false},
		{"alice@", Handle{}, false},
		{"a@b@c.com", Handle{}, false},
		{"al/ice@example.com", Handle{}, false},
		{"alice@example.com/path", Handle{}, false},
		{"alice@example.com:8443", Handle{}, false},
		{"alice@.example.com", Handle{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, err := ParseHandle(tt.in)
			if !tt.valid {
				assert.ErrorIs(t, err, ErrInvalidHandle)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, h)
			assert.Equal(t, tt.want.Alias+"@"+tt.want.Domain, h.String())
		})
	}
}

func TestIsHandle(t *testing.T) {
	assert.True(t, IsHandle("alice@example.com"))
	assert.False(t, IsHandle("0x0101010101010101010101010101010101010101"))
}

func TestComputeBRFCID(t *testing.T) {
	id := ComputeBRFCID("Royalty Receiver", "revsplit", "1.0")
	assert.Len(t, id, 12)
	_, err := hex.DecodeString(id)
	require.NoError(t, err)
	assert.Equal(t, id, BRFCRoyaltyReceiver)
	assert.NotEqual(t, id, ComputeBRFCID("Royalty Receiver", "revsplit", "2.0"))
}

// --- SRV tests ---

type mockResolver struct {
	srvs  []*net.SRV
	err   error
	calls []string
}

func (m *mockResolver) LookupSRV(_ context.Context, service, proto, name string) (string, []*net.SRV, error) {
	m.calls = append(m.calls, fmt.Sprintf("_%s._%s.%s", service, proto, name))
	return "", m.srvs, m.err
}

func TestResolveEndpoints_Sorted(t *testing.T) {
	r := &mockResolver{srvs: []*net.SRV{
		{Target: "c.example.com.", Port: 443, Priority: 20, Weight: 1},
		{Target: "a.example.com.", Port: 8443, Priority: 10, Weight: 1},
		{Target: "b.example.com.", Port: 443, Priority: 10, Weight: 50},
	}}

	eps, err := ResolveEndpoints(context.Background(), "example.com", r)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.example.com:443", "a.example.com:8443", "c.example.com:443"}, eps)
	assert.Equal(t, []string{"_bsvalias._tcp.example.com"}, r.calls)
}

func TestResolveEndpoints_Errors(t *testing.T) {
	_, err := ResolveEndpoints(context.Background(), "", &mockResolver{})
	assert.ErrorIs(t, err, ErrDNSLookupFailed)

	_, err = ResolveEndpoints(context.Background(), "example.com", &mockResolver{})
	assert.ErrorIs(t, err, ErrNoEndpoints)

	_, err = ResolveEndpoints(context.Background(), "example.com", &mockResolver{err: errors.New("timeout")})
	assert.ErrorIs(t, err, ErrDNSLookupFailed)
}

// --- DNSSEC resolver tests against a local miekg/dns server ---

func TestDNSSECResolver_Defaults(t *testing.T) {
	r := NewDNSSECResolver("")
	assert.Equal(t, "8.8.8.8:53", r.Upstream)
	assert.Equal(t, "1.1.1.1:53", NewDNSSECResolver("1.1.1.1:53").Upstream)
}

func TestDNSSECResolver_LookupSRV(t *testing.T) {
	addr := startDNSServer(t, func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		m.AuthenticatedData = true
		m.Answer = append(m.Answer, &dns.SRV{
			Hdr:      dns.RR_Header{Name: req.Question[0].Name, Rrtype: dns.TypeSRV, Class: dns.ClassINET, Ttl: 60},
			Priority: 10, Weight: 5, Port: 443, Target: "pay.example.com.",
		})
		_ = w.WriteMsg(m)
	})

	_, srvs, err := NewDNSSECResolver(addr).LookupSRV(context.Background(), "bsvalias", "tcp", "example.com")
	require.NoError(t, err)
	require.Len(t, srvs, 1)
	assert.Equal(t, "pay.example.com", srvs[0].Target)
	assert.Equal(t, uint16(443), srvs[0].Port)
}

func TestDNSSECResolver_RejectsUnauthenticated(t *testing.T) {
	addr := startDNSServer(t, func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		_ = w.WriteMsg(m)
	})

	_, _, err := NewDNSSECResolver(addr).LookupSRV(context.Background(), "bsvalias", "tcp", "example.com")
	assert.ErrorIs(t, err, ErrDNSSECValidationFailed)
}

func TestDNSSECResolver_EmptyAnswer(t *testing.T) {
	addr := startDNSServer(t, func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetRcode(req, dns.RcodeNameError)
		m.AuthenticatedData = true
		_ = w.WriteMsg(m)
	})

	_, _, err := NewDNSSECResolver(addr).LookupSRV(context.Background(), "bsvalias", "tcp", "example.com")
	assert.ErrorIs(t, err, ErrNoEndpoints)
}

func TestDNSSECResolver_ServerFailure(t *testing.T) {
	addr := startDNSServer(t, func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetRcode(req, dns.RcodeServerFailure)
		_ = w.WriteMsg(m)
	})

	_, _, err := NewDNSSECResolver(addr).LookupSRV(context.Background(), "bsvalias", "tcp", "example.com")
	assert.ErrorIs(t, err, ErrDNSLookupFailed)
}

func startDNSServer(t *testing.T, handler dns.HandlerFunc) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })
	return pc.LocalAddr().String()
}

// --- Receiver resolution tests ---

type paymailHost struct {
	srv      *httptest.Server
	resolver *mockResolver
	pubKey   []byte
	caps     map[string]any
	handle   string
}

func newPaymailHost(t *testing.T) *paymailHost {
	t.Helper()
	priv, err := ec.NewPrivateKey()
	require.NoError(t, err)

	h := &paymailHost{pubKey: priv.PubKey().Compressed()}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/bsvalias", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"bsvalias": "1.0", "capabilities": h.caps})
	})
	mux.HandleFunc("/api/id/", func(w http.ResponseWriter, r *http.Request) {
		handle := strings.TrimPrefix(r.URL.Path, "/api/id/")
		if h.handle != "" {
			handle = h.handle
		}
		_ = json.NewEncoder(w).Encode(PKIResponse{BSVAlias: "1.0", Handle: handle, PubKey: hex.EncodeToString(h.pubKey)})
	})
	h.srv = httptest.NewTLSServer(mux)
	t.Cleanup(h.srv.Close)

	u, err := url.Parse(h.srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	h.resolver = &mockResolver{srvs: []*net.SRV{{Target: host, Port: uint16(port)}}}
	h.caps = map[string]any{
		"pki":          h.srv.URL + "/api/id/{alias}@{domain.tld}",
		"6745385c3fc0": false,
	}
	return h
}

func (h *paymailHost) client(t *testing.T, opts ...Option) *Client {
	base := []Option{WithHTTPClient(h.srv.Client()), WithResolver(h.resolver), WithLogger(zaptest.NewLogger(t))}
	return NewClient(append(base, opts...)...)
}

func TestResolveReceiver(t *testing.T) {
	host := newPaymailHost(t)

	addr, err := host.client(t).ResolveReceiver(context.Background(), "alice@example.com")
	require.NoError(t, err)

	want, err := revshare.AddressFromPublicKey(host.pubKey)
	require.NoError(t, err)
	assert.Equal(t, want, addr)
	assert.Equal(t, []string{"_bsvalias._tcp.example.com"}, host.resolver.calls)
}

func TestResolveReceiver_PrefersRoyaltyCapability(t *testing.T) {
	host := newPaymailHost(t)
	host.caps["pki"] = host.srv.URL + "/missing/{alias}"
	host.caps[BRFCRoyaltyReceiver] = host.srv.URL + "/api/id/{alias}@{domain.tld}"

	_, err := host.client(t).ResolveReceiver(context.Background(), "alice@example.com")
	require.NoError(t, err)
}

func TestResolveReceiver_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(h *paymailHost)
		handle string
		target error
	}{
		{"bad handle", func(*paymailHost) {}, "not-a-handle", ErrInvalidHandle},
		{"no pki capability", func(h *paymailHost) { delete(h.caps, "pki") }, "alice@example.com", ErrPKIResolution},
		{"handle mismatch", func(h *paymailHost) { h.handle = "mallory@example.com" }, "alice@example.com", ErrPKIResolution},
		{"uncompressed key", func(h *paymailHost) { h.pubKey = append([]byte{0x04}, make([]byte, 64)...) }, "alice@example.com", ErrInvalidPubKey},
		{"pki endpoint 404", func(h *paymailHost) { h.caps["pki"] = h.srv.URL + "/nowhere/{alias}" }, "alice@example.com", ErrPKIResolution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newPaymailHost(t)
			tt.mutate(host)
			_, err := host.client(t).ResolveReceiver(context.Background(), tt.handle)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestEndpoint_FallbackToDomain(t *testing.T) {
	c := NewClient(WithResolver(&mockResolver{err: ErrDNSSECValidationFailed}), WithLogger(zaptest.NewLogger(t)))
	ep, err := c.Endpoint(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com:443", ep)

	strict := NewClient(WithResolver(&mockResolver{err: ErrDNSSECValidationFailed}), WithStrictDNSSEC())
	_, err = strict.Endpoint(context.Background(), "example.com")
	assert.ErrorIs(t, err, ErrDNSSECValidationFailed)

	// No SRV records is never a DNSSEC failure.
	ep, err = NewClient(WithResolver(&mockResolver{}), WithStrictDNSSEC()).Endpoint(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com:443", ep)
}

func TestDiscoverCapabilities_Oversized(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"bsvalias":"` + strings.Repeat("x", MaxPaymailResponseSize) + `"}`))
	}))
	defer srv.Close()

	c := NewClient(WithHTTPClient(srv.Client()))
	_, err := c.DiscoverCapabilities(context.Background(), strings.TrimPrefix(srv.URL, "https://"))
	assert.ErrorIs(t, err, ErrPaymailDiscovery)
}
