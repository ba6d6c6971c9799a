package dnslookup

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looneyapurv/siplocate/internal/sip/domain"
)

// startTestServer runs a DNS server on a loopback UDP port and returns
// its address. The server is shut down when the test ends.
func startTestServer(t *testing.T, handler dns.Handler) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &dns.Server{PacketConn: pc, Handler: handler}
	go srv.ActivateAndServe()
	t.Cleanup(func() { _ = srv.Shutdown() })
	return pc.LocalAddr().String()
}

func newTestResolver(t *testing.T, server string) *Resolver {
	t.Helper()
	r, err := New(Options{Servers: []string{server}, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return r
}

func mustRR(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	require.NoError(t, err)
	return rr
}

func answerWith(rcode int, answers ...dns.RR) dns.Handler {
	return dns.HandlerFunc(func(w dns.ResponseWriter, q *dns.Msg) {
		m := new(dns.Msg)
		m.SetRcode(q, rcode)
		m.Answer = answers
		_ = w.WriteMsg(m)
	})
}

func TestResolver_LookupSRV(t *testing.T) {
	answers := []dns.RR{
		mustRR(t, "_sip._tcp.example.com. 300 IN SRV 10 60 5060 a.example.com."),
		mustRR(t, "_sip._tcp.example.com. 300 IN SRV 20 0 5070 b.example.com."),
	}
	server := startTestServer(t, answerWith(dns.RcodeSuccess, answers...))
	r := newTestResolver(t, server)

	records, err := r.LookupSRV(context.Background(), "_sip._tcp.example.com")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.SRVRecord{Priority: 10, Weight: 60, Port: 5060, Target: "a.example.com."}, records[0])
	assert.Equal(t, domain.SRVRecord{Priority: 20, Weight: 0, Port: 5070, Target: "b.example.com."}, records[1])
}

func TestResolver_LookupNAPTR_FiltersAndOrders(t *testing.T) {
	answers := []dns.RR{
		mustRR(t, `example.com. 300 IN NAPTR 30 50 "s" "SIP+D2T" "" _sip._tcp.example.com.`),
		mustRR(t, `example.com. 300 IN NAPTR 10 50 "s" "SIPS+D2T" "" _sips._tcp.example.com.`),
		mustRR(t, `example.com. 300 IN NAPTR 30 40 "s" "SIP+D2U" "" _sip._udp.example.com.`),
	}
	server := startTestServer(t, answerWith(dns.RcodeSuccess, answers...))
	r := newTestResolver(t, server)

	// tls is unsupported, so the SIPS record drops out; the rest sort
	// by order then preference
	records, err := r.LookupNAPTR(context.Background(), "example.com", false, []string{"udp", "tcp"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "SIP+D2U", records[0].Service)
	assert.Equal(t, "SIP+D2T", records[1].Service)
	assert.Equal(t, "_sip._udp.example.com.", records[0].Replacement)
}

func TestResolver_LookupNAPTR_SecureRequiresSIPS(t *testing.T) {
	answers := []dns.RR{
		mustRR(t, `example.com. 300 IN NAPTR 10 50 "s" "SIP+D2U" "" _sip._udp.example.com.`),
	}
	server := startTestServer(t, answerWith(dns.RcodeSuccess, answers...))
	r := newTestResolver(t, server)

	records, err := r.LookupNAPTR(context.Background(), "example.com", true, []string{"udp", "tcp", "tls"})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestResolver_LookupA(t *testing.T) {
	answers := []dns.RR{
		mustRR(t, "example.com. 300 IN A 192.0.2.1"),
		mustRR(t, "example.com. 300 IN A 192.0.2.2"),
	}
	server := startTestServer(t, answerWith(dns.RcodeSuccess, answers...))
	r := newTestResolver(t, server)

	ips, err := r.LookupA(context.Background(), "example.com")
	require.NoError(t, err)
	require.Len(t, ips, 2)
	assert.Equal(t, "192.0.2.1", ips[0].String())
	assert.Equal(t, "192.0.2.2", ips[1].String())
}

func TestResolver_LookupAAAA(t *testing.T) {
	answers := []dns.RR{
		mustRR(t, "example.com. 300 IN AAAA 2001:db8::1"),
	}
	server := startTestServer(t, answerWith(dns.RcodeSuccess, answers...))
	r := newTestResolver(t, server)

	ips, err := r.LookupAAAA(context.Background(), "example.com")
	require.NoError(t, err)
	require.Len(t, ips, 1)
	assert.Equal(t, "2001:db8::1", ips[0].String())
}

func TestResolver_NXDOMAINIsEmptyNotError(t *testing.T) {
	server := startTestServer(t, answerWith(dns.RcodeNameError))
	r := newTestResolver(t, server)

	records, err := r.LookupSRV(context.Background(), "_sip._tcp.nosuch.example")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestResolver_ServerFailureIsError(t *testing.T) {
	server := startTestServer(t, answerWith(dns.RcodeServerFailure))
	r := newTestResolver(t, server)

	_, err := r.LookupA(context.Background(), "example.com")
	assert.Error(t, err)
}

func TestResolver_SecondServerAnswers(t *testing.T) {
	bad := startTestServer(t, answerWith(dns.RcodeServerFailure))
	good := startTestServer(t, answerWith(dns.RcodeSuccess,
		mustRR(t, "example.com. 300 IN A 192.0.2.1")))

	r, err := New(Options{Servers: []string{bad, good}, Timeout: 2 * time.Second})
	require.NoError(t, err)

	ips, err := r.LookupA(context.Background(), "example.com")
	require.NoError(t, err)
	require.Len(t, ips, 1)
	assert.Equal(t, "192.0.2.1", ips[0].String())
}

func TestResolver_MalformedNameNeverQueries(t *testing.T) {
	// no server is running at this address; a query attempt would fail
	// differently than the validation error we expect
	r, err := New(Options{Servers: []string{"127.0.0.1:1"}, Timeout: time.Second})
	require.NoError(t, err)

	_, err = r.LookupSRV(context.Background(), "")
	assert.Error(t, err)
}

func TestQueryName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain host", "example.com", "example.com.", false},
		{"already fqdn", "example.com.", "example.com.", false},
		{"srv service labels survive", "_sip._tcp.example.com", "_sip._tcp.example.com.", false},
		{"uppercase mapped down", "Example.COM", "example.com.", false},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := queryName(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServiceUsable(t *testing.T) {
	tests := []struct {
		name       string
		service    string
		secure     bool
		transports []string
		want       bool
	}{
		{"udp service with udp supported", "SIP+D2U", false, []string{"udp", "tcp"}, true},
		{"tcp service with tcp supported", "SIP+D2T", false, []string{"udp", "tcp"}, true},
		{"sctp service without sctp", "SIP+D2S", false, []string{"udp", "tcp"}, false},
		{"sctp service with sctp", "SIP+D2S", false, []string{"sctp"}, true},
		{"sips service without tls", "SIPS+D2T", false, []string{"udp", "tcp"}, false},
		{"sips service with tls", "SIPS+D2T", false, []string{"udp", "tcp", "tls"}, true},
		{"secure uri rejects non-sips", "SIP+D2U", true, []string{"udp", "tcp", "tls"}, false},
		{"secure uri accepts sips", "SIPS+D2T", true, []string{"tls"}, true},
		{"transport match is case-insensitive", "SIP+D2U", false, []string{"UDP"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serviceUsable(tt.service, tt.secure, tt.transports))
		})
	}
}
