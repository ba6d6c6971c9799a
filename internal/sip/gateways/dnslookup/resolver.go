// Package dnslookup implements the locator's DNSLookup contract with
// queries over github.com/miekg/dns against configured nameservers.
// It also owns the two concerns the locator delegates to its lookup
// collaborator: NAPTR result ordering (RFC 3403: order, then
// preference) and NAPTR service filtering by secure flag and supported
// transports.
package dnslookup

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"

	"github.com/looneyapurv/siplocate/internal/sip/common/log"
	"github.com/looneyapurv/siplocate/internal/sip/domain"
	"github.com/looneyapurv/siplocate/internal/sip/services/locator"
)

const defaultTimeout = 5 * time.Second

// Options configures a Resolver.
type Options struct {
	// Servers are nameserver addresses in ip:port form. When empty,
	// the servers from /etc/resolv.conf are used.
	Servers []string
	// Timeout bounds each query exchange. Defaults to 5 seconds.
	Timeout time.Duration
	Logger  log.Logger
}

// Resolver queries DNS for NAPTR, SRV, A and AAAA records. Servers are
// tried in order until one answers.
type Resolver struct {
	servers []string
	client  *dns.Client
	logger  log.Logger
}

// New creates a Resolver, falling back to the system resolver
// configuration when no servers are given.
func New(opts Options) (*Resolver, error) {
	servers := opts.Servers
	if len(servers) == 0 {
		conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			return nil, fmt.Errorf("reading resolv.conf: %w", err)
		}
		for _, s := range conf.Servers {
			servers = append(servers, net.JoinHostPort(s, conf.Port))
		}
		if len(servers) == 0 {
			return nil, fmt.Errorf("no nameservers configured")
		}
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Resolver{
		servers: servers,
		client:  &dns.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// LookupNAPTR returns the usable NAPTR records for host, ordered by
// order then preference. Records whose service a SIPS URI may not use,
// or whose implied transport the endpoint does not support, are
// discarded here so the locator can take the first record verbatim.
func (r *Resolver) LookupNAPTR(ctx context.Context, host string, secure bool, transports []string) ([]domain.NAPTRRecord, error) {
	msg, err := r.query(ctx, host, dns.TypeNAPTR)
	if err != nil {
		return nil, err
	}

	var records []domain.NAPTRRecord
	for _, ans := range msg.Answer {
		rr, ok := ans.(*dns.NAPTR)
		if !ok {
			continue
		}
		if !serviceUsable(rr.Service, secure, transports) {
			r.logger.Debug("discarding NAPTR record", log.Fields{"host": host, "service": rr.Service})
			continue
		}
		records = append(records, domain.NAPTRRecord{
			Order:       rr.Order,
			Preference:  rr.Preference,
			Flags:       rr.Flags,
			Service:     rr.Service,
			Replacement: rr.Replacement,
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Order != records[j].Order {
			return records[i].Order < records[j].Order
		}
		return records[i].Preference < records[j].Preference
	})
	return records, nil
}

// LookupSRV returns the SRV records for a composed service name such
// as "_sip._tcp.example.com". A malformed name yields an error without
// any query being sent.
func (r *Resolver) LookupSRV(ctx context.Context, name string) ([]domain.SRVRecord, error) {
	msg, err := r.query(ctx, name, dns.TypeSRV)
	if err != nil {
		return nil, err
	}

	var records []domain.SRVRecord
	for _, ans := range msg.Answer {
		if rr, ok := ans.(*dns.SRV); ok {
			records = append(records, domain.SRVRecord{
				Priority: rr.Priority,
				Weight:   rr.Weight,
				Port:     rr.Port,
				Target:   rr.Target,
			})
		}
	}
	return records, nil
}

// LookupA returns the IPv4 addresses of host.
func (r *Resolver) LookupA(ctx context.Context, host string) ([]net.IP, error) {
	msg, err := r.query(ctx, host, dns.TypeA)
	if err != nil {
		return nil, err
	}
	var ips []net.IP
	for _, ans := range msg.Answer {
		if rr, ok := ans.(*dns.A); ok {
			ips = append(ips, rr.A)
		}
	}
	return ips, nil
}

// LookupAAAA returns the IPv6 addresses of host.
func (r *Resolver) LookupAAAA(ctx context.Context, host string) ([]net.IP, error) {
	msg, err := r.query(ctx, host, dns.TypeAAAA)
	if err != nil {
		return nil, err
	}
	var ips []net.IP
	for _, ans := range msg.Answer {
		if rr, ok := ans.(*dns.AAAA); ok {
			ips = append(ips, rr.AAAA)
		}
	}
	return ips, nil
}

// query sends one question to each server in order until one answers.
// NXDOMAIN is a valid empty answer, not a failure.
func (r *Resolver) query(ctx context.Context, name string, qtype uint16) (*dns.Msg, error) {
	fqdn, err := queryName(name)
	if err != nil {
		return nil, err
	}

	m := new(dns.Msg)
	m.SetQuestion(fqdn, qtype)
	m.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		resp, _, err := r.client.ExchangeContext(ctx, m, server)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Rcode == dns.RcodeSuccess || resp.Rcode == dns.RcodeNameError {
			return resp, nil
		}
		lastErr = &net.DNSError{Err: dns.RcodeToString[resp.Rcode], Name: name}
	}
	return nil, fmt.Errorf("all nameservers failed for %s: %w", name, lastErr)
}

// lookupProfile maps hostnames to their DNS lookup form. SRV service
// labels start with underscores, so strict LDH checking is off.
var lookupProfile = idna.New(idna.MapForLookup(), idna.StrictDomainName(false))

// queryName normalizes and validates a lookup name. The error it
// returns is the "malformed query" condition of the locator contract.
func queryName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty lookup name")
	}
	ascii, err := lookupProfile.ToASCII(name)
	if err != nil {
		return "", fmt.Errorf("invalid lookup name %q: %w", name, err)
	}
	if _, ok := dns.IsDomainName(ascii); !ok {
		return "", fmt.Errorf("invalid lookup name %q", name)
	}
	return dns.Fqdn(ascii), nil
}

// serviceUsable applies the RFC 3263 restrictions: a SIPS URI may only
// use SIPS services, and the transport a service implies must be one
// the endpoint supports.
func serviceUsable(service string, secure bool, transports []string) bool {
	sips := strings.Contains(service, domain.ServiceSIPS)
	if secure && !sips {
		return false
	}
	var transport string
	switch {
	case sips:
		transport = domain.TransportTLS
	case strings.Contains(service, domain.ServiceD2U):
		transport = domain.TransportUDP
	case strings.Contains(service, domain.ServiceD2S):
		transport = domain.TransportSCTP
	default:
		transport = domain.TransportTCP
	}
	for _, t := range transports {
		if strings.EqualFold(t, transport) {
			return true
		}
	}
	return false
}

// Ensure Resolver implements locator.DNSLookup at compile time
var _ locator.DNSLookup = (*Resolver)(nil)
