// Package locator implements the RFC 3263 server location procedure:
// resolving a SIP request URI into an ordered list of concrete network
// hops (address, port, transport) via NAPTR, SRV and address record
// lookups with the fallback chain the RFC prescribes.
package locator

import (
	"context"
	"strings"

	"github.com/looneyapurv/siplocate/internal/sip/common/log"
	"github.com/looneyapurv/siplocate/internal/sip/domain"
	"github.com/looneyapurv/siplocate/internal/sip/repos/hostset"
)

// Options configures a Locator. DNS and Addresses are required; Ranker
// and Logger fall back to the default SRV ordering and a no-op logger.
type Options struct {
	DNS                 DNSLookup
	Addresses           AddressResolver
	SupportedTransports []string
	Ranker              Ranker
	Logger              log.Logger
}

// Locator resolves SIP request URIs to hop lists. The two registries
// (supported transports, local hostnames) are safe for concurrent
// administration while resolutions are in flight; a resolution sees
// the membership that was current when it read the registry.
type Locator struct {
	dns        DNSLookup
	addresses  AddressResolver
	transports *hostset.Set
	localNames *hostset.Set
	ranker     Ranker
	logger     log.Logger
}

// New creates a Locator from the given options.
func New(opts Options) *Locator {
	if opts.Ranker == nil {
		opts.Ranker = srvRanker{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	return &Locator{
		dns:        opts.DNS,
		addresses:  opts.Addresses,
		transports: hostset.New(opts.SupportedTransports...),
		localNames: hostset.New(),
		ranker:     opts.Ranker,
		logger:     opts.Logger,
	}
}

// AddSupportedTransport registers a transport protocol this endpoint
// can use. Registration order is the order SRV transport probes run.
func (l *Locator) AddSupportedTransport(transport string) {
	l.transports.Add(transport)
}

// RemoveSupportedTransport unregisters a transport protocol.
func (l *Locator) RemoveSupportedTransport(transport string) {
	l.transports.Remove(transport)
}

// AddLocalHostname registers a hostname that belongs to the local
// process or container. Such hosts are resolved with the system
// resolver instead of the DNS SRV machinery.
func (l *Locator) AddLocalHostname(name string) {
	l.localNames.Add(name)
}

// RemoveLocalHostname unregisters a local hostname.
func (l *Locator) RemoveLocalHostname(name string) {
	l.localNames.Remove(name)
}

// LocateHops resolves uri into an ordered hop list per RFC 3263. The
// first hop is the first one to attempt. An empty list means no route
// was found; that is a valid terminal outcome, not an error.
func (l *Locator) LocateHops(ctx context.Context, uri domain.TargetURI) []domain.Hop {
	switch u := uri.(type) {
	case domain.SIPURI:
		return l.locateSIP(ctx, u)
	case domain.TelURI:
		// no resolvable host
		return nil
	}
	return nil
}

func (l *Locator) locateSIP(ctx context.Context, u domain.SIPURI) []domain.Hop {
	l.logger.Debug("resolving target", log.Fields{"host": u.Host, "transport": u.Transport})

	// RFC 3263 section 4.2: a numeric TARGET is used as-is, no lookup
	if domain.IsNumericAddress(u.Host) {
		transport := u.Transport
		if transport == "" {
			transport = defaultTransport(u)
		}
		port := u.Port
		if port == 0 {
			if strings.EqualFold(transport, domain.TransportTLS) ||
				(strings.EqualFold(transport, domain.TransportTCP) && u.Secure) {
				port = domain.DefaultSecurePort
			} else {
				port = domain.DefaultPort
			}
		}
		l.logger.Debug("host is a numeric address, skipping DNS", log.Fields{"host": u.Host})
		return []domain.Hop{{Address: u.Host, Port: port, Transport: transport}}
	}

	// Hosts belonging to this endpoint skip the SRV machinery; the
	// URI's port and transport pass through unchanged, even unset.
	if l.localNames.Contains(u.Host) {
		ip, err := l.addresses.Resolve(ctx, u.Host)
		if err == nil {
			return []domain.Hop{{Address: ip.String(), Port: u.Port, Transport: u.Transport}}
		}
		l.logger.Warn("local hostname cannot be resolved", log.Fields{"host": u.Host, "error": err.Error()})
	}

	return l.resolveByDNS(ctx, u)
}

// resolveByDNS runs the general procedure: transport selection per RFC
// 3263 section 4.1, then address and port determination per 4.2.
func (l *Locator) resolveByDNS(ctx context.Context, u domain.SIPURI) []domain.Hop {
	var naptr *domain.NAPTRRecord
	var probedSRV []domain.SRVRecord

	transport := u.Transport
	if transport == "" {
		if u.Port != 0 {
			// explicit port, no transport: UDP for sip, TCP for sips
			transport = defaultTransport(u)
		} else {
			naptrs, err := l.dns.LookupNAPTR(ctx, u.Host, u.Secure, l.transports.Snapshot())
			if err != nil {
				l.logger.Debug("NAPTR lookup failed", log.Fields{"host": u.Host, "error": err.Error()})
				naptrs = nil
			}
			if len(naptrs) == 0 {
				// No NAPTR records: probe an SRV query per supported
				// transport until one returns records.
				for _, candidate := range l.transports.Snapshot() {
					name := srvServiceName(u.Secure, candidate, u.Host)
					records, err := l.dns.LookupSRV(ctx, name)
					if err != nil {
						l.logger.Error("SRV transport probe failed", log.Fields{"name": name, "error": err.Error()})
						continue
					}
					if len(records) > 0 {
						probedSRV = records
						transport = candidate
						break
					}
				}
				// "If no SRV records are found, the client SHOULD use
				// TCP for a SIPS URI, and UDP for a SIP URI." Applied
				// unconditionally, so a transport found by a probe
				// above is overwritten here.
				transport = defaultTransport(u)
			} else {
				naptr = &naptrs[0]
				switch {
				case strings.Contains(naptr.Service, domain.ServiceSIPS):
					transport = domain.TransportTLS
				case strings.Contains(naptr.Service, domain.ServiceD2U):
					transport = domain.TransportUDP
				default:
					transport = domain.TransportTCP
				}
			}
		}
	}
	transport = strings.ToLower(transport)

	// RFC 3263 section 4.2: determine address and port.

	if u.Port != 0 {
		// Explicit port: plain address lookup, every address gets the
		// URI's port.
		return l.hopsFromAddresses(ctx, u.Host, u.Port, transport)
	}

	if naptr != nil {
		records, err := l.dns.LookupSRV(ctx, naptr.Replacement)
		if err != nil {
			l.logger.Error("SRV lookup on NAPTR replacement failed", log.Fields{"name": naptr.Replacement, "error": err.Error()})
		}
		if len(records) > 0 {
			return l.hopsFromSRV(ctx, records, transport)
		}
		// port stays unset through this fallback
		return l.hopsFromAddresses(ctx, u.Host, u.Port, transport)
	}

	if len(probedSRV) == 0 {
		// NAPTR processing did not run or retained nothing: one
		// explicit SRV query for the selected transport. "_sips" is
		// used for SIPS URIs and whenever the transport is TLS.
		name := srvServiceName(u.Secure || strings.EqualFold(transport, domain.TransportTLS), transport, u.Host)
		records, err := l.dns.LookupSRV(ctx, name)
		if err != nil {
			l.logger.Error("SRV lookup failed", log.Fields{"name": name, "error": err.Error()})
			records = nil
		}
		if len(records) == 0 {
			return l.hopsFromAddresses(ctx, u.Host, u.Port, transport)
		}
		return l.hopsFromSRV(ctx, records, transport)
	}

	// The transport probe already fetched SRV records; use them.
	return l.hopsFromSRV(ctx, probedSRV, transport)
}

// hopsFromSRV ranks the SRV records and emits one hop per record whose
// target resolves. Unresolvable targets are dropped, not fatal.
func (l *Locator) hopsFromSRV(ctx context.Context, records []domain.SRVRecord, transport string) []domain.Hop {
	ranked := l.ranker.Rank(records)
	hops := make([]domain.Hop, 0, len(ranked))
	for _, srv := range ranked {
		target := strings.TrimSuffix(srv.Target, ".")
		ip, err := l.addresses.Resolve(ctx, target)
		if err != nil {
			l.logger.Error("cannot resolve SRV target, dropping candidate", log.Fields{"target": target, "error": err.Error()})
			continue
		}
		l.logger.Debug("SRV candidate resolved", log.Fields{
			"target":    target,
			"address":   ip.String(),
			"port":      srv.Port,
			"transport": transport,
		})
		hops = append(hops, domain.Hop{Address: ip.String(), Port: int(srv.Port), Transport: transport})
	}
	return hops
}

// hopsFromAddresses emits one hop per A record then per AAAA record,
// all carrying the given port (which may be unset) and transport.
func (l *Locator) hopsFromAddresses(ctx context.Context, host string, port int, transport string) []domain.Hop {
	var hops []domain.Hop

	v4, err := l.dns.LookupA(ctx, host)
	if err != nil {
		l.logger.Debug("A lookup failed", log.Fields{"host": host, "error": err.Error()})
	}
	for _, ip := range v4 {
		hops = append(hops, domain.Hop{Address: ip.String(), Port: port, Transport: transport})
	}

	v6, err := l.dns.LookupAAAA(ctx, host)
	if err != nil {
		l.logger.Debug("AAAA lookup failed", log.Fields{"host": host, "error": err.Error()})
	}
	for _, ip := range v6 {
		hops = append(hops, domain.Hop{Address: ip.String(), Port: port, Transport: transport})
	}

	return hops
}

// defaultTransport is the scheme default: TCP for sips, UDP for sip.
func defaultTransport(u domain.SIPURI) string {
	if u.Secure {
		return domain.TransportTCP
	}
	return domain.TransportUDP
}

// srvServiceName composes the SRV query name, e.g. "_sip._udp.host".
func srvServiceName(secure bool, transport, host string) string {
	service := "_sip._"
	if secure {
		service = "_sips._"
	}
	return service + strings.ToLower(transport) + "." + host
}
