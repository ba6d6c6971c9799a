package locator

import (
	"context"
	"net"

	"github.com/looneyapurv/siplocate/internal/sip/domain"
)

// DNSLookup is the record lookup capability the locator consumes. All
// timeout and deadline behavior belongs to the implementation; the
// locator itself never waits on anything but these calls.
type DNSLookup interface {
	// LookupNAPTR returns the NAPTR records for host, restricted to
	// services usable under the secure flag and the supported
	// transports. Result ordering is the implementation's contract;
	// the locator takes the first record as the best one and applies
	// no sort of its own.
	LookupNAPTR(ctx context.Context, host string, secure bool, transports []string) ([]domain.NAPTRRecord, error)

	// LookupSRV returns the SRV records for a composed service name
	// such as "_sip._tcp.example.com". A name-syntax error is a valid
	// outcome; the locator treats any error as an empty result.
	LookupSRV(ctx context.Context, name string) ([]domain.SRVRecord, error)

	// LookupA and LookupAAAA return the IPv4 and IPv6 addresses of
	// host. Zero records is not an error.
	LookupA(ctx context.Context, host string) ([]net.IP, error)
	LookupAAAA(ctx context.Context, host string) ([]net.IP, error)
}

// AddressResolver performs forward name resolution of a single host to
// one literal address, with system resolver semantics.
type AddressResolver interface {
	Resolve(ctx context.Context, host string) (net.IP, error)
}

// Ranker imposes a total order on SRV records before hops are emitted
// from them. Implementations must not modify the input and must be
// stable for records that compare equal.
type Ranker interface {
	Rank(records []domain.SRVRecord) []domain.SRVRecord
}
