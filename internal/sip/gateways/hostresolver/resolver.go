// Package hostresolver adapts the standard library resolver to the
// locator's AddressResolver contract: forward resolution of one host
// name to one literal address.
package hostresolver

import (
	"context"
	"net"

	"github.com/looneyapurv/siplocate/internal/sip/services/locator"
)

// Resolver resolves host names through a net.Resolver, the system
// resolver by default.
type Resolver struct {
	inner *net.Resolver
}

// New creates a Resolver backed by the system resolver.
func New() *Resolver {
	return &Resolver{inner: net.DefaultResolver}
}

// NewWithResolver creates a Resolver backed by the given net.Resolver.
func NewWithResolver(r *net.Resolver) *Resolver {
	return &Resolver{inner: r}
}

// Resolve returns the first address the resolver reports for host,
// mirroring getByName semantics: one address per name, host-not-found
// as the error condition.
func (r *Resolver) Resolve(ctx context.Context, host string) (net.IP, error) {
	addrs, err := r.inner.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, &net.DNSError{Err: "no addresses found", Name: host, IsNotFound: true}
	}
	return addrs[0].IP, nil
}

// Ensure Resolver implements locator.AddressResolver at compile time
var _ locator.AddressResolver = (*Resolver)(nil)
