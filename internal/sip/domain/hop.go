package domain

import "fmt"

// Hop is one concrete next destination for a SIP request: a literal IP
// address, a port and a transport protocol. A hop list is ordered by
// attempt preference (first entry is tried first) and hops are never
// modified after construction.
type Hop struct {
	Address   string
	Port      int
	Transport string
}

func (h Hop) String() string {
	return fmt.Sprintf("%s:%d/%s", h.Address, h.Port, h.Transport)
}
