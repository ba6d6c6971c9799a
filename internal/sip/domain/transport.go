package domain

// Transport protocol names as they appear in SIP transport parameters
// and in SRV service labels. Stored lower case; comparisons in the
// locator are case-insensitive.
const (
	TransportUDP  = "udp"
	TransportTCP  = "tcp"
	TransportTLS  = "tls"
	TransportSCTP = "sctp"
	TransportWS   = "ws"
	TransportWSS  = "wss"
)

// Default SIP ports per RFC 3261.
const (
	DefaultPort       = 5060
	DefaultSecurePort = 5061
)
