package domain

// NAPTR service field markers from RFC 3263 section 4.1. A service
// containing ServiceSIPS selects TLS, ServiceD2U selects UDP, anything
// else selects TCP.
const (
	ServiceSIPS = "SIPS"
	ServiceD2U  = "D2U"
	ServiceD2T  = "D2T"
	ServiceD2S  = "D2S"
)

// NAPTRRecord is the subset of a DNS NAPTR record the locator consumes:
// the service field drives transport selection and the replacement
// domain drives the follow-up SRV query.
type NAPTRRecord struct {
	Order       uint16
	Preference  uint16
	Flags       string
	Service     string
	Replacement string
}

// SRVRecord is one candidate returned by a DNS SRV query. Candidates
// require a total order (see the locator's Ranker) before hops are
// emitted from them.
type SRVRecord struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   string
}
