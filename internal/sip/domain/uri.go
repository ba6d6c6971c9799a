package domain

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// TargetURI is the request target a locator resolves. Exactly two
// kinds exist: SIPURI for sip:/sips: targets and TelURI for tel:
// targets, which carry no resolvable host.
type TargetURI interface {
	targetURI()
}

// SIPURI is a sip: or sips: request URI reduced to the fields that
// matter for server location. A Port of 0 means the URI carried no
// explicit port; an empty Transport means no ;transport= parameter.
type SIPURI struct {
	User      string
	Host      string
	Port      int
	Transport string
	Secure    bool
}

func (SIPURI) targetURI() {}

func (u SIPURI) String() string {
	var b strings.Builder
	if u.Secure {
		b.WriteString("sips:")
	} else {
		b.WriteString("sip:")
	}
	if u.User != "" {
		b.WriteString(u.User)
		b.WriteByte('@')
	}
	b.WriteString(u.Host)
	if u.Port != 0 {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(u.Port))
	}
	if u.Transport != "" {
		b.WriteString(";transport=")
		b.WriteString(u.Transport)
	}
	return b.String()
}

// TelURI is a tel: URI. Telephone URIs have no host to resolve, so
// locating them always yields an empty hop list.
type TelURI struct {
	Number string
}

func (TelURI) targetURI() {}

func (u TelURI) String() string {
	return "tel:" + u.Number
}

// ParseTargetURI parses a sip:, sips: or tel: URI string into a
// TargetURI. Only the components relevant to server location are kept;
// URI headers and parameters other than transport are discarded.
func ParseTargetURI(raw string) (TargetURI, error) {
	switch {
	case strings.HasPrefix(raw, "sip:"):
		return parseSIPURI(raw[len("sip:"):], false)
	case strings.HasPrefix(raw, "sips:"):
		return parseSIPURI(raw[len("sips:"):], true)
	case strings.HasPrefix(raw, "tel:"):
		number := raw[len("tel:"):]
		if number == "" {
			return nil, fmt.Errorf("tel URI has no number: %q", raw)
		}
		return TelURI{Number: number}, nil
	}
	return nil, fmt.Errorf("unsupported target URI scheme: %q", raw)
}

func parseSIPURI(rest string, secure bool) (SIPURI, error) {
	u := SIPURI{Secure: secure}

	// URI headers are irrelevant for location
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest = rest[:i]
	}

	var params string
	if i := strings.IndexByte(rest, ';'); i >= 0 {
		rest, params = rest[:i], rest[i+1:]
	}

	if i := strings.LastIndexByte(rest, '@'); i >= 0 {
		user := rest[:i]
		if j := strings.IndexByte(user, ':'); j >= 0 {
			user = user[:j]
		}
		u.User = user
		rest = rest[i+1:]
	}

	host, port, err := splitHostPort(rest)
	if err != nil {
		return SIPURI{}, err
	}
	if host == "" {
		return SIPURI{}, fmt.Errorf("SIP URI has no host")
	}
	u.Host = host
	u.Port = port

	for _, p := range strings.Split(params, ";") {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) == 2 && strings.EqualFold(kv[0], "transport") {
			u.Transport = kv[1]
		}
	}
	return u, nil
}

// splitHostPort splits "host", "host:port", "[v6]" and "[v6]:port"
// forms. A bare IPv6 literal without brackets is accepted when it
// cannot be confused with a host:port pair.
func splitHostPort(s string) (string, int, error) {
	if strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return "", 0, fmt.Errorf("unterminated IPv6 literal: %q", s)
		}
		host := s[:end+1]
		rest := s[end+1:]
		if rest == "" {
			return host, 0, nil
		}
		if !strings.HasPrefix(rest, ":") {
			return "", 0, fmt.Errorf("malformed host part: %q", s)
		}
		port, err := parsePort(rest[1:])
		return host, port, err
	}
	if strings.Count(s, ":") > 1 {
		// raw IPv6 literal, no port possible
		return s, 0, nil
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		port, err := parsePort(s[i+1:])
		return s[:i], port, err
	}
	return s, 0, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port: %q", s)
	}
	return port, nil
}

// IsNumericAddress reports whether host is an IPv4 or IPv6 literal,
// including bracketed and zone-qualified IPv6 forms. Pure; performs no
// resolution.
func IsNumericAddress(host string) bool {
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	_, err := netip.ParseAddr(host)
	return err == nil
}
