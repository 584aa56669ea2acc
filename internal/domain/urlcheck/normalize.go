package urlcheck

import "strings"

// NormalizedURL is a URL with an explicit scheme plus its bare host.
type NormalizedURL struct {
	NormalizedURL string `json:"normalized_url"`
	Host          string `json:"host"`
}

// Normalize trims the input, adds https:// when no http(s) scheme is present and
// extracts the lowercase host without credentials or port. It never fails; a
// malformed input yields a best-effort (possibly empty) host.
func Normalize(raw string) NormalizedURL {
	u := strings.TrimSpace(raw)
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return NormalizedURL{NormalizedURL: u, Host: hostOf(u)}
}

// hostOf returns the network-location segment of u with userinfo and port removed.
func hostOf(u string) string {
	rest := u
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	host := strings.ToLower(rest)

	// buang credential (user:pass@host)
	if i := strings.LastIndex(host, "@"); i >= 0 {
		host = host[i+1:]
	}
	// buang port
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host
}
