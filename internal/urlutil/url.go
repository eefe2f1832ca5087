package urlutil

import (
	"net"
	"net/url"
	"strings"
)

// FormatServerAddress turns a listen address such as ":8080" into a URL
// a user can open.
func FormatServerAddress(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// WithQuery appends params to path in the order given as name, value
// pairs. Empty values are skipped.
func WithQuery(path string, pairs ...string) string {
	var sb strings.Builder
	sb.WriteString(path)

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		sb.WriteString(sep)
		sb.WriteString(url.QueryEscape(pairs[i]))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(pairs[i+1]))
		sep = "&"
	}
	return sb.String()
}

// IsWebURL reports whether s is an absolute http(s) URL with a host.
func IsWebURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
