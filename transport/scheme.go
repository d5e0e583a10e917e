package transport

import (
	"net/url"
	"strings"
)

// rewriteScheme converts an http(s) bridge URL to its ws(s) equivalent.
// Any other scheme passes through unchanged.
func rewriteScheme(bridge string) (string, error) {
	u, err := url.Parse(bridge)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String(), nil
}
