package audit

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

// NormalizeURL turns caller input into an absolute http(s) URL. Input
// without a scheme is assumed to be served over https.
func NormalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: url is required", prospect.ErrInvalidInput)
	}
	if !strings.Contains(trimmed, "://") {
		if scheme, ok := opaqueScheme(trimmed); ok {
			return "", fmt.Errorf("%w: unsupported scheme %q", prospect.ErrInvalidInput, scheme)
		}
		trimmed = "https://" + strings.TrimPrefix(trimmed, "//")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: parse url %q: %v", prospect.ErrInvalidInput, raw, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", prospect.ErrInvalidInput, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("%w: url %q has no host", prospect.ErrInvalidInput, raw)
	}
	if strings.HasPrefix(host, "-") {
		return "", fmt.Errorf("%w: invalid host %q", prospect.ErrInvalidInput, host)
	}
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// opaqueScheme detects inputs like "mailto:x@y" while letting "host:8080"
// through as a schemeless address.
func opaqueScheme(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Opaque == "" {
		return "", false
	}
	port, _, _ := strings.Cut(u.Opaque, "/")
	if _, err := strconv.Atoi(port); err == nil {
		return "", false
	}
	return u.Scheme, true
}

// origin returns scheme://host for probing well-known files.
func origin(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func hostOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
