package checker

import (
	"fmt"
	"net/url"
	"strings"

	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
)

// TargetInfo contains parsed target information
type TargetInfo struct {
	Original  string // Original target string
	Scheme    string // http, https, or empty when the input had none
	Host      string // Hostname (without protocol, path, port)
	Port      string // Port if specified
	Path      string // Path if specified
	HasScheme bool
}

// ParseTarget parses a target string into structured components.
// This handles various input formats:
//   - example.com
//   - http://example.com
//   - https://example.com:443/path
//   - example.com:8080
//   - 192.0.2.1
func ParseTarget(target string) *TargetInfo {
	target = strings.TrimSpace(target)
	info := &TargetInfo{Original: target}

	parsed, err := url.Parse(target)
	if err == nil && parsed.Scheme != "" && !strings.Contains(parsed.Scheme, ".") && parsed.Host != "" {
		info.HasScheme = true
	} else {
		// bare host, host:port or host/path
		parsed, err = url.Parse("//" + target)
	}
	if err != nil || parsed == nil {
		return info
	}

	info.Scheme = strings.ToLower(parsed.Scheme)
	info.Host = parsed.Hostname()
	info.Port = parsed.Port()
	info.Path = parsed.EscapedPath()
	if parsed.RawQuery != "" {
		info.Path += "?" + parsed.RawQuery
	}
	return info
}

// ExtractHost extracts just the hostname from a target.
// This is useful for DNS lookups where we need the bare hostname.
func ExtractHost(target string) string {
	return ParseTarget(target).Host
}

// WebsiteCandidates returns the URLs to try, in order, for a website check.
// Input without a scheme is tried over https first and then http.
func WebsiteCandidates(raw string) ([]string, error) {
	info := ParseTarget(raw)
	if info.Original == "" {
		return nil, sharedErrors.ErrEmptyTarget
	}
	if info.Host == "" {
		return nil, fmt.Errorf("%w: %q", sharedErrors.ErrInvalidURL, raw)
	}
	if info.HasScheme {
		if info.Scheme != "http" && info.Scheme != "https" {
			return nil, fmt.Errorf("%w: unsupported scheme %q", sharedErrors.ErrInvalidURL, info.Scheme)
		}
		return []string{info.build(info.Scheme)}, nil
	}
	return []string{info.build("https"), info.build("http")}, nil
}

func (t *TargetInfo) build(scheme string) string {
	host := t.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if t.Port != "" {
		host += ":" + t.Port
	}
	path := t.Path
	if path == "" {
		path = "/"
	}
	return scheme + "://" + host + path
}
