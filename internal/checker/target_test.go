package checker

import (
	"errors"
	"reflect"
	"testing"

	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
)

func TestParseTarget(t *testing.T) {
	testCases := []struct {
		name       string
		target     string
		wantScheme string
		wantHost   string
		wantPort   string
		wantPath   string
		hasScheme  bool
	}{
		{name: "Simple domain", target: "example.com", wantHost: "example.com"},
		{name: "Whitespace", target: "  example.com \n", wantHost: "example.com"},
		{name: "HTTP URL", target: "http://example.com", wantScheme: "http", wantHost: "example.com", hasScheme: true},
		{name: "HTTPS URL with port", target: "https://example.com:8443", wantScheme: "https", wantHost: "example.com", wantPort: "8443", hasScheme: true},
		{name: "Domain with port", target: "example.com:8080", wantHost: "example.com", wantPort: "8080"},
		{name: "Localhost with port", target: "localhost:3000", wantHost: "localhost", wantPort: "3000"},
		{name: "URL with path", target: "https://example.com/api/v1", wantScheme: "https", wantHost: "example.com", wantPath: "/api/v1", hasScheme: true},
		{name: "IPv4", target: "192.0.2.10", wantHost: "192.0.2.10"},
		{name: "Bracketed IPv6 with port", target: "[2001:db8::1]:22", wantHost: "2001:db8::1", wantPort: "22"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			info := ParseTarget(tc.target)
			if info.Scheme != tc.wantScheme {
				t.Errorf("Scheme = %q, want %q", info.Scheme, tc.wantScheme)
			}
			if info.Host != tc.wantHost {
				t.Errorf("Host = %q, want %q", info.Host, tc.wantHost)
			}
			if info.Port != tc.wantPort {
				t.Errorf("Port = %q, want %q", info.Port, tc.wantPort)
			}
			if info.Path != tc.wantPath {
				t.Errorf("Path = %q, want %q", info.Path, tc.wantPath)
			}
			if info.HasScheme != tc.hasScheme {
				t.Errorf("HasScheme = %v, want %v", info.HasScheme, tc.hasScheme)
			}
		})
	}
}

func TestWebsiteCandidates(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"example.com", []string{"https://example.com/", "http://example.com/"}},
		{"example.com:8080/login", []string{"https://example.com:8080/login", "http://example.com:8080/login"}},
		{"http://example.com", []string{"http://example.com/"}},
		{"HTTPS://Example.com/a?b=1", []string{"https://Example.com/a?b=1"}},
	}
	for _, tt := range tests {
		got, err := WebsiteCandidates(tt.in)
		if err != nil {
			t.Fatalf("WebsiteCandidates(%q) error: %v", tt.in, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("WebsiteCandidates(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWebsiteCandidatesRejects(t *testing.T) {
	if _, err := WebsiteCandidates("   "); !errors.Is(err, sharedErrors.ErrEmptyTarget) {
		t.Fatalf("expected ErrEmptyTarget, got %v", err)
	}
	if _, err := WebsiteCandidates("ftp://example.com"); !errors.Is(err, sharedErrors.ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
}
