// Package intel adapts external threat-intelligence services to the lookup
// interfaces used by the file and website assessors.
package intel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	vt "github.com/VirusTotal/vt-go"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
)

const (
	virusTotalGUI      = "https://www.virustotal.com/gui/file/"
	vtNotFoundCode     = "NotFoundError"
	lastAnalysisPrefix = "last_analysis_stats."
)

// VirusTotal looks up file reports by SHA-256 through the v3 API. Only the
// hash is sent; files are never uploaded.
type VirusTotal struct {
	APIKey string
	// Host overrides the API origin, e.g. "http://127.0.0.1:8080".
	Host   string
	Client *http.Client
}

// NewVirusTotal returns a client with its own request timeout.
func NewVirusTotal(apiKey string, timeout time.Duration) *VirusTotal {
	if timeout <= 0 {
		timeout = consts.DefaultLookupTimeout
	}
	return &VirusTotal{
		APIKey: apiKey,
		Client: &http.Client{Timeout: timeout},
	}
}

// LookupHash implements filescan.ReputationLookup.
func (v *VirusTotal) LookupHash(ctx context.Context, sha256Hex string) (*scan.Reputation, error) {
	if v == nil || strings.TrimSpace(v.APIKey) == "" {
		return nil, fmt.Errorf("virustotal: %w: no API key", sharedErrors.ErrLookupUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := vt.NewClient(v.APIKey, vt.WithHTTPClient(v.httpClient(ctx)))
	obj, err := client.GetObject(vt.URL("files/%s", url.PathEscape(sha256Hex)))
	if err != nil {
		return nil, classifyVTError(ctx, err)
	}

	stat := func(name string) int {
		n, _ := obj.GetInt64(lastAnalysisPrefix + name)
		return int(n)
	}
	return &scan.Reputation{
		Attributes: scan.ReputationAttributes{Stats: scan.ReputationStats{
			Malicious:  stat("malicious"),
			Suspicious: stat("suspicious"),
			Clean:      stat("harmless"),
			Undetected: stat("undetected"),
		}},
		Permalink: virusTotalGUI + sha256Hex,
	}, nil
}

// httpClient binds every request to ctx and, when Host is set, sends it there.
func (v *VirusTotal) httpClient(ctx context.Context) *http.Client {
	base := v.Client
	if base == nil {
		base = &http.Client{Timeout: consts.DefaultLookupTimeout}
	}
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	var host *url.URL
	if v.Host != "" {
		host, _ = url.Parse(v.Host)
	}
	c := *base
	c.Transport = &boundTransport{ctx: ctx, host: host, next: rt}
	return &c
}

type boundTransport struct {
	ctx  context.Context
	host *url.URL
	next http.RoundTripper
}

func (t *boundTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(t.ctx)
	if t.host != nil {
		req.URL.Scheme = t.host.Scheme
		req.URL.Host = t.host.Host
		req.Host = t.host.Host
	}
	return t.next.RoundTrip(req)
}

func classifyVTError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr vt.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == vtNotFoundCode {
			return fmt.Errorf("virustotal: %w", sharedErrors.ErrLookupNotFound)
		}
		return fmt.Errorf("virustotal: %w: %s", sharedErrors.ErrLookupUnavailable, apiErr.Code)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("virustotal: %w: %v", sharedErrors.ErrLookupUnavailable, err)
	}
	return fmt.Errorf("virustotal: %w: %v", sharedErrors.ErrDeserializationFailed, err)
}
