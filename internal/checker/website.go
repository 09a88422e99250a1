package checker

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
)

const (
	scoreHTTPS     = 25
	scoreValidCert = 15
	threatPenalty  = 50
)

// ThreatLookup reports known threats for a URL. Implementations return an
// error when the service is unconfigured or unavailable.
type ThreatLookup interface {
	LookupURL(ctx context.Context, rawURL string) (*scan.ThreatReport, error)
}

// WebsiteAssessor scores the security posture of a URL from its transport,
// response headers, page content and an optional threat lookup.
type WebsiteAssessor struct {
	Timeout       time.Duration // one fetch including redirects
	TLSTimeout    time.Duration // certificate handshake
	RootCAs       *x509.CertPool
	Threats       ThreatLookup
	LookupTimeout time.Duration
	Logger        *zap.Logger
}

type fetchResult struct {
	finalURL  string
	status    int
	header    http.Header
	body      []byte
	redirects []string
	cookies   []scan.CookieFinding
	https     bool
	host      string
	port      string
}

// Assess fetches rawURL, inspects its certificate and headers, and computes
// the security score. DNS failure or an unreachable host on every candidate
// scheme is a client error; every other failure degrades the result.
func (a *WebsiteAssessor) Assess(ctx context.Context, rawURL string) (*scan.WebsiteScanResult, error) {
	candidates, err := WebsiteCandidates(rawURL)
	if err != nil {
		return nil, err
	}
	logger := a.logger()

	var threatCh chan *scan.ThreatReport
	if a.Threats != nil {
		threatCh = make(chan *scan.ThreatReport, 1)
		lookupCtx, cancel := context.WithTimeout(ctx, durationOr(a.LookupTimeout, consts.DefaultLookupTimeout))
		defer cancel()
		go func() {
			report, err := a.Threats.LookupURL(lookupCtx, candidates[0])
			if err != nil {
				logger.Debug("threat lookup skipped", zap.String("url", candidates[0]), zap.Error(err))
				report = nil
			}
			threatCh <- report
		}()
	}

	var (
		fetched  *fetchResult
		dnsFail  bool
		lastErr  error
		attempts []string
	)
	for _, candidate := range candidates {
		fetched, err = a.fetch(ctx, candidate)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			dnsFail = true
		}
		lastErr = err
		attempts = append(attempts, candidate)
		logger.Debug("website fetch failed", zap.String("url", candidate), zap.Error(err))
	}
	if fetched == nil {
		if dnsFail {
			return nil, fmt.Errorf("%w: %s", sharedErrors.ErrResolveFailed, ParseTarget(rawURL).Host)
		}
		return nil, fmt.Errorf("%w: %s: %v", sharedErrors.ErrUnreachable, strings.Join(attempts, ", "), lastErr)
	}

	result := &scan.WebsiteScanResult{
		Meta:            scan.NewMeta(),
		URL:             candidates[0],
		FinalURL:        fetched.finalURL,
		StatusCode:      fetched.status,
		HTTPHeaders:     flattenHeaders(fetched.header),
		SecurityHeaders: AnalyzeSecurityHeaders(fetched.header),
		Redirects:       fetched.redirects,
		CookieFindings:  fetched.cookies,
	}
	if result.Redirects == nil {
		result.Redirects = []string{}
	}

	if fetched.https {
		inspection := inspectTLS(ctx, fetched.host, fetched.port, a.RootCAs, durationOr(a.TLSTimeout, consts.DefaultProbeTimeout))
		result.SSLCertInfo = inspection.Info
		result.Warnings = append(result.Warnings, inspection.Warnings...)
		if inspection.Info.VerifyError != "" {
			result.Warnings = append(result.Warnings, "Certificate did not verify: "+inspection.Info.VerifyError)
		}
	} else {
		result.SSLCertInfo.Error = "site is not served over HTTPS"
		if len(candidates) > 1 {
			result.Warnings = append(result.Warnings, "HTTPS unavailable, assessed over plain HTTP")
		}
	}
	result.HTTPSValid = fetched.https && result.SSLCertInfo.Valid

	if isHTML(fetched.header) {
		result.Page = AnalyzePage(bytes.NewReader(fetched.body), fetched.https)
		result.Warnings = append(result.Warnings, pageWarnings(result.Page)...)
		result.Warnings = append(result.Warnings, OutdatedLibraryWarnings(fetched.body)...)
	}
	result.Warnings = append(result.Warnings, HeaderWarnings(fetched.header)...)
	result.Warnings = append(result.Warnings, CORSWarnings(fetched.header)...)
	if n := len(fetched.cookies); n > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d cookie(s) missing Secure or HttpOnly flag", n))
	}

	if threatCh != nil {
		select {
		case report := <-threatCh:
			result.SafeBrowsingResult = report
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	result.SecurityScore = ScoreWebsite(result)
	return result, nil
}

// fetch performs one GET, following and recording redirects.
func (a *WebsiteAssessor) fetch(ctx context.Context, target string) (*fetchResult, error) {
	var redirects []string
	client := &http.Client{
		Timeout: durationOr(a.Timeout, consts.DefaultHTTPTimeout),
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			// Certificate trust is judged separately by inspectTLS.
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= consts.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", consts.MaxRedirects)
			}
			redirects = append(redirects, via[len(via)-1].URL.String())
			return nil
		},
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", "secakit/1.0 (+security assessment)")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, consts.BodyCaptureLimitBytes))
	if err != nil {
		// Partial bodies are still analysed.
		a.logger().Debug("short body read", zap.String("url", target), zap.Error(err))
	}

	final := resp.Request.URL
	port := final.Port()
	if port == "" {
		port = "443"
	}
	return &fetchResult{
		finalURL:  final.String(),
		status:    resp.StatusCode,
		header:    resp.Header,
		body:      body,
		redirects: redirects,
		cookies:   AnalyzeCookies(resp),
		https:     final.Scheme == "https",
		host:      final.Hostname(),
		port:      port,
	}, nil
}

// ScoreWebsite computes the 0-100 score from a populated result. It depends
// only on the final scheme, certificate validity, header presence and the
// threat report, so adding a protection never lowers it.
func ScoreWebsite(r *scan.WebsiteScanResult) int {
	if r == nil {
		return 0
	}
	score := 0
	if strings.HasPrefix(strings.ToLower(r.FinalURL), "https://") {
		score += scoreHTTPS
		if r.SSLCertInfo.Valid {
			score += scoreValidCert
		}
	}
	for _, check := range r.SecurityHeaders {
		if check.Present {
			score += headerWeight(check.Name)
		}
	}
	if r.SafeBrowsingResult != nil && !r.SafeBrowsingResult.Safe {
		score = max(0, score-threatPenalty)
	}
	return score
}

func headerWeight(name string) int {
	for _, spec := range securityHeaderSpecs {
		if strings.EqualFold(spec.Name, name) {
			return spec.Weight
		}
	}
	return 0
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	return out
}

func isHTML(h http.Header) bool {
	ct := strings.ToLower(h.Get("Content-Type"))
	return ct == "" || strings.Contains(ct, "html")
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

func (a *WebsiteAssessor) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}
