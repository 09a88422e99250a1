package intel

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	safebrowsing "google.golang.org/api/safebrowsing/v4"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
)

const (
	safeBrowsingClientID      = "secakit"
	safeBrowsingClientVersion = "1.0.0"
)

var (
	threatTypes   = []string{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE", "POTENTIALLY_HARMFUL_APPLICATION"}
	platformTypes = []string{"ANY_PLATFORM"}
)

// SafeBrowsing checks URLs against the Google Safe Browsing v4 lookup API.
type SafeBrowsing struct {
	svc *safebrowsing.Service
}

// NewSafeBrowsing builds a lookup client authenticated with apiKey. Extra
// options (for example option.WithEndpoint) are applied after the key.
func NewSafeBrowsing(ctx context.Context, apiKey string, opts ...option.ClientOption) (*SafeBrowsing, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("safebrowsing: %w: no API key", sharedErrors.ErrLookupUnavailable)
	}
	svc, err := safebrowsing.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("safebrowsing: create service: %w", err)
	}
	return &SafeBrowsing{svc: svc}, nil
}

// LookupURL implements checker.ThreatLookup. No matches means safe.
func (s *SafeBrowsing) LookupURL(ctx context.Context, rawURL string) (*scan.ThreatReport, error) {
	if s == nil || s.svc == nil {
		return nil, fmt.Errorf("safebrowsing: %w", sharedErrors.ErrLookupUnavailable)
	}

	req := &safebrowsing.GoogleSecuritySafebrowsingV4FindThreatMatchesRequest{
		Client: &safebrowsing.GoogleSecuritySafebrowsingV4ClientInfo{
			ClientId:      safeBrowsingClientID,
			ClientVersion: safeBrowsingClientVersion,
		},
		ThreatInfo: &safebrowsing.GoogleSecuritySafebrowsingV4ThreatInfo{
			ThreatTypes:      threatTypes,
			PlatformTypes:    platformTypes,
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries:    []*safebrowsing.GoogleSecuritySafebrowsingV4ThreatEntry{{Url: rawURL}},
		},
	}

	resp, err := s.svc.ThreatMatches.Find(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("safebrowsing: %w: %v", sharedErrors.ErrLookupUnavailable, err)
	}

	report := &scan.ThreatReport{Safe: len(resp.Matches) == 0, Threats: []scan.Threat{}}
	for _, match := range resp.Matches {
		threat := scan.Threat{ThreatType: match.ThreatType, PlatformType: match.PlatformType}
		if match.Threat != nil {
			threat.URL = match.Threat.Url
		}
		report.Threats = append(report.Threats, threat)
	}
	return report, nil
}
