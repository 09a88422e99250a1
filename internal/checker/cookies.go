package checker

import (
	"net/http"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
)

// AnalyzeCookies inspects Set-Cookie headers for missing Secure/HttpOnly flags.
func AnalyzeCookies(resp *http.Response) []scan.CookieFinding {
	if resp == nil || len(resp.Header["Set-Cookie"]) == 0 {
		return nil
	}

	var findings []scan.CookieFinding
	for _, cookie := range resp.Cookies() {
		finding := scan.CookieFinding{
			Name:            cookie.Name,
			MissingSecure:   !cookie.Secure,
			MissingHTTPOnly: !cookie.HttpOnly,
		}
		if finding.MissingSecure || finding.MissingHTTPOnly {
			findings = append(findings, finding)
		}
	}
	return findings
}
