package checker

import (
	"net/http"
	"strings"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
)

// SecurityHeaderSpec defines one header of the scored set
type SecurityHeaderSpec struct {
	Name      string
	Weight    int
	CheckFunc func(value string) []string
}

// securityHeaderSpecs is the fixed, ordered header set. Weights sum to 60;
// the remaining 40 points come from transport security.
var securityHeaderSpecs = []SecurityHeaderSpec{
	{Name: "Strict-Transport-Security", Weight: 15, CheckFunc: checkHSTS},
	{Name: "Content-Security-Policy", Weight: 15, CheckFunc: checkCSP},
	{Name: "X-Frame-Options", Weight: 10, CheckFunc: checkXFrameOptions},
	{Name: "X-Content-Type-Options", Weight: 10, CheckFunc: checkXContentTypeOptions},
	{Name: "Referrer-Policy", Weight: 5, CheckFunc: checkReferrerPolicy},
	{Name: "Permissions-Policy", Weight: 5, CheckFunc: checkPermissionsPolicy},
}

// informationDisclosureHeaders lists headers that should be removed/obfuscated
var informationDisclosureHeaders = []string{
	"Server",
	"X-Powered-By",
	"X-AspNet-Version",
	"X-AspNetMvc-Version",
}

// AnalyzeSecurityHeaders reports presence and quality issues for each header
// in the fixed set. Issues are informational and never affect the score.
func AnalyzeSecurityHeaders(headers http.Header) []scan.HeaderCheck {
	checks := make([]scan.HeaderCheck, 0, len(securityHeaderSpecs))
	for _, spec := range securityHeaderSpecs {
		value := strings.TrimSpace(headers.Get(spec.Name))
		check := scan.HeaderCheck{Name: spec.Name, Present: value != ""}
		if check.Present {
			check.Value = value
			check.Issues = spec.CheckFunc(value)
		}
		checks = append(checks, check)
	}
	return checks
}

// HeaderWarnings flags deprecated headers and server information disclosure.
func HeaderWarnings(headers http.Header) []string {
	var warnings []string

	if xss := headers.Get("X-XSS-Protection"); xss != "" && xss != "0" {
		warnings = append(warnings, "X-XSS-Protection is deprecated and may introduce vulnerabilities. Set to '0' or remove it.")
	}
	if headers.Get("Expect-CT") != "" {
		warnings = append(warnings, "Expect-CT is deprecated. Remove this header.")
	}
	if headers.Get("Public-Key-Pins") != "" {
		warnings = append(warnings, "Public-Key-Pins (HPKP) is deprecated and dangerous. Remove this header.")
	}
	for _, name := range informationDisclosureHeaders {
		if value := headers.Get(name); value != "" {
			warnings = append(warnings, name+" header exposes server information: '"+value+"'")
		}
	}
	return warnings
}

// checkHSTS validates the Strict-Transport-Security header
func checkHSTS(value string) []string {
	var issues []string
	value = strings.ToLower(value)

	switch {
	case !strings.Contains(value, "max-age="):
		issues = append(issues, "Missing 'max-age' directive")
	case strings.Contains(value, "max-age=0"):
		issues = append(issues, "max-age is set to 0 (HSTS disabled)")
	case !strings.Contains(value, "max-age=31536000") && !strings.Contains(value, "max-age=63072000"):
		issues = append(issues, "Consider increasing max-age to at least 31536000 (1 year)")
	}
	if !strings.Contains(value, "includesubdomains") {
		issues = append(issues, "Missing 'includeSubDomains' directive")
	}
	if !strings.Contains(value, "preload") {
		issues = append(issues, "Missing 'preload' directive (optional but recommended)")
	}
	return issues
}

// checkCSP validates the Content-Security-Policy header
func checkCSP(value string) []string {
	var issues []string
	value = strings.ToLower(value)
	directives := parseCSPDirectives(value)

	if strings.Contains(value, "'unsafe-inline'") {
		issues = append(issues, "Contains 'unsafe-inline' which weakens CSP protection")
	}
	if strings.Contains(value, "'unsafe-eval'") {
		issues = append(issues, "Contains 'unsafe-eval' which allows eval() and similar functions")
	}
	if strings.Contains(value, "*") {
		issues = append(issues, "Contains wildcard (*) which is too permissive")
	}
	if _, ok := directives["default-src"]; !ok {
		issues = append(issues, "Missing 'default-src' directive (recommended fallback)")
	}

	for _, token := range directives["script-src"] {
		switch {
		case token == "data:" || token == "blob:" || token == "filesystem:":
			issues = append(issues, "Script sources allow "+token+" URLs which can enable CSP bypasses")
		case strings.HasPrefix(token, "http:"):
			issues = append(issues, "Script sources allow insecure http scheme")
		}
	}
	return issues
}

func parseCSPDirectives(value string) map[string][]string {
	result := make(map[string][]string)
	for _, part := range strings.Split(value, ";") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		result[fields[0]] = fields[1:]
	}
	return result
}

// checkXFrameOptions validates the X-Frame-Options header
func checkXFrameOptions(value string) []string {
	value = strings.ToUpper(value)
	switch {
	case value == "DENY" || value == "SAMEORIGIN":
		return nil
	case strings.HasPrefix(value, "ALLOW-FROM"):
		return []string{"ALLOW-FROM is deprecated; use Content-Security-Policy frame-ancestors instead"}
	}
	return []string{"Invalid X-Frame-Options value, set to 'DENY' or 'SAMEORIGIN'"}
}

// checkXContentTypeOptions validates the X-Content-Type-Options header
func checkXContentTypeOptions(value string) []string {
	if strings.EqualFold(value, "nosniff") {
		return nil
	}
	return []string{"Invalid value, should be 'nosniff'"}
}

// checkReferrerPolicy validates the Referrer-Policy header
func checkReferrerPolicy(value string) []string {
	value = strings.ToLower(value)
	for _, policy := range []string{"no-referrer", "strict-origin", "same-origin"} {
		if strings.Contains(value, policy) {
			return nil
		}
	}
	if strings.Contains(value, "unsafe-url") || strings.Contains(value, "origin-when-cross-origin") {
		return []string{"Policy may leak sensitive information in referrer"}
	}
	return []string{"Unusual or weak referrer policy"}
}

// checkPermissionsPolicy validates the Permissions-Policy header
func checkPermissionsPolicy(value string) []string {
	if len(value) < 10 {
		return []string{"Permissions-Policy seems minimal, consider adding more restrictions"}
	}
	return nil
}
