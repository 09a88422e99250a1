package checker

import (
	"net/http"
	"strings"
	"testing"
)

func TestAnalyzeSecurityHeaders_AllPresent(t *testing.T) {
	headers := http.Header{}
	headers.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	headers.Set("Content-Security-Policy", "default-src 'self'; script-src 'self'")
	headers.Set("X-Frame-Options", "DENY")
	headers.Set("X-Content-Type-Options", "nosniff")
	headers.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	headers.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

	checks := AnalyzeSecurityHeaders(headers)

	if len(checks) != 6 {
		t.Fatalf("Expected 6 header checks, got %d", len(checks))
	}
	for _, c := range checks {
		if !c.Present {
			t.Errorf("Expected %s to be present", c.Name)
		}
		if len(c.Issues) != 0 {
			t.Errorf("Expected no issues for %s, got %v", c.Name, c.Issues)
		}
	}
	if checks[0].Name != "Strict-Transport-Security" {
		t.Errorf("Expected fixed order starting with HSTS, got %s", checks[0].Name)
	}
}

func TestAnalyzeSecurityHeaders_AllMissing(t *testing.T) {
	checks := AnalyzeSecurityHeaders(http.Header{})

	for _, c := range checks {
		if c.Present || c.Value != "" {
			t.Errorf("Expected %s to be missing, got %+v", c.Name, c)
		}
	}
}

func TestSecurityHeaderWeights(t *testing.T) {
	total := 0
	for _, spec := range securityHeaderSpecs {
		total += spec.Weight
	}
	if total != 60 {
		t.Fatalf("Expected header weights to sum to 60, got %d", total)
	}
}

func TestCheckHSTS(t *testing.T) {
	if issues := checkHSTS("max-age=31536000; includeSubDomains; preload"); len(issues) != 0 {
		t.Errorf("Expected no issues for perfect HSTS, got %v", issues)
	}
	if issues := checkHSTS("max-age=31536000; preload"); !hasIssue(issues, "includeSubDomains") {
		t.Errorf("Expected includeSubDomains issue, got %v", issues)
	}
	if issues := checkHSTS("max-age=0"); !hasIssue(issues, "HSTS disabled") {
		t.Errorf("Expected disabled issue, got %v", issues)
	}
}

func TestCheckCSP(t *testing.T) {
	if issues := checkCSP("default-src 'self'; script-src 'self' 'unsafe-inline'"); !hasIssue(issues, "unsafe-inline") {
		t.Errorf("Expected unsafe-inline issue, got %v", issues)
	}
	if issues := checkCSP("script-src 'self' data:"); !hasIssue(issues, "default-src") || !hasIssue(issues, "data:") {
		t.Errorf("Expected default-src and data: issues, got %v", issues)
	}
	if issues := checkCSP("default-src 'self'"); len(issues) != 0 {
		t.Errorf("Expected no issues, got %v", issues)
	}
}

func TestCheckXFrameOptions(t *testing.T) {
	tests := []struct {
		value      string
		wantIssues bool
	}{
		{"DENY", false},
		{"sameorigin", false},
		{"ALLOW-FROM https://example.com", true},
		{"bogus", true},
	}
	for _, tt := range tests {
		if got := len(checkXFrameOptions(tt.value)) > 0; got != tt.wantIssues {
			t.Errorf("checkXFrameOptions(%q) issues = %v, want %v", tt.value, got, tt.wantIssues)
		}
	}
}

func TestCheckReferrerPolicy(t *testing.T) {
	if issues := checkReferrerPolicy("no-referrer"); len(issues) != 0 {
		t.Errorf("Expected no issues, got %v", issues)
	}
	if issues := checkReferrerPolicy("unsafe-url"); !hasIssue(issues, "leak") {
		t.Errorf("Expected leak issue, got %v", issues)
	}
}

func TestHeaderWarnings(t *testing.T) {
	headers := http.Header{}
	headers.Set("Server", "nginx/1.18.0")
	headers.Set("X-XSS-Protection", "1; mode=block")

	warnings := HeaderWarnings(headers)
	if len(warnings) != 2 {
		t.Fatalf("Expected 2 warnings, got %v", warnings)
	}
	if len(HeaderWarnings(http.Header{"X-Xss-Protection": {"0"}})) != 0 {
		t.Fatal("X-XSS-Protection: 0 should not warn")
	}
}

func hasIssue(issues []string, substr string) bool {
	for _, issue := range issues {
		if strings.Contains(strings.ToLower(issue), strings.ToLower(substr)) {
			return true
		}
	}
	return false
}
