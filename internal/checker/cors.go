package checker

import (
	"net/http"
	"strings"
)

// CORSWarnings inspects CORS response headers for risky configurations.
// A missing Access-Control-Allow-Origin is normal for pages and not reported.
func CORSWarnings(headers http.Header) []string {
	origin := headers.Get("Access-Control-Allow-Origin")
	if origin == "" {
		return nil
	}

	var warnings []string
	credentials := strings.EqualFold(headers.Get("Access-Control-Allow-Credentials"), "true")
	if origin == "*" {
		warnings = append(warnings, "CORS allows any origin (*)")
		if credentials {
			warnings = append(warnings, "CORS allows credentials with a wildcard origin")
		}
	} else if origin == "null" {
		warnings = append(warnings, "CORS allows the 'null' origin")
	} else if !varyIncludesOrigin(headers.Values("Vary")) {
		warnings = append(warnings, "Vary: Origin header missing (responses may be cached incorrectly)")
	}

	if strings.Contains(headers.Get("Access-Control-Allow-Headers"), "*") {
		warnings = append(warnings, "Access-Control-Allow-Headers allows any header (*)")
	}
	if strings.Contains(headers.Get("Access-Control-Expose-Headers"), "*") {
		warnings = append(warnings, "Access-Control-Expose-Headers exposes all headers (*)")
	}
	return warnings
}

func varyIncludesOrigin(values []string) bool {
	for _, value := range values {
		for _, token := range strings.Split(value, ",") {
			if strings.EqualFold(strings.TrimSpace(token), "origin") {
				return true
			}
		}
	}
	return false
}
