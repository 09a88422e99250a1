package checker

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
)

// libraryRule flags script library versions with published vulnerabilities.
type libraryRule struct {
	name     string
	pattern  *regexp.Regexp
	fixedIn  string
	advisory string
}

var libraryRules = []libraryRule{
	{"jQuery", regexp.MustCompile(`jquery[/-](\d+\.\d+(?:\.\d+)?)`), "3.5.0", "CVE-2020-11022"},
	{"AngularJS", regexp.MustCompile(`angularjs?[/@](\d+\.\d+(?:\.\d+)?)`), "1.7.9", "CVE-2019-10768"},
	{"Lodash", regexp.MustCompile(`lodash(?:\.js)?[@/](\d+\.\d+(?:\.\d+)?)`), "4.17.12", "CVE-2019-10744"},
	{"Moment.js", regexp.MustCompile(`moment\.js[/@](\d+\.\d+(?:\.\d+)?)`), "2.29.2", "CVE-2022-24785"},
	{"Bootstrap", regexp.MustCompile(`bootstrap[/@](\d+\.\d+(?:\.\d+)?)`), "3.4.0", "CVE-2019-8331"},
}

// OutdatedLibraryWarnings scans page markup for script libraries older than
// their first fixed release. Each library/version pair is reported once.
func OutdatedLibraryWarnings(body []byte) []string {
	var warnings []string
	seen := make(map[string]bool)

	for _, rule := range libraryRules {
		fixed := semver.MustParse(rule.fixedIn)
		for _, match := range rule.pattern.FindAllSubmatch(body, -1) {
			raw := string(match[1])
			if seen[rule.name+raw] {
				continue
			}
			seen[rule.name+raw] = true

			version, err := semver.NewVersion(raw)
			if err != nil || !version.LessThan(fixed) {
				continue
			}
			warnings = append(warnings, fmt.Sprintf("%s %s is vulnerable (%s), update to %s or later",
				rule.name, raw, rule.advisory, rule.fixedIn))
		}
	}
	return warnings
}
