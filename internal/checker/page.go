package checker

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
)

// maxPageFindings caps each list reported by AnalyzePage.
const maxPageFindings = 20

// resourceAttrs maps elements to the attribute that loads a sub-resource.
var resourceAttrs = map[string]string{
	"script": "src",
	"img":    "src",
	"iframe": "src",
	"link":   "href",
	"audio":  "src",
	"video":  "src",
	"source": "src",
	"embed":  "src",
	"object": "data",
}

// AnalyzePage extracts the document title and, for pages served over https,
// sub-resources loaded over plain http. Forms posting to http:// are reported
// regardless of the page scheme. Malformed markup is tolerated.
func AnalyzePage(body io.Reader, https bool) *scan.PageInfo {
	info := &scan.PageInfo{}
	tokenizer := html.NewTokenizer(body)
	inTitle := false

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return info
		case html.TextToken:
			if inTitle && info.Title == "" {
				info.Title = strings.TrimSpace(string(tokenizer.Text()))
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "title" {
				inTitle = false
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			switch token.Data {
			case "title":
				inTitle = tt == html.StartTagToken
			case "form":
				action := attr(token, "action")
				if isPlainHTTP(action) && len(info.InsecureForms) < maxPageFindings {
					info.InsecureForms = append(info.InsecureForms, action)
				}
			default:
				key, ok := resourceAttrs[token.Data]
				if !ok || !https {
					continue
				}
				ref := attr(token, key)
				if isPlainHTTP(ref) && len(info.InsecureResources) < maxPageFindings {
					info.InsecureResources = append(info.InsecureResources, ref)
				}
			}
		}
	}
}

func attr(token html.Token, key string) string {
	for _, a := range token.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func isPlainHTTP(ref string) bool {
	return len(ref) >= 7 && strings.EqualFold(ref[:7], "http://")
}

// pageWarnings turns page findings into result warnings.
func pageWarnings(page *scan.PageInfo) []string {
	if page == nil {
		return nil
	}
	var warnings []string
	if n := len(page.InsecureResources); n > 0 {
		warnings = append(warnings, fmt.Sprintf("%d sub-resource(s) loaded over plain HTTP (mixed content)", n))
	}
	if n := len(page.InsecureForms); n > 0 {
		warnings = append(warnings, fmt.Sprintf("%d form(s) submit to a plain HTTP endpoint", n))
	}
	return warnings
}
