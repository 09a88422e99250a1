package checker

import (
	"strings"
	"testing"
)

func TestAnalyzePageMixedContent(t *testing.T) {
	doc := `<!doctype html><html><head><title>Shop</title>
<script src="http://cdn.example.test/app.js"></script>
<link rel="stylesheet" href="https://cdn.example.test/app.css">
<img src="HTTP://img.example.test/logo.png">
</head><body>
<form action="http://example.test/login" method="post"></form>
<form action="/search"></form>
</body></html>`

	page := AnalyzePage(strings.NewReader(doc), true)
	if page.Title != "Shop" {
		t.Errorf("title = %q, want Shop", page.Title)
	}
	if len(page.InsecureResources) != 2 {
		t.Errorf("expected 2 insecure resources, got %v", page.InsecureResources)
	}
	if len(page.InsecureForms) != 1 {
		t.Errorf("expected 1 insecure form, got %v", page.InsecureForms)
	}
	if len(pageWarnings(page)) != 2 {
		t.Errorf("expected 2 warnings, got %v", pageWarnings(page))
	}
}

func TestAnalyzePagePlainHTTPSkipsMixedContent(t *testing.T) {
	page := AnalyzePage(strings.NewReader(`<script src="http://cdn.example.test/a.js"></script>`), false)
	if len(page.InsecureResources) != 0 {
		t.Fatalf("mixed content only applies to https pages, got %v", page.InsecureResources)
	}
}

func TestAnalyzePageCapsFindings(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString(`<img src="http://img.example.test/x.png">`)
	}
	page := AnalyzePage(strings.NewReader(b.String()), true)
	if len(page.InsecureResources) != maxPageFindings {
		t.Fatalf("expected %d findings, got %d", maxPageFindings, len(page.InsecureResources))
	}
}

func TestAnalyzePageMalformed(t *testing.T) {
	page := AnalyzePage(strings.NewReader(`<html><title>Broken<body><p>`), true)
	if page == nil {
		t.Fatal("expected a page result for malformed markup")
	}
}
