package checker

import "testing"

func TestOutdatedLibraryWarnings(t *testing.T) {
	body := []byte(`
<script src="https://code.jquery.com/jquery-3.4.1.min.js"></script>
<script src="https://code.jquery.com/jquery-3.4.1.min.js"></script>
<script src="https://cdn.example.test/lodash@4.17.21/lodash.min.js"></script>
<script src="https://cdn.example.test/bootstrap/3.3/js/bootstrap.min.js"></script>`)

	warnings := OutdatedLibraryWarnings(body)
	if len(warnings) != 2 {
		t.Fatalf("expected jQuery and Bootstrap warnings, got %v", warnings)
	}
	if !hasIssue(warnings, "jQuery 3.4.1") || !hasIssue(warnings, "Bootstrap 3.3") {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
}

func TestOutdatedLibraryWarnings_Clean(t *testing.T) {
	if warnings := OutdatedLibraryWarnings([]byte(`<script src="/jquery-3.7.1.min.js"></script>`)); len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
}
