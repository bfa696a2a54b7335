package mqtest

import (
	"regexp"
	"strings"
	"testing"
)

// ExpectContains asserts that rendered output contains the expected
// substring.
func ExpectContains(t *testing.T, html, expected string) {
	t.Helper()
	if !strings.Contains(html, expected) {
		t.Errorf("expected rendered output to contain %q, got:\n%s", expected, truncate(html, 500))
	}
}

// ExpectNotContains asserts that rendered output does not contain the
// substring.
func ExpectNotContains(t *testing.T, html, unexpected string) {
	t.Helper()
	if strings.Contains(html, unexpected) {
		t.Errorf("expected rendered output to not contain %q, got:\n%s", unexpected, truncate(html, 500))
	}
}

// ExpectMatches asserts that rendered output matches the regular
// expression pattern.
func ExpectMatches(t *testing.T, html, pattern string) {
	t.Helper()
	re, err := regexp.Compile(pattern)
	if err != nil {
		t.Fatalf("invalid pattern %q: %v", pattern, err)
	}
	if !re.MatchString(html) {
		t.Errorf("expected rendered output to match %q, got:\n%s", pattern, truncate(html, 500))
	}
}

// truncate limits error output for large render trees.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "... (truncated)"
}
