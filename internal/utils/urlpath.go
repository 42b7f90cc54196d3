package utils

import (
	"net/url"
	"strings"
)

// IsHTTPURL reports whether s parses as an absolute http(s) URL with a host.
func IsHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ExtractURLs returns every http(s) URL found in text, in order, without
// duplicates. Fields are split on whitespace; trailing punctuation that is
// commonly pasted along with a link is stripped.
func ExtractURLs(text string) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, field := range strings.Fields(text) {
		field = strings.TrimRight(field, ".,;)\"'>")
		field = strings.TrimLeft(field, "(\"'<")
		if !IsHTTPURL(field) || seen[field] {
			continue
		}
		seen[field] = true
		urls = append(urls, field)
	}
	return urls
}

// URLHost returns the host of rawURL without a leading "www.".
// Example: https://www.youtube.com/watch?v=x -> youtube.com
func URLHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}
