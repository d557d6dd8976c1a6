package utils

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrNotAbsoluteURL is returned when a base URL lacks a scheme or host.
var ErrNotAbsoluteURL = errors.New("url must be absolute (scheme and host)")

// HTTPHelper provides HTTP utility functions.
type HTTPHelper struct{}

// NewHTTPHelper creates a new HTTP helper.
func NewHTTPHelper() *HTTPHelper {
	return &HTTPHelper{}
}

// IsValidURL reports whether raw is an absolute http(s) URL.
func (h *HTTPHelper) IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ResolveURL resolves path against the origin of base, e.g. ("https://x.com/blog", "/sitemap.xml")
// gives "https://x.com/sitemap.xml".
func (h *HTTPHelper) ResolveURL(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrNotAbsoluteURL, base)
	}

	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}

	return u.ResolveReference(ref).String(), nil
}
