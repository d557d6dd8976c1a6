// Package models defines the sitemap document model shared by the debugger, normalizer and validator.
package models

import (
	"strings"
)

// Canonical sitemap tokens. The validator compares against these byte for byte.
const (
	Declaration = `<?xml version="1.0" encoding="UTF-8"?>`
	Namespace   = "http://www.sitemaps.org/schemas/sitemap/0.9"
	UrlsetOpen  = `<urlset xmlns="` + Namespace + `">`
	UrlsetClose = "</urlset>"

	// EmptySitemap is the minimal well-formed document with no entries.
	EmptySitemap = Declaration + "\n" + UrlsetOpen + UrlsetClose

	// DeclarationPrefix is what a declaration-like token starts with.
	DeclarationPrefix = "<?xml"

	URLOpen  = "<url>"
	URLClose = "</url>"
	LocOpen  = "<loc>"
	LocClose = "</loc>"

	// BOM is the UTF-8 byte order mark as a string.
	BOM = "\uFEFF"
)

// Structure holds the attributes of a sitemap derived by inspecting its text.
type Structure struct {
	Length               int  `json:"length"`
	HasDeclaration       bool `json:"hasDeclaration"`
	DeclarationIsLeading bool `json:"declarationIsLeading"`
	HasUrlsetOpen        bool `json:"hasUrlsetOpen"`
	HasUrlsetClose       bool `json:"hasUrlsetClose"`
	URLOpenCount         int  `json:"urlOpenCount"`
	URLCloseCount        int  `json:"urlCloseCount"`
	LocOpenCount         int  `json:"locOpenCount"`
	LocCloseCount        int  `json:"locCloseCount"`
}

// Inspect derives the structure of text without modifying it.
func Inspect(text string) Structure {
	return Structure{
		Length:               len(text),
		HasDeclaration:       strings.Contains(text, DeclarationPrefix),
		DeclarationIsLeading: strings.HasPrefix(StripBOM(text), DeclarationPrefix),
		HasUrlsetOpen:        strings.Contains(text, "<urlset"),
		HasUrlsetClose:       strings.Contains(text, UrlsetClose),
		URLOpenCount:         strings.Count(text, URLOpen),
		URLCloseCount:        strings.Count(text, URLClose),
		LocOpenCount:         strings.Count(text, LocOpen),
		LocCloseCount:        strings.Count(text, LocClose),
	}
}

// Balanced reports whether url and loc tags pair up and every url has one loc.
func (s Structure) Balanced() bool {
	return s.URLOpenCount == s.URLCloseCount &&
		s.LocOpenCount == s.LocCloseCount &&
		s.LocOpenCount == s.URLOpenCount
}

// StripBOM removes a leading byte order mark and trims surrounding whitespace.
func StripBOM(text string) string {
	return strings.TrimSpace(strings.TrimPrefix(text, BOM))
}
