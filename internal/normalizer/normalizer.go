// Package normalizer repairs sitemap text into the canonical sitemaps.org 0.9 layout.
package normalizer

import (
	"regexp"
	"strings"

	"sitemapcheck/internal/models"
)

var (
	leadingCommentPattern = regexp.MustCompile(`^<!--[\s\S]*?-->`)
	declarationPattern    = regexp.MustCompile(`(?i)<\?xml[\s\S]*?\?>`)
	urlsetOpenPattern     = regexp.MustCompile(`<urlset[^<>]*>`)

	declarationBreak = regexp.MustCompile(`\?>\s*<urlset`)
	urlBreak         = regexp.MustCompile(`\s*<url>`)
	locBreak         = regexp.MustCompile(`\s*<loc>`)
	urlCloseBreak    = regexp.MustCompile(`\s*</url>`)
)

// Normalize returns a canonical rendition of text. It never fails: empty or
// garbage input yields at least a declaration and an empty urlset element.
// Normalize is idempotent.
func Normalize(text string) string {
	if text == "" {
		return models.EmptySitemap
	}

	text = stripPreamble(text)
	text = placeDeclaration(text)
	text = fixUrlset(text)

	return layout(text)
}

// stripPreamble removes a BOM, surrounding whitespace and any comments in front of the content.
func stripPreamble(text string) string {
	text = strings.TrimSpace(strings.TrimPrefix(text, models.BOM))

	for {
		loc := leadingCommentPattern.FindStringIndex(text)
		if loc == nil {
			return text
		}

		text = strings.TrimSpace(text[loc[1]:])
	}
}

// placeDeclaration makes the canonical declaration the first token, dropping any
// other declaration wherever it sits.
func placeDeclaration(text string) string {
	if strings.HasPrefix(text, models.Declaration) {
		return text
	}

	text = strings.TrimSpace(declarationPattern.ReplaceAllString(text, ""))
	if text == "" {
		return models.Declaration
	}

	return models.Declaration + "\n" + text
}

// fixUrlset rewrites the first urlset open tag to the canonical one, or adds one.
func fixUrlset(text string) string {
	loc := urlsetOpenPattern.FindStringIndex(text)
	if loc != nil {
		tag := text[loc[0]:loc[1]]
		if tag == models.UrlsetOpen {
			return text
		}

		replacement := models.UrlsetOpen
		if strings.HasSuffix(tag, "/>") {
			replacement += models.UrlsetClose
		}

		return text[:loc[0]] + replacement + text[loc[1]:]
	}

	if idx := strings.Index(text, models.UrlsetClose); idx >= 0 {
		return text[:idx] + models.UrlsetOpen + text[idx:]
	}

	return text + "\n" + models.UrlsetOpen + models.UrlsetClose
}

// layout inserts line breaks and two-space indentation between tags. Only
// whitespace in front of the handled tags changes.
func layout(text string) string {
	text = declarationBreak.ReplaceAllString(text, "?>\n<urlset")
	text = urlBreak.ReplaceAllString(text, "\n  <url>")
	text = locBreak.ReplaceAllString(text, "\n    <loc>")
	text = urlCloseBreak.ReplaceAllString(text, "\n  </url>")

	idx := strings.LastIndex(text, models.UrlsetClose)
	if idx < 0 {
		return text
	}

	head := strings.TrimRightFunc(text[:idx], isXMLSpace)
	tail := text[idx:]

	if strings.HasSuffix(head, models.UrlsetOpen) {
		return head + tail
	}

	return head + "\n" + tail
}

// isXMLSpace matches exactly what \s matches in the patterns above.
func isXMLSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}

	return false
}
