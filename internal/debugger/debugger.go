// Package debugger logs structural facts about raw sitemap text for human triage.
package debugger

import (
	"regexp"
	"strings"

	"sitemapcheck/internal/logger"
	"sitemapcheck/internal/models"
	"sitemapcheck/pkg/utils"
)

// PreviewChars is how many leading characters are included in the report.
const PreviewChars = 50

var urlTagPattern = regexp.MustCompile(`<url>`)

// Report is what DebugStructure logs.
type Report struct {
	Preview        string `json:"preview"`
	Length         int    `json:"length"`
	URLCount       int    `json:"urlCount"`
	HasDeclaration bool   `json:"hasDeclaration"`
	HasUrlsetOpen  bool   `json:"hasUrlsetOpen"`
	HasUrlsetClose bool   `json:"hasUrlsetClose"`
}

// Inspect builds the report for text. It accepts anything, including "".
func Inspect(text string) Report {
	return Report{
		Preview:        utils.NewStringHelper().Preview(text, PreviewChars),
		Length:         len(text),
		URLCount:       len(urlTagPattern.FindAllStringIndex(text, -1)),
		HasDeclaration: strings.Contains(text, models.DeclarationPrefix),
		HasUrlsetOpen:  strings.Contains(text, "<urlset"),
		HasUrlsetClose: strings.Contains(text, models.UrlsetClose),
	}
}

// DebugStructure logs the structure report for text. It is purely observational.
func DebugStructure(log *logger.Logger, text string) {
	if log == nil {
		return
	}

	r := Inspect(text)

	log.Info("sitemap structure",
		"length", r.Length,
		"preview", r.Preview,
		"has_declaration", r.HasDeclaration,
		"has_urlset_open", r.HasUrlsetOpen,
		"has_urlset_close", r.HasUrlsetClose,
		"url_count", r.URLCount,
	)
}
