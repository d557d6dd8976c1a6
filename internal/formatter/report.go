// Package formatter renders check results as terminal tables, markdown or JSON.
package formatter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"sitemapcheck/internal/checker"
	"sitemapcheck/internal/debugger"
	"sitemapcheck/internal/models"
	"sitemapcheck/internal/validator"
	"sitemapcheck/pkg/utils"
)

// Format selects how a report is rendered.
type Format string

// Supported formats.
const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// MaxCellWidth bounds error and preview cells in table output.
const MaxCellWidth = 80

// ErrUnknownFormat is returned for a format outside table, markdown and json.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat validates a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatTable, FormatMarkdown, FormatJSON:
		return f, nil
	}

	return "", fmt.Errorf("%w: %q (want table, markdown or json)", ErrUnknownFormat, name)
}

// SiteReport is the serializable view of one site's check.
type SiteReport struct {
	Site       string            `json:"site"`
	Valid      bool              `json:"valid"`
	Message    string            `json:"message,omitempty"`
	Errors     []string          `json:"errors"`
	FetchError string            `json:"fetchError,omitempty"`
	Structure  *models.Structure `json:"structure,omitempty"`
	DurationMs int64             `json:"durationMs"`
}

// NewSiteReport converts a checker outcome.
func NewSiteReport(o *checker.Outcome) SiteReport {
	r := SiteReport{
		Site:       o.Site,
		Valid:      o.OK(),
		Errors:     []string{},
		DurationMs: o.Duration.Milliseconds(),
	}

	if o.Err != nil {
		r.FetchError = o.Err.Error()
	}

	if o.Result != nil {
		r.Message = o.Result.Message
		r.Errors = o.Result.Strings()
		r.Structure = &o.Result.Structure
	}

	return r
}

// NewResultReport wraps a bare validation result under name.
func NewResultReport(name string, result *validator.Result) SiteReport {
	return SiteReport{
		Site:      name,
		Valid:     result.IsValid,
		Message:   result.Message,
		Errors:    result.Strings(),
		Structure: &result.Structure,
	}
}

// RenderReports writes one row per site.
func RenderReports(w io.Writer, reports []SiteReport, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, reports)
	}

	strs := utils.NewStringHelper()

	t := newTable(w)
	t.AppendHeader(table.Row{"Site", "Status", "URLs", "Errors"})

	for _, r := range reports {
		urls := "-"
		if r.Structure != nil {
			urls = strconv.Itoa(r.Structure.URLOpenCount)
		}

		problems := r.Errors
		if r.FetchError != "" {
			problems = []string{r.FetchError}
		}

		cells := make([]string, 0, len(problems))
		for _, p := range problems {
			cells = append(cells, strs.TruncateWidth(p, MaxCellWidth))
		}

		t.AppendRow(table.Row{r.Site, status(r), urls, strings.Join(cells, "\n")})
	}

	return render(t, format)
}

// RenderOutcomes renders checker outcomes.
func RenderOutcomes(w io.Writer, outcomes []*checker.Outcome, format Format) error {
	reports := make([]SiteReport, 0, len(outcomes))
	for _, o := range outcomes {
		reports = append(reports, NewSiteReport(o))
	}

	return RenderReports(w, reports, format)
}

// RenderStructure renders a structure report as a two-column property table.
func RenderStructure(w io.Writer, r debugger.Report, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, r)
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Property", "Value"})
	t.AppendRows([]table.Row{
		{"Length", r.Length},
		{"Preview", utils.NewStringHelper().TruncateWidth(r.Preview, MaxCellWidth)},
		{"Has <?xml", r.HasDeclaration},
		{"Has <urlset", r.HasUrlsetOpen},
		{"Has </urlset>", r.HasUrlsetClose},
		{"<url> count", r.URLCount},
	})

	return render(t, format)
}

func status(r SiteReport) string {
	switch {
	case r.FetchError != "":
		return "FETCH FAILED"
	case r.Valid:
		return "VALID"
	default:
		return "INVALID"
	}
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)

	return t
}

func render(t table.Writer, format Format) error {
	switch format {
	case FormatTable:
		t.Render()
	case FormatMarkdown:
		t.RenderMarkdown()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	return nil
}
