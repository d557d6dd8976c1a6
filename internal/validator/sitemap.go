// Package validator checks sitemap documents against the sitemaps.org 0.9 structural rules.
package validator

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"sitemapcheck/internal/models"
)

// Validation errors.
var (
	ErrDeclarationNotLeading = errors.New("XML declaration is not at the start of the file")
	ErrInvalidDeclaration    = errors.New("missing or incorrect XML declaration")
	ErrInvalidUrlsetTag      = errors.New("missing or incorrect urlset tag")
	ErrMissingUrlsetClose    = errors.New("missing closing urlset tag")
	ErrNoURLEntries          = errors.New("no URL entries found")
	ErrUnbalancedURLTags     = errors.New("mismatched url tags")
	ErrUnbalancedLocTags     = errors.New("mismatched loc tags")
	ErrLocCountMismatch      = errors.New("loc tag count does not match url tag count")
	ErrXMLParse              = errors.New("XML parse error")
)

var urlEntryPattern = regexp.MustCompile(`(?s)<url>.*?</url>`)

// Result is the outcome of validating one document.
type Result struct {
	Errors    []error          `json:"-"`
	Message   string           `json:"message"`
	Structure models.Structure `json:"structure"`
	IsValid   bool             `json:"isValid"`
}

// Strings returns the error messages in order.
func (r *Result) Strings() []string {
	out := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		out = append(out, err.Error())
	}

	return out
}

// Has reports whether any recorded error wraps target.
func (r *Result) Has(target error) bool {
	for _, err := range r.Errors {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

// Validate checks text and never panics. A text whose first content is not an XML
// declaration fails immediately with a single ErrDeclarationNotLeading; otherwise
// every rule runs and all violations are reported.
func Validate(text string) *Result {
	cleaned := models.StripBOM(text)
	structure := models.Inspect(cleaned)

	if !strings.HasPrefix(cleaned, models.DeclarationPrefix) {
		return finish(&Result{
			Errors:    []error{ErrDeclarationNotLeading},
			Structure: structure,
		})
	}

	result := &Result{Structure: structure}

	if !strings.Contains(cleaned, models.Declaration) {
		result.add(fmt.Errorf("%w: expected %s", ErrInvalidDeclaration, models.Declaration))
	}

	if !strings.Contains(cleaned, models.UrlsetOpen) {
		result.add(fmt.Errorf("%w: expected %s", ErrInvalidUrlsetTag, models.UrlsetOpen))
	}

	if !structure.HasUrlsetClose {
		result.add(ErrMissingUrlsetClose)
	}

	if !urlEntryPattern.MatchString(cleaned) {
		result.add(ErrNoURLEntries)
	}

	if structure.URLOpenCount != structure.URLCloseCount {
		result.add(fmt.Errorf("%w: %d opening <url> vs %d closing </url>",
			ErrUnbalancedURLTags, structure.URLOpenCount, structure.URLCloseCount))
	}

	if structure.LocOpenCount != structure.LocCloseCount {
		result.add(fmt.Errorf("%w: %d opening <loc> vs %d closing </loc>",
			ErrUnbalancedLocTags, structure.LocOpenCount, structure.LocCloseCount))
	}

	if structure.LocOpenCount != structure.URLOpenCount {
		result.add(fmt.Errorf("%w: %d <loc> for %d <url>",
			ErrLocCountMismatch, structure.LocOpenCount, structure.URLOpenCount))
	}

	if err := checkWellFormed(cleaned); err != nil {
		result.add(fmt.Errorf("%w: %v", ErrXMLParse, err))
	}

	return finish(result)
}

func (r *Result) add(err error) {
	r.Errors = append(r.Errors, err)
}

func finish(r *Result) *Result {
	r.IsValid = len(r.Errors) == 0
	if r.IsValid {
		r.Message = "Sitemap is valid"
	} else {
		r.Message = fmt.Sprintf("Sitemap is invalid: %d error(s)", len(r.Errors))
	}

	return r
}

// checkWellFormed walks the whole token stream; encoding/xml verifies nesting and
// reports the first syntax error. The decoder accepts fragments, so a single
// leading declaration and a single root element are enforced here.
func checkWellFormed(text string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("parser panic: %v", rec)
		}
	}()

	dec := xml.NewDecoder(strings.NewReader(text))
	dec.Strict = true

	var (
		depth      int
		sawRoot    bool
		rootClosed bool
	)

	for first := true; ; first = false {
		tok, tokErr := dec.Token()
		if errors.Is(tokErr, io.EOF) {
			break
		}

		if tokErr != nil {
			return tokErr
		}

		switch t := tok.(type) {
		case xml.ProcInst:
			if strings.EqualFold(t.Target, "xml") && !first {
				return fmt.Errorf("line %d: XML declaration after the first token", inputLine(dec))
			}
		case xml.StartElement:
			if rootClosed {
				return fmt.Errorf("line %d: second root element <%s>", inputLine(dec), t.Name.Local)
			}

			sawRoot = true
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 {
				rootClosed = true
			}
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("line %d: character data outside the root element", inputLine(dec))
			}
		}
	}

	if !sawRoot {
		return errors.New("no root element")
	}

	return nil
}

func inputLine(dec *xml.Decoder) int {
	line, _ := dec.InputPos()

	return line
}
