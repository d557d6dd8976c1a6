// Package checker runs the fetch, repair and validation pipeline for a site's sitemap.
package checker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"sitemapcheck/internal/debugger"
	"sitemapcheck/internal/logger"
	"sitemapcheck/internal/models"
	"sitemapcheck/internal/normalizer"
	"sitemapcheck/internal/validator"
	"sitemapcheck/pkg/utils"
)

// DefaultPreviewChars is how much of a misplaced-declaration document is logged.
const DefaultPreviewChars = 100

var (
	// ErrFetchFailed wraps any error returned by a Fetcher.
	ErrFetchFailed = errors.New("failed to fetch sitemap")
	// ErrCheckPanicked marks an outcome whose check panicked.
	ErrCheckPanicked = errors.New("sitemap check panicked")
)

// Fetcher retrieves the raw text of one sitemap.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// Outcome is everything one check produced.
type Outcome struct {
	Site       string
	Raw        string
	Normalized string
	Result     *validator.Result
	Err        error
	Duration   time.Duration
}

// OK reports whether the sitemap was fetched and is valid after repair.
func (o *Outcome) OK() bool {
	return o.Err == nil && o.Result != nil && o.Result.IsValid
}

// Checker checks a single site's sitemap.
type Checker struct {
	name         string
	fetcher      Fetcher
	log          *logger.Logger
	processor    *normalizer.Processor
	previewChars int
}

// NewChecker creates a checker with default settings.
func NewChecker(name string, fetcher Fetcher, log *logger.Logger) *Checker {
	return NewCheckerWithConfig(name, fetcher, log, DefaultPreviewChars)
}

// NewCheckerWithConfig creates a checker that logs previewChars characters of a
// document whose declaration is not leading.
func NewCheckerWithConfig(name string, fetcher Fetcher, log *logger.Logger, previewChars int) *Checker {
	if log == nil {
		log = logger.Discard()
	}

	if previewChars < 1 {
		previewChars = DefaultPreviewChars
	}

	return &Checker{
		name:         name,
		fetcher:      fetcher,
		log:          log,
		processor:    normalizer.NewProcessor(),
		previewChars: previewChars,
	}
}

// Name returns the site name used in logs.
func (c *Checker) Name() string {
	return c.name
}

// Check fetches, inspects, normalizes and validates the sitemap once.
// A fetch failure is logged and returned; validation failures are reported
// through the outcome's Result.
func (c *Checker) Check(ctx context.Context) (*Outcome, error) {
	start := time.Now()
	log := c.log.With("site", c.name, "run_id", uuid.NewString())
	outcome := &Outcome{Site: c.name}

	raw, err := c.fetcher.Fetch(ctx)
	if err != nil {
		outcome.Err = fmt.Errorf("%w: %w", ErrFetchFailed, err)
		outcome.Duration = time.Since(start)
		log.Error("failed to fetch sitemap", "error", err)

		return outcome, outcome.Err
	}

	outcome.Raw = raw

	debugger.DebugStructure(log, raw)

	if !strings.HasPrefix(strings.TrimLeftFunc(raw, isLeadingSpace), models.DeclarationPrefix) {
		log.Warn("CRITICAL: XML declaration is not at the start of the sitemap",
			"preview", utils.NewStringHelper().Preview(raw, c.previewChars),
		)
	}

	outcome.Normalized, outcome.Result = c.processor.Process(raw)
	outcome.Duration = time.Since(start)

	c.logResult(log, outcome)

	return outcome, nil
}

// CheckOnStartup runs Check in the background. Nothing is reported back
// except completion: the returned channel is closed when the check is done,
// whether it passed, failed or panicked.
func (c *Checker) CheckOnStartup(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("sitemap check panicked", "site", c.name, "panic", r)
			}
		}()

		_, _ = c.Check(ctx)
	}()

	return done
}

func (c *Checker) logResult(log *logger.Logger, outcome *Outcome) {
	result := outcome.Result

	if result.IsValid {
		log.Info("sitemap is valid",
			"url_count", result.Structure.URLOpenCount,
			"duration", outcome.Duration,
		)

		return
	}

	log.Error("sitemap validation failed",
		"message", result.Message,
		"error_count", len(result.Errors),
	)

	for i, err := range result.Errors {
		log.Error("sitemap validation error", "index", i+1, "error", err)
	}
}

// isLeadingSpace matches whitespace and a byte order mark.
func isLeadingSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}
