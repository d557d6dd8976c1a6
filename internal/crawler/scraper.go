package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"sitemapcheck/internal/config"
)

// DefaultBufferSizeKb is the sitemaps.org limit for an uncompressed sitemap (50 MiB).
const DefaultBufferSizeKb = 50 * 1024

var (
	// ErrUnexpectedStatusCode indicates an HTTP response with a non-2xx status.
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrResponseTooLarge indicates a body larger than the scraper's buffer.
	ErrResponseTooLarge = errors.New("response body exceeds buffer limit")
)

// Scraper fetches sitemap bodies over HTTP with config-driven retry logic.
type Scraper struct {
	client       *resty.Client
	retryPolicy  *config.RetryPolicy
	bufferSizeKb int
}

// NewScraper creates a new scraper with the default retry policy (a single attempt).
func NewScraper() *Scraper {
	rp := config.Defaults().Checker.Retry

	return NewScraperWithConfig(&rp, DefaultBufferSizeKb)
}

// NewScraperWithConfig creates a new scraper with custom retry policy.
func NewScraperWithConfig(retryPolicy *config.RetryPolicy, bufferSizeKb int) *Scraper {
	client := resty.New().
		SetTimeout(retryPolicy.GetTimeout()).
		SetRetryCount(max(retryPolicy.MaxAttempts-1, 0)).
		SetRetryWaitTime(time.Duration(retryPolicy.InitialDelayMs) * time.Millisecond).
		SetRetryMaxWaitTime(time.Duration(retryPolicy.MaxDelayMs) * time.Millisecond).
		AddRetryCondition(func(res *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled)
			}

			return isRetryableStatus(res.StatusCode())
		}).
		SetRetryAfter(func(_ *resty.Client, res *resty.Response) (time.Duration, error) {
			return retryPolicy.GetRetryDelay(res.Request.Attempt + 1), nil
		})

	return &Scraper{
		client:       client,
		retryPolicy:  retryPolicy,
		bufferSizeKb: bufferSizeKb,
	}
}

// ScrapeWithMetrics returns (content, statusCode, duration, error).
func (s *Scraper) ScrapeWithMetrics(ctx context.Context, url string) (string, int, time.Duration, error) {
	startTime := time.Now()

	res, err := s.client.R().SetContext(ctx).Get(url)
	duration := time.Since(startTime)

	if err != nil {
		return "", 0, duration, fmt.Errorf("request failed after %d attempt(s): %w", s.retryPolicy.MaxAttempts, err)
	}

	if !res.IsSuccess() {
		return "", res.StatusCode(), duration, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, res.StatusCode())
	}

	// bufferSizeKb is in KB, convert to bytes
	limit := s.bufferSizeKb * 1024
	if len(res.Body()) > limit {
		return "", res.StatusCode(), duration, fmt.Errorf("%w: %d bytes > %d", ErrResponseTooLarge, len(res.Body()), limit)
	}

	return res.String(), res.StatusCode(), duration, nil
}

// Scrape fetches and returns content from the given URL.
func (s *Scraper) Scrape(ctx context.Context, url string) (string, error) {
	content, _, _, err := s.ScrapeWithMetrics(ctx, url)

	return content, err
}

// ReadLocalFile reads content from a local file path.
func (s *Scraper) ReadLocalFile(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read local file %s: %w", filePath, err)
	}

	return string(content), nil
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	// Retry on temporary failures
	switch statusCode {
	case http.StatusServiceUnavailable: // 503
		return true
	case http.StatusGatewayTimeout: // 504
		return true
	case http.StatusTooManyRequests: // 429
		return true
	case http.StatusRequestTimeout: // 408
		return true
	}

	return false
}
