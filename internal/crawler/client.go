// Package crawler fetches raw sitemap text from a site origin or a local file.
package crawler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"sitemapcheck/internal/config"
)

// Client resolves a site configuration to raw sitemap text.
type Client struct {
	scraper *Scraper
}

// NewClient creates a new crawler client with default dependencies.
func NewClient() *Client {
	return &Client{
		scraper: NewScraper(),
	}
}

// NewClientWithDeps creates a new crawler client with an injected scraper.
func NewClientWithDeps(scraper *Scraper) *Client {
	return &Client{
		scraper: scraper,
	}
}

// FetchSitemap returns the raw sitemap text for site. Local files are read
// from disk; otherwise <origin><path> is fetched over HTTP.
func (c *Client) FetchSitemap(ctx context.Context, site config.SiteConfig) (string, error) {
	if site.IsLocalFile() {
		return c.scraper.ReadLocalFile(site.File)
	}

	url, err := site.SitemapURL()
	if err != nil {
		return "", fmt.Errorf("failed to resolve sitemap url: %w", err)
	}

	content, err := c.scraper.Scrape(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	return content, nil
}

// SaveSitemap writes sitemap text to outputPath, creating parent directories.
func (c *Client) SaveSitemap(content, outputPath string) error {
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// SiteSource binds a client to one site so it can be fetched without arguments.
type SiteSource struct {
	client *Client
	site   config.SiteConfig
}

// NewSiteSource creates a source for site.
func (c *Client) NewSiteSource(site config.SiteConfig) *SiteSource {
	return &SiteSource{client: c, site: site}
}

// Fetch returns the raw sitemap text for the bound site.
func (s *SiteSource) Fetch(ctx context.Context) (string, error) {
	return s.client.FetchSitemap(ctx, s.site)
}

// Name identifies the bound site in logs and reports.
func (s *SiteSource) Name() string {
	return s.site.DisplayName()
}
