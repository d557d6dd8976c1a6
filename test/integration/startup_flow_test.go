package integration

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sitemapcheck/internal/checker"
	"sitemapcheck/internal/config"
	"sitemapcheck/internal/crawler"
	"sitemapcheck/internal/logger"
	"sitemapcheck/internal/models"
	"sitemapcheck/internal/validator"
)

// Served by the fake site: a BOM, a generator comment, a trailing declaration,
// a legacy namespace and no indentation.
const handEditedSitemap = "\uFEFF<!-- generated by hand -->\n" +
	`<urlset xmlns="http://www.google.com/schemas/sitemap/0.84">` +
	`<url><loc>https://example.com/</loc></url>` +
	`<url><loc>https://example.com/about</loc></url>` +
	`</urlset>` + "\n" + `<?xml version="1.0"?>`

const wantSitemap = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url>
    <loc>https://example.com/</loc>
  </url>
  <url>
    <loc>https://example.com/about</loc>
  </url>
</urlset>`

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func newSite(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sitemap.xml" {
			http.NotFound(w, r)

			return
		}

		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server
}

func TestStartupFlow_RepairsHandEditedSitemap(t *testing.T) {
	server := newSite(t, handEditedSitemap, http.StatusOK)

	site := config.SiteConfig{Name: "example", BaseURL: server.URL, Enabled: true}
	c := checker.NewChecker(site.DisplayName(), crawler.NewClient().NewSiteSource(site), nil)

	outcome, err := c.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if outcome.Normalized != wantSitemap {
		t.Errorf("Normalized =\n%s\nwant\n%s", outcome.Normalized, wantSitemap)
	}

	if !outcome.Result.IsValid {
		t.Errorf("expected valid result, got %v", outcome.Result.Strings())
	}

	// The raw document fails the hard gate before repair.
	raw := validator.Validate(outcome.Raw)
	if raw.IsValid || !raw.Has(validator.ErrDeclarationNotLeading) {
		t.Errorf("raw document unexpectedly passed: %+v", raw.Strings())
	}
}

func TestStartupFlow_BackgroundCheckLogsOutcome(t *testing.T) {
	server := newSite(t, handEditedSitemap, http.StatusOK)

	logs := &lockedBuffer{}
	log := logger.NewLoggerWithWriter("info", logs)

	site := config.SiteConfig{BaseURL: server.URL + "/some/page", Enabled: true}
	c := checker.NewChecker("example", crawler.NewClient().NewSiteSource(site), log)

	select {
	case <-c.CheckOnStartup(context.Background()):
	case <-time.After(10 * time.Second):
		t.Fatal("startup check did not complete")
	}

	out := logs.String()
	for _, want := range []string{"sitemap structure", "CRITICAL", "sitemap is valid", "url_count=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("logs missing %q:\n%s", want, out)
		}
	}
}

func TestStartupFlow_MissingSitemapIsLoggedNotRaised(t *testing.T) {
	server := newSite(t, "not found", http.StatusNotFound)

	logs := &lockedBuffer{}
	log := logger.NewLoggerWithWriter("info", logs)

	site := config.SiteConfig{BaseURL: server.URL, Enabled: true}
	c := checker.NewChecker("example", crawler.NewClient().NewSiteSource(site), log)

	<-c.CheckOnStartup(context.Background())

	out := logs.String()
	if !strings.Contains(out, "failed to fetch sitemap") || !strings.Contains(out, "404") {
		t.Errorf("expected fetch failure log:\n%s", out)
	}

	if strings.Contains(out, "sitemap structure") {
		t.Error("structure should not be inspected after a failed fetch")
	}
}

func TestStartupFlow_MultipleSites(t *testing.T) {
	good := newSite(t, wantSitemap, http.StatusOK)
	empty := newSite(t, models.EmptySitemap, http.StatusOK)
	down := newSite(t, "", http.StatusServiceUnavailable)

	cfg := &config.Config{
		Checker: config.CheckerConfig{
			Sites: []config.SiteConfig{
				{Name: "good", BaseURL: good.URL, Enabled: true},
				{Name: "empty", BaseURL: empty.URL, Enabled: true},
				{Name: "down", BaseURL: down.URL, Enabled: true},
				{Name: "skipped", BaseURL: down.URL, Enabled: false},
			},
		},
	}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults failed: %v", err)
	}

	client := crawler.NewClientWithDeps(crawler.NewScraperWithConfig(&cfg.Checker.Retry, crawler.DefaultBufferSizeKb))

	var checkers []*checker.Checker
	for _, site := range cfg.GetEnabledSites() {
		checkers = append(checkers, checker.NewChecker(site.Name, client.NewSiteSource(site), nil))
	}

	outcomes := checker.CheckAll(context.Background(), checkers, cfg.Checker.Concurrency)

	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}

	if !outcomes[0].OK() {
		t.Errorf("good site failed: %+v", outcomes[0])
	}

	if outcomes[1].OK() || !outcomes[1].Result.Has(validator.ErrNoURLEntries) {
		t.Errorf("empty site should fail with no URL entries: %+v", outcomes[1])
	}

	if outcomes[2].Err == nil {
		t.Error("down site should report a fetch error")
	}

	if failed := checker.Failed(outcomes); failed != 2 {
		t.Errorf("Failed() = %d, want 2", failed)
	}
}
