package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sitemapcheck/internal/config"
	"sitemapcheck/internal/models"
	"sitemapcheck/pkg/metadata"
)

const validSitemap = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url>
    <loc>https://example.com/</loc>
  </url>
</urlset>`

const brokenSitemap = `<urlset><url><loc>https://example.com/</loc></url></urlset>`

// run executes the CLI with args and stdin, returning stdout, stderr and the error.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	t.Setenv(config.EnvBaseURL, "")
	t.Setenv(config.EnvLogLevel, "")

	var stdout, stderr bytes.Buffer

	root := newRootCmd(strings.NewReader(stdin), &stdout, &stderr)
	root.SetArgs(args)

	err := root.Execute()

	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}

	return path
}

func TestDebug_Stdin(t *testing.T) {
	stdout, stderr, err := run(t, brokenSitemap, "debug", "--format", "json")
	if err != nil {
		t.Fatalf("debug failed: %v", err)
	}

	if !strings.Contains(stdout, `"hasDeclaration": false`) {
		t.Errorf("stdout missing structure JSON:\n%s", stdout)
	}

	if !strings.Contains(stderr, "sitemap structure") || !strings.Contains(stderr, "source=stdin") {
		t.Errorf("stderr missing structure log:\n%s", stderr)
	}
}

func TestNormalize_Stdout(t *testing.T) {
	stdout, _, err := run(t, brokenSitemap, "normalize")
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if stdout != validSitemap+"\n" {
		t.Errorf("stdout = %q, want %q", stdout, validSitemap+"\n")
	}
}

func TestNormalize_StampThenVerify(t *testing.T) {
	in := writeFile(t, "raw.xml", brokenSitemap)
	out := filepath.Join(t.TempDir(), "public", "sitemap.xml")

	if _, _, err := run(t, "", "normalize", in, "-o", out, "--stamp"); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}

	if !strings.HasPrefix(string(data), validSitemap+"\n"+metadata.TagStart) {
		t.Errorf("unexpected stamped output:\n%s", data)
	}

	stdout, _, err := run(t, "", "verify", out)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if !strings.Contains(stdout, "hash matches (validated: true") {
		t.Errorf("unexpected verify output: %s", stdout)
	}

	// A hand edit after stamping breaks verification.
	edited := strings.Replace(string(data), "https://example.com/", "https://example.com/edited", 1)
	if err := os.WriteFile(out, []byte(edited), 0644); err != nil {
		t.Fatalf("failed to edit output: %v", err)
	}

	if _, _, err := run(t, "", "verify", out); !errors.Is(err, metadata.ErrHashMismatch) {
		t.Errorf("verify err = %v, want ErrHashMismatch", err)
	}
}

func TestValidate_ExitsWithErrorWhenInvalid(t *testing.T) {
	stdout, _, err := run(t, brokenSitemap, "validate", "-")
	if !errors.Is(err, errInvalidSitemap) {
		t.Fatalf("err = %v, want errInvalidSitemap", err)
	}

	if !strings.Contains(stdout, "XML declaration is not at the start of the file") {
		t.Errorf("report missing hard gate error:\n%s", stdout)
	}
}

func TestValidate_WithNormalize(t *testing.T) {
	stdout, _, err := run(t, brokenSitemap, "validate", "--normalize", "--format", "markdown")
	if err != nil {
		t.Fatalf("validate --normalize failed: %v", err)
	}

	if !strings.Contains(stdout, "| stdin | VALID | 1 |") {
		t.Errorf("unexpected report:\n%s", stdout)
	}
}

func TestValidate_UnknownFormat(t *testing.T) {
	if _, _, err := run(t, validSitemap, "validate", "--format", "yaml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestCheck_URL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sitemap.xml" {
			http.NotFound(w, r)

			return
		}

		_, _ = w.Write([]byte(brokenSitemap))
	}))
	defer server.Close()

	stdout, stderr, err := run(t, "", "check", "--url", server.URL, "--strict", "--format", "json")
	if err != nil {
		t.Fatalf("check failed: %v\n%s", err, stderr)
	}

	if !strings.Contains(stdout, `"valid": true`) {
		t.Errorf("unexpected report:\n%s", stdout)
	}

	if !strings.Contains(stderr, "CRITICAL") {
		t.Errorf("missing critical warning for misplaced declaration:\n%s", stderr)
	}
}

func TestCheck_StrictFailsOnFetchError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, stderr, err := run(t, "", "check", "--url", server.URL, "--strict")
	if !errors.Is(err, errCheckFailed) {
		t.Fatalf("err = %v, want errCheckFailed", err)
	}

	if !strings.Contains(stderr, "failed to fetch sitemap") {
		t.Errorf("missing fetch failure log:\n%s", stderr)
	}
}

func TestCheck_NonStrictNeverFails(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	stdout, _, err := run(t, "", "check", "--url", server.URL)
	if err != nil {
		t.Fatalf("non-strict check returned %v", err)
	}

	if !strings.Contains(stdout, "FETCH FAILED") {
		t.Errorf("unexpected report:\n%s", stdout)
	}
}

func TestCheck_ConfigFileWithOutput(t *testing.T) {
	sitemapPath := writeFile(t, "sitemap.xml", brokenSitemap)
	outPath := filepath.Join(t.TempDir(), "fixed.xml")

	cfgPath := writeFile(t, "sitemap.yaml", `
checker:
  sites:
    - name: local
      file: "`+sitemapPath+`"
      enabled: true
  output:
    path: "`+outPath+`"
  logging:
    level: warn
`)

	if _, stderr, err := run(t, "", "--config", cfgPath, "check", "--strict"); err != nil {
		t.Fatalf("check failed: %v\n%s", err, stderr)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}

	if string(data) != validSitemap {
		t.Errorf("output = %q, want canonical sitemap", data)
	}
}

func TestCheck_NoSource(t *testing.T) {
	if _, _, err := run(t, "", "check"); !errors.Is(err, errNoSource) {
		t.Errorf("err = %v, want errNoSource", err)
	}
}

func TestCheck_EmptyLocalFileReportsNoEntries(t *testing.T) {
	path := writeFile(t, "sitemap.xml", "")

	stdout, _, err := run(t, "", "check", "--file", path, "--format", "json")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}

	if !strings.Contains(stdout, "no URL entries found") {
		t.Errorf("unexpected report:\n%s", stdout)
	}

	if strings.Contains(stdout, models.UrlsetOpen) {
		t.Error("report should not contain document text")
	}
}
