package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sitemapcheck/internal/config"
	"sitemapcheck/internal/crawler"
	"sitemapcheck/internal/logger"
	"sitemapcheck/pkg/utils"
)

var (
	errInvalidSitemap = errors.New("sitemap is invalid")
	errCheckFailed    = errors.New("sitemap check failed")
	errNoSource       = errors.New("no site given: use --url, --file, --config or $" + config.EnvBaseURL)
)

// app holds state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	log        *logger.Logger
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "sitemap",
		Short: "Debug, repair and validate sitemaps.org XML sitemaps",
		Long: `sitemap inspects, normalizes and validates sitemaps.org 0.9 sitemaps.

Sources may be a file path, an http(s) URL, or "-" for stdin.

Exit Codes:
  0  - Success
  1  - Invalid sitemap, failed check, or usage error`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.log = logger.NewLoggerWithWriter(a.level(), cmd.ErrOrStderr())
		},
	}

	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (default $"+config.EnvLogLevel+" or info)")

	root.AddCommand(
		newDebugCmd(a),
		newNormalizeCmd(a),
		newValidateCmd(a),
		newCheckCmd(a),
		newWatchCmd(a),
		newVerifyCmd(a),
	)

	return root
}

func (a *app) level() string {
	if a.logLevel != "" {
		return strings.ToLower(a.logLevel)
	}

	if env := os.Getenv(config.EnvLogLevel); env != "" {
		return strings.ToLower(env)
	}

	return "info"
}

// readSource reads a sitemap from stdin ("-" or no argument), an http(s) URL,
// or a local file. It returns a display name and the raw text.
func readSource(ctx context.Context, cmd *cobra.Command, args []string) (string, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}

		return "stdin", string(data), nil
	}

	src := args[0]
	scraper := crawler.NewScraper()

	if utils.NewHTTPHelper().IsValidURL(src) {
		content, err := scraper.Scrape(ctx, src)

		return src, content, err
	}

	content, err := scraper.ReadLocalFile(src)

	return src, content, err
}
