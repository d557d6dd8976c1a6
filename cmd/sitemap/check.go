package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sitemapcheck/internal/checker"
	"sitemapcheck/internal/config"
	"sitemapcheck/internal/crawler"
	"sitemapcheck/internal/formatter"
	"sitemapcheck/pkg/metadata"
)

type checkFlagValues struct {
	url, file, format string
	strict            bool
}

func newCheckCmd(a *app) *cobra.Command {
	var flags checkFlagValues

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Fetch, repair and validate the sitemap of one or more sites",
		Long: `check runs the startup sitemap check: GET <origin>/sitemap.xml (or read a
local file), log its structure, normalize it and validate the result.

Sites come from --url or --file, otherwise from --config, otherwise from
$` + config.EnvBaseURL + `. Failures are logged; with --strict they also make
the command exit non-zero.

Examples:
  sitemap check --url https://example.com
  sitemap check --config sitemap.yaml --strict --format markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := formatter.ParseFormat(flags.format)
			if err != nil {
				return err
			}

			cfg, err := a.resolveConfig(flags)
			if err != nil {
				return err
			}

			if a.logLevel == "" {
				a.log.SetLevel(cfg.Checker.Logging.Level)
			}

			a.log.Debug("loaded configuration", "config", cfg.String())

			client := crawler.NewClientWithDeps(
				crawler.NewScraperWithConfig(&cfg.Checker.Retry, crawler.DefaultBufferSizeKb),
			)

			var checkers []*checker.Checker

			for _, site := range cfg.GetEnabledSites() {
				checkers = append(checkers, checker.NewCheckerWithConfig(
					site.DisplayName(),
					client.NewSiteSource(site),
					a.log,
					cfg.Checker.Logging.PreviewChars,
				))
			}

			outcomes := checker.CheckAll(cmd.Context(), checkers, cfg.Checker.Concurrency)

			if err := a.saveOutput(client, cfg.Checker.Output, outcomes); err != nil {
				return err
			}

			if err := formatter.RenderOutcomes(cmd.OutOrStdout(), outcomes, f); err != nil {
				return err
			}

			if failed := checker.Failed(outcomes); flags.strict && failed > 0 {
				return fmt.Errorf("%w: %d of %d site(s)", errCheckFailed, failed, len(outcomes))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&flags.url, "url", "", "Site base URL; the sitemap is fetched from <origin>/sitemap.xml")
	cmd.Flags().StringVar(&flags.file, "file", "", "Read the sitemap from a local file")
	cmd.Flags().StringVar(&flags.format, "format", string(formatter.FormatTable), "Output format: table, markdown, json")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "Exit non-zero when any site fails")

	return cmd
}

// resolveConfig picks the site list: explicit flags, then the config file,
// then the environment.
func (a *app) resolveConfig(flags checkFlagValues) (*config.Config, error) {
	var cfg *config.Config

	switch {
	case flags.url != "" || flags.file != "":
		cfg = config.ForSource(flags.url, flags.file)
	case a.configPath != "":
		return config.LoadConfig(a.configPath)
	case os.Getenv(config.EnvBaseURL) != "":
		cfg = config.ForSource(os.Getenv(config.EnvBaseURL), "")
	default:
		return nil, errNoSource
	}

	cfg.Checker.Logging.Level = a.level()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// saveOutput writes the normalized document when output.path is configured.
// It only applies to single-site runs.
func (a *app) saveOutput(client *crawler.Client, out config.OutputConfig, outcomes []*checker.Outcome) error {
	if out.Path == "" {
		return nil
	}

	if len(outcomes) != 1 {
		a.log.Warn("output.path ignored for multi-site checks", "sites", len(outcomes))

		return nil
	}

	o := outcomes[0]
	if o.Err != nil {
		return nil
	}

	content := o.Normalized
	if out.Stamp {
		content = metadata.Sign(content, o.Result.IsValid, nil)
	}

	if err := client.SaveSitemap(content, out.Path); err != nil {
		return err
	}

	a.log.Info("saved normalized sitemap", "site", o.Site, "output", out.Path)

	return nil
}
