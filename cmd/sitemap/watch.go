package main

import (
	"github.com/spf13/cobra"

	"sitemapcheck/internal/checker"
	"sitemapcheck/internal/config"
	"sitemapcheck/internal/crawler"
	"sitemapcheck/internal/formatter"
)

func newWatchCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-check a sitemap file every time it is saved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatter.ParseFormat(format)
			if err != nil {
				return err
			}

			path := args[0]
			site := config.SiteConfig{Name: path, File: path, Enabled: true}
			c := checker.NewChecker(site.DisplayName(), crawler.NewClient().NewSiteSource(site), a.log)

			ctx := cmd.Context()

			<-c.CheckOnStartup(ctx)

			w, err := checker.NewWatcher(path, c, a.log, func(o *checker.Outcome) {
				if err := formatter.RenderOutcomes(cmd.OutOrStdout(), []*checker.Outcome{o}, f); err != nil {
					a.log.Error("failed to render outcome", "error", err)
				}
			})
			if err != nil {
				return err
			}

			if err := w.Start(ctx); err != nil {
				return err
			}
			defer w.Stop()

			<-w.Done()

			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", string(formatter.FormatTable), "Output format: table, markdown, json")

	return cmd
}
