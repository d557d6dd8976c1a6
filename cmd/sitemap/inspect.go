package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sitemapcheck/internal/crawler"
	"sitemapcheck/internal/debugger"
	"sitemapcheck/internal/formatter"
	"sitemapcheck/internal/normalizer"
	"sitemapcheck/pkg/metadata"
)

func newDebugCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "debug [file|url|-]",
		Short: "Log and print the structure of a raw sitemap",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatter.ParseFormat(format)
			if err != nil {
				return err
			}

			name, raw, err := readSource(cmd.Context(), cmd, args)
			if err != nil {
				return err
			}

			debugger.DebugStructure(a.log.With("source", name), raw)

			return formatter.RenderStructure(cmd.OutOrStdout(), debugger.Inspect(raw), f)
		},
	}

	cmd.Flags().StringVar(&format, "format", string(formatter.FormatTable), "Output format: table, markdown, json")

	return cmd
}

func newNormalizeCmd(a *app) *cobra.Command {
	var (
		output string
		stamp  bool
	)

	cmd := &cobra.Command{
		Use:   "normalize [file|url|-]",
		Short: "Repair a sitemap into canonical form",
		Long: `normalize repairs common sitemap defects and prints the canonical document.

With --stamp a trailing metadata comment is appended carrying the SHA-256 of
the document, so "sitemap verify" can later detect hand edits.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, raw, err := readSource(cmd.Context(), cmd, args)
			if err != nil {
				return err
			}

			var prev *metadata.Metadata
			if stamp {
				prev, raw = metadata.Extract(raw)
			}

			out, result := normalizer.NewProcessor().Process(raw)

			if !result.IsValid {
				a.log.Warn("normalized sitemap is still invalid",
					"source", name,
					"errors", result.Strings(),
				)
			}

			if stamp {
				out = metadata.Sign(out, result.IsValid, prev)
			}

			if output == "" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), out)

				return err
			}

			if err := crawler.NewClient().SaveSitemap(out, output); err != nil {
				return err
			}

			a.log.Info("saved normalized sitemap", "source", name, "output", output, "valid", result.IsValid)

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().BoolVar(&stamp, "stamp", false, "Append a metadata block with the document hash")

	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	var (
		normalize bool
		format    string
	)

	cmd := &cobra.Command{
		Use:   "validate [file|url|-]",
		Short: "Validate a sitemap; exits non-zero when invalid",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatter.ParseFormat(format)
			if err != nil {
				return err
			}

			name, raw, err := readSource(cmd.Context(), cmd, args)
			if err != nil {
				return err
			}

			processor := normalizer.NewProcessor()

			result := processor.ValidateOnly(raw)
			if normalize {
				_, result = processor.Process(raw)
			}

			a.log.Debug("validated sitemap", "source", name, "valid", result.IsValid, "normalized", normalize)

			report := formatter.NewResultReport(name, result)
			if err := formatter.RenderReports(cmd.OutOrStdout(), []formatter.SiteReport{report}, f); err != nil {
				return err
			}

			if !result.IsValid {
				return fmt.Errorf("%w: %s", errInvalidSitemap, result.Message)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&normalize, "normalize", false, "Normalize before validating")
	cmd.Flags().StringVar(&format, "format", string(formatter.FormatTable), "Output format: table, markdown, json")

	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Check that a stamped sitemap has not been edited since it was stamped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, raw, err := readSource(cmd.Context(), cmd, args)
			if err != nil {
				return err
			}

			if _, err := metadata.Verify(raw); err != nil {
				return fmt.Errorf("verification failed for %s: %w", args[0], err)
			}

			meta, _ := metadata.Extract(raw)

			a.log.Debug("metadata verified", "source", args[0], "hash", meta.Hash)

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "✅ %s: hash matches (validated: %t, last modified: %s)\n",
				args[0], meta.Validation, meta.LastModify.Format(time.RFC3339))

			return err
		},
	}
}
