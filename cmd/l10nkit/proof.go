package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/c360studio/l10nkit/policy"
	"github.com/c360studio/l10nkit/proofreader"
	"github.com/c360studio/l10nkit/rules"
)

func proofCmd(a *app) *cobra.Command {
	var (
		l10nDir        string
		locale         string
		errorcheck     string
		file           string
		format         string
		watch          bool
		failOnFindings bool
	)

	cmd := &cobra.Command{
		Use:   "proof",
		Short: "Proofread a localized tree or file",
		Long: `Proof audits every .ftl, .properties, .ini and .dtd file under
<l10n>/<locale>/ (or the single --file) against the errorcheck policy and
reports denied words (W!), suspected words (W?) and disallowed characters (C!).

With --watch the tree is audited once and then re-audited file by file as it
changes, until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			l10nDir = firstNonEmpty(l10nDir, cfg.Paths.L10n)
			errorcheck = firstNonEmpty(errorcheck, cfg.Paths.Errorcheck)
			locale = firstNonEmpty(locale, cfg.DefaultLocale())

			if !cfg.HasLocale(locale) {
				return fmt.Errorf("%w: %q is not configured (configured: %v)", policy.ErrUnknownLocale, locale, cfg.Locales)
			}
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (text, json)", format)
			}
			if watch && file != "" {
				return fmt.Errorf("--watch and --file cannot be combined")
			}

			store, err := rules.LoadStore(errorcheck, a.logger)
			if err != nil {
				return err
			}
			p, err := proofreader.New(proofreader.Options{
				Rules:   store,
				Exclude: cfg.Exclude,
				Metrics: a.metrics,
				Logger:  a.logger,
			})
			if err != nil {
				return err
			}
			defer a.flushMetrics()

			out := cmd.OutOrStdout()
			var totals proofreader.Totals
			if file != "" {
				report, err := p.AuditFile(file, locale)
				if err != nil {
					return err
				}
				totals = report.Totals
				if err := writeFileReport(out, format, report); err != nil {
					return err
				}
			} else {
				report, err := p.AuditTree(cmd.Context(), l10nDir, locale)
				if err != nil {
					return err
				}
				totals = report.Totals
				if err := writeTreeReport(out, format, report); err != nil {
					return err
				}
			}

			if watch {
				return watchTree(cmd.Context(), a, p, out, format, l10nDir, locale)
			}
			if failOnFindings && totals.Sum() > 0 {
				return &exitError{code: 1, err: fmt.Errorf("%d finding(s) for locale %s", totals.Sum(), locale)}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&l10nDir, "l10n-dir", "t", "", "Target directory; followed by the locale subdirectory (default from config: l10n)")
	cmd.Flags().StringVarP(&locale, "locale", "l", "", "Locale to proofread (default: first configured locale)")
	cmd.Flags().StringVarP(&errorcheck, "errorcheck", "e", "", "Errorcheck policy file (default from config: errorcheck.json)")
	cmd.Flags().StringVar(&file, "file", "", "Proofread a single file instead of the tree")
	cmd.Flags().StringVar(&format, "format", "text", "Report format (text, json)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and re-audit files as they change")
	cmd.Flags().BoolVar(&failOnFindings, "fail-on-findings", false, "Exit with status 1 when anything is reported")

	return cmd
}

func writeFileReport(w io.Writer, format string, r *proofreader.FileReport) error {
	if format == "json" {
		return proofreader.WriteJSON(w, r)
	}
	if err := r.WriteText(w); err != nil {
		return err
	}
	return proofreader.WriteSummary(w, r.Locale, r.Totals)
}

func writeTreeReport(w io.Writer, format string, r *proofreader.TreeReport) error {
	if format == "json" {
		return proofreader.WriteJSON(w, r)
	}
	return r.WriteText(w)
}

func watchTree(ctx context.Context, a *app, p *proofreader.Proofreader, out io.Writer, format, root, locale string) error {
	w, err := proofreader.NewWatcher(p, proofreader.WatcherConfig{
		Root:   root,
		Locale: locale,
		Logger: a.logger,
	})
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.Prime(); err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}

	for ev := range w.Events() {
		switch {
		case ev.Err != nil:
			a.logger.Warn("Audit failed", "path", ev.Path, "error", ev.Err)
		case ev.Operation == proofreader.OpDelete:
			a.logger.Info("File removed", "path", ev.Path)
		default:
			if err := writeFileReport(out, format, ev.Report); err != nil {
				return err
			}
		}
	}
	return nil
}
