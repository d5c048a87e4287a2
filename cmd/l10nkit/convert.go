package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/c360studio/l10nkit/converter"
	"github.com/c360studio/l10nkit/policy"
)

// allLocales selects every locale of the filter policy.
const allLocales = "all"

func convertCmd(a *app) *cobra.Command {
	var (
		srcDir  string
		destDir string
		filters string
		locale  string
		product string
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Render the source tree into per-locale output trees",
		Long: `Convert walks the source tree and writes <l10n>/<locale>/ for each
requested locale. Text resources have their @@token@@ placeholders replaced
from the filter policy; all other files are copied unchanged. The output
directory of each locale is removed and recreated first.

Exits with status 1 when any file had to be skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			srcDir = firstNonEmpty(srcDir, cfg.Paths.Source)
			destDir = firstNonEmpty(destDir, cfg.Paths.L10n)
			filters = firstNonEmpty(filters, cfg.Paths.Filters)

			if locale != "" && locale != allLocales && !cfg.HasLocale(locale) {
				return fmt.Errorf("%w: %q is not configured (configured: %v)", policy.ErrUnknownLocale, locale, cfg.Locales)
			}
			var dirs []string
			if product != "" {
				var err error
				if dirs, err = cfg.Product(product); err != nil {
					return err
				}
			}

			table, err := policy.LoadFilters(filters, a.logger)
			if err != nil {
				return err
			}

			conv, err := converter.New(converter.Options{
				SourceRoot: srcDir,
				DestRoot:   destDir,
				Filters:    table,
				Exclude:    cfg.Exclude,
				Product:    dirs,
				Metrics:    a.metrics,
				Logger:     a.logger,
			})
			if err != nil {
				return err
			}
			defer a.flushMetrics()

			var results []converter.Result
			if locale == "" || locale == allLocales {
				results, err = conv.ConvertAll(cmd.Context())
			} else {
				var res converter.Result
				res, err = conv.Convert(cmd.Context(), locale)
				results = append(results, res)
			}

			out := cmd.OutOrStdout()
			for _, res := range results {
				if err == nil || res.Total() > 0 {
					writeResult(out, res)
				}
			}
			if err != nil {
				return err
			}
			for _, res := range results {
				if res.Failed() {
					return &exitError{code: 1, err: fmt.Errorf("%d file(s) skipped for locale %s", res.Skipped, res.Locale)}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&srcDir, "src-dir", "s", "", "Source directory of resources (default from config: src)")
	cmd.Flags().StringVarP(&destDir, "l10n-dir", "d", "", "Destination root; one subdirectory per locale (default from config: l10n)")
	cmd.Flags().StringVarP(&filters, "filter", "f", "", "Filter policy file; must define LOCALES (default from config: ja.filters.json)")
	cmd.Flags().StringVarP(&locale, "locale", "l", "", `Locale to convert, or "all" (default: every locale in the filter policy)`)
	cmd.Flags().StringVarP(&product, "product", "p", "", "Restrict to a product preset's directories (onlyfx, onlytb, onlysm)")

	return cmd
}

func writeResult(w io.Writer, res converter.Result) {
	fmt.Fprintf(w, "\nResult for %s locale:\n Converted: %d\n Copied: %d\n Skipped: %d\n Total: %d files\n",
		res.Locale, res.Converted, res.Copied, res.Skipped, res.Total())
	if res.Unresolved > 0 {
		fmt.Fprintf(w, " Unresolved tokens: %d\n", res.Unresolved)
	}
}
