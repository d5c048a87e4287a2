// Package converter renders a source resource tree into per-locale output
// trees, resolving @@token@@ placeholders in every text resource and copying
// everything else unchanged.
package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/c360studio/l10nkit/dialect"
	"github.com/c360studio/l10nkit/filter"
	"github.com/c360studio/l10nkit/metrics"
	"github.com/c360studio/l10nkit/policy"
	"github.com/c360studio/l10nkit/tree"
)

// ErrFileIO marks a per-file read or write failure. The file is skipped and
// the run continues.
var ErrFileIO = errors.New("file I/O error")

// errEmpty marks a text resource that produced no output lines.
var errEmpty = errors.New("conversion produced no lines")

// Options configures a Converter.
type Options struct {
	// SourceRoot is the tree to convert.
	SourceRoot string
	// DestRoot receives one subdirectory per locale.
	DestRoot string
	// Filters is the loaded token policy.
	Filters *policy.FilterTable
	// Exclude lists doublestar patterns skipped in addition to
	// tree.DefaultExclude.
	Exclude []string
	// Product restricts the walk to these top-level directories.
	Product []string
	// Registry maps extensions to dialects; nil uses dialect.DefaultRegistry.
	Registry *dialect.Registry
	// Metrics is optional.
	Metrics *metrics.Recorder
	Logger  *slog.Logger
}

// Result counts the outcome of converting one locale.
type Result struct {
	Locale     string
	Converted  int
	Copied     int
	Skipped    int
	Unresolved int
}

// Total is the number of files visited.
func (r Result) Total() int {
	return r.Converted + r.Copied + r.Skipped
}

// Failed reports whether any file was skipped.
func (r Result) Failed() bool {
	return r.Skipped > 0
}

// Converter converts a source tree for one or more locales.
type Converter struct {
	opts     Options
	walker   *tree.Walker
	registry *dialect.Registry
	logger   *slog.Logger
}

// New validates opts and returns a Converter.
func New(opts Options) (*Converter, error) {
	if opts.SourceRoot == "" {
		return nil, errors.New("source root is required")
	}
	if opts.DestRoot == "" {
		return nil, errors.New("destination root is required")
	}
	if opts.Filters == nil {
		return nil, errors.New("filter table is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = dialect.DefaultRegistry
	}

	f := tree.Filter{
		Exclude: append(append([]string{}, tree.DefaultExclude...), opts.Exclude...),
		Include: opts.Product,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	return &Converter{
		opts:     opts,
		walker:   &tree.Walker{Filter: f, Logger: logger},
		registry: registry,
		logger:   logger,
	}, nil
}

// Convert recreates <DestRoot>/<locale> and fills it from the source tree.
// An unknown locale or a failure to recreate the output tree aborts before
// any file is written; per-file failures are logged and counted as skipped.
func (c *Converter) Convert(ctx context.Context, locale string) (Result, error) {
	res := Result{Locale: locale}

	resolver, err := filter.NewResolver(c.opts.Filters, locale, c.logger)
	if err != nil {
		return res, err
	}

	outRoot := filepath.Join(c.opts.DestRoot, locale)
	if err := tree.Recreate(outRoot); err != nil {
		return res, fmt.Errorf("%w: %v", ErrFileIO, err)
	}
	c.logger.Info("Converting", "locale", locale, "source", c.opts.SourceRoot, "dest", outRoot)

	err = c.walker.Walk(c.opts.SourceRoot, func(e tree.Entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst := filepath.Join(outRoot, filepath.FromSlash(e.Rel))

		d, derr := c.registry.ForPath(e.Path)
		if derr != nil {
			if err := tree.CopyFile(e.Path, dst); err != nil {
				c.skip(&res, e, fmt.Errorf("%w: %v", ErrFileIO, err))
				return nil
			}
			res.Copied++
			c.opts.Metrics.FileProcessed(locale, metrics.ResultCopied)
			c.logger.Debug("Copied", "path", e.Rel)
			return nil
		}

		unresolved, err := c.convertFile(e, dst, d, resolver)
		if err != nil {
			c.skip(&res, e, err)
			return nil
		}
		res.Converted++
		res.Unresolved += len(unresolved)
		c.opts.Metrics.FileProcessed(locale, metrics.ResultConverted)
		c.opts.Metrics.UnresolvedTokens(locale, len(unresolved))
		c.logger.Debug("Converted", "path", e.Rel, "unresolved", len(unresolved))
		return nil
	})
	if err != nil {
		return res, err
	}

	c.logger.Info("Conversion finished",
		"locale", locale,
		"converted", res.Converted,
		"copied", res.Copied,
		"skipped", res.Skipped,
		"unresolved", res.Unresolved)
	return res, nil
}

// ConvertAll converts every locale of the filter table in order. It stops
// after the first locale that skipped files or failed outright.
func (c *Converter) ConvertAll(ctx context.Context) ([]Result, error) {
	var results []Result
	for _, locale := range c.opts.Filters.Locales() {
		res, err := c.Convert(ctx, locale)
		results = append(results, res)
		if err != nil || res.Failed() {
			return results, err
		}
	}
	return results, nil
}

func (c *Converter) skip(res *Result, e tree.Entry, err error) {
	res.Skipped++
	c.opts.Metrics.FileProcessed(res.Locale, metrics.ResultSkipped)
	c.logger.Error("Convert skipped by error", "path", e.Path, "error", err)
}

// convertFile resolves every line of a text resource and writes the result
// to dst. Nothing is written when reading or converting fails.
func (c *Converter) convertFile(e tree.Entry, dst string, d *dialect.Dialect, r *filter.Resolver) ([]filter.Unresolved, error) {
	text, err := tree.ReadText(e.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileIO, err)
	}
	lines, trailing := tree.SplitLines(text)
	if len(lines) == 0 {
		return nil, errEmpty
	}

	var unresolved []filter.Unresolved
	cls := d.NewClassifier()
	out := make([]string, len(lines))
	for i, raw := range lines {
		line := cls.Classify(i+1, raw)
		resolved, missing := r.ResolveLine(e.Rel, line)
		out[i] = resolved
		unresolved = append(unresolved, missing...)
	}

	if err := tree.WriteFile(dst, []byte(tree.JoinLines(out, trailing)), e.Info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileIO, err)
	}
	return unresolved, nil
}
