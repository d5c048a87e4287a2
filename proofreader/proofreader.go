// Package proofreader audits localized resource files for denied and
// suspected terminology and for characters outside the allowed classes.
package proofreader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/c360studio/l10nkit/dialect"
	"github.com/c360studio/l10nkit/metrics"
	"github.com/c360studio/l10nkit/rules"
	"github.com/c360studio/l10nkit/tree"
)

// Category classifies a finding.
type Category string

const (
	Deny      Category = "deny"
	Suspected Category = "suspected"
	Char      Category = "char"
)

// Marker is the short tag used in text reports.
func (c Category) Marker() string {
	switch c {
	case Deny:
		return "W!"
	case Suspected:
		return "W?"
	default:
		return "C!"
	}
}

// Finding is one rule hit on one line. Items holds every offending match on
// that line, in order.
type Finding struct {
	Category Category `json:"category"`
	Line     int      `json:"line"`
	ID       string   `json:"id"`
	Items    []string `json:"items"`
}

// Totals counts offending matches per category.
type Totals struct {
	Deny      int `json:"deny"`
	Suspected int `json:"suspected"`
	Char      int `json:"char"`
}

// Add accumulates o into t.
func (t *Totals) Add(o Totals) {
	t.Deny += o.Deny
	t.Suspected += o.Suspected
	t.Char += o.Char
}

// Sum is the number of matches across all categories.
func (t Totals) Sum() int {
	return t.Deny + t.Suspected + t.Char
}

// FileReport is the audit result for one file.
type FileReport struct {
	Path     string    `json:"path"`
	Locale   string    `json:"locale"`
	Findings []Finding `json:"findings,omitempty"`
	Totals   Totals    `json:"totals"`
}

func (r *FileReport) add(cat Category, d *dialect.Declaration, items []string) {
	if len(items) == 0 {
		return
	}
	r.Findings = append(r.Findings, Finding{Category: cat, Line: d.LineNo, ID: d.ID, Items: items})
	switch cat {
	case Deny:
		r.Totals.Deny += len(items)
	case Suspected:
		r.Totals.Suspected += len(items)
	case Char:
		r.Totals.Char += len(items)
	}
}

// TreeReport is the audit result for a locale tree. Files lists only the
// files with findings, in traversal order.
type TreeReport struct {
	Root    string        `json:"root"`
	Locale  string        `json:"locale"`
	Audited int           `json:"audited"`
	Files   []*FileReport `json:"files,omitempty"`
	Totals  Totals        `json:"totals"`
}

// Options configures a Proofreader.
type Options struct {
	Rules *rules.Store
	// Exclude lists doublestar patterns skipped in addition to
	// tree.DefaultExclude.
	Exclude  []string
	Registry *dialect.Registry
	Metrics  *metrics.Recorder
	Logger   *slog.Logger
}

// Proofreader audits files against a rule store.
type Proofreader struct {
	rules    *rules.Store
	registry *dialect.Registry
	walker   *tree.Walker
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// New returns a Proofreader for opts.
func New(opts Options) (*Proofreader, error) {
	if opts.Rules == nil {
		return nil, errors.New("rule store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = dialect.DefaultRegistry
	}

	f := tree.Filter{Exclude: append(append([]string{}, tree.DefaultExclude...), opts.Exclude...)}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	return &Proofreader{
		rules:    opts.Rules,
		registry: registry,
		walker:   &tree.Walker{Filter: f, Logger: logger},
		metrics:  opts.Metrics,
		logger:   logger,
	}, nil
}

// AuditFile checks every declaration value of one file. Files whose dialect
// is not audited fail with dialect.ErrUnsupported.
func (p *Proofreader) AuditFile(path, locale string) (*FileReport, error) {
	d, err := p.registry.ForPath(path)
	if err != nil {
		return nil, err
	}
	if !d.Auditable {
		return nil, fmt.Errorf("%w: %s is not audited", dialect.ErrUnsupported, d.Kind)
	}

	text, err := tree.ReadText(path)
	if err != nil {
		return nil, err
	}

	eff := p.rules.Compose(path, locale)
	report := &FileReport{Path: path, Locale: locale}
	cls := d.NewClassifier()
	lines, _ := tree.SplitLines(text)
	for i, raw := range lines {
		line := cls.Classify(i+1, raw)
		if line.Kind != dialect.Decl || line.Decl == nil {
			continue
		}
		value := line.Decl.Value
		report.add(Deny, line.Decl, eff.FindDeny(value))
		report.add(Suspected, line.Decl, eff.FindSuspected(value))
		report.add(Char, line.Decl, eff.FindChars(value))
	}

	p.metrics.FileAudited(locale)
	p.metrics.Findings(locale, string(Deny), report.Totals.Deny)
	p.metrics.Findings(locale, string(Suspected), report.Totals.Suspected)
	p.metrics.Findings(locale, string(Char), report.Totals.Char)
	return report, nil
}

// AuditTree audits every auditable file under <root>/<locale>. Unreadable
// files are logged and left out of the totals.
func (p *Proofreader) AuditTree(ctx context.Context, root, locale string) (*TreeReport, error) {
	dir := filepath.Join(root, locale)
	report := &TreeReport{Root: dir, Locale: locale}

	p.logger.Info("Proofreading", "locale", locale, "root", dir)
	err := p.walker.Walk(dir, func(e tree.Entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !p.registry.IsAuditable(e.Path) {
			return nil
		}

		fr, err := p.AuditFile(e.Path, locale)
		if err != nil {
			p.logger.Warn("Audit skipped", "path", e.Path, "error", err)
			return nil
		}
		report.Audited++
		report.Totals.Add(fr.Totals)
		if len(fr.Findings) > 0 {
			report.Files = append(report.Files, fr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("Proofreading finished",
		"locale", locale,
		"audited", report.Audited,
		"deny", report.Totals.Deny,
		"suspected", report.Totals.Suspected,
		"char", report.Totals.Char)
	return report, nil
}
