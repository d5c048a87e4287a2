// Package metrics records per-run counters for conversions and audits.
//
// Counters live in a private prometheus registry so a run can export them as
// a node_exporter textfile without touching the global default registry.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "l10nkit"

// File outcomes of a conversion run.
const (
	ResultConverted = "converted"
	ResultCopied    = "copied"
	ResultSkipped   = "skipped"
)

// Recorder collects the counters of one CLI run.
type Recorder struct {
	registry *prometheus.Registry

	files      *prometheus.CounterVec
	unresolved *prometheus.CounterVec
	findings   *prometheus.CounterVec
	audited    *prometheus.CounterVec
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "convert",
			Name:      "files_total",
			Help:      "Files processed by the converter, by locale and outcome.",
		}, []string{"locale", "result"}),
		unresolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "convert",
			Name:      "unresolved_tokens_total",
			Help:      "Placeholders left in the output because no filter matched them.",
		}, []string{"locale"}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proof",
			Name:      "findings_total",
			Help:      "Proofreading findings, by locale and category.",
		}, []string{"locale", "category"}),
		audited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proof",
			Name:      "files_total",
			Help:      "Files audited by the proofreader, by locale.",
		}, []string{"locale"}),
	}
	r.registry.MustRegister(r.files, r.unresolved, r.findings, r.audited)
	return r
}

// Registry exposes the underlying registry as a gatherer.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// FileProcessed counts one converter outcome. A nil recorder is a no-op so
// components can be used without metrics.
func (r *Recorder) FileProcessed(locale, result string) {
	if r == nil {
		return
	}
	r.files.WithLabelValues(locale, result).Inc()
}

// UnresolvedTokens counts placeholders left unresolved.
func (r *Recorder) UnresolvedTokens(locale string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.unresolved.WithLabelValues(locale).Add(float64(n))
}

// FileAudited counts one audited file.
func (r *Recorder) FileAudited(locale string) {
	if r == nil {
		return
	}
	r.audited.WithLabelValues(locale).Inc()
}

// Findings counts n proofreading findings of category.
func (r *Recorder) Findings(locale, category string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.findings.WithLabelValues(locale, category).Add(float64(n))
}

// WriteTextfile writes every counter to path in the text exposition format,
// for the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
