// Package filter substitutes @@token@@ placeholders in declaration values
// with their per-locale replacements.
package filter

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/c360studio/l10nkit/dialect"
	"github.com/c360studio/l10nkit/policy"
)

// tokenPattern matches @@name@@ placeholders. The bracket tokens @@[@@ and
// @@]@@ stand for literal brackets that would otherwise confuse some dialects.
var tokenPattern = regexp.MustCompile(`@@([\w.\-]+|\[|\])@@`)

// Unresolved records a placeholder left in the output because no policy
// entry matched it.
type Unresolved struct {
	Path   string
	LineNo int
	Token  string
}

// Resolver substitutes tokens for one locale.
type Resolver struct {
	table  *policy.FilterTable
	locale string
	logger *slog.Logger
}

// NewResolver returns a resolver for locale. It fails with
// policy.ErrUnknownLocale when the table does not list locale.
func NewResolver(table *policy.FilterTable, locale string, logger *slog.Logger) (*Resolver, error) {
	if _, err := table.LocaleIndex(locale); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{table: table, locale: locale, logger: logger}, nil
}

// Locale returns the locale this resolver substitutes for.
func (r *Resolver) Locale() string {
	return r.locale
}

// ResolveLine returns the line text with every token in its declaration value
// replaced. Lines no dialect pattern recognises are resolved as a whole;
// comments, blanks, markers and key-only lines are returned verbatim. Tokens
// with no policy entry stay in place and are reported.
func (r *Resolver) ResolveLine(path string, line dialect.Line) (string, []Unresolved) {
	var (
		text    string
		missing []string
	)
	switch {
	case line.Kind == dialect.Decl && line.Decl != nil:
		var value string
		value, missing = r.ResolveValue(line.Decl.Value)
		text = line.WithValue(value)
	case line.Kind == dialect.Other:
		text, missing = r.ResolveValue(line.Text)
	default:
		return line.Text, nil
	}

	var unresolved []Unresolved
	for _, token := range missing {
		r.logger.Warn("Incorrect filter name",
			"path", path,
			"line", line.LineNo,
			"token", token)
		unresolved = append(unresolved, Unresolved{Path: path, LineNo: line.LineNo, Token: token})
	}
	return text, unresolved
}

// ResolveValue substitutes every token in s and returns the names of the
// tokens that could not be resolved, in order of appearance.
func (r *Resolver) ResolveValue(s string) (string, []string) {
	matches := tokenPattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var (
		b       strings.Builder
		missing []string
		last    int
	)
	for _, m := range matches {
		token := s[m[2]:m[3]]
		b.WriteString(s[last:m[0]])
		// LocaleIndex was checked in NewResolver, so the only outcome left
		// is found or not found.
		if v, ok, _ := r.table.Lookup(token, r.locale); ok {
			b.WriteString(v)
		} else {
			b.WriteString(s[m[0]:m[1]])
			missing = append(missing, token)
		}
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String(), missing
}

// Tokens returns the placeholder names found in s, in order.
func Tokens(s string) []string {
	var out []string
	for _, m := range tokenPattern.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}
