// Package dialect classifies the lines of localizable resource files.
//
// Each supported file format is a Dialect: a closed set of variants selected
// by file extension, each carrying its own comment, marker and declaration
// patterns. A per-file Classifier turns raw lines into Line values that the
// converter and the proofreader consume.
package dialect

import (
	"regexp"
	"strings"
)

// Kind enumerates the supported dialects.
type Kind int

// Supported dialects.
const (
	Fluent Kind = iota + 1
	Properties
	INI
	DTD
	CSS
	Include
)

func (k Kind) String() string {
	switch k {
	case Fluent:
		return "fluent"
	case Properties:
		return "properties"
	case INI:
		return "ini"
	case DTD:
		return "dtd"
	case CSS:
		return "css"
	case Include:
		return "include"
	default:
		return "unknown"
	}
}

// declPattern extracts an identifier and a value from a line.
// The value must be the last capture group so its offset can be recovered.
type declPattern struct {
	re *regexp.Regexp
	// attribute patterns report their identifier relative to the last
	// top-level identifier (Fluent ".attr" lines).
	attribute bool
	// opens is the quote left open by the match; following lines continue
	// the value up to the matching close quote (multi-line DTD entities).
	opens byte
}

// Dialect describes how one file format is split into declarations.
type Dialect struct {
	Kind       Kind
	Extensions []string
	// Auditable dialects carry prose values checked by the proofreader.
	Auditable bool

	comment    *regexp.Regexp
	blockOpen  string
	blockClose string
	marker     *regexp.Regexp
	keyOnly    *regexp.Regexp
	decls      []declPattern

	// indented lines continue the previous value (Fluent).
	indentContinues bool
	// a value ending in an odd number of backslashes continues (properties).
	backslashContinues bool
	// lines matching nothing else are treated as one anonymous value.
	wholeLine bool
	// variant keys like "[one]" or "*[other]" prefix continuation values.
	variant *regexp.Regexp
}

const ident = `[\w.\-]+`

var (
	fluentDialect = &Dialect{
		Kind:       Fluent,
		Extensions: []string{".ftl"},
		Auditable:  true,
		comment:    regexp.MustCompile(`^#+(\s|$)`),
		marker:     regexp.MustCompile(`^\s*\{\s*\$[a-zA-Z][\w-]*\s*->\s*$|^\s*\}\s*$`),
		keyOnly:    regexp.MustCompile(`^\s*(` + ident + `)\s*=\s*$`),
		decls: []declPattern{
			{re: regexp.MustCompile(`^(` + ident + `)\s*=\s*(.*)$`)},
			{re: regexp.MustCompile(`^\s+(\.` + ident + `)\s*=\s*(.*)$`), attribute: true},
		},
		indentContinues: true,
		variant:         regexp.MustCompile(`^\s*(\*?\[[\w\-]+\])\s*`),
	}

	propertiesDialect = &Dialect{
		Kind:               Properties,
		Extensions:         []string{".properties"},
		Auditable:          true,
		comment:            regexp.MustCompile(`^\s*[#!]`),
		keyOnly:            regexp.MustCompile(`^\s*(` + ident + `)\s*[=:]\s*$`),
		decls:              []declPattern{{re: regexp.MustCompile(`^\s*(` + ident + `)\s*[=:]\s*(.*)$`)}},
		backslashContinues: true,
	}

	iniDialect = &Dialect{
		Kind:       INI,
		Extensions: []string{".ini"},
		Auditable:  true,
		comment:    regexp.MustCompile(`^\s*[;#]`),
		marker:     regexp.MustCompile(`^\s*\[[^\]]*\]\s*$`),
		keyOnly:    regexp.MustCompile(`^\s*(` + ident + `)\s*=\s*$`),
		decls:      []declPattern{{re: regexp.MustCompile(`^\s*(` + ident + `)\s*=\s*(.*)$`)}},
	}

	dtdDialect = &Dialect{
		Kind:       DTD,
		Extensions: []string{".dtd"},
		Auditable:  true,
		blockOpen:  "<!--",
		blockClose: "-->",
		decls: []declPattern{
			{re: regexp.MustCompile(`^\s*<!ENTITY\s+(` + ident + `)\s*"(.*)"\s*>`)},
			{re: regexp.MustCompile(`^\s*<!ENTITY\s+(` + ident + `)\s*'(.*)'\s*>`)},
			{re: regexp.MustCompile(`^\s*<!ENTITY\s+(` + ident + `)\s*"([^"]*)$`), opens: '"'},
			{re: regexp.MustCompile(`^\s*<!ENTITY\s+(` + ident + `)\s*'([^']*)$`), opens: '\''},
		},
	}

	cssDialect = &Dialect{
		Kind:       CSS,
		Extensions: []string{".css"},
		blockOpen:  "/*",
		blockClose: "*/",
		wholeLine:  true,
	}

	includeDialect = &Dialect{
		Kind:       Include,
		Extensions: []string{".inc"},
		comment:    regexp.MustCompile(`^#+(\s|$)`),
		keyOnly:    regexp.MustCompile(`^#define\s+(\S+)\s*$`),
		decls:      []declPattern{{re: regexp.MustCompile(`^#define\s+(\S+)\s+(.*)$`)}},
		wholeLine:  true,
	}
)

// Builtin returns the dialects shipped with l10nkit.
func Builtin() []*Dialect {
	return []*Dialect{fluentDialect, propertiesDialect, iniDialect, dtdDialect, cssDialect, includeDialect}
}

// NewClassifier returns a classifier for one file. Classifiers are stateful
// (block comments, continuation lines) and must not be shared across files.
func (d *Dialect) NewClassifier() *Classifier {
	return &Classifier{d: d}
}

// endsWithContinuation reports whether s ends with an odd number of
// backslashes.
func endsWithContinuation(s string) bool {
	n := len(s) - len(strings.TrimRight(s, `\`))
	return n%2 == 1
}
