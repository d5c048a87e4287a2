// Package rules loads the proofreading policy (word and character checks)
// and composes the effective rule set for a file.
package rules

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/c360studio/l10nkit/policy"
)

// CommonKey is the locale key whose patterns apply to every locale.
const CommonKey = "COMMON"

type document struct {
	WordCheck struct {
		Deny      map[string]string `json:"deny"`
		Allow     map[string]string `json:"allow"`
		Suspected map[string]string `json:"suspected"`
	} `json:"WORDCHECK"`
	CharCheck struct {
		Allow           string `json:"allow"`
		BaseChars       string `json:"basechars"`
		KanjiJouyouNews string `json:"kanji_jyouyou_news"`
		KanjiSupplement string `json:"kanji_supplement"`
	} `json:"CHARCHECK"`
	Path map[string]struct {
		Deny  string `json:"deny"`
		Allow string `json:"allow"`
	} `json:"PATH"`
}

type pathRule struct {
	substr string
	deny   *regexp.Regexp
	allow  *regexp.Regexp
}

// Store holds the compiled proofreading policy. It is immutable once loaded
// and safe to share.
type Store struct {
	deny      map[string]*regexp.Regexp
	allow     map[string]*regexp.Regexp
	suspected map[string]*regexp.Regexp
	charAllow *regexp.Regexp
	// disallowed matches one rune outside the base character classes; nil
	// when no base classes are configured, which disables the char check.
	disallowed *regexp.Regexp
	paths      []pathRule
	// whole holds the anchored form of every allow pattern.
	whole map[*regexp.Regexp]*regexp.Regexp
}

// LoadStore reads an errorcheck policy file (JSON, YAML or TOML) and compiles
// every pattern. Failures wrap policy.ErrConfig.
func LoadStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	canonical, err := policy.ReadDocument(path, policy.ErrorcheckSchema)
	if err != nil {
		return nil, err
	}
	s, err := parseStore(canonical)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", policy.ErrConfig, path, err)
	}

	if s.disallowed == nil {
		logger.Warn("No base character classes configured; character check disabled", "path", path)
	}
	logger.Debug("Loaded errorcheck policy",
		"path", path,
		"deny", len(s.deny),
		"allow", len(s.allow),
		"suspected", len(s.suspected),
		"paths", len(s.paths))
	return s, nil
}

// ParseStore compiles an errorcheck policy held in memory; name selects the
// decoder by extension.
func ParseStore(name string, data []byte) (*Store, error) {
	canonical, err := policy.ParseDocument(name, data, policy.ErrorcheckSchema)
	if err != nil {
		return nil, err
	}
	s, err := parseStore(canonical)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", policy.ErrConfig, name, err)
	}
	return s, nil
}

func parseStore(canonical []byte) (*Store, error) {
	var doc document
	if err := json.Unmarshal(canonical, &doc); err != nil {
		return nil, err
	}

	s := &Store{}
	var err error
	if s.deny, err = compileLocaleMap("WORDCHECK.deny", doc.WordCheck.Deny); err != nil {
		return nil, err
	}
	if s.allow, err = compileLocaleMap("WORDCHECK.allow", doc.WordCheck.Allow); err != nil {
		return nil, err
	}
	if s.suspected, err = compileLocaleMap("WORDCHECK.suspected", doc.WordCheck.Suspected); err != nil {
		return nil, err
	}
	if s.charAllow, err = compilePattern(doc.CharCheck.Allow); err != nil {
		return nil, fmt.Errorf("CHARCHECK.allow: %w", err)
	}

	base := doc.CharCheck.BaseChars + doc.CharCheck.KanjiJouyouNews + doc.CharCheck.KanjiSupplement
	if base != "" {
		if s.disallowed, err = compilePattern("[^" + base + "]"); err != nil {
			return nil, fmt.Errorf("CHARCHECK base classes: %w", err)
		}
	}

	keys := make([]string, 0, len(doc.Path))
	for k := range doc.Path {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == "" {
			continue
		}
		ov := doc.Path[k]
		rule := pathRule{substr: filepath.ToSlash(k)}
		if rule.deny, err = compilePattern(ov.Deny); err != nil {
			return nil, fmt.Errorf("PATH[%q].deny: %w", k, err)
		}
		if rule.allow, err = compilePattern(ov.Allow); err != nil {
			return nil, fmt.Errorf("PATH[%q].allow: %w", k, err)
		}
		s.paths = append(s.paths, rule)
	}

	s.whole = make(map[*regexp.Regexp]*regexp.Regexp)
	for _, re := range s.allow {
		s.whole[re] = anchored(re)
	}
	for _, p := range s.paths {
		if p.allow != nil {
			s.whole[p.allow] = anchored(p.allow)
		}
	}
	return s, nil
}

func compileLocaleMap(field string, patterns map[string]string) (map[string]*regexp.Regexp, error) {
	out := make(map[string]*regexp.Regexp, len(patterns))
	for locale, p := range patterns {
		re, err := compilePattern(p)
		if err != nil {
			return nil, fmt.Errorf("%s[%q]: %w", field, locale, err)
		}
		if re != nil {
			out[locale] = re
		}
	}
	return out, nil
}

// Effective is the rule set that applies to one file for one locale.
type Effective struct {
	Deny      MatcherSet
	Allow     MatcherSet
	Suspected MatcherSet
	CharAllow MatcherSet
	// Disallowed matches a single rune outside the base classes; nil
	// disables the char check.
	Disallowed *regexp.Regexp

	wholeAllow MatcherSet
}

// Compose merges the global rules for locale with every PATH override whose
// key occurs in filePath. Suspected words come from the locale alone; COMMON
// does not apply to them. The result is meant for one file and is not cached.
func (s *Store) Compose(filePath, locale string) *Effective {
	e := &Effective{
		Deny:       MatcherSet{}.With(s.deny[locale], s.deny[CommonKey]),
		Allow:      MatcherSet{}.With(s.allow[locale], s.allow[CommonKey]),
		Suspected:  MatcherSet{}.With(s.suspected[locale]),
		CharAllow:  MatcherSet{}.With(s.charAllow),
		Disallowed: s.disallowed,
	}

	slashPath := filepath.ToSlash(filePath)
	for _, p := range s.paths {
		if !strings.Contains(slashPath, p.substr) {
			continue
		}
		e.Deny = e.Deny.With(p.deny)
		e.Allow = e.Allow.With(p.allow)
		e.CharAllow = e.CharAllow.With(p.allow)
	}
	e.wholeAllow = anchorAll(s.whole, e.Allow)
	return e
}

// FindDeny returns the deny matches in value that are not allowed. A match is
// allowed when an allow pattern matches its whole text or when an allow match
// in value covers it.
func (e *Effective) FindDeny(value string) []string {
	return e.findWords(e.Deny, value)
}

// FindSuspected returns the suspected matches in value that are not allowed,
// as for FindDeny.
func (e *Effective) FindSuspected(value string) []string {
	return e.findWords(e.Suspected, value)
}

func (e *Effective) findWords(set MatcherSet, value string) []string {
	if set.Empty() {
		return nil
	}
	hits := set.FindAll(value)
	if len(hits) == 0 {
		return nil
	}
	allowed := e.Allow.spans(value)
	whole := e.wholeAllow
	if len(whole) != len(e.Allow) {
		whole = anchorAll(nil, e.Allow)
	}

	var out []string
	for _, sp := range hits {
		hit := value[sp.Start:sp.End]
		if covered(sp, allowed) || whole.matchesAny(hit) {
			continue
		}
		out = append(out, hit)
	}
	return out
}

// FindChars returns every rune of value outside the base classes that no
// char allowance covers, in order.
func (e *Effective) FindChars(value string) []string {
	if e.Disallowed == nil {
		return nil
	}
	hits := e.Disallowed.FindAllStringIndex(value, -1)
	if len(hits) == 0 {
		return nil
	}
	allowed := e.CharAllow.spans(value)

	var out []string
	for _, m := range hits {
		if covered(Span{m[0], m[1]}, allowed) {
			continue
		}
		out = append(out, value[m[0]:m[1]])
	}
	return out
}
