// Package policy loads the locale-indexed policy documents shared by the
// converter and the proofreader.
package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Reserved top-level keys of a filter policy document.
const (
	LocalesKey = "LOCALES"
	CommonKey  = "COMMON"
)

// Policy errors.
var (
	ErrConfig        = errors.New("policy configuration error")
	ErrUnknownLocale = errors.New("unknown locale")
	ErrTokenNotFound = errors.New("token not found")
)

// ErrorMarker is the text substituted for a token that exists in the table
// but has no value for the requested locale. It is meant to stand out in the
// converted output.
func ErrorMarker(token string) string {
	return "[ERROR[" + token + "]ERROR]"
}

// FilterTable maps token names to per-locale replacements, index-aligned with
// the LOCALES list, plus the locale-independent COMMON pool.
// A FilterTable is immutable once loaded.
type FilterTable struct {
	locales []string
	index   map[string]int
	tokens  map[string][]*string
	common  map[string]string
}

// LoadFilters reads a filter policy file (JSON, YAML or TOML).
// Token lists shorter than LOCALES are accepted and reported through logger;
// the missing entries resolve to ErrorMarker.
func LoadFilters(path string, logger *slog.Logger) (*FilterTable, error) {
	if logger == nil {
		logger = slog.Default()
	}

	canonical, err := ReadDocument(path, FilterSchema)
	if err != nil {
		return nil, err
	}

	table, err := parseFilters(canonical)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
	}

	for _, token := range table.Incomplete() {
		logger.Warn("Filter token is missing locale values",
			"path", path,
			"token", token,
			"have", len(table.tokens[token]),
			"want", len(table.locales))
	}

	logger.Debug("Loaded filter policy",
		"path", path,
		"locales", table.locales,
		"tokens", len(table.tokens),
		"common", len(table.common))
	return table, nil
}

// NewFilterTable builds a table from already-decoded values.
// It is mostly useful in tests and for callers that assemble policies in code.
func NewFilterTable(locales []string, tokens map[string][]string, common map[string]string) (*FilterTable, error) {
	if len(locales) == 0 {
		return nil, fmt.Errorf("%w: %s is required", ErrConfig, LocalesKey)
	}

	t := &FilterTable{
		locales: append([]string(nil), locales...),
		index:   make(map[string]int, len(locales)),
		tokens:  make(map[string][]*string, len(tokens)),
		common:  make(map[string]string, len(common)),
	}
	for i, loc := range locales {
		t.index[loc] = i
	}
	for name, values := range tokens {
		list := make([]*string, len(values))
		for i := range values {
			v := values[i]
			list[i] = &v
		}
		t.tokens[name] = list
	}
	for name, v := range common {
		t.common[name] = v
	}
	return t, nil
}

func parseFilters(canonical []byte) (*FilterTable, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(canonical, &raw); err != nil {
		return nil, err
	}

	localesRaw, ok := raw[LocalesKey]
	if !ok {
		return nil, fmt.Errorf("%s is required", LocalesKey)
	}
	var locales []string
	if err := json.Unmarshal(localesRaw, &locales); err != nil {
		return nil, fmt.Errorf("decode %s: %w", LocalesKey, err)
	}
	if len(locales) == 0 {
		return nil, fmt.Errorf("%s must list at least one locale", LocalesKey)
	}

	t := &FilterTable{
		locales: locales,
		index:   make(map[string]int, len(locales)),
		tokens:  make(map[string][]*string, len(raw)),
		common:  make(map[string]string),
	}
	for i, loc := range locales {
		if _, dup := t.index[loc]; dup {
			return nil, fmt.Errorf("duplicate locale %q in %s", loc, LocalesKey)
		}
		t.index[loc] = i
	}

	for key, value := range raw {
		switch key {
		case LocalesKey:
			continue
		case CommonKey:
			if err := json.Unmarshal(value, &t.common); err != nil {
				return nil, fmt.Errorf("decode %s: %w", CommonKey, err)
			}
		default:
			var list []*string
			if err := json.Unmarshal(value, &list); err != nil {
				return nil, fmt.Errorf("decode token %q: %w", key, err)
			}
			t.tokens[key] = list
		}
	}
	return t, nil
}

// Locales returns a copy of the ordered LOCALES list.
func (t *FilterTable) Locales() []string {
	return append([]string(nil), t.locales...)
}

// HasLocale reports whether locale is listed in LOCALES.
func (t *FilterTable) HasLocale(locale string) bool {
	_, ok := t.index[locale]
	return ok
}

// LocaleIndex returns the position of locale in LOCALES.
func (t *FilterTable) LocaleIndex(locale string) (int, error) {
	i, ok := t.index[locale]
	if !ok {
		return -1, fmt.Errorf("%w: %q (known: %s)", ErrUnknownLocale, locale, strings.Join(t.locales, ", "))
	}
	return i, nil
}

// Resolve returns the per-locale replacement of token. It does not consult
// the COMMON pool; use Lookup for the full two-tier resolution.
//
// A token that exists without a value at the locale's index yields
// ErrorMarker(token) and no error.
func (t *FilterTable) Resolve(token, locale string) (string, error) {
	i, err := t.LocaleIndex(locale)
	if err != nil {
		return "", err
	}
	values, ok := t.tokens[token]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrTokenNotFound, token)
	}
	if i >= len(values) || values[i] == nil {
		return ErrorMarker(token), nil
	}
	return *values[i], nil
}

// Lookup resolves token for locale: first against the per-locale table, then
// against COMMON. ok is false when neither tier knows the token.
// The only error returned is ErrUnknownLocale.
func (t *FilterTable) Lookup(token, locale string) (value string, ok bool, err error) {
	value, err = t.Resolve(token, locale)
	switch {
	case err == nil:
		return value, true, nil
	case !errors.Is(err, ErrTokenNotFound):
		return "", false, err
	}

	if v, found := t.common[token]; found {
		return v, true, nil
	}
	return "", false, nil
}

// Common returns the COMMON replacement for token, if any.
func (t *FilterTable) Common(token string) (string, bool) {
	v, ok := t.common[token]
	return v, ok
}

// Incomplete lists, sorted, the tokens whose replacement list is shorter than
// LOCALES or holds a null entry.
func (t *FilterTable) Incomplete() []string {
	var out []string
	for name, values := range t.tokens {
		if len(values) < len(t.locales) {
			out = append(out, name)
			continue
		}
		for _, v := range values[:len(t.locales)] {
			if v == nil {
				out = append(out, name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
