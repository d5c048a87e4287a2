package rules

import (
	"regexp"
	"sort"
	"strings"
)

// translatePattern rewrites the \uXXXX and \UXXXXXXXX escapes found in
// existing policy files into the \x{...} form accepted by Go's regexp
// package. Escaped backslashes are left alone.
func translatePattern(p string) string {
	if !strings.Contains(p, `\u`) && !strings.Contains(p, `\U`) {
		return p
	}

	var b strings.Builder
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c != '\\' || i+1 >= len(p) {
			b.WriteByte(c)
			continue
		}
		next := p[i+1]
		width := 0
		switch next {
		case 'u':
			width = 4
		case 'U':
			width = 8
		}
		if width > 0 && i+2+width <= len(p) && isHex(p[i+2:i+2+width]) {
			b.WriteString(`\x{`)
			b.WriteString(p[i+2 : i+2+width])
			b.WriteByte('}')
			i += 1 + width
			continue
		}
		b.WriteByte(c)
		b.WriteByte(next)
		i++
	}
	return b.String()
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// compilePattern compiles a policy pattern. An empty pattern yields nil,
// which matches nothing.
func compilePattern(p string) (*regexp.Regexp, error) {
	if p == "" {
		return nil, nil
	}
	return regexp.Compile(translatePattern(p))
}

// Span is a half-open byte range within a value.
type Span struct {
	Start, End int
}

// MatcherSet is the union of compiled patterns. Sets compose by appending
// matchers, never by concatenating pattern text.
type MatcherSet []*regexp.Regexp

// With returns a new set holding s plus every non-nil matcher in more.
func (s MatcherSet) With(more ...*regexp.Regexp) MatcherSet {
	out := make(MatcherSet, 0, len(s)+len(more))
	out = append(out, s...)
	for _, re := range more {
		if re != nil {
			out = append(out, re)
		}
	}
	return out
}

// Empty reports whether the set has no matchers.
func (s MatcherSet) Empty() bool {
	return len(s) == 0
}

// spans returns every non-empty match of every matcher, unordered.
func (s MatcherSet) spans(value string) []Span {
	var out []Span
	for _, re := range s {
		for _, m := range re.FindAllStringIndex(value, -1) {
			if m[1] > m[0] {
				out = append(out, Span{m[0], m[1]})
			}
		}
	}
	return out
}

// FindAll returns non-overlapping matches across the whole set, leftmost
// first and longest among matches starting at the same offset. With a single
// matcher this is the same as FindAllStringIndex minus empty matches.
func (s MatcherSet) FindAll(value string) []Span {
	all := s.spans(value)
	if len(s) <= 1 {
		return all
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].End > all[j].End
	})

	out := all[:0]
	end := -1
	for _, sp := range all {
		if sp.Start < end {
			continue
		}
		out = append(out, sp)
		end = sp.End
	}
	return out
}

// anchored returns a matcher that accepts only text re matches in full.
func anchored(re *regexp.Regexp) *regexp.Regexp {
	return regexp.MustCompile(`^(?:` + re.String() + `)$`)
}

// anchorAll returns the anchored form of every matcher in set, taking
// precompiled forms from cache when present.
func anchorAll(cache map[*regexp.Regexp]*regexp.Regexp, set MatcherSet) MatcherSet {
	out := make(MatcherSet, 0, len(set))
	for _, re := range set {
		w, ok := cache[re]
		if !ok {
			w = anchored(re)
		}
		out = append(out, w)
	}
	return out
}

// matchesAny reports whether any matcher of s matches text.
func (s MatcherSet) matchesAny(text string) bool {
	for _, re := range s {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// covered reports whether sp lies entirely inside one of within.
func covered(sp Span, within []Span) bool {
	for _, w := range within {
		if w.Start <= sp.Start && sp.End <= w.End {
			return true
		}
	}
	return false
}
