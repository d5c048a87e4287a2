package dialect

import "strings"

// LineKind is the classification of one physical line.
type LineKind int

// Line classifications. Only Decl lines carry a value.
const (
	Blank LineKind = iota
	Comment
	Marker
	KeyOnly
	Decl
	Other
)

func (k LineKind) String() string {
	switch k {
	case Blank:
		return "blank"
	case Comment:
		return "comment"
	case Marker:
		return "marker"
	case KeyOnly:
		return "key-only"
	case Decl:
		return "declaration"
	default:
		return "other"
	}
}

// Declaration is the identifier/value pair parsed from one line.
// ID is empty for anonymous values (whole-line dialects).
type Declaration struct {
	ID     string
	Value  string
	LineNo int
	// Start is the byte offset of Value within the raw line.
	Start int
}

// Line is a classified physical line.
type Line struct {
	Kind   LineKind
	LineNo int
	Text   string
	Decl   *Declaration
}

// WithValue returns the line text with the declaration value replaced by v.
// Lines without a declaration are returned unchanged.
func (l Line) WithValue(v string) string {
	if l.Decl == nil {
		return l.Text
	}
	end := l.Decl.Start + len(l.Decl.Value)
	return l.Text[:l.Decl.Start] + v + l.Text[end:]
}

// Classifier classifies the lines of a single file in order.
type Classifier struct {
	d *Dialect

	inBlock bool
	lastID  string
	pending bool
	// quote is the open quote of a value that spans lines, or 0.
	quote byte
}

// Dialect returns the dialect this classifier was built from.
func (c *Classifier) Dialect() *Dialect {
	return c.d
}

// Classify classifies one line. lineNo is 1-based; text must not carry the
// line terminator (a trailing carriage return is tolerated).
func (c *Classifier) Classify(lineNo int, text string) Line {
	text = strings.TrimSuffix(text, "\r")
	line := Line{LineNo: lineNo, Text: text}
	d := c.d

	if c.inBlock {
		if strings.Contains(text, d.blockClose) {
			c.inBlock = false
		}
		line.Kind = Comment
		return line
	}

	if c.quote != 0 {
		start := len(text) - len(strings.TrimLeft(text, " \t"))
		end := len(text)
		if i := strings.IndexByte(text[start:], c.quote); i >= 0 {
			end = start + i
			c.quote = 0
		}
		line.Kind = Decl
		line.Decl = &Declaration{ID: c.lastID, Value: text[start:end], LineNo: lineNo, Start: start}
		return line
	}

	if c.pending {
		trimmed := strings.TrimLeft(text, " \t")
		c.pending = endsWithContinuation(trimmed)
		line.Kind = Decl
		line.Decl = &Declaration{ID: c.lastID, Value: trimmed, LineNo: lineNo, Start: len(text) - len(trimmed)}
		return line
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		line.Kind = Blank
		return line
	}

	if d.comment != nil && d.comment.MatchString(text) {
		line.Kind = Comment
		return line
	}

	if d.blockOpen != "" && strings.HasPrefix(trimmed, d.blockOpen) {
		rest := trimmed[len(d.blockOpen):]
		if !strings.Contains(rest, d.blockClose) {
			c.inBlock = true
		}
		line.Kind = Comment
		return line
	}

	if d.marker != nil && d.marker.MatchString(text) {
		line.Kind = Marker
		return line
	}

	if d.keyOnly != nil {
		if m := d.keyOnly.FindStringSubmatch(text); m != nil {
			if !strings.HasPrefix(m[1], ".") {
				c.lastID = m[1]
			}
			line.Kind = KeyOnly
			return line
		}
	}

	for _, p := range d.decls {
		idx := p.re.FindStringSubmatchIndex(text)
		if idx == nil {
			continue
		}
		id := text[idx[2]:idx[3]]
		valueStart, valueEnd := idx[len(idx)-2], idx[len(idx)-1]
		if p.attribute {
			id = c.lastID + id
		} else {
			c.lastID = id
		}
		value := text[valueStart:valueEnd]
		if d.backslashContinues {
			c.pending = endsWithContinuation(value)
		}
		c.quote = p.opens
		line.Kind = Decl
		line.Decl = &Declaration{ID: id, Value: value, LineNo: lineNo, Start: valueStart}
		return line
	}

	if d.indentContinues && (text[0] == ' ' || text[0] == '\t') && c.lastID != "" {
		start := len(text) - len(strings.TrimLeft(text, " \t"))
		if d.variant != nil {
			if loc := d.variant.FindStringIndex(text); loc != nil {
				start = loc[1]
			}
		}
		line.Kind = Decl
		line.Decl = &Declaration{ID: c.lastID, Value: text[start:], LineNo: lineNo, Start: start}
		return line
	}

	if d.wholeLine {
		line.Kind = Decl
		line.Decl = &Declaration{Value: text, LineNo: lineNo}
		return line
	}

	line.Kind = Other
	return line
}
