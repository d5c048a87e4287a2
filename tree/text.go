package tree

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNotText is returned by ReadText for content that is not valid text
// after decoding.
var ErrNotText = errors.New("not valid UTF-8 text")

// ReadText reads a resource file as text. A UTF-8 byte order mark is
// stripped and UTF-16 content with a byte order mark is transcoded to UTF-8.
func ReadText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	// The UTF-8 decoder substitutes U+FFFD for invalid input, so validity
	// has to be checked on the raw bytes.
	if !hasUTF16BOM(raw) && !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: %s", ErrNotText, path)
	}
	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return string(decoded), nil
}

func hasUTF16BOM(b []byte) bool {
	return len(b) >= 2 && (b[0] == 0xFE && b[1] == 0xFF || b[0] == 0xFF && b[1] == 0xFE)
}

// SplitLines splits text into lines without their terminators. CRLF and LF
// both end a line. trailing reports whether the last line was terminated.
func SplitLines(text string) (lines []string, trailing bool) {
	if text == "" {
		return nil, false
	}
	trailing = strings.HasSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\n")

	lines = strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines, trailing
}

// JoinLines is the inverse of SplitLines with LF line endings.
func JoinLines(lines []string, trailing bool) string {
	out := strings.Join(lines, "\n")
	if trailing {
		out += "\n"
	}
	return out
}
