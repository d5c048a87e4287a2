package proofreader

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// WriteText renders the file's findings as a block headed by its path.
// Nothing is written for a clean file.
func (r *FileReport) WriteText(w io.Writer) error {
	if len(r.Findings) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(r.Path)
	b.WriteByte('\n')
	for _, f := range r.Findings {
		fmt.Fprintf(&b, "  %s  @line %d: %s\t%s\n", f.Category.Marker(), f.Line, f.ID, formatItems(f.Items))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteText renders every file block followed by the results summary.
func (r *TreeReport) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Check for %s locale.\n\n", r.Locale); err != nil {
		return err
	}
	for _, f := range r.Files {
		if err := f.WriteText(w); err != nil {
			return err
		}
	}
	return WriteSummary(w, r.Locale, r.Totals)
}

// WriteSummary writes the closing per-category counts.
func WriteSummary(w io.Writer, locale string, t Totals) error {
	_, err := fmt.Fprintf(w, "\nResults (%s):\nWord errors\t%d\nSuspected words\t%d\nChar errors\t%d\n",
		locale, t.Deny, t.Suspected, t.Char)
	return err
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func formatItems(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = "'" + it + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
