package converter

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/l10nkit/metrics"
	"github.com/c360studio/l10nkit/policy"
)

var sourceTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func writeSource(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		require.NoError(t, os.Chtimes(path, sourceTime, sourceTime))
	}
}

func newTable(t *testing.T, tokens map[string][]string) *policy.FilterTable {
	t.Helper()
	table, err := policy.NewFilterTable([]string{"ja", "ja-JP-mac"}, tokens, map[string]string{"vendor": "Mozilla"})
	require.NoError(t, err)
	return table
}

func newConverter(t *testing.T, table *policy.FilterTable, src, dest string, product ...string) *Converter {
	t.Helper()
	c, err := New(Options{
		SourceRoot: src,
		DestRoot:   dest,
		Filters:    table,
		Product:    product,
	})
	require.NoError(t, err)
	return c
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestConvert_ResolvesToken(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	writeSource(t, src, map[string]string{"a.properties": "greeting = Hello @@brand@@\n"})
	table := newTable(t, map[string][]string{"brand": {"ブランド", "ブランド"}})

	res, err := newConverter(t, table, src, dest).Convert(context.Background(), "ja")
	require.NoError(t, err)

	assert.Equal(t, Result{Locale: "ja", Converted: 1}, res)
	assert.Equal(t, "greeting = Hello ブランド\n", readOutput(t, filepath.Join(dest, "ja", "a.properties")))
}

func TestConvert_UnresolvedTokenKeptVerbatim(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	writeSource(t, src, map[string]string{"a.properties": "greeting = Hello @@brand@@\n"})
	table := newTable(t, nil)

	res, err := newConverter(t, table, src, dest).Convert(context.Background(), "ja")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Converted)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 1, res.Unresolved)
	assert.False(t, res.Failed())
	assert.Equal(t, "greeting = Hello @@brand@@\n", readOutput(t, filepath.Join(dest, "ja", "a.properties")))
}

func TestConvert_UnknownLocale(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	writeSource(t, src, map[string]string{"a.properties": "a = b\n"})

	_, err := newConverter(t, newTable(t, nil), src, dest).Convert(context.Background(), "de")
	assert.ErrorIs(t, err, policy.ErrUnknownLocale)

	_, statErr := os.Stat(filepath.Join(dest, "de"))
	assert.ErrorIs(t, statErr, fs.ErrNotExist, "nothing is created for an unknown locale")
}

func TestConvert_Tree(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	writeSource(t, src, map[string]string{
		"browser/brand.ftl": "# @@brand@@ stays in comments\n" +
			"brand-name = @@brand@@\n" +
			"    .title = @@vendor@@ @@brand@@\n",
		"browser/branding/logo.png": "\x89PNG\r\n\x1a\n\x00binary",
		"toolkit/dom.dtd":           "<!-- @@brand@@ -->\n<!ENTITY name \"@@brand@@\">",
		"toolkit/intl.css":          "/* @@brand@@ */\n#x { content: \"@@[@@\"; }\r\n",
		"empty.ini":                 "",
		".hg/store/data":            "ignored",
		"mail/.DS_Store":            "ignored",
	})
	table := newTable(t, map[string][]string{
		"brand": {"Firefox", "Firefox Mac"},
		"[":     {"［", "［"},
	})

	res, err := newConverter(t, table, src, dest).Convert(context.Background(), "ja-JP-mac")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Converted)
	assert.Equal(t, 1, res.Copied)
	assert.Equal(t, 1, res.Skipped, "empty text file is a conversion failure")
	assert.Equal(t, 5, res.Total())
	assert.True(t, res.Failed())

	out := filepath.Join(dest, "ja-JP-mac")
	assert.Equal(t, "# @@brand@@ stays in comments\n"+
		"brand-name = Firefox Mac\n"+
		"    .title = Mozilla Firefox Mac\n",
		readOutput(t, filepath.Join(out, "browser", "brand.ftl")))
	assert.Equal(t, "<!-- @@brand@@ -->\n<!ENTITY name \"Firefox Mac\">",
		readOutput(t, filepath.Join(out, "toolkit", "dom.dtd")))
	assert.Equal(t, "/* @@brand@@ */\n#x { content: \"［\"; }\n",
		readOutput(t, filepath.Join(out, "toolkit", "intl.css")))
	assert.Equal(t, "\x89PNG\r\n\x1a\n\x00binary",
		readOutput(t, filepath.Join(out, "browser", "branding", "logo.png")))

	for _, rel := range []string{"empty.ini", ".hg", "mail"} {
		_, err := os.Stat(filepath.Join(out, rel))
		assert.ErrorIs(t, err, fs.ErrNotExist, rel)
	}

	for _, rel := range []string{"browser/brand.ftl", "browser/branding/logo.png"} {
		info, err := os.Stat(filepath.Join(out, filepath.FromSlash(rel)))
		require.NoError(t, err)
		assert.True(t, info.ModTime().Equal(sourceTime), "%s mtime tracks the source", rel)
	}
}

func TestConvert_CommentsVerbatimPerDialect(t *testing.T) {
	tests := []struct {
		file string
		in   string
		want string
	}{
		{"a.ftl", "# @@brand@@\n## @@brand@@\nk = @@brand@@\n", "# @@brand@@\n## @@brand@@\nk = ブランド\n"},
		{"a.properties", "# @@brand@@\n! @@brand@@\nk = @@brand@@\n", "# @@brand@@\n! @@brand@@\nk = ブランド\n"},
		{"a.ini", "; @@brand@@\n# @@brand@@\n[Strings]\nk=@@brand@@\n", "; @@brand@@\n# @@brand@@\n[Strings]\nk=ブランド\n"},
		{"a.dtd", "<!-- @@brand@@\n     @@brand@@ -->\n<!ENTITY k \"@@brand@@\">\n", "<!-- @@brand@@\n     @@brand@@ -->\n<!ENTITY k \"ブランド\">\n"},
		{"a.css", "/* @@brand@@\n   @@brand@@ */\n#k { content: \"@@brand@@\"; }\n", "/* @@brand@@\n   @@brand@@ */\n#k { content: \"ブランド\"; }\n"},
		{"a.inc", "# @@brand@@\n## @@brand@@\n#define K @@brand@@\n", "# @@brand@@\n## @@brand@@\n#define K ブランド\n"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			src, dest := t.TempDir(), t.TempDir()
			writeSource(t, src, map[string]string{tt.file: tt.in})
			table := newTable(t, map[string][]string{"brand": {"ブランド", "ブランド"}})

			res, err := newConverter(t, table, src, dest).Convert(context.Background(), "ja")
			require.NoError(t, err)

			assert.Equal(t, Result{Locale: "ja", Converted: 1}, res)
			assert.Equal(t, tt.want, readOutput(t, filepath.Join(dest, "ja", tt.file)))
		})
	}
}

func TestConvert_TokensOutsideSingleLineDeclarations(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	writeSource(t, src, map[string]string{
		"a.dtd":        "<!ENTITY foo \"Hello\n  @@brand@@ world\">\n",
		"b.properties": "key[0] = @@brand@@\nkey[1] = @@missing@@\n",
	})
	table := newTable(t, map[string][]string{"brand": {"ブランド", "ブランド"}})

	res, err := newConverter(t, table, src, dest).Convert(context.Background(), "ja")
	require.NoError(t, err)

	assert.Equal(t, Result{Locale: "ja", Converted: 2, Unresolved: 1}, res)
	assert.Equal(t, "<!ENTITY foo \"Hello\n  ブランド world\">\n",
		readOutput(t, filepath.Join(dest, "ja", "a.dtd")))
	assert.Equal(t, "key[0] = ブランド\nkey[1] = @@missing@@\n",
		readOutput(t, filepath.Join(dest, "ja", "b.properties")))
}

func TestConvert_Idempotent(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	writeSource(t, src, map[string]string{
		"browser/a.properties": "title=@@brand@@\nkey=value \\\n  @@brand@@\n",
		"browser/b.ini":        "[Strings]\nTitle=@@brand@@\n",
	})
	table := newTable(t, map[string][]string{"brand": {"ブランド", "ブランド"}})
	c := newConverter(t, table, src, dest)

	snapshot := func() map[string]string {
		out := map[string]string{}
		root := filepath.Join(dest, "ja")
		require.NoError(t, filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			require.NoError(t, err)
			if d.IsDir() {
				return nil
			}
			rel, _ := filepath.Rel(root, path)
			info, _ := d.Info()
			out[rel] = readOutput(t, path) + "|" + info.ModTime().UTC().String()
			return nil
		}))
		return out
	}

	_, err := c.Convert(context.Background(), "ja")
	require.NoError(t, err)
	first := snapshot()

	_, err = c.Convert(context.Background(), "ja")
	require.NoError(t, err)
	assert.Equal(t, first, snapshot())
	assert.Contains(t, first[filepath.Join("browser", "a.properties")], "key=value \\\n  ブランド\n")
}

func TestConvert_RemovesStaleOutput(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	writeSource(t, src, map[string]string{"a.properties": "a = b\n"})
	stale := filepath.Join(dest, "ja", "old", "stale.properties")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0755))
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0644))

	_, err := newConverter(t, newTable(t, nil), src, dest).Convert(context.Background(), "ja")
	require.NoError(t, err)

	_, err = os.Stat(stale)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestConvert_ProductFilter(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	writeSource(t, src, map[string]string{
		"browser/a.properties": "a = b\n",
		"mail/b.properties":    "a = b\n",
		"top.properties":       "a = b\n",
	})

	res, err := newConverter(t, newTable(t, nil), src, dest, "browser", "toolkit").Convert(context.Background(), "ja")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Converted)

	_, err = os.Stat(filepath.Join(dest, "ja", "browser", "a.properties"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dest, "ja", "mail"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestConvert_InvalidTextSkipped(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	writeSource(t, src, map[string]string{
		"a.properties": "a = \xff\xfe\xfd\n",
		"b.properties": "b = c\n",
	})
	rec := metrics.NewRecorder()
	c, err := New(Options{SourceRoot: src, DestRoot: dest, Filters: newTable(t, nil), Metrics: rec})
	require.NoError(t, err)

	res, err := c.Convert(context.Background(), "ja")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Converted)

	_, err = os.Stat(filepath.Join(dest, "ja", "a.properties"))
	assert.ErrorIs(t, err, fs.ErrNotExist, "no partial output for a failed file")

	expected := `
# HELP l10nkit_convert_files_total Files processed by the converter, by locale and outcome.
# TYPE l10nkit_convert_files_total counter
l10nkit_convert_files_total{locale="ja",result="converted"} 1
l10nkit_convert_files_total{locale="ja",result="skipped"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected), "l10nkit_convert_files_total"))
}

func TestConvertAll(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	writeSource(t, src, map[string]string{"a.properties": "a = @@brand@@\n"})
	table := newTable(t, map[string][]string{"brand": {"ブランド", "ブランド（Mac）"}})

	results, err := newConverter(t, table, src, dest).ConvertAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "ja", results[0].Locale)
	assert.Equal(t, "ja-JP-mac", results[1].Locale)
	assert.Equal(t, "a = ブランド（Mac）\n", readOutput(t, filepath.Join(dest, "ja-JP-mac", "a.properties")))
}

func TestConvert_Cancelled(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	writeSource(t, src, map[string]string{"a.properties": "a = b\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newConverter(t, newTable(t, nil), src, dest).Convert(ctx, "ja")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_Validation(t *testing.T) {
	table := newTable(t, nil)
	tests := []struct {
		name string
		opts Options
	}{
		{"no source", Options{DestRoot: "d", Filters: table}},
		{"no dest", Options{SourceRoot: "s", Filters: table}},
		{"no filters", Options{SourceRoot: "s", DestRoot: "d"}},
		{"bad exclude", Options{SourceRoot: "s", DestRoot: "d", Filters: table, Exclude: []string{"a/[b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			assert.Error(t, err)
		})
	}
}
