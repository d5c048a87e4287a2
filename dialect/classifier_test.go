package dialect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// classifyAll runs a fresh classifier over content and returns every line.
func classifyAll(t *testing.T, ext, content string) []Line {
	t.Helper()
	d, err := DefaultRegistry.ForExtension(ext)
	require.NoError(t, err)

	c := d.NewClassifier()
	var out []Line
	for i, text := range strings.Split(content, "\n") {
		out = append(out, c.Classify(i+1, text))
	}
	return out
}

func TestClassify_Fluent(t *testing.T) {
	lines := classifyAll(t, ".ftl", strings.Join([]string{
		"# This Source Code Form is subject to the terms",
		"## Section",
		"",
		"menu-file = ファイル",
		"    .accesskey = F",
		"tabs-close =",
		"    { $count ->",
		"        [one] タブを閉じる",
		"       *[other] { $count } 個のタブを閉じる",
		"    }",
		"-brand-short-name = Firefox",
		"#not-a-comment = kept",
	}, "\n"))

	kinds := make([]LineKind, len(lines))
	for i, l := range lines {
		kinds[i] = l.Kind
	}
	assert.Equal(t, []LineKind{Comment, Comment, Blank, Decl, Decl, KeyOnly, Marker, Decl, Decl, Marker, Decl, Other}, kinds)

	assert.Equal(t, "menu-file", lines[3].Decl.ID)
	assert.Equal(t, "ファイル", lines[3].Decl.Value)
	assert.Equal(t, "menu-file.accesskey", lines[4].Decl.ID)
	assert.Equal(t, "F", lines[4].Decl.Value)
	assert.Equal(t, "tabs-close", lines[7].Decl.ID)
	assert.Equal(t, "タブを閉じる", lines[7].Decl.Value)
	assert.Equal(t, "{ $count } 個のタブを閉じる", lines[8].Decl.Value)
	assert.Equal(t, "-brand-short-name", lines[10].Decl.ID)
}

func TestClassify_Properties(t *testing.T) {
	lines := classifyAll(t, ".properties", strings.Join([]string{
		"# comment",
		"! bang comment",
		"greeting = Hello @@brand@@",
		"colon: value",
		"empty =",
		"multi = first \\",
		"    second",
		"escaped = ends with \\\\",
		"after = done",
	}, "\n"))

	assert.Equal(t, Comment, lines[0].Kind)
	assert.Equal(t, Comment, lines[1].Kind)
	require.Equal(t, Decl, lines[2].Kind)
	assert.Equal(t, "greeting", lines[2].Decl.ID)
	assert.Equal(t, "Hello @@brand@@", lines[2].Decl.Value)
	assert.Equal(t, "value", lines[3].Decl.Value)
	assert.Equal(t, KeyOnly, lines[4].Kind)

	require.Equal(t, Decl, lines[6].Kind)
	assert.Equal(t, "multi", lines[6].Decl.ID)
	assert.Equal(t, "second", lines[6].Decl.Value)
	assert.Equal(t, 4, lines[6].Decl.Start)

	// An even number of trailing backslashes does not continue.
	assert.Equal(t, "after", lines[8].Decl.ID)
}

func TestClassify_INI(t *testing.T) {
	lines := classifyAll(t, ".ini", "; comment\n[Strings]\nTitle=セットアップ\nEmpty=")

	assert.Equal(t, Comment, lines[0].Kind)
	assert.Equal(t, Marker, lines[1].Kind)
	assert.Equal(t, "Title", lines[2].Decl.ID)
	assert.Equal(t, "セットアップ", lines[2].Decl.Value)
	assert.Equal(t, KeyOnly, lines[3].Kind)
}

func TestClassify_DTD(t *testing.T) {
	lines := classifyAll(t, ".dtd", strings.Join([]string{
		"<!-- single line comment -->",
		"<!-- LOCALIZATION NOTE:",
		"     <!ENTITY inside.comment \"not a declaration\">",
		"-->",
		`<!ENTITY window.title "ウィンドウ">`,
		`<!ENTITY single.quoted 'シングル'>`,
	}, "\n"))

	assert.Equal(t, Comment, lines[0].Kind)
	assert.Equal(t, Comment, lines[1].Kind)
	assert.Equal(t, Comment, lines[2].Kind)
	assert.Equal(t, Comment, lines[3].Kind)
	assert.Equal(t, "window.title", lines[4].Decl.ID)
	assert.Equal(t, "ウィンドウ", lines[4].Decl.Value)
	assert.Equal(t, "シングル", lines[5].Decl.Value)
}

func TestClassify_DTDMultiLineEntity(t *testing.T) {
	lines := classifyAll(t, ".dtd", strings.Join([]string{
		`<!ENTITY intro.text "最初の行`,
		`  @@brand@@ の続き`,
		`  最後の行">`,
		`<!ENTITY next 'a`,
		`b'>`,
		`<!ENTITY after "普通">`,
	}, "\n"))

	for i, want := range []struct {
		id, value string
	}{
		{"intro.text", "最初の行"},
		{"intro.text", "@@brand@@ の続き"},
		{"intro.text", "最後の行"},
		{"next", "a"},
		{"next", "b"},
		{"after", "普通"},
	} {
		require.Equal(t, Decl, lines[i].Kind, "line %d", i+1)
		assert.Equal(t, want.id, lines[i].Decl.ID, "line %d", i+1)
		assert.Equal(t, want.value, lines[i].Decl.Value, "line %d", i+1)
	}
	assert.Equal(t, "  ブランド の続き", lines[1].WithValue("ブランド の続き"))
	assert.Equal(t, "  X\">", lines[2].WithValue("X"))
}

func TestClassify_CSSAndInclude(t *testing.T) {
	css := classifyAll(t, ".css", "/* a\n   b */\n#dialog { width: @@width@@; }")
	assert.Equal(t, Comment, css[0].Kind)
	assert.Equal(t, Comment, css[1].Kind)
	require.Equal(t, Decl, css[2].Kind)
	assert.Empty(t, css[2].Decl.ID)
	assert.Equal(t, "#dialog { width: @@width@@; }", css[2].Decl.Value)

	inc := classifyAll(t, ".inc", "# comment\n#define MOZ_LANGPACK_CREATOR @@creator@@\n#filter emptyLines")
	assert.Equal(t, Comment, inc[0].Kind)
	assert.Equal(t, "MOZ_LANGPACK_CREATOR", inc[1].Decl.ID)
	assert.Equal(t, "@@creator@@", inc[1].Decl.Value)
	assert.Equal(t, Decl, inc[2].Kind)
}

func TestLine_WithValue(t *testing.T) {
	c := propertiesDialect.NewClassifier()
	line := c.Classify(1, "greeting = Hello @@brand@@\r")
	require.NotNil(t, line.Decl)
	assert.Equal(t, "greeting = Hello ブランド", line.WithValue("Hello ブランド"))

	comment := c.Classify(2, "# keep @@brand@@")
	assert.Equal(t, "# keep @@brand@@", comment.WithValue("ignored"))
}

func TestClassify_CommentsAreNeverDeclarations(t *testing.T) {
	comments := map[string]string{
		".ftl":        "# @@brand@@ = x",
		".properties": "# key = @@brand@@",
		".ini":        "; key=@@brand@@",
		".dtd":        `<!-- <!ENTITY a "@@brand@@"> -->`,
		".css":        "/* @@brand@@ */",
		".inc":        "# #define X @@brand@@",
		".inc ##":     "## @@brand@@ notes",
	}
	for ext, text := range comments {
		t.Run(ext, func(t *testing.T) {
			lines := classifyAll(t, strings.Fields(ext)[0], text)
			assert.Equal(t, Comment, lines[0].Kind)
			assert.Nil(t, lines[0].Decl)
		})
	}
}
