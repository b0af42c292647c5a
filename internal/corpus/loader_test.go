package corpus

import (
	"os"
	"strings"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activity-rag/internal/models"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCodeFor(t *testing.T) {
	assert.Equal(t, "ACT-404", CodeFor("/data/act-404.txt"))
	assert.Equal(t, "SWIM.LESSONS", CodeFor("swim.lessons.md"))
}

func TestLoadFileText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "act-404.txt", "Open Swim\n\nOverview: Lap lanes open.\n\n\n")

	doc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ACT-404", doc.Code)
	assert.Equal(t, "Open Swim\n\nOverview: Lap lanes open.", doc.Body)
}

func TestLoadFileMarkdown(t *testing.T) {
	md := "# Trail Day\n\nOverview: Volunteer *cleanup* on\nthe loop.\n\n- gloves\n- bags\n"
	path := writeFile(t, t.TempDir(), "trail.md", md)

	doc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "TRAIL", doc.Code)
	assert.Equal(t, "Trail Day\n\nOverview: Volunteer cleanup on the loop.\n\ngloves\n\nbags", doc.Body)
}

func TestLoadFileUnsupported(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.rtf", "x")
	_, err := LoadFile(path)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.False(t, Supported(path))
}

func TestLoadPathsWalksDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "Overview: second")
	writeFile(t, dir, "a.md", "Overview: first")
	writeFile(t, dir, "nested/c.txt", "Location: third")
	writeFile(t, dir, "empty.txt", "   ")
	writeFile(t, dir, "ignored.json", "{}")

	docs, err := LoadPaths([]string{dir})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "A", docs[0].Code)
	assert.Equal(t, "B", docs[1].Code)
	assert.Equal(t, "C", docs[2].Code)
}

func TestLoadPathsDuplicateCode(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "act.txt", "one")
	b := writeFile(t, dir, "other/act.md", "two")

	_, err := LoadPaths([]string{a, b})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestLoadPathsMissing(t *testing.T) {
	_, err := LoadPaths([]string{filepath.Join(t.TempDir(), "missing")})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestXMLParagraphs(t *testing.T) {
	content := `<w:body><w:p><w:r><w:t>Fee:</w:t></w:r><w:r><w:t xml:space="preserve"> $12 &amp; up</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t></w:t></w:r></w:p><w:p w:rsidR="1"><w:r><w:t>Ages 16+</w:t></w:r></w:p></w:body>`

	assert.Equal(t, []string{"Fee: $12 & up", "Ages 16+"}, xmlParagraphs(content, docxParagraphRe, docxTextRe))
}

func TestSheetText(t *testing.T) {
	rows := [][]string{{"Code", "Fee"}, {"", ""}, {"ACT-101", "12"}}
	assert.Equal(t, "Sheet: Fees\nCode\tFee\nACT-101\t12", sheetText("Fees", rows))
	assert.Empty(t, sheetText("Empty", [][]string{{""}}))
}

func TestHTMLParagraphs(t *testing.T) {
	page := `<html><head><title>ACT-505</title><style>p { color: red }</style></head>
<body><h1>Open  Swim</h1><p>Overview: Lap lanes &amp; free swim.</p>
<script>var x = 1;</script><ul><li>Location: North pool</li></ul>Fee: $5<br>Ages 8+</body></html>`

	paras, err := htmlParagraphs(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ACT-505",
		"Open Swim",
		"Overview: Lap lanes & free swim.",
		"Location: North pool",
		"Fee: $5",
		"Ages 8+",
	}, paras)
}
