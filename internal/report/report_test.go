package report

import (
	"bytes"
	"strings"
	"testing"

	"dixonq/domain/dixon"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows(t *testing.T) []Row {
	t.Helper()
	large, err := dixon.Evaluate([]float64{5, 1, 1}, dixon.Confidence95)
	require.NoError(t, err)
	flat, err := dixon.Evaluate([]float64{2, 2, 2}, dixon.Confidence95)
	require.NoError(t, err)
	return []Row{
		{Series: "sensor_a", Window: 1, Eval: large},
		{Series: "sensor_a", Window: 2, Eval: flat},
	}
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{"": FormatText, "TEXT": FormatText, "md": FormatMarkdown, "markdown": FormatMarkdown, "html": FormatHTML} {
		got, err := ParseFormat(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestRender_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatText, "", sampleRows(t)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "sensor_a #1 n=3 level=95% q_small=0.0000 q_big=1.0000 critical=0.970 -> large_outlier high=5", lines[0])
	assert.Contains(t, lines[1], "-> no_outlier")
	assert.Contains(t, lines[1], "(all values equal)")
}

func TestRender_Markdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatMarkdown, "Line 4", sampleRows(t)))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# Line 4\n"))
	assert.Contains(t, out, "| sensor_a | 1 | 3 | 95% | 0.0000 | 1.0000 | 0.970 | large_outlier | - | 5 |")
}

func TestRender_HTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatHTML, "Line 4", sampleRows(t)))

	out := buf.String()
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>large_outlier</td>")
}

func TestRender_HTMLEscapesNames(t *testing.T) {
	eval, err := dixon.Evaluate([]float64{5, 1, 1}, dixon.Confidence95)
	require.NoError(t, err)
	rows := []Row{{Series: "<script>alert(1)</script>", Window: 1, Eval: eval}}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatHTML, "<b>run</b> & [link](javascript:x)", rows))

	out := buf.String()
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<b>")
	assert.NotContains(t, out, "href=")
	assert.Contains(t, out, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.Contains(t, out, "&amp;")
}

func TestRender_MarkdownEscapesPipes(t *testing.T) {
	eval, err := dixon.Evaluate([]float64{5, 1, 1}, dixon.Confidence95)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatMarkdown, "", []Row{{Series: "a|b", Window: 1, Eval: eval}}))
	assert.Contains(t, buf.String(), `| a\|b | 1 |`)
}

func TestRenderCriticalValues(t *testing.T) {
	var text bytes.Buffer
	require.NoError(t, RenderCriticalValues(&text, FormatText))
	lines := strings.Split(strings.TrimSpace(text.String()), "\n")
	require.Len(t, lines, 1+dixon.MaxSampleSize-dixon.MinSampleSize+1)
	assert.Equal(t, []string{"3", "0.941", "0.970", "0.994"}, strings.Fields(lines[1]))

	var md bytes.Buffer
	require.NoError(t, RenderCriticalValues(&md, FormatMarkdown))
	assert.Contains(t, md.String(), "| 30 | 0.260 | 0.290 | 0.372 |")

	var html bytes.Buffer
	require.NoError(t, RenderCriticalValues(&html, FormatHTML))
	assert.Contains(t, html.String(), "<th>Q99</th>")
}
