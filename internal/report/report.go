package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"dixonq/domain/dixon"
	"dixonq/internal/errors"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Format selects how evaluations are rendered
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts text, markdown (md) or html
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	}
	return "", errors.InvalidInput(fmt.Sprintf("unknown output format %q", s))
}

// Row is one evaluation of a named series. Window counts completed
// windows within that series, starting at 1.
type Row struct {
	Series string
	Window int
	Eval   *dixon.Evaluation
}

// Render writes rows in the requested format
func Render(w io.Writer, format Format, title string, rows []Row) error {
	switch format {
	case FormatText:
		return renderText(w, rows)
	case FormatMarkdown:
		_, err := w.Write(evaluationsMarkdown(title, rows))
		return err
	case FormatHTML:
		_, err := w.Write(toHTML(evaluationsMarkdown(title, rows)))
		return err
	}
	return errors.InvalidInput(fmt.Sprintf("unknown output format %q", format))
}

func renderText(w io.Writer, rows []Row) error {
	for _, row := range rows {
		e := row.Eval
		line := fmt.Sprintf("%s #%d n=%d level=%s q_small=%.4f q_big=%.4f critical=%.3f -> %s",
			row.Series, row.Window, e.SampleSize, e.Level, e.QSmall, e.QBig, e.Critical, e.Classification)
		if e.Low != nil {
			line += " low=" + formatFloat(*e.Low)
		}
		if e.High != nil {
			line += " high=" + formatFloat(*e.High)
		}
		if e.Degenerate {
			line += " (all values equal)"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func evaluationsMarkdown(title string, rows []Row) []byte {
	var buf bytes.Buffer
	if title != "" {
		fmt.Fprintf(&buf, "# %s\n\n", escapeCell(title))
	}
	buf.WriteString("| Series | Window | N | Level | Q small | Q big | Critical | Result | Low | High |\n")
	buf.WriteString("|---|---|---|---|---|---|---|---|---|---|\n")
	for _, row := range rows {
		e := row.Eval
		fmt.Fprintf(&buf, "| %s | %d | %d | %s | %.4f | %.4f | %.3f | %s | %s | %s |\n",
			escapeCell(row.Series), row.Window, e.SampleSize, e.Level,
			e.QSmall, e.QBig, e.Critical, e.Classification,
			optionalFloat(e.Low), optionalFloat(e.High))
	}
	return buf.Bytes()
}

// RenderCriticalValues writes the critical value table for n = 3..30
func RenderCriticalValues(w io.Writer, format Format) error {
	var buf bytes.Buffer
	buf.WriteString("| N |")
	for _, level := range dixon.ConfidenceLevels {
		fmt.Fprintf(&buf, " Q%d |", int(level))
	}
	buf.WriteString("\n|---|")
	for range dixon.ConfidenceLevels {
		buf.WriteString("---|")
	}
	buf.WriteString("\n")

	var text bytes.Buffer
	fmt.Fprintf(&text, "%-4s", "N")
	for _, level := range dixon.ConfidenceLevels {
		fmt.Fprintf(&text, " %7s", "Q"+strconv.Itoa(int(level)))
	}
	text.WriteString("\n")

	for n := dixon.MinSampleSize; n <= dixon.MaxSampleSize; n++ {
		fmt.Fprintf(&buf, "| %d |", n)
		fmt.Fprintf(&text, "%-4d", n)
		for _, level := range dixon.ConfidenceLevels {
			v, err := dixon.CriticalValue(n, level)
			if err != nil {
				return err
			}
			fmt.Fprintf(&buf, " %.3f |", v)
			fmt.Fprintf(&text, " %7.3f", v)
		}
		buf.WriteString("\n")
		text.WriteString("\n")
	}

	var err error
	switch format {
	case FormatText:
		_, err = w.Write(text.Bytes())
	case FormatMarkdown:
		_, err = w.Write(buf.Bytes())
	case FormatHTML:
		_, err = w.Write(toHTML(buf.Bytes()))
	default:
		err = errors.InvalidInput(fmt.Sprintf("unknown output format %q", format))
	}
	return err
}

func toHTML(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.SkipHTML})
	return markdown.ToHTML(md, p, r)
}

func optionalFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// cellEscaper keeps user text literal: no table breaks, inline HTML or links
var cellEscaper = strings.NewReplacer(
	`\`, `\\`,
	"|", `\|`,
	"<", `\<`,
	">", `\>`,
	"&", `\&`,
	"[", `\[`,
	"]", `\]`,
	"`", "\\`",
)

func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}
