package samples

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"dixonq/internal/errors"
	"dixonq/ports"
)

// ParseValues reads numbers separated by whitespace, commas or semicolons.
// Lines starting with '#' are comments.
func ParseValues(r io.Reader) ([]float64, error) {
	scanner := bufio.NewScanner(r)
	var values []float64
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(c rune) bool {
			return unicode.IsSpace(c) || c == ',' || c == ';'
		})
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.InvalidInput(fmt.Sprintf("line %d: %q is not a number", line, field))
			}
			values = append(values, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read values")
	}
	return values, nil
}

// StreamReader adapts an io.Reader (stdin, a pipe) to ports.SampleReader
type StreamReader struct {
	name string
	r    io.Reader
}

// NewStreamReader wraps r as a single named series
func NewStreamReader(name string, r io.Reader) *StreamReader {
	return &StreamReader{name: name, r: r}
}

var _ ports.SampleReader = (*StreamReader)(nil)

// ReadSeries reads every value from the underlying reader
func (s *StreamReader) ReadSeries(ctx context.Context) ([]ports.SampleSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	values, err := ParseValues(s.r)
	if err != nil {
		return nil, err
	}
	return []ports.SampleSeries{{Name: s.name, Values: values}}, nil
}
