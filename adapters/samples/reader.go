package samples

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dixonq/internal/errors"
	"dixonq/ports"

	"github.com/tidwall/gjson"
	"github.com/xuri/excelize/v2"
)

// Option customises a DataReader
type Option func(*DataReader)

// WithColumns restricts tabular sources to the named columns, in that order
func WithColumns(names ...string) Option {
	return func(r *DataReader) {
		r.columns = append(r.columns, names...)
	}
}

// WithSheet selects the worksheet of an xlsx file; the first sheet is the default
func WithSheet(name string) Option {
	return func(r *DataReader) {
		r.sheet = name
	}
}

// WithJSONPath selects the part of a JSON document holding the samples
func WithJSONPath(path string) Option {
	return func(r *DataReader) {
		r.jsonPath = path
	}
}

// DataReader loads sample series from csv, xlsx, json or plain text files.
//
// Tabular files carry a header row; each numeric column becomes one series.
// JSON documents may be an array of numbers or an object of such arrays.
// Plain text is a list of numbers separated by whitespace or commas.
type DataReader struct {
	filePath string
	fileType string // "csv", "xlsx", "json" or "text"
	columns  []string
	sheet    string
	jsonPath string
}

// NewDataReader creates a reader, choosing the format from the file extension
func NewDataReader(filePath string, opts ...Option) *DataReader {
	r := &DataReader{filePath: filePath, fileType: detectFileType(filePath)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func detectFileType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		return "csv"
	case ".xlsx", ".xlsm":
		return "xlsx"
	case ".json":
		return "json"
	default:
		return "text"
	}
}

var _ ports.SampleReader = (*DataReader)(nil)

// ReadSeries reads the file into named series
func (r *DataReader) ReadSeries(ctx context.Context) ([]ports.SampleSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.NotFound(fmt.Sprintf("%s file %s", strings.ToUpper(r.fileType), r.filePath))
	}

	start := time.Now()
	var (
		series []ports.SampleSeries
		err    error
	)
	switch r.fileType {
	case "csv":
		series, err = r.readCSV()
	case "xlsx":
		series, err = r.readExcel()
	case "json":
		series, err = r.readJSON()
	default:
		series, err = r.readText()
	}
	if err != nil {
		return nil, err
	}

	log.Printf("[SampleReader] %s read in %.2fms (%d series)",
		r.filePath, float64(time.Since(start).Nanoseconds())/1e6, len(series))
	return series, nil
}

func (r *DataReader) readCSV() ([]ports.SampleSeries, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("failed to read CSV file: %w", err))
	}
	return r.processRows(rows)
}

func (r *DataReader) readExcel() ([]ports.SampleSeries, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("failed to open Excel file: %w", err))
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.InvalidInput("Excel file has no worksheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("failed to read sheet %s: %w", sheet, err))
	}
	return r.processRows(rows)
}

// processRows turns a header row plus data rows into one series per column.
// Blank cells are skipped. Explicitly requested columns must be fully
// numeric; otherwise non-numeric columns are dropped.
func (r *DataReader) processRows(rows [][]string) ([]ports.SampleSeries, error) {
	if len(rows) < 2 {
		return nil, errors.InvalidInput("file must have a header row and at least one data row")
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	headers = uniqueNames(headers)
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[h] = i
	}

	selected := make([]int, 0, len(headers))
	strict := len(r.columns) > 0
	if strict {
		for _, name := range r.columns {
			i, ok := index[name]
			if !ok {
				return nil, errors.NotFound(fmt.Sprintf("column %q", name))
			}
			selected = append(selected, i)
		}
	} else {
		for i := range headers {
			selected = append(selected, i)
		}
	}

	var series []ports.SampleSeries
	for _, col := range selected {
		values, err := columnValues(rows[1:], col)
		if err != nil {
			if strict {
				return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("column %q: %w", headers[col], err))
			}
			log.Printf("[SampleReader] skipping non-numeric column %q: %v", headers[col], err)
			continue
		}
		series = append(series, ports.SampleSeries{Name: headers[col], Values: values})
	}

	if len(series) == 0 {
		return nil, errors.InvalidInput("no numeric columns found")
	}
	return series, nil
}

// uniqueNames gives every series a distinct, non-empty name. A blank name
// becomes column_<position>; a repeated one gets the first free _2, _3 suffix.
func uniqueNames(names []string) []string {
	out := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	for i, name := range names {
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		out[i] = name
		taken[name] = true
	}

	claimed := make(map[string]bool, len(out))
	for i, name := range out {
		if !claimed[name] {
			claimed[name] = true
			continue
		}
		for k := 2; ; k++ {
			candidate := fmt.Sprintf("%s_%d", name, k)
			if !taken[candidate] {
				taken[candidate] = true
				claimed[candidate] = true
				out[i] = candidate
				break
			}
		}
	}
	return out
}

func columnValues(rows [][]string, col int) ([]float64, error) {
	values := make([]float64, 0, len(rows))
	for i, row := range rows {
		if col >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[col])
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %q is not a number", i+2, cell)
		}
		values = append(values, v)
	}
	return values, nil
}

func (r *DataReader) readJSON() ([]ports.SampleSeries, error) {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read JSON file")
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.InvalidInput("file is not valid JSON")
	}

	root := gjson.ParseBytes(data)
	name := "values"
	if r.jsonPath != "" {
		root = gjson.GetBytes(data, r.jsonPath)
		name = r.jsonPath
		if !root.Exists() {
			return nil, errors.NotFound(fmt.Sprintf("JSON path %q", r.jsonPath))
		}
	}

	switch {
	case root.IsArray():
		values, err := jsonNumbers(root)
		if err != nil {
			return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("%s: %w", name, err))
		}
		return []ports.SampleSeries{{Name: name, Values: values}}, nil
	case root.IsObject():
		var (
			series  []ports.SampleSeries
			walkErr error
		)
		root.ForEach(func(key, value gjson.Result) bool {
			if !value.IsArray() {
				return true
			}
			values, err := jsonNumbers(value)
			if err != nil {
				walkErr = fmt.Errorf("%s: %w", key.String(), err)
				return false
			}
			series = append(series, ports.SampleSeries{Name: key.String(), Values: values})
			return true
		})
		if walkErr != nil {
			return nil, errors.WithCode(errors.CodeInvalidInput, walkErr)
		}
		if len(series) == 0 {
			return nil, errors.InvalidInput("JSON object holds no arrays of numbers")
		}
		names := make([]string, len(series))
		for i := range series {
			names[i] = series[i].Name
		}
		for i, name := range uniqueNames(names) {
			series[i].Name = name
		}
		return series, nil
	default:
		return nil, errors.InvalidInput("JSON samples must be an array or an object of arrays")
	}
}

func jsonNumbers(arr gjson.Result) ([]float64, error) {
	items := arr.Array()
	values := make([]float64, 0, len(items))
	for i, item := range items {
		if item.Type != gjson.Number {
			return nil, fmt.Errorf("element %d (%s) is not a number", i, item.Raw)
		}
		values = append(values, item.Float())
	}
	return values, nil
}

func (r *DataReader) readText() ([]ports.SampleSeries, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	values, err := ParseValues(file)
	if err != nil {
		return nil, err
	}
	return []ports.SampleSeries{{Name: filepath.Base(r.filePath), Values: values}}, nil
}
