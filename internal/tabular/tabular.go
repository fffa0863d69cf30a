// Package tabular reads header-addressed CSV artifacts.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Row is one CSV record addressed by header name.
type Row struct {
	fields []string
	idx    map[string]int
}

// String returns the trimmed value of col, or "" when absent.
func (r Row) String(col string) string {
	i, ok := r.idx[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// maxExactInt is the largest magnitude a float64 holds without losing integer precision.
const maxExactInt = 1 << 53

// Int parses col as an int. "2.0" is accepted; "2.9" is not.
func (r Row) Int(col string) (int, error) {
	v := r.String(col)
	if v == "" {
		return 0, fmt.Errorf("column %s: empty", col)
	}
	// Ids exported by pandas sometimes carry a trailing ".0".
	if strings.Contains(v, ".") {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f != math.Trunc(f) || math.Abs(f) > maxExactInt {
			return 0, fmt.Errorf("column %s: %q is not an integer", col, v)
		}
		return int(f), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", col, err)
	}
	return n, nil
}

// Float parses col as a float64. Empty values read as 0.
func (r Row) Float(col string) (float64, error) {
	v := r.String(col)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", col, err)
	}
	return f, nil
}

// ReadFile opens path and calls fn for every data row.
func ReadFile(path string, required []string, fn func(line int, row Row) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := Read(f, required, fn); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Read calls fn for every data row in r. The first record is the header and
// must contain every column in required.
func Read(r io.Reader, required []string, fn func(line int, row Row) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty file")
		}
		return err
	}
	idx := headerIndex(header)
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return fmt.Errorf("missing column %s", col)
		}
	}

	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(line, Row{fields: rec, idx: idx}); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if _, dup := idx[col]; !dup {
			idx[col] = i
		}
	}
	return idx
}
