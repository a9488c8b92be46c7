// Package spectra reads and writes the text files exchanged with the
// covariance tools: column tables of power spectra, plain vectors and
// covariance matrices.
package spectra

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadRows reads a table of whitespace-separated numbers row by row.
// Blank lines and lines starting with # are skipped.
// Every row must have the same number of fields.
func ReadRows(r io.Reader) ([][]float64, error) {
	var rows [][]float64
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for line := 1; s.Scan(); line++ {
		fields := strings.Fields(s.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if len(rows) > 0 && len(fields) != len(rows[0]) {
			return nil, fmt.Errorf("line %d: %d fields, want %d", line, len(fields), len(rows[0]))
		}
		row := make([]float64, len(fields))
		for i, f := range fields {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			row[i] = x
		}
		rows = append(rows, row)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data")
	}
	return rows, nil
}

// ReadColumns reads a table like ReadRows and returns it by column.
func ReadColumns(r io.Reader) ([][]float64, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return nil, err
	}
	cols := make([][]float64, len(rows[0]))
	for j := range cols {
		cols[j] = make([]float64, len(rows))
		for i, row := range rows {
			cols[j][i] = row[j]
		}
	}
	return cols, nil
}

// LoadRows reads a table from a file, for example a flat-sky mask.
func LoadRows(fname string) ([][]float64, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	rows, err := ReadRows(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	return rows, nil
}

// LoadColumns reads a column table from a file.
func LoadColumns(fname string) ([][]float64, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cols, err := ReadColumns(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	return cols, nil
}

// LoadVector reads a file with one number per line.
func LoadVector(fname string) ([]float64, error) {
	cols, err := LoadColumns(fname)
	if err != nil {
		return nil, err
	}
	if len(cols) != 1 {
		return nil, fmt.Errorf("%s: %d columns, want 1", fname, len(cols))
	}
	return cols[0], nil
}
