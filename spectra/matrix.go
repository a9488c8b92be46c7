package spectra

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// SaveMatrixExt writes a matrix in a format chosen by the file extension:
// (i, j, value) records for .csv, whitespace-separated rows otherwise.
func SaveMatrixExt(fname string, m mat.Matrix) (err error) {
	file, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	switch path.Ext(fname) {
	case ".csv":
		return EncodeMatrixCSV(file, m)
	default:
		return EncodeMatrixText(file, m)
	}
}

// LoadMatrixExt reads a matrix written by SaveMatrixExt.
func LoadMatrixExt(fname string) (*mat.Dense, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var m *mat.Dense
	switch path.Ext(fname) {
	case ".csv":
		m, err = DecodeMatrixCSV(file)
	default:
		m, err = DecodeMatrixText(file)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	return m, nil
}

// EncodeMatrixCSV writes one (i, j, value) record per element.
func EncodeMatrixCSV(w io.Writer, m mat.Matrix) error {
	ww := csv.NewWriter(w)
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if err := ww.Write(formatRecord(i, j, m.At(i, j))); err != nil {
				return err
			}
		}
	}
	ww.Flush()
	return ww.Error()
}

func formatRecord(i, j int, x float64) []string {
	return []string{
		strconv.Itoa(i),
		strconv.Itoa(j),
		strconv.FormatFloat(x, 'g', -1, 64),
	}
}

// DecodeMatrixCSV reads records written by EncodeMatrixCSV.
// The size is the largest index seen; missing elements are zero.
func DecodeMatrixCSV(r io.ReadSeeker) (*mat.Dense, error) {
	rows, cols, err := decodeMatrixSizeCSV(r)
	if err != nil {
		return nil, err
	}
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("empty matrix")
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	m := mat.NewDense(rows, cols, nil)
	rr := csv.NewReader(r)
	for {
		rec, err := rr.Read()
		if err == io.EOF {
			return m, nil
		}
		if err != nil {
			return nil, err
		}
		i, j, x, err := parseRecord(rec)
		if err != nil {
			return nil, err
		}
		m.Set(i, j, x)
	}
}

func decodeMatrixSizeCSV(r io.Reader) (rows, cols int, err error) {
	rr := csv.NewReader(r)
	for {
		rec, err := rr.Read()
		if err == io.EOF {
			return rows, cols, nil
		}
		if err != nil {
			return 0, 0, err
		}
		i, j, _, err := parseRecord(rec)
		if err != nil {
			return 0, 0, err
		}
		rows = max(rows, i+1)
		cols = max(cols, j+1)
	}
}

func parseRecord(s []string) (i, j int, x float64, err error) {
	if len(s) != 3 {
		err = fmt.Errorf("wrong number of elements in record: %d (expect 3)", len(s))
		return
	}
	if i, err = strconv.Atoi(s[0]); err != nil {
		return
	}
	if j, err = strconv.Atoi(s[1]); err != nil {
		return
	}
	if i < 0 || j < 0 {
		err = fmt.Errorf("negative index: (%d, %d)", i, j)
		return
	}
	x, err = strconv.ParseFloat(s[2], 64)
	return
}

// EncodeMatrixText writes one whitespace-separated row per line.
func EncodeMatrixText(w io.Writer, m mat.Matrix) error {
	bw := bufio.NewWriter(w)
	r, c := m.Dims()
	buf := make([]byte, 0, 32)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if j > 0 {
				bw.WriteByte(' ')
			}
			buf = strconv.AppendFloat(buf[:0], m.At(i, j), 'e', 18, 64)
			bw.Write(buf)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// DecodeMatrixText reads a matrix written by EncodeMatrixText or any
// whitespace table with rows of equal length.
func DecodeMatrixText(r io.Reader) (*mat.Dense, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return nil, err
	}
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return m, nil
}

// AllClose reports whether a and b have the same shape and every pair of
// elements satisfies |a - b| <= rtol min(|a|, |b|).
func AllClose(a, b mat.Matrix, rtol float64) bool {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ra != rb || ca != cb {
		return false
	}
	for i := 0; i < ra; i++ {
		for j := 0; j < ca; j++ {
			x, y := a.At(i, j), b.At(i, j)
			if math.Abs(x-y) > rtol*math.Min(math.Abs(x), math.Abs(y)) {
				return false
			}
		}
	}
	return true
}
