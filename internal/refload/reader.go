// Package refload bulk-loads Medicare relative value units from Parquet
// files into reference_rvu.
package refload

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/ehr/claimcoder/internal/domain/billing"
)

// Reader streams RelativeValue rows from a Parquet file.
type Reader struct {
	file   *os.File
	reader *parquet.GenericReader[billing.RelativeValue]
}

func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	if err := ValidateSchema(pf.Schema()); err != nil {
		f.Close()
		return nil, err
	}
	return &Reader{file: f, reader: parquet.NewGenericReader[billing.RelativeValue](pf)}, nil
}

func (r *Reader) NumRows() int64 {
	return r.reader.NumRows()
}

// Read fills rows and returns io.EOF after the last batch.
func (r *Reader) Read(rows []billing.RelativeValue) (int, error) {
	n, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("read parquet rows: %w", err)
	}
	return n, err
}

func (r *Reader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// ValidateSchema requires the code and the three RVU components. year is
// optional and falls back to the load's default year.
func ValidateSchema(schema *parquet.Schema) error {
	columns := make(map[string]bool)
	for _, field := range schema.Fields() {
		columns[strings.ToLower(field.Name())] = true
	}
	for _, col := range []string{"procedure_code", "work_rvu", "practice_expense_rvu", "malpractice_rvu"} {
		if !columns[col] {
			return fmt.Errorf("missing required column: %s", col)
		}
	}
	return nil
}
