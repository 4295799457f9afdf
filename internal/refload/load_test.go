package refload

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"

	"github.com/ehr/claimcoder/internal/domain/billing"
)

func writeFixture(t *testing.T, rows []billing.RelativeValue) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rvu.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := parquet.NewGenericWriter[billing.RelativeValue](f)
	if _, err := w.Write(rows); err != nil {
		t.Fatalf("write rows: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func drain(t *testing.T, r rowReader, defaultYear int32) ([]*billing.RelativeValue, int64, int64) {
	t.Helper()
	l := NewLoader(nil, zerolog.Nop())
	ch := make(chan *billing.RelativeValue, readBatchSize)
	var (
		read, rejected int64
		err            error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(ch)
		read, rejected, err = l.produce(context.Background(), r, defaultYear, ch)
	}()
	var out []*billing.RelativeValue
	for rv := range ch {
		out = append(out, rv)
	}
	<-done
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	return out, read, rejected
}

func TestReader_RoundTrip(t *testing.T) {
	path := writeFixture(t, []billing.RelativeValue{
		{ProcedureCode: "99213", WorkRVU: 1.3, PracticeExpenseRVU: 1.25, MalpracticeRVU: 0.09, Year: 2026},
		{ProcedureCode: " 99214 ", WorkRVU: 1.92, PracticeExpenseRVU: 1.42, MalpracticeRVU: 0.13},
		{ProcedureCode: "", WorkRVU: 1},
		{ProcedureCode: "93000", WorkRVU: -0.17},
	})

	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	if r.NumRows() != 4 {
		t.Errorf("expected 4 rows, got %d", r.NumRows())
	}

	rows, read, rejected := drain(t, r, 2025)
	if read != 4 || rejected != 2 || len(rows) != 2 {
		t.Fatalf("expected 4 read, 2 rejected, 2 kept; got %d, %d, %d", read, rejected, len(rows))
	}
	if rows[0].Year != 2026 {
		t.Errorf("expected explicit year kept, got %d", rows[0].Year)
	}
	if rows[1].ProcedureCode != "99214" || rows[1].Year != 2025 {
		t.Errorf("expected trimmed code with default year, got %+v", rows[1])
	}
}

type wrongShape struct {
	Code string  `parquet:"code"`
	RVU  float64 `parquet:"rvu"`
}

func TestOpen_RejectsMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.parquet")
	if err := parquet.WriteFile(path, []wrongShape{{Code: "99213", RVU: 1.3}}); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected schema error")
	}
}

func TestOpen_MissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "absent.parquet")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_NoDatabase(t *testing.T) {
	l := NewLoader(nil, zerolog.Nop())
	if _, err := l.Load(context.Background(), nil, 2026); err == nil {
		t.Error("expected error without a database")
	}
}
