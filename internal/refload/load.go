package refload

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/ehr/claimcoder/internal/domain/billing"
	"github.com/ehr/claimcoder/internal/platform/db"
)

const readBatchSize = 1024

// Result summarizes one load.
type Result struct {
	RowsRead     int64
	RowsLoaded   int64
	RowsRejected int64
	Duration     time.Duration
}

// rowReader is satisfied by *Reader.
type rowReader interface {
	Read(rows []billing.RelativeValue) (int, error)
}

type Loader struct {
	pool   db.Beginner
	logger zerolog.Logger
}

func NewLoader(pool db.Beginner, logger zerolog.Logger) *Loader {
	return &Loader{pool: pool, logger: logger.With().Str("component", "refload").Logger()}
}

// LoadFile copies the Parquet file at path into a temporary table and
// upserts it into reference_rvu in one transaction. Rows without a year are
// assigned defaultYear.
func (l *Loader) LoadFile(ctx context.Context, path string, defaultYear int32) (*Result, error) {
	reader, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	l.logger.Info().Str("file", path).Int64("rows", reader.NumRows()).Msg("loading relative values")
	return l.Load(ctx, reader, defaultYear)
}

func (l *Loader) Load(ctx context.Context, r rowReader, defaultYear int32) (*Result, error) {
	start := time.Now()
	res := &Result{}

	err := db.WithTx(ctx, l.pool, func(ctx context.Context) error {
		tx := db.TxFromContext(ctx)
		if _, err := tx.Exec(ctx, `CREATE TEMP TABLE rvu_stage (LIKE reference_rvu INCLUDING DEFAULTS) ON COMMIT DROP`); err != nil {
			return fmt.Errorf("create staging table: %w", err)
		}

		ch := make(chan *billing.RelativeValue, readBatchSize)
		errc := make(chan error, 1)
		go func() {
			defer close(ch)
			read, rejected, err := l.produce(ctx, r, defaultYear, ch)
			res.RowsRead, res.RowsRejected = read, rejected
			errc <- err
		}()

		copied, err := tx.CopyFrom(ctx, pgx.Identifier{"rvu_stage"}, billing.RVUCopyColumns, db.NewChannelSource(ch, errc))
		if err != nil {
			// unblock the producer before returning
			for range ch {
			}
			return fmt.Errorf("copy relative values: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO reference_rvu (procedure_code, work_rvu, practice_expense_rvu, malpractice_rvu, year)
			SELECT DISTINCT ON (procedure_code, year) procedure_code, work_rvu, practice_expense_rvu, malpractice_rvu, year
			FROM rvu_stage
			ORDER BY procedure_code, year
			ON CONFLICT (procedure_code, year) DO UPDATE SET
				work_rvu = EXCLUDED.work_rvu,
				practice_expense_rvu = EXCLUDED.practice_expense_rvu,
				malpractice_rvu = EXCLUDED.malpractice_rvu`)
		if err != nil {
			return fmt.Errorf("upsert relative values: %w", err)
		}
		l.logger.Debug().Int64("staged", copied).Int64("upserted", tag.RowsAffected()).Msg("staging merged")
		res.RowsLoaded = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	l.logger.Info().
		Int64("rows_read", res.RowsRead).
		Int64("rows_loaded", res.RowsLoaded).
		Int64("rows_rejected", res.RowsRejected).
		Str("duration", res.Duration.String()).
		Msg("relative values loaded")
	return res, nil
}

// produce reads r to the end, sending valid rows on out. It does not close
// out.
func (l *Loader) produce(ctx context.Context, r rowReader, defaultYear int32, out chan<- *billing.RelativeValue) (read, rejected int64, err error) {
	buf := make([]billing.RelativeValue, readBatchSize)
	for {
		n, readErr := r.Read(buf)
		for i := 0; i < n; i++ {
			read++
			row := buf[i]
			if err := normalize(&row, defaultYear); err != nil {
				rejected++
				l.logger.Warn().Err(err).Int64("row", read).Msg("row rejected")
				continue
			}
			select {
			case out <- &row:
			case <-ctx.Done():
				return read, rejected, ctx.Err()
			}
		}
		if readErr == io.EOF {
			return read, rejected, nil
		}
		if readErr != nil {
			return read, rejected, fmt.Errorf("read parquet at row %d: %w", read, readErr)
		}
	}
}

func normalize(rv *billing.RelativeValue, defaultYear int32) error {
	rv.ProcedureCode = strings.ToUpper(strings.TrimSpace(rv.ProcedureCode))
	if rv.ProcedureCode == "" {
		return fmt.Errorf("procedure_code is empty")
	}
	if rv.WorkRVU < 0 || rv.PracticeExpenseRVU < 0 || rv.MalpracticeRVU < 0 {
		return fmt.Errorf("%s: negative rvu component", rv.ProcedureCode)
	}
	if rv.Year == 0 {
		rv.Year = defaultYear
	}
	return nil
}
