package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// parquetSink writes one snappy-compressed file per table.
type parquetSink struct {
	dir string
}

func (s *parquetSink) Write(ctx context.Context, t *Tables) error {
	if err := writeParquet(ctx, filepath.Join(s.dir, TableIntegrations+".parquet"), t.Integrations); err != nil {
		return err
	}
	if err := writeParquet(ctx, filepath.Join(s.dir, TableInitialContracts+".parquet"), t.InitialContracts); err != nil {
		return err
	}
	if err := writeParquet(ctx, filepath.Join(s.dir, TableContracts+".parquet"), t.Contracts); err != nil {
		return err
	}
	return writeParquet(ctx, filepath.Join(s.dir, TableKPIs+".parquet"), t.KPIs)
}

func (s *parquetSink) Close() error { return nil }

// parquetRowGroupSize bounds the rows buffered per row group.
const parquetRowGroupSize = 50_000

func writeParquet[T any](ctx context.Context, path string, rows []T) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	writer := parquet.NewGenericWriter[T](file,
		parquet.Compression(&parquet.Snappy),
	)

	for start := 0; start < len(rows); start += parquetRowGroupSize {
		if err := ctx.Err(); err != nil {
			writer.Close()
			file.Close()
			return err
		}
		end := min(start+parquetRowGroupSize, len(rows))
		if _, err := writer.Write(rows[start:end]); err != nil {
			writer.Close()
			file.Close()
			return fmt.Errorf("failed to write parquet rows to %s: %w", path, err)
		}
		if err := writer.Flush(); err != nil {
			writer.Close()
			file.Close()
			return fmt.Errorf("failed to flush parquet row group: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return file.Close()
}
