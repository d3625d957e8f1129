package export

import (
	"context"
	"fmt"
	"os"
)

// Format names an output backend.
type Format string

const (
	FormatParquet  Format = "parquet"
	FormatCSV      Format = "csv"
	FormatSQLite   Format = "sqlite"
	FormatPostgres Format = "postgres"
)

var validFormats = map[Format]bool{
	FormatParquet:  true,
	FormatCSV:      true,
	FormatSQLite:   true,
	FormatPostgres: true,
}

// IsValidFormat returns true if name is a recognized output format.
func IsValidFormat(name string) bool {
	return validFormats[Format(name)]
}

// ValidFormatNames returns the recognized formats, default first.
func ValidFormatNames() []string {
	return []string{string(FormatParquet), string(FormatCSV), string(FormatSQLite), string(FormatPostgres)}
}

// Sink receives the output tables of one run.
type Sink interface {
	Write(ctx context.Context, t *Tables) error
	Close() error
}

// Open returns the sink for format. target is a directory for parquet and csv,
// a database file for sqlite and a connection string for postgres. File-based
// targets are created if missing.
func Open(ctx context.Context, format Format, target string) (Sink, error) {
	switch format {
	case FormatParquet, FormatCSV:
		if err := os.MkdirAll(target, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
		if format == FormatParquet {
			return &parquetSink{dir: target}, nil
		}
		return &csvSink{dir: target}, nil
	case FormatSQLite:
		return openSQLite(ctx, target)
	case FormatPostgres:
		return openPostgres(ctx, target)
	default:
		return nil, fmt.Errorf("unknown output format %q; valid: %v", format, ValidFormatNames())
	}
}
