package export

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// postgresDDL recreates the output tables inside the write transaction.
var postgresDDL = []string{
	`DROP TABLE IF EXISTS integrations, initial_contracts, contracts, kpis`,
	`CREATE TABLE integrations (
		site_id TEXT NOT NULL,
		vendor_id TEXT NOT NULL,
		category TEXT NOT NULL,
		integration_quality SMALLINT NOT NULL,
		PRIMARY KEY (site_id, vendor_id)
	)`,
	`CREATE TABLE initial_contracts (
		contract_id UUID PRIMARY KEY,
		site_id TEXT NOT NULL,
		category TEXT NOT NULL,
		vendor_id TEXT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE,
		start_month INTEGER NOT NULL,
		end_month INTEGER
	)`,
	`CREATE TABLE contracts (
		contract_id UUID PRIMARY KEY,
		site_id TEXT NOT NULL,
		category TEXT NOT NULL,
		vendor_id TEXT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE,
		start_month INTEGER NOT NULL,
		end_month INTEGER
	)`,
	`CREATE INDEX idx_contracts_pair ON contracts (site_id, category, start_month)`,
	`CREATE TABLE kpis (
		site_id TEXT NOT NULL,
		month DATE NOT NULL,
		month_index INTEGER NOT NULL,
		days_ar DOUBLE PRECISION NOT NULL,
		denial_rate DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (site_id, month_index)
	)`,
}

var (
	integrationCopyCols = []string{"site_id", "vendor_id", "category", "integration_quality"}
	contractCopyCols    = []string{"contract_id", "site_id", "category", "vendor_id", "start_date", "end_date", "start_month", "end_month"}
	kpiCopyCols         = []string{"site_id", "month", "month_index", "days_ar", "denial_rate"}
)

// copyTarget is the subset of pgx.Tx used to load tables.
type copyTarget interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// postgresSink bulk-loads every table with COPY in one transaction.
type postgresSink struct {
	conn *pgx.Conn
}

func openPostgres(ctx context.Context, connStr string) (*postgresSink, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &postgresSink{conn: conn}, nil
}

func (s *postgresSink) Write(ctx context.Context, t *Tables) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := loadPostgres(ctx, tx, t); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *postgresSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.conn.Close(ctx)
}

// loadPostgres recreates the schema and copies every table into target.
func loadPostgres(ctx context.Context, target copyTarget, t *Tables) error {
	for _, stmt := range postgresDDL {
		if _, err := target.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	integrations := make([][]any, len(t.Integrations))
	for i, r := range t.Integrations {
		integrations[i] = []any{r.SiteID, r.VendorID, r.Category, int16(r.IntegrationQuality)}
	}
	initial, err := contractCopyRows(t.InitialContracts)
	if err != nil {
		return err
	}
	contracts, err := contractCopyRows(t.Contracts)
	if err != nil {
		return err
	}
	kpis := make([][]any, len(t.KPIs))
	for i, k := range t.KPIs {
		month, err := time.Parse(dateLayout, k.Month)
		if err != nil {
			return fmt.Errorf("kpi month %q: %w", k.Month, err)
		}
		kpis[i] = []any{k.SiteID, month, k.MonthIndex, k.DaysAR, k.DenialRate}
	}

	for _, c := range []struct {
		table string
		cols  []string
		rows  [][]any
	}{
		{TableIntegrations, integrationCopyCols, integrations},
		{TableInitialContracts, contractCopyCols, initial},
		{TableContracts, contractCopyCols, contracts},
		{TableKPIs, kpiCopyCols, kpis},
	} {
		copied, err := target.CopyFrom(ctx, pgx.Identifier{c.table}, c.cols, pgx.CopyFromRows(c.rows))
		if err != nil {
			return fmt.Errorf("copy %s: %w", c.table, err)
		}
		if copied != int64(len(c.rows)) {
			return fmt.Errorf("copy %s: wrote %d of %d rows", c.table, copied, len(c.rows))
		}
	}
	return nil
}

func contractCopyRows(rows []ContractRow) ([][]any, error) {
	out := make([][]any, len(rows))
	for i, c := range rows {
		id, err := uuid.Parse(c.ContractID)
		if err != nil {
			return nil, fmt.Errorf("contract_id %q: %w", c.ContractID, err)
		}
		start, err := time.Parse(dateLayout, c.StartDate)
		if err != nil {
			return nil, fmt.Errorf("contract %s start_date: %w", c.ContractID, err)
		}
		var end any
		if c.EndDate != nil {
			d, err := time.Parse(dateLayout, *c.EndDate)
			if err != nil {
				return nil, fmt.Errorf("contract %s end_date: %w", c.ContractID, err)
			}
			end = d
		}
		var endMonth any
		if c.EndMonth != nil {
			endMonth = *c.EndMonth
		}
		out[i] = []any{id, c.SiteID, c.Category, c.VendorID, start, end, c.StartMonth, endMonth}
	}
	return out, nil
}
