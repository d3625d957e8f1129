package export

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// sqliteSchema recreates the output tables, so a rerun replaces earlier output.
const sqliteSchema = `
DROP TABLE IF EXISTS integrations;
DROP TABLE IF EXISTS initial_contracts;
DROP TABLE IF EXISTS contracts;
DROP TABLE IF EXISTS kpis;

CREATE TABLE integrations (
    site_id TEXT NOT NULL,
    vendor_id TEXT NOT NULL,
    category TEXT NOT NULL,
    integration_quality INTEGER NOT NULL,
    PRIMARY KEY (site_id, vendor_id)
);

CREATE TABLE initial_contracts (
    contract_id TEXT PRIMARY KEY,
    site_id TEXT NOT NULL,
    category TEXT NOT NULL,
    vendor_id TEXT NOT NULL,
    start_date TEXT NOT NULL,
    end_date TEXT,
    start_month INTEGER NOT NULL,
    end_month INTEGER
);

CREATE TABLE contracts (
    contract_id TEXT PRIMARY KEY,
    site_id TEXT NOT NULL,
    category TEXT NOT NULL,
    vendor_id TEXT NOT NULL,
    start_date TEXT NOT NULL,
    end_date TEXT,       -- NULL while active
    start_month INTEGER NOT NULL,
    end_month INTEGER
);
CREATE INDEX idx_contracts_pair ON contracts(site_id, category, start_month);

CREATE TABLE kpis (
    site_id TEXT NOT NULL,
    month TEXT NOT NULL,
    month_index INTEGER NOT NULL,
    days_ar REAL NOT NULL,
    denial_rate REAL NOT NULL,
    PRIMARY KEY (site_id, month_index)
);
`

// sqliteSink writes every table into one SQLite database in a single transaction.
type sqliteSink struct {
	db *sql.DB
}

func openSQLite(ctx context.Context, path string) (*sqliteSink, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &sqliteSink{db: db}, nil
}

func (s *sqliteSink) Write(ctx context.Context, t *Tables) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	err = insertRows(ctx, tx, `INSERT INTO integrations (site_id, vendor_id, category, integration_quality) VALUES (?, ?, ?, ?)`,
		len(t.Integrations), func(i int) []any {
			r := t.Integrations[i]
			return []any{r.SiteID, r.VendorID, r.Category, r.IntegrationQuality}
		})
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", TableIntegrations, err)
	}
	for _, table := range []struct {
		name string
		rows []ContractRow
	}{{TableInitialContracts, t.InitialContracts}, {TableContracts, t.Contracts}} {
		rows := table.rows
		err = insertRows(ctx, tx, `INSERT INTO `+table.name+` (contract_id, site_id, category, vendor_id, start_date, end_date, start_month, end_month)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			len(rows), func(i int) []any {
				c := rows[i]
				return []any{c.ContractID, c.SiteID, c.Category, c.VendorID, c.StartDate, nullString(c.EndDate), c.StartMonth, nullInt32(c.EndMonth)}
			})
		if err != nil {
			return fmt.Errorf("failed to insert %s: %w", table.name, err)
		}
	}
	err = insertRows(ctx, tx, `INSERT INTO kpis (site_id, month, month_index, days_ar, denial_rate) VALUES (?, ?, ?, ?, ?)`,
		len(t.KPIs), func(i int) []any {
			k := t.KPIs[i]
			return []any{k.SiteID, k.Month, k.MonthIndex, k.DaysAR, k.DenialRate}
		})
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", TableKPIs, err)
	}

	return tx.Commit()
}

func (s *sqliteSink) Close() error { return s.db.Close() }

func insertRows(ctx context.Context, tx *sql.Tx, query string, n int, args func(i int) []any) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt32(v *int32) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: *v, Valid: true}
}
