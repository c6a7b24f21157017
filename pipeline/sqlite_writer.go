package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aluiziolira/stockreport/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reports (
	run_id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS cells (
	run_id TEXT NOT NULL REFERENCES reports(run_id),
	row_index INTEGER NOT NULL,
	col_index INTEGER NOT NULL,
	name TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (run_id, row_index, col_index)
);
`

// SQLiteWriter stores each report as one run in a SQLite database. Unlike
// the file writers it keeps earlier runs.
type SQLiteWriter struct {
	Path  string
	RunID string
}

// Write inserts report under RunID, generating one when empty.
func (sw *SQLiteWriter) Write(report *models.Report) error {
	if report.Empty() {
		return nil
	}
	if err := ensureDir(sw.Path); err != nil {
		return err
	}
	runID := sw.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	db, err := sql.Open("sqlite", sw.Path+"?mode=rwc")
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO reports (run_id, title, created_at) VALUES (?, ?, ?)",
		runID, report.Title, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO cells (run_id, row_index, col_index, name, value) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare cells: %w", err)
	}
	defer stmt.Close()

	for row, record := range report.Records {
		for col, f := range record.Fields {
			if _, err := stmt.ExecContext(ctx, runID, row, col, f.Name, f.Value); err != nil {
				return fmt.Errorf("insert cell %d/%d: %w", row, col, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report: %w", err)
	}
	return nil
}
