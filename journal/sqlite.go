// Package journal persists contrast tables from analysis runs so that
// successive analyses of the same study are comparable.  SQLite is the
// primary store; a CSV writer covers one-off exports.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/clinstat/cfbcontrast/emmeans"
)

// SQLiteJournal records analysis runs in a SQLite database.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) a journal database at path.
func NewSQLite(path string) (*SQLiteJournal, error) {

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

// Close closes the underlying database.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// NewRunID returns a fresh lexically sortable run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

// RecordRun stores one contrast table under runID.  Not-estimable
// rows are stored with NULL statistics.
func (j *SQLiteJournal) RecordRun(runID string, created time.Time, input string, tab *emmeans.ContrastTable) error {

	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	bp := 0
	if tab.BenefitPositive {
		bp = 1
	}
	_, err = tx.Exec(`
		INSERT INTO runs (run_id, created, input, active, placebo, ci_mult, benefit_positive)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, created.UTC().Format(time.RFC3339), input,
		tab.Active, tab.Placebo, tab.CIMult, bp,
	)
	if err != nil {
		return fmt.Errorf("journal: record run: %w", err)
	}

	for _, c := range tab.Records {
		var est, se, lo, hi interface{}
		estimable := 0
		if c.Estimable {
			est, se, lo, hi = c.Estimate, c.SE, c.Lower, c.Upper
			estimable = 1
		}
		_, err = tx.Exec(`
			INSERT INTO contrasts (run_id, visit, subgroup, estimate, stderr, lower, upper, estimable)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, c.Visit, c.Subgroup, est, se, lo, hi, estimable,
		)
		if err != nil {
			return fmt.Errorf("journal: record contrast: %w", err)
		}
	}

	return tx.Commit()
}

// GetContrasts reads back the contrast rows for a run, in visit then
// subgroup order.
func (j *SQLiteJournal) GetContrasts(runID string) ([]emmeans.Contrast, error) {

	rows, err := j.db.Query(`
		SELECT visit, subgroup, estimate, stderr, lower, upper, estimable
		FROM contrasts WHERE run_id = ?
		ORDER BY visit, subgroup`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []emmeans.Contrast
	for rows.Next() {
		var c emmeans.Contrast
		var est, se, lo, hi sql.NullFloat64
		var estimable int
		if err := rows.Scan(&c.Visit, &c.Subgroup, &est, &se, &lo, &hi, &estimable); err != nil {
			return nil, err
		}
		if estimable == 1 {
			c.Estimable = true
			c.Estimate = est.Float64
			c.SE = se.Float64
			c.Lower = lo.Float64
			c.Upper = hi.Float64
		}
		recs = append(recs, c)
	}

	return recs, rows.Err()
}
