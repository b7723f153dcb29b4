package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinstat/cfbcontrast/emmeans"
)

func newTestSQLite(t *testing.T) (*SQLiteJournal, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func testTable() *emmeans.ContrastTable {
	return &emmeans.ContrastTable{
		Active:          1,
		Placebo:         0,
		BenefitPositive: true,
		CIMult:          1.96,
		Records: []emmeans.Contrast{
			{Visit: 56, Subgroup: 0},
			{Visit: 56, Subgroup: 1, Estimate: 1.2, SE: 0.4, Lower: 0.416, Upper: 1.984, Estimable: true},
			{Visit: 84, Subgroup: 0, Estimate: 2.1, SE: 0.5, Lower: 1.12, Upper: 3.08, Estimable: true},
			{Visit: 84, Subgroup: 1, Estimate: 2.4, SE: 0.5, Lower: 1.42, Upper: 3.38, Estimable: true},
		},
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	_, path := newTestSQLite(t)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('runs','contrasts')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["runs"])
	assert.True(t, found["contrasts"])
}

func TestSQLiteRecordRunRoundTrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	tab := testTable()
	runID := NewRunID()
	created := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	require.NoError(t, j.RecordRun(runID, created, "input.csv", tab))

	got, err := j.GetContrasts(runID)
	require.NoError(t, err)
	require.Len(t, got, len(tab.Records))

	// GetContrasts orders by visit then subgroup, matching the
	// construction order of testTable.
	for i, want := range tab.Records {
		assert.Equal(t, want, got[i])
	}

	// The not-estimable row is stored with NULL statistics.
	ne := got[0]
	assert.False(t, ne.Estimable)
	assert.Zero(t, ne.Estimate)
	assert.Zero(t, ne.SE)
}

func TestSQLiteRunMetadata(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)

	tab := testTable()
	runID := NewRunID()
	created := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, j.RecordRun(runID, created, "nlmixr_theo_sd.csv", tab))
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var input, createdStr string
	var active, placebo, cimult float64
	var bp int
	err = db.QueryRow(`SELECT input, created, active, placebo, ci_mult, benefit_positive FROM runs WHERE run_id = ?`, runID).
		Scan(&input, &createdStr, &active, &placebo, &cimult, &bp)
	require.NoError(t, err)

	assert.Equal(t, "nlmixr_theo_sd.csv", input)
	assert.Equal(t, "2026-03-04T05:06:07Z", createdStr)
	assert.Equal(t, 1.0, active)
	assert.Equal(t, 0.0, placebo)
	assert.Equal(t, 1.96, cimult)
	assert.Equal(t, 1, bp)
}

func TestSQLiteDuplicateRunRejected(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	tab := testTable()
	runID := NewRunID()
	require.NoError(t, j.RecordRun(runID, time.Now(), "a.csv", tab))
	assert.Error(t, j.RecordRun(runID, time.Now(), "a.csv", tab))
}

func TestNewRunIDSortable(t *testing.T) {
	t.Parallel()

	a := NewRunID()
	b := NewRunID()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}
