package journal

// Schema creates the journal tables.  A run row records the
// configuration the contrasts were computed under; contrast rows carry
// a NULL estimate when the combination was not estimable, which is
// distinct from a zero effect.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id           TEXT PRIMARY KEY,
	created          TEXT NOT NULL,
	input            TEXT,
	active           REAL NOT NULL,
	placebo          REAL NOT NULL,
	ci_mult          REAL NOT NULL,
	benefit_positive INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS contrasts (
	run_id    TEXT NOT NULL REFERENCES runs(run_id),
	visit     REAL NOT NULL,
	subgroup  REAL NOT NULL,
	estimate  REAL,
	stderr    REAL,
	lower     REAL,
	upper     REAL,
	estimable INTEGER NOT NULL,
	PRIMARY KEY (run_id, visit, subgroup)
);
`
