package store

const schemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	hypothesis   TEXT NOT NULL,
	context      TEXT,
	started_at   TEXT NOT NULL,
	finished_at  TEXT,
	verdict      TEXT,
	confidence   REAL,
	iterations   INTEGER NOT NULL DEFAULT 0,
	interrupted  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS reports (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	iteration   INTEGER NOT NULL,
	verdict     TEXT NOT NULL,
	confidence  REAL NOT NULL,
	report_json TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	PRIMARY KEY (run_id, iteration)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`
