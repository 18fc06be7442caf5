package repository

// Schema for one per-event database. rank_record ids are monotonic; the row
// with the greatest id per rank is that rank's current head.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS time_record (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts INTEGER NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS user_record (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rank_record (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	score INTEGER NOT NULL,
	rank INTEGER NOT NULL,
	user_record_id INTEGER NOT NULL REFERENCES user_record(id),
	time_record_id INTEGER NOT NULL REFERENCES time_record(id)
);

CREATE INDEX IF NOT EXISTS idx_rank_record_user ON rank_record(user_record_id);
CREATE INDEX IF NOT EXISTS idx_rank_record_time ON rank_record(time_record_id);
CREATE INDEX IF NOT EXISTS idx_rank_record_rank_id ON rank_record(rank, id DESC);
CREATE INDEX IF NOT EXISTS idx_rank_record_rank_time ON rank_record(rank, time_record_id);
`
