package db

// migrationsSQL creates the pipeline tables. study_sessions belongs to the
// study-portal backend; it is created here only when missing so the pipeline
// can link vocabulary to a session.
const migrationsSQL = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS songs (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	artist     TEXT NOT NULL DEFAULT '',
	lyrics     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS study_sessions (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	group_id            INTEGER NOT NULL,
	study_activity_id   INTEGER NOT NULL,
	external_session_id INTEGER,
	created_at          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS vocabulary (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	song_id          TEXT NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
	study_session_id INTEGER REFERENCES study_sessions(id),
	position         INTEGER NOT NULL,
	word             TEXT NOT NULL,
	context          TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vocabulary_song ON vocabulary(song_id, position);
CREATE INDEX IF NOT EXISTS idx_vocabulary_session ON vocabulary(study_session_id)
`
