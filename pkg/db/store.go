package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/japaniel/songvocab/pkg/songvocab"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("db: not found")

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// WithTx executes fn within a transaction.
// It handles Begin, Rollback on error, and Commit on success.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// UpsertSong inserts the song or, if its id already exists, updates title,
// artist and lyrics in place. It returns the row's original creation time.
func UpsertSong(ctx context.Context, db DBExecutor, song songvocab.Song, now time.Time) (time.Time, error) {
	if strings.TrimSpace(song.ID) == "" {
		return time.Time{}, fmt.Errorf("song id must be non-empty")
	}

	var created string
	err := db.QueryRowContext(ctx, `INSERT INTO songs (id, title, artist, lyrics, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  title = excluded.title,
		  artist = excluded.artist,
		  lyrics = excluded.lyrics,
		  updated_at = excluded.updated_at
		RETURNING created_at`,
		song.ID, song.Title, song.Artist, song.Lyrics, formatTime(now), formatTime(now),
	).Scan(&created)
	if err != nil {
		return time.Time{}, fmt.Errorf("upsert song: %w", err)
	}
	return parseTime(created), nil
}

// ReplaceVocabulary drops the song's stored vocabulary and inserts items in
// order. Duplicate words are kept as given.
func ReplaceVocabulary(ctx context.Context, db DBExecutor, songID string, sessionID *int64, items []songvocab.VocabularyItem, now time.Time) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM vocabulary WHERE song_id = ?`, songID); err != nil {
		return fmt.Errorf("clear vocabulary: %w", err)
	}
	created := formatTime(now)
	for i, item := range items {
		word := strings.TrimSpace(item.Word)
		if word == "" {
			return fmt.Errorf("vocabulary item %d: word must be non-empty", i)
		}
		_, err := db.ExecContext(ctx,
			`INSERT INTO vocabulary (song_id, study_session_id, position, word, context, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			songID, nullableInt64(sessionID), i, word, item.Context, created,
		)
		if err != nil {
			return fmt.Errorf("insert vocabulary %q: %w", word, err)
		}
	}
	return nil
}

// CreateStudySession inserts a study session and returns its id.
func CreateStudySession(ctx context.Context, db DBExecutor, groupID, activityID int64, externalID *int64, now time.Time) (int64, error) {
	if groupID <= 0 {
		return 0, fmt.Errorf("groupID must be positive")
	}
	if activityID <= 0 {
		return 0, fmt.Errorf("activityID must be positive")
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO study_sessions (group_id, study_activity_id, external_session_id, created_at) VALUES (?, ?, ?, ?)`,
		groupID, activityID, nullableInt64(externalID), formatTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("create study session: %w", err)
	}
	return res.LastInsertId()
}

// GetStudySession returns the session with the given id or ErrNotFound.
func GetStudySession(ctx context.Context, db DBExecutor, id int64) (*StudySession, error) {
	var (
		s       StudySession
		ext     sql.NullInt64
		created string
	)
	err := db.QueryRowContext(ctx,
		`SELECT id, group_id, study_activity_id, external_session_id, created_at FROM study_sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.GroupID, &s.StudyActivityID, &ext, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("study session %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get study session: %w", err)
	}
	if ext.Valid {
		s.ExternalSessionID = &ext.Int64
	}
	s.CreatedAt = parseTime(created)
	return &s, nil
}

// GetSong returns the song with the given id or ErrNotFound.
func GetSong(ctx context.Context, db DBExecutor, id string) (*songvocab.Song, error) {
	var (
		s                songvocab.Song
		created, updated string
	)
	err := db.QueryRowContext(ctx,
		`SELECT id, title, artist, lyrics, created_at, updated_at FROM songs WHERE id = ?`, id,
	).Scan(&s.ID, &s.Title, &s.Artist, &s.Lyrics, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("song %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get song: %w", err)
	}
	s.CreatedAt = parseTime(created)
	s.UpdatedAt = parseTime(updated)
	return &s, nil
}

// ListVocabulary returns the vocabulary rows of a song in insertion order.
func ListVocabulary(ctx context.Context, db DBExecutor, songID string) ([]VocabularyRow, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, song_id, study_session_id, position, word, context FROM vocabulary WHERE song_id = ? ORDER BY position, id`,
		songID,
	)
	if err != nil {
		return nil, fmt.Errorf("list vocabulary: %w", err)
	}
	defer rows.Close()

	var out []VocabularyRow
	for rows.Next() {
		var (
			r       VocabularyRow
			session sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.SongID, &session, &r.Position, &r.Word, &r.Context); err != nil {
			return nil, fmt.Errorf("scan vocabulary: %w", err)
		}
		if session.Valid {
			v := session.Int64
			r.StudySessionID = &v
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountSongs returns the number of rows in songs with the given id (0 or 1).
func CountSongs(ctx context.Context, db DBExecutor, id string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM songs WHERE id = ?`, id).Scan(&n)
	return n, err
}

// nullableInt64 returns nil for a nil pointer else the value.
func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
