// Package store persists pipeline results: the song row and its vocabulary in
// one SQL transaction, plus a lyrics text file and a vocabulary JSON file per
// song id.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/japaniel/songvocab/pkg/db"
	"github.com/japaniel/songvocab/pkg/songvocab"
)

// SaveInput is everything a save needs.
type SaveInput struct {
	SongID     string
	Title      string
	Artist     string
	Lyrics     string
	Vocabulary []songvocab.VocabularyItem

	// SessionID links the vocabulary to an existing study session.
	SessionID *int64
	// NewSession, when SessionID is nil, creates a study session inside the
	// same transaction.
	NewSession *NewSession
}

// NewSession describes a study session to create during a save.
type NewSession struct {
	GroupID           int64
	StudyActivityID   int64
	ExternalSessionID *int64
}

// SaveResult summarises a committed save.
type SaveResult struct {
	LyricsRef      string
	VocabularyRef  string
	TotalWords     int
	StudySessionID *int64
}

// vocabularyFile is the JSON layout of the vocabulary artifact.
type vocabularyFile struct {
	SongID     string                     `json:"song_id"`
	Title      string                     `json:"title"`
	Artist     string                     `json:"artist"`
	Vocabulary []songvocab.VocabularyItem `json:"vocabulary"`
	TotalWords int                        `json:"total_words"`
}

// Store is the ResultStore. It is safe for concurrent use.
type Store struct {
	DB   *sql.DB
	Root string

	// Now returns the current time; tests override it.
	Now    func() time.Time
	Logger *zap.Logger

	locksMu sync.Mutex
	locks   map[string]*songLock
}

// songLock serialises saves of one song id. refs counts holders and waiters;
// the entry is dropped when it reaches zero.
type songLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a Store writing artifacts below root.
func New(conn *sql.DB, root string) *Store {
	return &Store{
		DB:     conn,
		Root:   root,
		Now:    time.Now,
		Logger: zap.NewNop(),
	}
}

// LyricsPath returns the lyrics artifact path for a song id.
func (s *Store) LyricsPath(songID string) string {
	return filepath.Join(s.Root, "lyrics", songID+".txt")
}

// VocabularyPath returns the vocabulary artifact path for a song id.
func (s *Store) VocabularyPath(songID string) string {
	return filepath.Join(s.Root, "vocabulary", songID+".json")
}

func (s *Store) lock(songID string) func() {
	s.locksMu.Lock()
	if s.locks == nil {
		s.locks = make(map[string]*songLock)
	}
	l, ok := s.locks[songID]
	if !ok {
		l = &songLock{}
		s.locks[songID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, songID)
		}
		s.locksMu.Unlock()
	}
}

// heldLocks reports how many song ids currently have a lock entry.
func (s *Store) heldLocks() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}

// Save writes the song, its vocabulary and the optional session linkage in a
// single transaction and the two artifacts before committing. Any failure
// rolls everything back and is reported as a storage error.
func (s *Store) Save(ctx context.Context, in SaveInput) (SaveResult, error) {
	if in.SongID == "" {
		return SaveResult{}, songvocab.Newf(songvocab.KindStorage, "save results: empty song id")
	}
	unlock := s.lock(in.SongID)
	defer unlock()

	now := s.Now()
	res := SaveResult{
		LyricsRef:     s.LyricsPath(in.SongID),
		VocabularyRef: s.VocabularyPath(in.SongID),
		TotalWords:    len(in.Vocabulary),
	}

	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		sessionID, err := s.resolveSession(ctx, tx, in, now)
		if err != nil {
			return err
		}
		res.StudySessionID = sessionID

		song := songvocab.Song{ID: in.SongID, Title: in.Title, Artist: in.Artist, Lyrics: in.Lyrics}
		if _, err := db.UpsertSong(ctx, tx, song, now); err != nil {
			return err
		}
		if err := db.ReplaceVocabulary(ctx, tx, in.SongID, sessionID, in.Vocabulary, now); err != nil {
			return err
		}
		return s.writeArtifacts(in)
	})
	if err != nil {
		s.Logger.Error("save failed, rolled back",
			zap.String("song_id", in.SongID),
			zap.Error(err),
		)
		return SaveResult{}, songvocab.Wrap(songvocab.KindStorage, err, "error saving results")
	}

	s.Logger.Info("saved results",
		zap.String("song_id", in.SongID),
		zap.Int("total_words", res.TotalWords),
		zap.String("lyrics_file", res.LyricsRef),
	)
	return res, nil
}

func (s *Store) resolveSession(ctx context.Context, tx *sql.Tx, in SaveInput, now time.Time) (*int64, error) {
	if in.SessionID != nil {
		sess, err := db.GetStudySession(ctx, tx, *in.SessionID)
		if err != nil {
			return nil, err
		}
		return &sess.ID, nil
	}
	if in.NewSession == nil {
		return nil, nil
	}
	id, err := db.CreateStudySession(ctx, tx, in.NewSession.GroupID, in.NewSession.StudyActivityID, in.NewSession.ExternalSessionID, now)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (s *Store) writeArtifacts(in SaveInput) error {
	vocab := in.Vocabulary
	if vocab == nil {
		vocab = []songvocab.VocabularyItem{}
	}
	payload, err := json.MarshalIndent(vocabularyFile{
		SongID:     in.SongID,
		Title:      in.Title,
		Artist:     in.Artist,
		Vocabulary: vocab,
		TotalWords: len(vocab),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode vocabulary file: %w", err)
	}
	if err := writeFileAtomic(s.LyricsPath(in.SongID), []byte(in.Lyrics)); err != nil {
		return fmt.Errorf("write lyrics file: %w", err)
	}
	if err := writeFileAtomic(s.VocabularyPath(in.SongID), payload); err != nil {
		return fmt.Errorf("write vocabulary file: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file next to path and renames it over
// path, so readers never see a half-written artifact.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// GetSong returns a stored song.
func (s *Store) GetSong(ctx context.Context, songID string) (*songvocab.Song, error) {
	return db.GetSong(ctx, s.DB, songID)
}

// ListVocabulary returns a song's vocabulary in insertion order.
func (s *Store) ListVocabulary(ctx context.Context, songID string) ([]songvocab.VocabularyItem, error) {
	rows, err := db.ListVocabulary(ctx, s.DB, songID)
	if err != nil {
		return nil, err
	}
	items := make([]songvocab.VocabularyItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, songvocab.VocabularyItem{Word: r.Word, Context: r.Context})
	}
	return items, nil
}

// ReadVocabularyFile decodes the vocabulary artifact of a song.
func (s *Store) ReadVocabularyFile(songID string) ([]songvocab.VocabularyItem, error) {
	data, err := os.ReadFile(s.VocabularyPath(songID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("vocabulary file %s: %w", songID, db.ErrNotFound)
		}
		return nil, err
	}
	var f vocabularyFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode vocabulary file: %w", err)
	}
	return f.Vocabulary, nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}
