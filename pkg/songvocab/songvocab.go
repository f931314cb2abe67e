// Package songvocab holds the domain types shared by the lyrics-to-vocabulary
// pipeline: requests, vocabulary items, the typed error taxonomy, the song
// identifier and the per-request trace.
package songvocab

import "time"

// Version returns the current version of the module.
func Version() string { return "0.2.0" }

// VocabularyItem is a word pulled out of a song together with the lyric line
// (or other surrounding text) it appeared in.
type VocabularyItem struct {
	Word    string `json:"word"`
	Context string `json:"context"`
}

// Song is a persisted lyrics record.
type Song struct {
	ID        string
	Title     string
	Artist    string
	Lyrics    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SongRequest is what a caller submits. Either Message is set (free text,
// parsed by ParseRequest) or Title/Artist are given directly.
type SongRequest struct {
	Message string
	Title   string
	Artist  string

	// Optional study-session linkage. SessionID links to an existing session;
	// otherwise StudyActivityID creates a new one.
	SessionID         *int64
	StudyActivityID   *int64
	ExternalSessionID *int64
	GroupID           *int64
}

// Files names the artifacts written for a song.
type Files struct {
	Lyrics     string `json:"lyrics"`
	Vocabulary string `json:"vocabulary"`
}

// Result is a successful pipeline run.
type Result struct {
	Status     string           `json:"status"`
	SongID     string           `json:"song_id"`
	Title      string           `json:"title"`
	Artist     string           `json:"artist"`
	Lyrics     string           `json:"lyrics"`
	Vocabulary []VocabularyItem `json:"vocabulary"`
	Files      Files            `json:"files"`
	TotalWords int              `json:"total_words"`
}
