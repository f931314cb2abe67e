package db

import "time"

// StudySession is a row of the study-portal's study_sessions table.
type StudySession struct {
	ID                int64
	GroupID           int64
	StudyActivityID   int64
	ExternalSessionID *int64
	CreatedAt         time.Time
}

// VocabularyRow is a stored vocabulary item with its linkage.
type VocabularyRow struct {
	ID             int64
	SongID         string
	StudySessionID *int64
	Position       int
	Word           string
	Context        string
}
