// Package agent runs the song-to-vocabulary pipeline: parse the request,
// search lyrics, extract vocabulary, derive the song id and persist the
// result. Stages run in order and the first failure ends the run.
package agent

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/japaniel/songvocab/pkg/observe"
	"github.com/japaniel/songvocab/pkg/songvocab"
	"github.com/japaniel/songvocab/pkg/store"
)

// LyricsSearcher resolves lyrics under a deadline. *lyrics.Client implements it.
type LyricsSearcher interface {
	Search(ctx context.Context, title, artist string, timeout time.Duration) (string, error)
}

// VocabularyExtractor extracts vocabulary under a deadline. *extract.Bounded
// implements it.
type VocabularyExtractor interface {
	Extract(ctx context.Context, lyrics string, timeout time.Duration) ([]songvocab.VocabularyItem, error)
}

// ResultSaver persists a finished run. *store.Store implements it.
type ResultSaver interface {
	Save(ctx context.Context, in store.SaveInput) (store.SaveResult, error)
}

// Config holds the per-stage limits.
type Config struct {
	LyricsTimeout     time.Duration
	VocabularyTimeout time.Duration
	// DefaultGroupID is used for new study sessions when the request names
	// none.
	DefaultGroupID int64
}

// Agent is safe for concurrent use; it holds no per-request state.
type Agent struct {
	lyrics  LyricsSearcher
	vocab   VocabularyExtractor
	saver   ResultSaver
	cfg     Config
	logger  *zap.Logger
	metrics *observe.Metrics
	now     func() time.Time
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(a *Agent) { a.logger = l } }

// WithMetrics sets the metric instruments.
func WithMetrics(m *observe.Metrics) Option { return func(a *Agent) { a.metrics = m } }

// WithClock overrides the clock used for song ids.
func WithClock(now func() time.Time) Option { return func(a *Agent) { a.now = now } }

// New creates an Agent.
func New(l LyricsSearcher, v VocabularyExtractor, s ResultSaver, cfg Config, opts ...Option) *Agent {
	a := &Agent{
		lyrics:  l,
		vocab:   v,
		saver:   s,
		cfg:     cfg,
		logger:  zap.NewNop(),
		metrics: observe.NopMetrics(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	if a.cfg.DefaultGroupID <= 0 {
		a.cfg.DefaultGroupID = 1
	}
	return a
}

// Process runs the pipeline with a fresh trace.
func (a *Agent) Process(ctx context.Context, req songvocab.SongRequest) (*songvocab.Result, *songvocab.Trace, error) {
	tr := songvocab.NewTrace()
	res, err := a.Run(ctx, req, tr)
	return res, tr, err
}

// Run runs the pipeline, appending progress to tr. Callers that want to
// observe a run in flight create and share the trace themselves. A non-nil
// error is always a *songvocab.Error.
func (a *Agent) Run(ctx context.Context, req songvocab.SongRequest, tr *songvocab.Trace) (*songvocab.Result, error) {
	log := a.logger.With(zap.String("request_id", RequestID(ctx)))
	start := time.Now()

	res, stage, err := a.run(ctx, req, tr)
	if err != nil {
		e := songvocab.AsError(err, songvocab.KindUnknown)
		a.metrics.RecordRequest(ctx, e.Code())
		log.Warn("pipeline failed",
			zap.String("stage", stage),
			zap.String("code", e.Code()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(e),
		)
		return nil, e
	}

	a.metrics.RecordRequest(ctx, "SUCCESS")
	a.metrics.VocabularyItems.Add(ctx, int64(res.TotalWords))
	log.Info("pipeline finished",
		zap.String("song_id", res.SongID),
		zap.Int("total_words", res.TotalWords),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// stage times fn and records its outcome.
func (a *Agent) stage(ctx context.Context, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	outcome := "ok"
	if err != nil {
		outcome = songvocab.KindOf(err).Code()
	}
	a.metrics.RecordStage(ctx, name, time.Since(start), outcome)
	return err
}

func (a *Agent) run(ctx context.Context, req songvocab.SongRequest, tr *songvocab.Trace) (*songvocab.Result, string, error) {
	tr.Addf("Received request: %s", describe(req))

	var title, artist string
	if err := a.stage(ctx, "parse", func() error {
		var err error
		title, artist, err = resolveTitle(req, tr)
		return err
	}); err != nil {
		tr.Addf("Could not understand the request: %s", songvocab.AsError(err, songvocab.KindInvalidRequest).Message)
		return nil, "parse", err
	}

	tr.Addf("Searching for lyrics of '%s' by '%s'", title, orUnknown(artist))
	var lyricsText string
	if err := a.stage(ctx, "search", func() error {
		var err error
		lyricsText, err = a.lyrics.Search(ctx, title, artist, a.cfg.LyricsTimeout)
		if err != nil {
			return songvocab.AsError(err, songvocab.KindLyrics)
		}
		return nil
	}); err != nil {
		tr.Addf("Lyrics search failed: %s", err)
		return nil, "search", err
	}
	tr.Addf("Found lyrics (%d characters)", len([]rune(lyricsText)))

	tr.Addf("Extracting vocabulary from lyrics")
	var vocab []songvocab.VocabularyItem
	if err := a.stage(ctx, "extract", func() error {
		var err error
		vocab, err = a.vocab.Extract(ctx, lyricsText, a.cfg.VocabularyTimeout)
		if err != nil {
			return songvocab.AsError(err, songvocab.KindVocabulary).WithPartial(lyricsText, nil)
		}
		return nil
	}); err != nil {
		tr.Addf("Vocabulary extraction failed: %s", err)
		return nil, "extract", err
	}
	tr.Addf("Extracted %d vocabulary items", len(vocab))

	songID := songvocab.SongID(artist, title, a.now())
	tr.Addf("Generated song id %s", songID)

	in := store.SaveInput{
		SongID:     songID,
		Title:      title,
		Artist:     artist,
		Lyrics:     lyricsText,
		Vocabulary: vocab,
	}
	a.linkSession(&in, req)

	var saved store.SaveResult
	if err := a.stage(ctx, "persist", func() error {
		var err error
		saved, err = a.saver.Save(ctx, in)
		if err != nil {
			return songvocab.AsError(err, songvocab.KindStorage).WithPartial(lyricsText, vocab)
		}
		return nil
	}); err != nil {
		tr.Addf("Saving results failed: %s", err)
		return nil, "persist", err
	}
	tr.Addf("Saved lyrics to %s and vocabulary to %s", saved.LyricsRef, saved.VocabularyRef)

	return &songvocab.Result{
		Status:     "success",
		SongID:     songID,
		Title:      title,
		Artist:     artist,
		Lyrics:     lyricsText,
		Vocabulary: vocab,
		Files:      songvocab.Files{Lyrics: saved.LyricsRef, Vocabulary: saved.VocabularyRef},
		TotalWords: saved.TotalWords,
	}, "", nil
}

// resolveTitle prefers an explicit title over the free-text message.
func resolveTitle(req songvocab.SongRequest, tr *songvocab.Trace) (string, string, error) {
	title := strings.TrimSpace(req.Title)
	artist := strings.TrimSpace(req.Artist)
	if title != "" {
		tr.Addf("Using title '%s' and artist '%s' from the request", title, orUnknown(artist))
		return title, artist, nil
	}
	if artist != "" && strings.TrimSpace(req.Message) == "" {
		return "", "", songvocab.InvalidRequest("song title is required")
	}
	parsed, err := songvocab.ParseRequest(req.Message)
	if err != nil {
		return "", "", err
	}
	tr.Addf("Parsed request with the %s rule: title '%s', artist '%s'", parsed.Rule, parsed.Title, orUnknown(parsed.Artist))
	return parsed.Title, parsed.Artist, nil
}

func (a *Agent) linkSession(in *store.SaveInput, req songvocab.SongRequest) {
	switch {
	case req.SessionID != nil:
		in.SessionID = req.SessionID
	case req.StudyActivityID != nil:
		group := a.cfg.DefaultGroupID
		if req.GroupID != nil {
			group = *req.GroupID
		}
		in.NewSession = &store.NewSession{
			GroupID:           group,
			StudyActivityID:   *req.StudyActivityID,
			ExternalSessionID: req.ExternalSessionID,
		}
	}
}

func describe(req songvocab.SongRequest) string {
	if req.Title != "" || req.Artist != "" {
		return "'" + req.Title + "' by '" + orUnknown(req.Artist) + "'"
	}
	return "'" + req.Message + "'"
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown artist"
	}
	return s
}
