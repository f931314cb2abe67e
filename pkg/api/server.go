// Package api exposes the pipeline over HTTP: submit a song, read the trace
// of a run and read stored songs. Every caller is rate limited per route.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/japaniel/songvocab/pkg/agent"
	"github.com/japaniel/songvocab/pkg/db"
	"github.com/japaniel/songvocab/pkg/observe"
	"github.com/japaniel/songvocab/pkg/songvocab"
)

const maxRequestBody = 1 << 20

// Runner runs the pipeline. *agent.Agent implements it.
type Runner interface {
	Run(ctx context.Context, req songvocab.SongRequest, tr *songvocab.Trace) (*songvocab.Result, error)
}

// SongReader reads persisted songs. *store.Store implements it.
type SongReader interface {
	GetSong(ctx context.Context, songID string) (*songvocab.Song, error)
	ListVocabulary(ctx context.Context, songID string) ([]songvocab.VocabularyItem, error)
}

// Options configures a Server.
type Options struct {
	AgentPerMinute    int
	ThoughtsPerMinute int
	IdleTTL           time.Duration
	TraceCapacity     int
	// TrustProxy keys callers by the first X-Forwarded-For hop.
	TrustProxy bool

	Checkers       []Checker
	MetricsHandler http.Handler
	Logger         *zap.Logger
	Metrics        *observe.Metrics
}

// Server holds the HTTP handlers.
type Server struct {
	runner   Runner
	songs    SongReader
	opts     Options
	submit   *Limiter
	thoughts *Limiter
	traces   *TraceRegistry
	logger   *zap.Logger
	metrics  *observe.Metrics
}

// NewServer creates a Server.
func NewServer(runner Runner, songs SongReader, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = observe.NopMetrics()
	}
	return &Server{
		runner:   runner,
		songs:    songs,
		opts:     opts,
		submit:   NewLimiter(opts.AgentPerMinute, opts.IdleTTL),
		thoughts: NewLimiter(opts.ThoughtsPerMinute, opts.IdleTTL),
		traces:   NewTraceRegistry(opts.TraceCapacity),
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/agent", s.handleAgent)
	mux.HandleFunc("GET /api/thoughts", s.handleThoughts)
	mux.HandleFunc("GET /api/songs/{id}", s.handleSong)
	mux.HandleFunc("GET /healthz", s.healthz)
	mux.HandleFunc("GET /readyz", s.readyz(s.opts.Checkers))
	if s.opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", s.opts.MetricsHandler)
	}
	return observe.Middleware(s.metrics, s.logger)(mux)
}

// agentRequest accepts both the structured and the free-text body.
type agentRequest struct {
	MessageRequest    string `json:"message_request"`
	SongTitle         string `json:"song_title"`
	Artist            string `json:"artist"`
	SessionID         *int64 `json:"session_id"`
	StudyActivityID   *int64 `json:"study_activity_id"`
	ExternalSessionID *int64 `json:"external_session_id"`
	GroupID           *int64 `json:"group_id"`
}

type errorResponse struct {
	Status     string                     `json:"status"`
	Error      string                     `json:"error"`
	Code       string                     `json:"code"`
	Lyrics     string                     `json:"lyrics,omitempty"`
	Vocabulary []songvocab.VocabularyItem `json:"vocabulary,omitempty"`
}

type thoughtsResponse struct {
	Thoughts []string `json:"thoughts"`
}

type songResponse struct {
	SongID     string                     `json:"song_id"`
	Title      string                     `json:"title"`
	Artist     string                     `json:"artist"`
	Lyrics     string                     `json:"lyrics"`
	Vocabulary []songvocab.VocabularyItem `json:"vocabulary"`
	TotalWords int                        `json:"total_words"`
	CreatedAt  time.Time                  `json:"created_at"`
	UpdatedAt  time.Time                  `json:"updated_at"`
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	key := s.callerKey(r)
	if !s.allow(w, r, s.submit, key, "agent") {
		return
	}

	var body agentRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&body); err != nil {
		s.writeError(w, songvocab.InvalidRequest("invalid JSON body: %v", err))
		return
	}

	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)
	tr := songvocab.NewTrace()
	s.traces.Put(requestID, key, tr)

	ctx := agent.WithRequestID(r.Context(), requestID)
	res, err := s.runner.Run(ctx, songvocab.SongRequest{
		Message:           body.MessageRequest,
		Title:             body.SongTitle,
		Artist:            body.Artist,
		SessionID:         body.SessionID,
		StudyActivityID:   body.StudyActivityID,
		ExternalSessionID: body.ExternalSessionID,
		GroupID:           body.GroupID,
	}, tr)
	if err != nil {
		s.writeError(w, songvocab.AsError(err, songvocab.KindUnknown))
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleThoughts(w http.ResponseWriter, r *http.Request) {
	key := s.callerKey(r)
	if !s.allow(w, r, s.thoughts, key, "thoughts") {
		return
	}

	if id := r.URL.Query().Get("request_id"); id != "" {
		tr, ok := s.traces.Get(id)
		if !ok {
			s.writeJSON(w, http.StatusNotFound, errorResponse{
				Status: "error",
				Error:  "no trace for request " + id,
				Code:   "TRACE_NOT_FOUND",
			})
			return
		}
		s.writeJSON(w, http.StatusOK, thoughtsResponse{Thoughts: tr.Thoughts()})
		return
	}

	tr, _ := s.traces.Latest(key)
	s.writeJSON(w, http.StatusOK, thoughtsResponse{Thoughts: tr.Thoughts()})
}

func (s *Server) handleSong(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	song, err := s.songs.GetSong(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Status: "error", Error: "song " + id + " not found", Code: "SONG_NOT_FOUND"})
		return
	}
	if err != nil {
		s.writeError(w, songvocab.Wrap(songvocab.KindStorage, err, "error reading song"))
		return
	}
	vocab, err := s.songs.ListVocabulary(r.Context(), id)
	if err != nil {
		s.writeError(w, songvocab.Wrap(songvocab.KindStorage, err, "error reading vocabulary"))
		return
	}
	s.writeJSON(w, http.StatusOK, songResponse{
		SongID:     song.ID,
		Title:      song.Title,
		Artist:     song.Artist,
		Lyrics:     song.Lyrics,
		Vocabulary: vocab,
		TotalWords: len(vocab),
		CreatedAt:  song.CreatedAt,
		UpdatedAt:  song.UpdatedAt,
	})
}

// allow applies l to key and writes the 429 response when it refuses.
func (s *Server) allow(w http.ResponseWriter, r *http.Request, l *Limiter, key, route string) bool {
	ok, retryAfter := l.Allow(key)
	if ok {
		return true
	}
	s.metrics.RateLimited.Add(r.Context(), 1, metric.WithAttributes(attribute.String("route", route)))
	s.logger.Debug("rate limited", zap.String("caller", key), zap.String("route", route))

	secs := int(retryAfter.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	s.writeError(w, songvocab.Newf(songvocab.KindRateLimited, "rate limit exceeded, retry in %d seconds", secs))
	return false
}

// callerKey identifies the caller for rate limiting and trace lookup.
func (s *Server) callerKey(r *http.Request) string {
	if s.opts.TrustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) writeError(w http.ResponseWriter, e *songvocab.Error) {
	s.writeJSON(w, e.Status(), errorResponse{
		Status:     "error",
		Error:      e.Error(),
		Code:       e.Code(),
		Lyrics:     e.Lyrics,
		Vocabulary: e.Vocabulary,
	})
}

// writeJSON encodes v with the given status code. Lyrics are returned as
// written, without HTML escaping.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		s.logger.Warn("encode response", zap.Int("status", status), zap.Error(err))
	}
}
