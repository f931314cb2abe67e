package main

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/japaniel/songvocab/pkg/agent"
	"github.com/japaniel/songvocab/pkg/config"
	"github.com/japaniel/songvocab/pkg/db"
	"github.com/japaniel/songvocab/pkg/extract"
	"github.com/japaniel/songvocab/pkg/lyrics"
	"github.com/japaniel/songvocab/pkg/observe"
	"github.com/japaniel/songvocab/pkg/store"
)

// app bundles the collaborators every command needs.
type app struct {
	conn  *sql.DB
	store *store.Store
	agent *agent.Agent
}

func (a *app) Close() error { return a.conn.Close() }

func openDB(ctx context.Context, c *config.Config) (*sql.DB, error) {
	conn, err := db.Open(c.Database.Driver, c.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := db.InitDB(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return conn, nil
}

func newSearcher(c *config.Config, logger *zap.Logger) lyrics.Searcher {
	switch c.Lyrics.Provider {
	case "web":
		w := lyrics.NewWeb(c.Lyrics.BaseURL, c.Lyrics.APIKey)
		w.Logger = logger
		return w
	case "static":
		return lyrics.Static{}
	default:
		return lyrics.NewLRCLib(c.Lyrics.BaseURL)
	}
}

func newApp(ctx context.Context, c *config.Config, logger *zap.Logger, metrics *observe.Metrics) (*app, error) {
	conn, err := openDB(ctx, c)
	if err != nil {
		return nil, err
	}

	st := store.New(conn, c.Storage.Root)
	st.Logger = logger.Named("store")

	lc := lyrics.NewClient(newSearcher(c, logger.Named("lyrics")))
	lc.Logger = logger.Named("lyrics")

	ex, err := extract.New(ctx, extract.Options{
		Kind:     c.Extractor.Kind,
		Model:    c.Extractor.Model,
		APIKey:   c.Extractor.APIKey,
		BaseURL:  c.Extractor.BaseURL,
		MaxItems: c.Extractor.MaxItems,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create extractor: %w", err)
	}
	bounded := extract.NewBounded(ex)
	bounded.Logger = logger.Named("extract")

	ag := agent.New(lc, bounded, st, agent.Config{
		LyricsTimeout:     c.Timeouts.Lyrics,
		VocabularyTimeout: c.Timeouts.Vocabulary,
		DefaultGroupID:    c.Session.DefaultGroupID,
	}, agent.WithLogger(logger.Named("agent")), agent.WithMetrics(metrics))

	logger.Info("pipeline ready",
		zap.String("lyrics_provider", c.Lyrics.Provider),
		zap.String("extractor", c.Extractor.Kind),
		zap.String("database", c.Database.Path),
		zap.String("storage_root", c.Storage.Root),
	)
	return &app{conn: conn, store: st, agent: ag}, nil
}
