// Package ingest runs many song requests through the pipeline concurrently.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/japaniel/songvocab/pkg/songvocab"
)

// Processor runs one request. *agent.Agent implements it.
type Processor interface {
	Process(ctx context.Context, req songvocab.SongRequest) (*songvocab.Result, *songvocab.Trace, error)
}

// Outcome is the result of one batch entry. Exactly one of Result and Err is
// set.
type Outcome struct {
	Index   int
	Request songvocab.SongRequest
	Result  *songvocab.Result
	Err     *songvocab.Error
}

// Batch processes requests on a worker pool.
type Batch struct {
	Processor Processor
	Workers   int
	Logger    *zap.Logger
}

// Run processes every request and returns the outcomes in input order. A
// failing request does not stop the others; a canceled ctx leaves the
// remaining entries with their submission error.
func (b *Batch) Run(ctx context.Context, reqs []songvocab.SongRequest) []Outcome {
	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := make([]Outcome, len(reqs))
	for i, r := range reqs {
		out[i] = Outcome{Index: i, Request: r}
	}

	pool := NewWorkerPool(b.Workers, len(reqs))
	pool.Start(ctx)

	for i := range reqs {
		err := pool.Submit(ctx, func(ctx context.Context) error {
			res, _, err := b.Processor.Process(ctx, out[i].Request)
			if err != nil {
				out[i].Err = songvocab.AsError(err, songvocab.KindUnknown)
				logger.Warn("batch entry failed", zap.Int("index", i), zap.String("code", out[i].Err.Code()))
				return err
			}
			out[i].Result = res
			return nil
		})
		if err != nil {
			out[i].Err = songvocab.Wrap(songvocab.KindUnknown, err, "batch entry not processed")
		}
	}
	// Close waits for the workers, so out is safe to read afterwards.
	pool.Close()

	// Jobs left in the queue after a cancellation never ran.
	for i := range out {
		if out[i].Result == nil && out[i].Err == nil {
			out[i].Err = songvocab.Newf(songvocab.KindUnknown, "batch entry not processed: %v", ctx.Err())
		}
	}
	return out
}

// ReadRequests reads one free-text request per line. Blank lines and lines
// starting with '#' are skipped.
func ReadRequests(r io.Reader) ([]songvocab.SongRequest, error) {
	var reqs []songvocab.SongRequest
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		reqs = append(reqs, songvocab.SongRequest{Message: text})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read requests (line %d): %w", line, err)
	}
	return reqs, nil
}
