package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/natserract/fbgraph/pkg/graph"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// RunMetrics tracks the outcome of a batch run
type RunMetrics struct {
	BatchesSucceeded int
	BatchesFailed    int
	ItemsSucceeded   int
	ItemsFailed      int
	mu               sync.Mutex
}

// AddBatch records a delivered batch and the split of its items
func (m *RunMetrics) AddBatch(succeeded, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchesSucceeded++
	m.ItemsSucceeded += succeeded
	m.ItemsFailed += failed
}

// AddBatchFailure records a batch that could not be delivered at all
func (m *RunMetrics) AddBatchFailure(items int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchesFailed++
	m.ItemsFailed += items
}

// TotalFailed returns the number of failed items
func (m *RunMetrics) TotalFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ItemsFailed
}

// ItemResult is the printed outcome of one request.
type ItemResult struct {
	Name  string          `json:"name"`
	Code  int             `json:"code"`
	Body  json.RawMessage `json:"body,omitempty"`
	Kind  string          `json:"kind,omitempty"`
	Error string          `json:"error,omitempty"`
}

// BatchRunner sends any number of requests as batches of at most
// graph.MaxBatchSize, several batches at a time.
type BatchRunner struct {
	client       graph.GraphClient
	accessToken  string
	graphVersion string
	concurrency  int
	logger       *zap.Logger
}

// NewBatchRunner creates a new batch runner
func NewBatchRunner(client graph.GraphClient, accessToken, graphVersion string, concurrency int, logger *zap.Logger) *BatchRunner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchRunner{
		client:       client,
		accessToken:  accessToken,
		graphVersion: graphVersion,
		concurrency:  concurrency,
		logger:       logger,
	}
}

// Run sends reqs and returns one result per request in input order. The
// error joins the failures of batches that could not be delivered; item
// level failures only show up in the results and metrics.
func (s *BatchRunner) Run(ctx context.Context, reqs []NamedRequest) ([]ItemResult, *RunMetrics, error) {
	metrics := &RunMetrics{}
	results := make([]ItemResult, len(reqs))

	p := pool.New().WithMaxGoroutines(s.concurrency).WithErrors()
	for start := 0; start < len(reqs); start += graph.MaxBatchSize {
		end := min(start+graph.MaxBatchSize, len(reqs))
		p.Go(func() error {
			return s.runChunk(ctx, reqs[start:end], results[start:end], metrics)
		})
	}
	err := p.Wait()

	s.logger.Info("Batch run finished",
		zap.Int("requests", len(reqs)),
		zap.Int("batches_succeeded", metrics.BatchesSucceeded),
		zap.Int("batches_failed", metrics.BatchesFailed),
		zap.Int("items_succeeded", metrics.ItemsSucceeded),
		zap.Int("items_failed", metrics.ItemsFailed))

	return results, metrics, err
}

// runChunk sends one batch and fills out, which is this chunk's own window
// of the shared results slice.
func (s *BatchRunner) runChunk(ctx context.Context, chunk []NamedRequest, out []ItemResult, metrics *RunMetrics) error {
	for i, nr := range chunk {
		out[i].Name = nr.Name
	}

	fail := func(err error) error {
		metrics.AddBatchFailure(len(chunk))
		for i := range out {
			out[i].Error = err.Error()
			out[i].Kind = kindOf(err)
		}
		s.logger.Error("Batch failed",
			zap.String("first", chunk[0].Name),
			zap.Int("size", len(chunk)),
			zap.Error(err))
		return fmt.Errorf("batch starting at %q: %w", chunk[0].Name, err)
	}

	batch := graph.NewBatchRequest(s.accessToken, s.graphVersion)
	for _, nr := range chunk {
		if err := batch.Add(nr.Request, nr.Name); err != nil {
			return fail(err)
		}
	}

	resp, err := s.client.SendBatchRequest(ctx, batch)
	if err != nil {
		return fail(err)
	}

	succeeded, failed := 0, 0
	for i := range out {
		// Items the API did not answer stay marked as failed.
		if i >= len(resp.Responses) {
			out[i].Error = "no response for item"
			failed++
			continue
		}
		item := resp.Responses[i].Response
		out[i].Code = item.HTTPStatusCode
		out[i].Body = rawBody(item.Body)
		if err := item.RaiseException(); err != nil {
			out[i].Error = err.Error()
			out[i].Kind = kindOf(err)
			failed++
			continue
		}
		succeeded++
	}
	metrics.AddBatch(succeeded, failed)

	s.logger.Debug("Batch delivered",
		zap.String("first", chunk[0].Name),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed))

	return nil
}

func kindOf(err error) string {
	var respErr *graph.ResponseError
	if errors.As(err, &respErr) {
		return respErr.Kind.String()
	}
	if errors.Is(err, graph.ErrConfiguration) {
		return "configuration"
	}
	return "transport"
}

func rawBody(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	if json.Valid(b) {
		return json.RawMessage(b)
	}
	quoted, _ := json.Marshal(string(b))
	return quoted
}
