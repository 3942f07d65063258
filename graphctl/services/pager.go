package services

import (
	"context"
	"fmt"

	"github.com/natserract/fbgraph/pkg/graph"
	"go.uber.org/zap"
)

// PageClient is the part of *graph.Client the pager needs.
type PageClient interface {
	Get(ctx context.Context, endpoint string, params map[string]any) (*graph.Response, error)
	Next(ctx context.Context, resp *graph.Response) (*graph.Response, error)
}

// Pager walks an edge page by page.
type Pager struct {
	client PageClient
	logger *zap.Logger
}

// NewPager creates a new pager
func NewPager(client PageClient, logger *zap.Logger) *Pager {
	return &Pager{client: client, logger: logger}
}

// Fetch returns the decoded bodies of up to maxPages pages starting at
// endpoint. maxPages < 1 means one page.
func (p *Pager) Fetch(ctx context.Context, endpoint string, params map[string]any, maxPages int) ([]map[string]any, error) {
	if maxPages < 1 {
		maxPages = 1
	}

	resp, err := p.client.Get(ctx, endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}

	pages := []map[string]any{resp.DecodedBody()}
	for len(pages) < maxPages {
		resp, err = p.client.Next(ctx, resp)
		if err != nil {
			return pages, fmt.Errorf("failed to fetch page %d of %s: %w", len(pages)+1, endpoint, err)
		}
		if resp == nil {
			break
		}
		pages = append(pages, resp.DecodedBody())
	}

	p.logger.Info("Fetched pages",
		zap.String("endpoint", endpoint),
		zap.Int("pages", len(pages)))

	return pages, nil
}
