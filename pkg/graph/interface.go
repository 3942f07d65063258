package graph

import (
	"context"

	httpclient "github.com/natserract/fbgraph/pkg/http"
)

// Transport sends fully prepared HTTP requests. *httpclient.Client
// implements it.
type Transport interface {
	Do(opts httpclient.RequestOptions) (*httpclient.Response, error)
}

// RequestSender sends a single request and fails on upstream errors.
type RequestSender interface {
	SendRequest(ctx context.Context, req *Request) (*Response, error)
}

// GraphClient defines the interface for Graph API operations
type GraphClient interface {
	RequestSender

	// SendBatchRequest validates, prepares and sends a batch.
	SendBatchRequest(ctx context.Context, batch *BatchRequest) (*BatchResponse, error)

	// Next fetches the page after resp, or returns nil when there is none.
	Next(ctx context.Context, resp *Response) (*Response, error)
}
