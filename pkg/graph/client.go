// Package graph is a client for the Graph API.
//
// Requests are plain values built with NewRequest. They can be sent one
// by one through Client.SendRequest or grouped into a BatchRequest, which
// travels as a single POST and comes back as a BatchResponse holding one
// Response per item. Upstream errors are classified into a small set of
// kinds (see ErrorKind) and returned as *ResponseError.
package graph

import (
	"context"
	"fmt"
	"net/http"

	httpclient "github.com/natserract/fbgraph/pkg/http"
	"go.uber.org/zap"
)

const formContentType = "application/x-www-form-urlencoded"

// Client is the main client for interacting with the Graph API
type Client struct {
	config    *Config
	transport Transport
	logger    *zap.Logger
}

var _ GraphClient = (*Client)(nil)

// NewClient creates a new Graph client with default production logger
func NewClient(cfg *Config) *Client {
	logger, _ := zap.NewProduction()
	return NewClientWithLogger(cfg, logger)
}

// NewClientWithLogger creates a new Graph client with a custom logger
func NewClientWithLogger(cfg *Config, logger *zap.Logger) *Client {
	return NewClientWithTransport(cfg, httpclient.NewClientWithLogger(logger), logger)
}

// NewClientWithTransport creates a Graph client sending through transport.
func NewClientWithTransport(cfg *Config, transport Transport, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config:    cfg.withDefaults(),
		transport: transport,
		logger:    logger,
	}
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	return *c.config
}

// prepareRequest turns a request into transport options.
func (c *Client) prepareRequest(ctx context.Context, req *Request) (httpclient.RequestOptions, error) {
	target, err := httpclient.BuildURL(c.config.BaseURL, req.URL(), nil)
	if err != nil {
		return httpclient.RequestOptions{}, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}

	headers := req.Headers()
	if headers == nil {
		headers = make(map[string]string)
	}
	// With files the transport sets the multipart type and boundary.
	if !req.ContainsFiles() {
		headers["Content-Type"] = formContentType
	}

	params := req.Params()
	if c.config.AppSecretProof && c.config.App != nil && req.AccessToken() != "" {
		params[paramAppSecretProof] = c.config.App.SecretProof(req.AccessToken())
	}

	uploads := req.FilesToUpload()
	files := make([]httpclient.FormFile, 0, len(uploads))
	for _, u := range uploads {
		files = append(files, httpclient.FormFile{
			Field:       u.Param,
			Filename:    u.Name,
			ContentType: u.MimeType,
			Content:     u.File,
		})
	}

	timeout := req.Timeout()
	if timeout == 0 {
		timeout = c.config.Timeout
	}

	return httpclient.RequestOptions{
		Method:     req.Method(),
		URL:        target,
		Headers:    headers,
		Params:     params,
		Form:       req.PostParams(),
		Files:      files,
		Timeout:    timeout,
		Context:    ctx,
		MaxRetries: c.config.MaxRetries,
	}, nil
}

// SendRequest sends one request. When the API answers with an error body
// the classified *ResponseError is returned; it still references the
// Response.
func (c *Client) SendRequest(ctx context.Context, req *Request) (*Response, error) {
	opts, err := c.prepareRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Sending Graph request",
		zap.String("method", opts.Method),
		zap.String("url", opts.URL),
		zap.Int("files", len(opts.Files)))

	raw, err := c.transport.Do(opts)
	if err != nil {
		c.logger.Error("Graph request failed",
			zap.Error(err),
			zap.String("method", opts.Method),
			zap.String("url", opts.URL))
		return nil, fmt.Errorf("graph request failed: %w", err)
	}

	resp := NewResponse(req, raw.Body, raw.StatusCode, raw.Headers)
	if resp.IsError() {
		respErr := resp.Err()
		c.logger.Error("Graph returned an error",
			zap.String("method", opts.Method),
			zap.String("url", opts.URL),
			zap.Int("status_code", raw.StatusCode),
			zap.Stringer("kind", respErr.Kind),
			zap.Int("code", respErr.Code),
			zap.Int("subcode", respErr.SubCode),
			zap.String("fbtrace_id", respErr.TraceID))
		return nil, respErr
	}

	c.logger.Debug("Graph request succeeded",
		zap.String("method", opts.Method),
		zap.String("url", opts.URL),
		zap.Int("status_code", raw.StatusCode))

	return resp, nil
}

// SendBatchRequest checks the batch size, serialises the batch and sends
// it. Failed items do not fail the call; inspect each item's Response.
func (c *Client) SendBatchRequest(ctx context.Context, batch *BatchRequest) (*BatchResponse, error) {
	if err := batch.ValidateCount(); err != nil {
		return nil, err
	}
	if err := batch.Prepare(); err != nil {
		return nil, err
	}

	resp, err := c.SendRequest(ctx, batch.Request)
	if err != nil {
		return nil, err
	}

	batchResp, err := NewBatchResponse(batch, resp)
	if err != nil {
		c.logger.Error("Failed to parse batch response", zap.Error(err), zap.Int("requests", batch.Len()))
		return nil, err
	}

	c.logger.Info("Batch request completed",
		zap.Int("requests", batch.Len()),
		zap.Int("responses", len(batchResp.Responses)),
		zap.Int("failed", len(batchResp.Errors())))

	return batchResp, nil
}

// NewRequest builds a request using the client's default token and graph
// version.
func (c *Client) NewRequest(method, endpoint string, params map[string]any) (*Request, error) {
	return NewRequest(RequestOptions{
		Method:       method,
		Endpoint:     endpoint,
		AccessToken:  c.config.AccessToken,
		Params:       params,
		GraphVersion: c.config.GraphVersion,
	})
}

func (c *Client) send(ctx context.Context, method, endpoint string, params map[string]any) (*Response, error) {
	req, err := c.NewRequest(method, endpoint, params)
	if err != nil {
		return nil, err
	}
	return c.SendRequest(ctx, req)
}

// Get performs a GET against endpoint.
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]any) (*Response, error) {
	return c.send(ctx, http.MethodGet, endpoint, params)
}

// Post performs a POST against endpoint.
func (c *Client) Post(ctx context.Context, endpoint string, params map[string]any) (*Response, error) {
	return c.send(ctx, http.MethodPost, endpoint, params)
}

// Delete performs a DELETE against endpoint.
func (c *Client) Delete(ctx context.Context, endpoint string, params map[string]any) (*Response, error) {
	return c.send(ctx, http.MethodDelete, endpoint, params)
}

// NewBatchRequest creates an empty batch with the client's defaults.
func (c *Client) NewBatchRequest() *BatchRequest {
	return NewBatchRequest(c.config.AccessToken, c.config.GraphVersion)
}

// SendBatch sends reqs as one batch named by position.
func (c *Client) SendBatch(ctx context.Context, reqs []*Request) (*BatchResponse, error) {
	batch := c.NewBatchRequest()
	if err := batch.AddMany(reqs); err != nil {
		return nil, err
	}
	return c.SendBatchRequest(ctx, batch)
}

// Next fetches the page after resp. It returns nil, nil on the last page.
func (c *Client) Next(ctx context.Context, resp *Response) (*Response, error) {
	req, err := resp.NextPageRequest()
	if err != nil || req == nil {
		return nil, err
	}
	return c.SendRequest(ctx, req)
}

// Previous fetches the page before resp. It returns nil, nil on the first
// page.
func (c *Client) Previous(ctx context.Context, resp *Response) (*Response, error) {
	req, err := resp.PreviousPageRequest()
	if err != nil || req == nil {
		return nil, err
	}
	return c.SendRequest(ctx, req)
}
