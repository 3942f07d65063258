package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const DefaultTimeout = 60 * time.Second

type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// Payload is anything that can hand over its content for an upload.
type Payload interface {
	Bytes() ([]byte, error)
}

// FormFile is one file part of a multipart body.
type FormFile struct {
	Field       string
	Filename    string
	ContentType string
	Content     Payload
}

type RequestOptions struct {
	Method  string
	URL     string
	Headers map[string]string
	// Params are merged into the URL query string.
	Params map[string]string
	// Form holds body fields. Sent url-encoded, or as multipart fields when
	// Files is not empty.
	Form            map[string]string
	Files           []FormFile
	Timeout         time.Duration
	Context         context.Context
	MaxRetries      int
	MaxElapsed      time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

func NewClient() *Client {
	logger, _ := zap.NewProduction()
	return NewClientWithLogger(logger)
}

// NewClientWithLogger creates a new HTTP client with a custom logger
func NewClientWithLogger(logger *zap.Logger) *Client {
	return &Client{
		// Timeouts are applied per attempt from RequestOptions.
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Do sends the request and returns the response whatever its status code;
// the Graph API reports errors in the body, so status handling belongs to
// the caller. Only failures to get a response at all are retried.
func (c *Client) Do(opts RequestOptions) (*Response, error) {
	// Set default backoff configuration
	if opts.MaxElapsed == 0 {
		opts.MaxElapsed = 5 * time.Minute
	}
	if opts.InitialInterval == 0 {
		opts.InitialInterval = 100 * time.Millisecond
	}
	if opts.MaxInterval == 0 {
		opts.MaxInterval = 30 * time.Second
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = opts.InitialInterval
	expBackoff.MaxInterval = opts.MaxInterval
	expBackoff.Reset()

	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	target, err := BuildURL(opts.URL, "", opts.Params)
	if err != nil {
		c.logger.Error("Failed to build URL", zap.Error(err), zap.String("method", opts.Method))
		return nil, err
	}

	operation := func() (*Response, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()

		req, err := c.buildRequest(attemptCtx, opts, target)
		if err != nil {
			c.logger.Error("Failed to build request", zap.Error(err), zap.String("method", opts.Method), zap.String("url", opts.URL))
			return nil, backoff.Permanent(err)
		}

		c.logger.Debug("Making HTTP request",
			zap.String("method", opts.Method),
			zap.String("url", opts.URL))

		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(fmt.Errorf("request aborted: %w", ctx.Err()))
			}
			// Network errors are retryable
			c.logger.Warn("HTTP request failed, will retry",
				zap.Error(err),
				zap.String("method", opts.Method),
				zap.String("url", opts.URL))
			return nil, err
		}
		defer httpResp.Body.Close()

		body, err := io.ReadAll(httpResp.Body)
		if err != nil {
			c.logger.Error("Failed to read response body", zap.Error(err))
			return nil, backoff.Permanent(fmt.Errorf("failed to read response body: %w", err))
		}

		return &Response{
			StatusCode: httpResp.StatusCode,
			Headers:    httpResp.Header,
			Body:       body,
		}, nil
	}

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxElapsedTime(opts.MaxElapsed),
		backoff.WithMaxTries(uint(opts.MaxRetries)+1),
	)
	if err != nil {
		c.logger.Error("HTTP request failed",
			zap.Error(err),
			zap.String("method", opts.Method),
			zap.String("url", opts.URL))
		return nil, err
	}

	c.logger.Info("HTTP request completed",
		zap.Int("status_code", resp.StatusCode),
		zap.String("method", opts.Method),
		zap.String("url", opts.URL))

	return resp, nil
}

func (c *Client) buildRequest(ctx context.Context, opts RequestOptions, target string) (*http.Request, error) {
	var (
		bodyReader  io.Reader
		contentType string
	)

	switch {
	case len(opts.Files) > 0:
		body, ct, err := encodeMultipart(opts.Form, opts.Files)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(body)
		contentType = ct
	case opts.Form != nil:
		form := url.Values{}
		for k, v := range opts.Form {
			form.Set(k, v)
		}
		bodyReader = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}
	// The boundary is only known here.
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return req, nil
}

func encodeMultipart(fields map[string]string, files []FormFile) ([]byte, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	for _, f := range files {
		if f.Content == nil {
			return nil, "", errors.New("missing content for file " + f.Field)
		}
		content, err := f.Content.Bytes()
		if err != nil {
			return nil, "", fmt.Errorf("failed to read file %s: %w", f.Field, err)
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(f.Field), escapeQuotes(f.Filename)))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := writer.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file %s: %w", f.Field, err)
		}
		if _, err := part.Write(content); err != nil {
			return nil, "", fmt.Errorf("failed to write file content %s: %w", f.Field, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// Get performs a plain GET.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Do(RequestOptions{
		Method:  http.MethodGet,
		URL:     url,
		Headers: headers,
		Context: ctx,
	})
}

// PostForm performs a url-encoded POST.
func (c *Client) PostForm(ctx context.Context, url string, headers map[string]string, form map[string]string) (*Response, error) {
	return c.Do(RequestOptions{
		Method:  http.MethodPost,
		URL:     url,
		Headers: headers,
		Form:    form,
		Context: ctx,
	})
}
