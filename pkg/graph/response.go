package graph

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
)

// graphURLPrefix matches the scheme, host and optional version segment of
// an absolute Graph URL.
var graphURLPrefix = regexp.MustCompile(`^https?://[^/]+(/v\d+(\.\d+)?)?/`)

// Response is the outcome of one logical request.
type Response struct {
	Request        *Request
	Body           []byte
	HTTPStatusCode int
	Headers        http.Header

	decoded any
	err     *ResponseError
}

// NewResponse wraps a raw body. A body carrying an "error" key gets its
// classified error attached; nothing is returned as a Go error here.
func NewResponse(req *Request, body []byte, statusCode int, headers http.Header) *Response {
	r := &Response{
		Request:        req,
		Body:           body,
		HTTPStatusCode: statusCode,
		Headers:        headers,
	}
	r.decodeBody()
	if r.IsError() {
		r.err = newResponseError(r)
	}
	return r
}

func (r *Response) decodeBody() {
	var v any
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return
	}
	// Some endpoints answer with a bare boolean.
	if b, ok := v.(bool); ok {
		v = map[string]any{"success": b}
	}
	r.decoded = v
}

// DecodedBody returns the body as a JSON object. Bodies that are not
// objects, including malformed ones, yield an empty map.
func (r *Response) DecodedBody() map[string]any {
	if m, ok := r.decoded.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// Decode unmarshals the raw body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// IsError reports whether the body carries an "error" key.
func (r *Response) IsError() bool {
	_, ok := r.DecodedBody()["error"]
	return ok
}

// Err returns the attached error, or nil.
func (r *Response) Err() *ResponseError {
	return r.err
}

// RaiseException returns the attached error as an error value, or nil
// when the response succeeded.
func (r *Response) RaiseException() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

func (r *Response) header(key string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(key)
}

func (r *Response) ETag() string               { return r.header("ETag") }
func (r *Response) FBTraceID() string          { return r.header("X-Fb-Trace-Id") }
func (r *Response) GraphVersionHeader() string { return r.header("Facebook-Api-Version") }

// NextPageRequest returns the request for the next page, or nil when the
// body has no next link.
func (r *Response) NextPageRequest() (*Request, error) {
	return r.pageRequest("next")
}

// PreviousPageRequest returns the request for the previous page, or nil
// when the body has no previous link.
func (r *Response) PreviousPageRequest() (*Request, error) {
	return r.pageRequest("previous")
}

func (r *Response) pageRequest(direction string) (*Request, error) {
	if r.Request == nil || r.Request.Method() != http.MethodGet {
		return nil, ErrPaginationMethod
	}

	paging, _ := r.DecodedBody()["paging"].(map[string]any)
	link, _ := paging[direction].(string)
	if link == "" {
		return nil, nil
	}

	return r.Request.withEndpoint(graphURLPrefix.ReplaceAllString(link, "/"))
}
