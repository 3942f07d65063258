package graph

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// NamedResponse pairs a batch item's name with its response.
type NamedResponse struct {
	Name     string
	Response *Response
}

// BatchResponse splits the physical response of a batch into one Response
// per item.
type BatchResponse struct {
	*Response
	BatchRequest *BatchRequest
	Responses    []NamedResponse
}

type batchResponseItem struct {
	Code    int `mapstructure:"code"`
	Headers any `mapstructure:"headers"`
	Body    any `mapstructure:"body"`
}

// NewBatchResponse pairs element i of the body array with entry i of the
// batch. Fewer elements than entries is accepted; more is not.
func NewBatchResponse(batch *BatchRequest, resp *Response) (*BatchResponse, error) {
	items, _ := resp.decoded.([]any)
	if len(items) > batch.Len() {
		return nil, fmt.Errorf("%w: %d items for %d requests", ErrMalformedBatchResponse, len(items), batch.Len())
	}

	br := &BatchResponse{
		Response:     resp,
		BatchRequest: batch,
		Responses:    make([]NamedResponse, 0, len(items)),
	}
	for i, raw := range items {
		entry := batch.entries[i]
		item, err := unwrapBatchItem(entry.Request, raw)
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		br.Responses = append(br.Responses, NamedResponse{Name: entry.Name, Response: item})
	}
	return br, nil
}

func unwrapBatchItem(req *Request, raw any) (*Response, error) {
	// Items skipped by the API come back as null.
	if raw == nil {
		return NewResponse(req, nil, 0, http.Header{}), nil
	}

	var item batchResponseItem
	if err := decodeWeak(raw, &item); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBatchResponse, err)
	}

	var body []byte
	switch b := item.Body.(type) {
	case nil:
	case string:
		body = []byte(b)
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode item body: %w", err)
		}
		body = encoded
	}

	return NewResponse(req, body, item.Code, itemHeaders(item.Headers)), nil
}

// itemHeaders accepts both the [{"name":..,"value":..}] list the API sends
// and a plain object.
func itemHeaders(raw any) http.Header {
	h := http.Header{}
	switch v := raw.(type) {
	case []any:
		for _, e := range v {
			pair, ok := e.(map[string]any)
			if !ok {
				continue
			}
			name, _ := pair["name"].(string)
			if name == "" {
				continue
			}
			h.Add(name, headerValue(pair["value"]))
		}
	case map[string]any:
		for name, value := range v {
			h.Set(name, headerValue(value))
		}
	}
	return h
}

func headerValue(v any) string {
	if v == nil {
		return ""
	}
	return toText(v)
}

// Get returns the response of the item with the given name.
func (b *BatchResponse) Get(name string) (*Response, bool) {
	for _, nr := range b.Responses {
		if nr.Name == name {
			return nr.Response, true
		}
	}
	return nil, false
}

// Errors returns the errors of the failed items, in order.
func (b *BatchResponse) Errors() []error {
	var errs []error
	for _, nr := range b.Responses {
		if err := nr.Response.RaiseException(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
