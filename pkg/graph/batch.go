package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// MaxBatchSize is the most requests the API accepts in one batch.
const MaxBatchSize = 50

// BatchEntry is one named request inside a batch.
type BatchEntry struct {
	Name    string
	Request *Request
	// AttachedFiles is the comma separated list of file tokens the item
	// refers to in the multipart body.
	AttachedFiles string
}

// BatchRequest groups several requests into a single POST. Its embedded
// Request carries the batch-level token and the pooled file attachments.
type BatchRequest struct {
	*Request
	entries []BatchEntry
}

// NewBatchRequest creates an empty batch with the given default token.
func NewBatchRequest(accessToken, graphVersion string) *BatchRequest {
	if graphVersion == "" {
		graphVersion = DefaultGraphVersion
	}
	return &BatchRequest{
		Request: &Request{
			method:       http.MethodPost,
			accessToken:  accessToken,
			graphVersion: graphVersion,
			headers:      make(map[string]string),
			params:       make(map[string]string),
			files:        make(map[string]*File),
		},
	}
}

// Add appends one request. An empty name leaves the item unnamed.
func (b *BatchRequest) Add(req *Request, name string) error {
	if req == nil {
		return ErrInvalidBatchItem
	}
	if err := b.resolveAccessToken(req); err != nil {
		return err
	}

	entry := BatchEntry{Name: name, Request: req}
	if req.ContainsFiles() {
		entry.AttachedFiles = b.pool(req)
	}
	b.entries = append(b.entries, entry)
	return nil
}

// AddMany appends requests named by their position.
func (b *BatchRequest) AddMany(reqs []*Request) error {
	for i, req := range reqs {
		if err := b.Add(req, strconv.Itoa(i)); err != nil {
			return fmt.Errorf("batch item %d: %w", i, err)
		}
	}
	return nil
}

// AddNamed appends requests named by their keys, in key order.
func (b *BatchRequest) AddNamed(reqs map[string]*Request) error {
	for _, name := range slices.Sorted(maps.Keys(reqs)) {
		if err := b.Add(reqs[name], name); err != nil {
			return fmt.Errorf("batch item %q: %w", name, err)
		}
	}
	return nil
}

func (b *BatchRequest) resolveAccessToken(req *Request) error {
	if req.AccessToken() != "" {
		return nil
	}
	if b.AccessToken() == "" {
		return ErrMissingAccessToken
	}
	req.accessToken = b.AccessToken()
	return nil
}

// pool moves the request's files into the batch under fresh tokens and
// returns the tokens joined by commas.
func (b *BatchRequest) pool(req *Request) string {
	tokens := make([]string, 0, len(req.files))
	for _, name := range slices.Sorted(maps.Keys(req.files)) {
		token := "file_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		b.files[token] = req.files[name]
		tokens = append(tokens, token)
	}
	return strings.Join(tokens, ",")
}

// Len returns the number of entries.
func (b *BatchRequest) Len() int {
	return len(b.entries)
}

// Entries returns a copy of the entries in insertion order.
func (b *BatchRequest) Entries() []BatchEntry {
	return slices.Clone(b.entries)
}

// All iterates over the entries in insertion order.
func (b *BatchRequest) All() iter.Seq2[int, BatchEntry] {
	return func(yield func(int, BatchEntry) bool) {
		for i, e := range b.entries {
			if !yield(i, e) {
				return
			}
		}
	}
}

// ValidateCount checks the entry count is within [1, MaxBatchSize].
func (b *BatchRequest) ValidateCount() error {
	n := len(b.entries)
	if n == 0 {
		return ErrEmptyBatch
	}
	if n > MaxBatchSize {
		return fmt.Errorf("%w: %d requests, limit is %d", ErrBatchTooLarge, n, MaxBatchSize)
	}
	return nil
}

// Prepare serialises the entries into the batch body params.
func (b *BatchRequest) Prepare() error {
	batch, err := b.ToJSON()
	if err != nil {
		return err
	}
	b.params["batch"] = batch
	b.params["include_headers"] = "true"
	return nil
}

type batchItem struct {
	Method        string            `json:"method"`
	RelativeURL   string            `json:"relative_url"`
	Headers       map[string]string `json:"headers"`
	Body          string            `json:"body,omitempty"`
	Name          string            `json:"name,omitempty"`
	AccessToken   string            `json:"access_token,omitempty"`
	AttachedFiles string            `json:"attached_files,omitempty"`
}

func (b *BatchRequest) toBatchItem(e BatchEntry) batchItem {
	item := batchItem{
		Method:        e.Request.Method(),
		RelativeURL:   e.Request.BatchURL(),
		Headers:       e.Request.Headers(),
		Body:          e.Request.URLEncodeBody(),
		Name:          e.Name,
		AttachedFiles: e.AttachedFiles,
	}
	if e.Request.AccessToken() != b.AccessToken() {
		item.AccessToken = e.Request.AccessToken()
	}
	return item
}

// ToJSON renders the entries as the batch JSON array.
func (b *BatchRequest) ToJSON() (string, error) {
	items := make([]batchItem, 0, len(b.entries))
	for _, e := range b.entries {
		items = append(items, b.toBatchItem(e))
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return "", fmt.Errorf("failed to encode batch: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
