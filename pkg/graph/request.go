package graph

import (
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultGraphVersion = "v2.12"

	paramAccessToken    = "access_token"
	paramAppSecretProof = "appsecret_proof"
)

// RequestOptions describes one logical Graph API call. Params values may
// be *File attachments or anything printable; everything else is coerced
// to text.
type RequestOptions struct {
	Method       string
	Endpoint     string
	AccessToken  string
	Params       map[string]any
	Headers      map[string]string
	GraphVersion string
	Timeout      time.Duration
}

// Request is one logical call against the Graph API.
type Request struct {
	method       string
	endpoint     string
	accessToken  string
	graphVersion string
	headers      map[string]string
	params       map[string]string
	files        map[string]*File
	timeout      time.Duration
}

// Upload is a file attachment ready for the transport.
type Upload struct {
	Param    string
	Name     string
	File     *File
	MimeType string
}

// NewRequest builds a request, splitting Params into scalar params and
// file attachments once.
func NewRequest(opts RequestOptions) (*Request, error) {
	r := &Request{
		method:       strings.ToUpper(opts.Method),
		accessToken:  opts.AccessToken,
		graphVersion: opts.GraphVersion,
		headers:      make(map[string]string, len(opts.Headers)),
		params:       make(map[string]string, len(opts.Params)),
		files:        make(map[string]*File),
		timeout:      opts.Timeout,
	}
	if r.method == "" {
		r.method = http.MethodGet
	}
	if r.graphVersion == "" {
		r.graphVersion = DefaultGraphVersion
	}
	maps.Copy(r.headers, opts.Headers)

	if err := r.setParams(opts.Params); err != nil {
		return nil, err
	}
	if err := r.SetEndpoint(opts.Endpoint); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Request) setParams(params map[string]any) error {
	for key, value := range params {
		switch v := value.(type) {
		case *File:
			r.files[key] = v
		case nil:
			continue
		default:
			r.params[key] = toText(v)
		}
	}

	if token, ok := r.params[paramAccessToken]; ok {
		if err := r.SetAccessToken(token); err != nil {
			return err
		}
	}
	delete(r.params, paramAccessToken)
	delete(r.params, paramAppSecretProof)
	return nil
}

func toText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// SetEndpoint stores the endpoint. An access_token in its query string is
// adopted when the request has none and rejected when it differs; it and
// any appsecret_proof are removed from the stored endpoint.
func (r *Request) SetEndpoint(endpoint string) error {
	path, rawQuery, hasQuery := strings.Cut(endpoint, "?")
	if !hasQuery {
		r.endpoint = endpoint
		return nil
	}

	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidEndpoint, endpoint, err)
	}
	if token := q.Get(paramAccessToken); token != "" {
		if err := r.SetAccessToken(token); err != nil {
			return err
		}
	}
	if q.Has(paramAccessToken) || q.Has(paramAppSecretProof) {
		q.Del(paramAccessToken)
		q.Del(paramAppSecretProof)
		rawQuery = q.Encode()
	}

	r.endpoint = path
	if rawQuery != "" {
		r.endpoint += "?" + rawQuery
	}
	return nil
}

// SetAccessToken sets the token unless a different one is already set.
func (r *Request) SetAccessToken(token string) error {
	if r.accessToken != "" && token != "" && r.accessToken != token {
		return ErrAccessTokenConflict
	}
	if token != "" {
		r.accessToken = token
	}
	return nil
}

func (r *Request) Method() string       { return r.method }
func (r *Request) Endpoint() string     { return r.endpoint }
func (r *Request) AccessToken() string  { return r.accessToken }
func (r *Request) GraphVersion() string { return r.graphVersion }

// Timeout returns the request timeout; zero means the client default.
func (r *Request) Timeout() time.Duration { return r.timeout }

func (r *Request) isPost() bool {
	return r.method == http.MethodPost
}

// Headers returns a copy of the request headers.
func (r *Request) Headers() map[string]string {
	return maps.Clone(r.headers)
}

// AddHeaders merges the given maps into the request headers.
func (r *Request) AddHeaders(headers ...map[string]string) {
	for _, h := range headers {
		maps.Copy(r.headers, h)
	}
}

// Params returns the query parameters: the access token plus, for
// non-POST requests, the stored params.
func (r *Request) Params() map[string]string {
	params := make(map[string]string, len(r.params)+1)
	if !r.isPost() {
		maps.Copy(params, r.params)
	}
	if r.accessToken != "" {
		params[paramAccessToken] = r.accessToken
	}
	return params
}

// PostParams returns the body parameters of a POST request and nil for
// every other method.
func (r *Request) PostParams() map[string]string {
	if !r.isPost() {
		return nil
	}
	return maps.Clone(r.params)
}

// URL is the versioned path of the request, e.g. "/v2.12/me".
func (r *Request) URL() string {
	return ForceSlashPrefix(r.graphVersion) + ForceSlashPrefix(r.endpoint)
}

// BatchURL is the URL with the query params inlined, as used for batch
// items which have no separate query channel.
func (r *Request) BatchURL() string {
	u := r.URL()
	if r.isPost() {
		return u
	}
	params := r.Params()
	if len(params) == 0 {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + encodeParams(params)
}

// URLEncodeBody returns the form encoded POST params, or "" when there
// are none.
func (r *Request) URLEncodeBody() string {
	params := r.PostParams()
	if len(params) == 0 {
		return ""
	}
	return encodeParams(params)
}

// ContainsFiles reports whether the request carries file attachments.
func (r *Request) ContainsFiles() bool {
	return len(r.files) > 0
}

// Files returns the attachments keyed by param name.
func (r *Request) Files() map[string]*File {
	return maps.Clone(r.files)
}

// FilesToUpload lists the attachments in param name order.
func (r *Request) FilesToUpload() []Upload {
	uploads := make([]Upload, 0, len(r.files))
	for _, name := range slices.Sorted(maps.Keys(r.files)) {
		f := r.files[name]
		uploads = append(uploads, Upload{
			Param:    name,
			Name:     f.Name(),
			File:     f,
			MimeType: f.MimeType(),
		})
	}
	return uploads
}

// withEndpoint derives a new request from r pointing at endpoint. Params
// that the endpoint's own query string sets are not copied.
func (r *Request) withEndpoint(endpoint string) (*Request, error) {
	next := &Request{
		method:       r.method,
		accessToken:  r.accessToken,
		graphVersion: r.graphVersion,
		headers:      maps.Clone(r.headers),
		params:       maps.Clone(r.params),
		files:        maps.Clone(r.files),
		timeout:      r.timeout,
	}
	if err := next.SetEndpoint(endpoint); err != nil {
		return nil, err
	}
	if _, rawQuery, ok := strings.Cut(next.endpoint, "?"); ok {
		q, _ := url.ParseQuery(rawQuery)
		for key := range q {
			delete(next.params, key)
		}
	}
	return next, nil
}

// ForceSlashPrefix makes sure value starts with exactly one slash.
func ForceSlashPrefix(value string) string {
	return "/" + strings.TrimLeft(value, "/")
}

// encodeParams form-encodes params with keys in sorted order.
func encodeParams(params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return values.Encode()
}
