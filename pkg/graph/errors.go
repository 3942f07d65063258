package graph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mitchellh/mapstructure"
)

// ErrConfiguration matches every error caused by how a request, batch or
// client was assembled locally. Such errors are returned by the call that
// detects them and never come from response parsing.
var ErrConfiguration = errors.New("graph: configuration error")

// configError is a configuration-kind sentinel.
type configError string

func (e configError) Error() string { return "graph: " + string(e) }

func (e configError) Is(target error) bool { return target == ErrConfiguration }

var (
	ErrAccessTokenConflict error = configError("access token mismatch between endpoint and request")
	ErrMissingAccessToken  error = configError("missing access token on request and batch request")
	ErrEmptyBatch          error = configError("empty batch request")
	ErrBatchTooLarge       error = configError("too many requests in batch")
	ErrInvalidBatchItem    error = configError("batch item must be a non-nil request")
	ErrPaginationMethod    error = configError("pagination requires a GET request")
	ErrInvalidEndpoint     error = configError("invalid endpoint")
)

var (
	ErrFileNotFound           = errors.New("graph: file does not exist")
	ErrMalformedBatchResponse = errors.New("graph: malformed batch response")
	ErrTokenNotReturned       = errors.New("graph: access token was not returned from Graph")
	ErrCodeNotReturned        = errors.New("graph: code was not returned from Graph")
)

// ErrorKind classifies an upstream error response.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindAuthentication
	KindResumableUpload
	KindServer
	KindThrottle
	KindAuthorization
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindResumableUpload:
		return "resumable_upload"
	case KindServer:
		return "server"
	case KindThrottle:
		return "throttle"
	case KindAuthorization:
		return "authorization"
	default:
		return "other"
	}
}

// Sentinels for errors.Is matching against a *ResponseError kind.
var (
	ErrOther           = errors.New("graph: unclassified error")
	ErrAuthentication  = errors.New("graph: authentication error")
	ErrResumableUpload = errors.New("graph: resumable upload error")
	ErrServer          = errors.New("graph: server error")
	ErrThrottle        = errors.New("graph: throttle error")
	ErrAuthorization   = errors.New("graph: authorization error")
)

var kindSentinels = map[ErrorKind]error{
	KindOther:           ErrOther,
	KindAuthentication:  ErrAuthentication,
	KindResumableUpload: ErrResumableUpload,
	KindServer:          ErrServer,
	KindThrottle:        ErrThrottle,
	KindAuthorization:   ErrAuthorization,
}

var (
	authSubCodes           = []int{458, 459, 460, 463, 464, 467}
	resumableUploadSubCode = []int{1363030, 1363037, 1363033, 1363021, 1363041}
	authCodes              = []int{100, 102, 190}
	serverCodes            = []int{1, 2}
	throttleCodes          = []int{4, 17, 341}
)

const defaultErrorMessage = "Unknown error from Graph."

// ErrorPayload is the "error" object of a Graph error response.
type ErrorPayload struct {
	Code        int    `mapstructure:"code"`
	SubCode     int    `mapstructure:"error_subcode"`
	Message     string `mapstructure:"message"`
	Type        string `mapstructure:"type"`
	UserTitle   string `mapstructure:"error_user_title"`
	UserMessage string `mapstructure:"error_user_msg"`
	FBTraceID   string `mapstructure:"fbtrace_id"`
	IsTransient bool   `mapstructure:"is_transient"`
}

// Classify maps an error payload to exactly one kind. Sub-codes win over
// codes, codes over the authorization range, and the range over the
// OAuthException type string.
func Classify(p ErrorPayload) ErrorKind {
	if p.SubCode != 0 {
		if slices.Contains(authSubCodes, p.SubCode) {
			return KindAuthentication
		}
		if slices.Contains(resumableUploadSubCode, p.SubCode) {
			return KindResumableUpload
		}
	}

	switch {
	case slices.Contains(authCodes, p.Code):
		return KindAuthentication
	case slices.Contains(serverCodes, p.Code):
		return KindServer
	case slices.Contains(throttleCodes, p.Code):
		return KindThrottle
	case p.Code == 10 || (p.Code >= 200 && p.Code <= 299):
		return KindAuthorization
	case p.Type == "OAuthException":
		return KindAuthentication
	}
	return KindOther
}

// ResponseError is an upstream error attached to a Response.
type ResponseError struct {
	Kind        ErrorKind
	Response    *Response
	Code        int
	SubCode     int
	Message     string
	Type        string
	UserTitle   string
	UserMessage string
	TraceID     string
}

func (e *ResponseError) Error() string {
	if e.SubCode != 0 {
		return fmt.Sprintf("graph: %s error (code %d, subcode %d): %s", e.Kind, e.Code, e.SubCode, e.Message)
	}
	return fmt.Sprintf("graph: %s error (code %d): %s", e.Kind, e.Code, e.Message)
}

// Is matches the sentinel of the error's kind.
func (e *ResponseError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// extractErrorPayload reads the error object out of a decoded body. When
// "error" carries no code but the body itself does, the body is the error.
func extractErrorPayload(body map[string]any) ErrorPayload {
	var p ErrorPayload

	raw, _ := body["error"].(map[string]any)
	if raw == nil {
		if s, ok := body["error"].(string); ok {
			p.Message = s
		}
	}
	if raw["code"] == nil && body["code"] != nil {
		raw = body
	}
	if raw != nil {
		// Best effort: a field with an unexpected shape keeps its zero value.
		_ = decodeWeak(raw, &p)
	}
	if p.Message == "" {
		p.Message = defaultErrorMessage
	}
	return p
}

func newResponseError(resp *Response) *ResponseError {
	p := extractErrorPayload(resp.DecodedBody())
	return &ResponseError{
		Kind:        Classify(p),
		Response:    resp,
		Code:        p.Code,
		SubCode:     p.SubCode,
		Message:     p.Message,
		Type:        p.Type,
		UserTitle:   p.UserTitle,
		UserMessage: p.UserMessage,
		TraceID:     p.FBTraceID,
	}
}

// decodeWeak decodes loosely typed JSON maps, accepting numbers sent as
// strings and vice versa.
func decodeWeak(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
