package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/natserract/fbgraph/pkg/graph"
	"github.com/spf13/afero"
)

// RequestSpec is one request as written in a batch input file.
type RequestSpec struct {
	Name        string            `json:"name"`
	Method      string            `json:"method"`
	Endpoint    string            `json:"endpoint"`
	Params      map[string]any    `json:"params"`
	Headers     map[string]string `json:"headers"`
	AccessToken string            `json:"access_token"`
}

// NamedRequest is a built request together with the name it reports under.
type NamedRequest struct {
	Name    string
	Request *graph.Request
}

// LoadRequestSpecs reads a JSON array of request specs.
func LoadRequestSpecs(fs afero.Fs, path string) ([]RequestSpec, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	// Numbers stay json.Number so ids and timestamps keep their digits.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var specs []RequestSpec
	if err := dec.Decode(&specs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return specs, nil
}

// BuildRequests turns specs into requests. String params starting with "@"
// name a file to upload. Unnamed specs are named by position. All invalid
// specs are reported together.
func BuildRequests(fs afero.Fs, specs []RequestSpec, graphVersion string) ([]NamedRequest, error) {
	var result *multierror.Error
	reqs := make([]NamedRequest, 0, len(specs))

	for i, spec := range specs {
		name := spec.Name
		if name == "" {
			name = strconv.Itoa(i)
		}

		params, err := resolveParams(fs, spec.Params)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("request %q: %w", name, err))
			continue
		}

		req, err := graph.NewRequest(graph.RequestOptions{
			Method:       spec.Method,
			Endpoint:     spec.Endpoint,
			AccessToken:  spec.AccessToken,
			Params:       params,
			Headers:      spec.Headers,
			GraphVersion: graphVersion,
		})
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("request %q: %w", name, err))
			continue
		}

		reqs = append(reqs, NamedRequest{Name: name, Request: req})
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return reqs, nil
}

func resolveParams(fs afero.Fs, params map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(params))
	for key, value := range params {
		s, ok := value.(string)
		if !ok || !strings.HasPrefix(s, "@") {
			out[key] = value
			continue
		}
		f, err := graph.NewFileFromFs(fs, strings.TrimPrefix(s, "@"))
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", key, err)
		}
		out[key] = f
	}
	return out, nil
}
