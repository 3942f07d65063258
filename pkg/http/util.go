package http

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildURL joins baseURL and path and merges queryParams into whatever
// query string the result already carries. Explicit params win.
func BuildURL(baseURL, path string, queryParams map[string]string) (string, error) {
	raw := baseURL
	if path != "" {
		raw = strings.TrimRight(baseURL, "/") + path
	}

	parsedURL, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("error parsing URL: %w", err)
	}

	if len(queryParams) == 0 {
		return parsedURL.String(), nil
	}

	q := parsedURL.Query()
	for key, value := range queryParams {
		q.Set(key, value)
	}
	parsedURL.RawQuery = q.Encode()

	return parsedURL.String(), nil
}
