package graph

import "time"

const (
	DefaultBaseURL        = "https://graph.facebook.com"
	DefaultRequestTimeout = 60 * time.Second
)

// Config holds the client-wide defaults.
type Config struct {
	BaseURL      string
	GraphVersion string
	// AccessToken is used by the convenience helpers when a request does
	// not carry its own token.
	AccessToken string
	App         *App
	// AppSecretProof adds appsecret_proof to every signed request. Needs App.
	AppSecretProof bool
	Timeout        time.Duration
	// MaxRetries is handed to the transport for network failures.
	MaxRetries int
}

// DefaultConfig returns a config pointing at the public Graph API.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      DefaultBaseURL,
		GraphVersion: DefaultGraphVersion,
		Timeout:      DefaultRequestTimeout,
	}
}

func (c *Config) withDefaults() *Config {
	out := DefaultConfig()
	if c == nil {
		return out
	}
	*out = *c
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	if out.GraphVersion == "" {
		out.GraphVersion = DefaultGraphVersion
	}
	if out.Timeout == 0 {
		out.Timeout = DefaultRequestTimeout
	}
	return out
}
