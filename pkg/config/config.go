package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/natserract/fbgraph/pkg/graph"
)

const envPrefix = "GRAPH"

type Config struct {
	AppID            string        `envconfig:"APP_ID"`
	AppSecret        string        `envconfig:"APP_SECRET"`
	AccessToken      string        `envconfig:"ACCESS_TOKEN"`
	Version          string        `envconfig:"VERSION" default:"v2.12"`
	BaseURL          string        `envconfig:"BASE_URL" default:"https://graph.facebook.com"`
	RequestTimeout   time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`
	MaxRetries       int           `envconfig:"MAX_RETRIES" default:"0"`
	AppSecretProof   bool          `envconfig:"APPSECRET_PROOF" default:"false"`
	BatchConcurrency int           `envconfig:"BATCH_CONCURRENCY" default:"4"`
	Debug            bool          `envconfig:"DEBUG" default:"false"`
}

func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.AccessToken == "" && (c.AppID == "" || c.AppSecret == "") {
		result = multierror.Append(result,
			errors.New("GRAPH_ACCESS_TOKEN or both GRAPH_APP_ID and GRAPH_APP_SECRET are required"))
	}
	if (c.AppID == "") != (c.AppSecret == "") {
		result = multierror.Append(result,
			errors.New("GRAPH_APP_ID and GRAPH_APP_SECRET must be set together"))
	}
	if c.AppSecretProof && c.AppSecret == "" {
		result = multierror.Append(result,
			errors.New("GRAPH_APPSECRET_PROOF requires GRAPH_APP_SECRET"))
	}
	if !strings.HasPrefix(c.Version, "v") {
		result = multierror.Append(result,
			fmt.Errorf("GRAPH_VERSION must look like v2.12, got %q", c.Version))
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		result = multierror.Append(result,
			fmt.Errorf("GRAPH_BASE_URL must be an http(s) URL, got %q", c.BaseURL))
	}
	if c.RequestTimeout <= 0 {
		result = multierror.Append(result,
			errors.New("GRAPH_REQUEST_TIMEOUT must be positive"))
	}
	if c.MaxRetries < 0 {
		result = multierror.Append(result,
			errors.New("GRAPH_MAX_RETRIES must not be negative"))
	}
	if c.BatchConcurrency < 1 {
		result = multierror.Append(result,
			errors.New("GRAPH_BATCH_CONCURRENCY must be at least 1"))
	}

	return result.ErrorOrNil()
}

// App returns the configured application, or nil when none is set.
func (c *Config) App() *graph.App {
	if c.AppID == "" || c.AppSecret == "" {
		return nil
	}
	return &graph.App{ID: c.AppID, Secret: c.AppSecret}
}

// GraphConfig converts the environment settings into client settings. The
// app token is used when no user token is configured.
func (c *Config) GraphConfig() *graph.Config {
	app := c.App()
	token := c.AccessToken
	if token == "" && app != nil {
		token = app.AccessToken().String()
	}
	return &graph.Config{
		BaseURL:        c.BaseURL,
		GraphVersion:   c.Version,
		AccessToken:    token,
		App:            app,
		AppSecretProof: c.AppSecretProof,
		Timeout:        c.RequestTimeout,
		MaxRetries:     c.MaxRetries,
	}
}
