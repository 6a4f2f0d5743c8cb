package gitlab

import (
	"fmt"

	gl "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/time/rate"
)

// Config holds the settings of a single GitLab integration.
type Config struct {
	BaseURL       string `yaml:"base_url"`
	Token         string `yaml:"token"`
	IntegrationID int64  `yaml:"integration_id"`
}

// NewClient builds an API client with retries and client-side throttling
// disabled. Quota is tracked from the RateLimit-* response headers instead.
func NewClient(cfg Config) (*gl.Client, error) {
	opts := []gl.ClientOptionFunc{
		gl.WithoutRetries(),
		gl.WithCustomLimiter(rate.NewLimiter(rate.Inf, 0)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, gl.WithBaseURL(cfg.BaseURL))
	}

	client, err := gl.NewClient(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitlab client: %w", err)
	}
	return client, nil
}
