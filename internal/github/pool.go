package github

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gh "github.com/google/go-github/v57/github"
)

const (
	// lowHeadroom is the remaining quota below which Pick prefers the
	// client whose window resets first.
	lowHeadroom = 100

	anonymousQuota     = 60
	authenticatedQuota = 5000
)

// Client is one token of a ClientPool with the quota last reported for it.
type Client struct {
	API   *gh.Client
	Token string
	Proxy string

	mu        sync.Mutex
	remaining int
	resetAt   time.Time
}

// observe records the quota from a response.
func (c *Client) observe(rate gh.Rate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remaining = rate.Remaining
	c.resetAt = rate.Reset.Time
}

func (c *Client) quota() (int, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining, c.resetAt
}

func (c *Client) Remaining() int {
	remaining, _ := c.quota()
	return remaining
}

// ClientPool spreads blame requests over several tokens.
type ClientPool struct {
	mu      sync.Mutex
	clients []*Client
}

// NewClientPool creates one client per token. proxies are matched to tokens
// by position. With no tokens the pool holds a single anonymous client.
func NewClientPool(tokens []string, proxies []string, baseURL string) (*ClientPool, error) {
	if len(tokens) == 0 {
		api, err := NewClient("", "", baseURL)
		if err != nil {
			return nil, err
		}
		return &ClientPool{clients: []*Client{{API: api, remaining: anonymousQuota}}}, nil
	}

	pool := &ClientPool{clients: make([]*Client, 0, len(tokens))}
	for i, token := range tokens {
		var proxyURL string
		if i < len(proxies) {
			proxyURL = proxies[i]
		}
		api, err := NewClient(token, proxyURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create client for token %d: %v", i+1, err)
		}
		pool.clients = append(pool.clients, &Client{
			API:       api,
			Token:     token,
			Proxy:     proxyURL,
			remaining: authenticatedQuota,
		})
	}
	return pool, nil
}

// Pick returns the client with the most quota left. When every client is
// under lowHeadroom it returns the one whose window resets first.
func (p *ClientPool) Pick() *Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.clients) == 1 {
		return p.clients[0]
	}

	best, bestRemaining := p.clients[0], -1
	soonest, soonestReset := p.clients[0], time.Time{}
	for _, c := range p.clients {
		remaining, reset := c.quota()
		if remaining > bestRemaining {
			best, bestRemaining = c, remaining
		}
		if soonestReset.IsZero() || reset.Before(soonestReset) {
			soonest, soonestReset = c, reset
		}
	}

	if bestRemaining < lowHeadroom {
		return soonest
	}
	return best
}

// Validate checks every token of the pool against the API. Anonymous pools
// are not checked.
func (p *ClientPool) Validate(ctx context.Context) error {
	var errs []error
	for i, c := range p.Clients() {
		if c.Token == "" {
			continue
		}
		if err := ValidateToken(ctx, c.API); err != nil {
			errs = append(errs, fmt.Errorf("token %d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}

func (p *ClientPool) PrimaryToken() string {
	if len(p.clients) == 0 {
		return ""
	}
	return p.clients[0].Token
}

func (p *ClientPool) Size() int {
	return len(p.clients)
}

func (p *ClientPool) Clients() []*Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Client(nil), p.clients...)
}
