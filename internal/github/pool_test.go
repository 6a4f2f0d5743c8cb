package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gh "github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientPoolAnonymous(t *testing.T) {
	pool, err := NewClientPool(nil, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 1, pool.Size())
	assert.Equal(t, "", pool.PrimaryToken())
	assert.Equal(t, 60, pool.Pick().Remaining())
	assert.NoError(t, pool.Validate(context.Background()))
}

func TestClientPoolPrefersMostRemaining(t *testing.T) {
	pool, err := NewClientPool([]string{"one", "two"}, []string{"http://127.0.0.1:3128"}, "")
	require.NoError(t, err)
	require.Equal(t, 2, pool.Size())
	assert.Equal(t, "one", pool.PrimaryToken())
	clients := pool.Clients()
	assert.Equal(t, "http://127.0.0.1:3128", clients[0].Proxy)
	assert.Empty(t, clients[1].Proxy)

	reset := gh.Timestamp{Time: time.Now().Add(time.Hour)}
	clients[0].observe(gh.Rate{Remaining: 200, Reset: reset})
	clients[1].observe(gh.Rate{Remaining: 3000, Reset: reset})
	assert.Equal(t, "two", pool.Pick().Token)
}

func TestClientPoolPrefersEarliestResetWhenLow(t *testing.T) {
	pool, err := NewClientPool([]string{"one", "two"}, nil, "")
	require.NoError(t, err)

	now := time.Now()
	clients := pool.Clients()
	clients[0].observe(gh.Rate{Remaining: 50, Reset: gh.Timestamp{Time: now.Add(5 * time.Minute)}})
	clients[1].observe(gh.Rate{Remaining: 20, Reset: gh.Timestamp{Time: now.Add(time.Minute)}})
	assert.Equal(t, "two", pool.Pick().Token)
}

func TestClientPoolValidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer bad" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"login":"octocat"}`))
	}))
	t.Cleanup(srv.Close)

	good, err := NewClientPool([]string{"good"}, nil, srv.URL)
	require.NoError(t, err)
	assert.NoError(t, good.Validate(context.Background()))

	mixed, err := NewClientPool([]string{"good", "bad"}, nil, srv.URL)
	require.NoError(t, err)
	err = mixed.Validate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token 2")
	assert.NotContains(t, err.Error(), "token 1")
}

func TestNewClientPoolRejectsBadProxy(t *testing.T) {
	_, err := NewClientPool([]string{"one"}, []string{"http://[::1"}, "")
	assert.Error(t, err)
}

func TestGraphQLPath(t *testing.T) {
	public, err := NewClient("", "", "")
	require.NoError(t, err)
	assert.Equal(t, "graphql", graphQLPath(public))

	enterprise, err := NewClient("", "", "https://ghe.example.com")
	require.NoError(t, err)
	assert.Equal(t, "../graphql", graphQLPath(enterprise))
}
