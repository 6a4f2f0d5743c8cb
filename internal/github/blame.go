package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gnomegl/commitctx/internal/blame"
	"github.com/gnomegl/commitctx/internal/cache"
	"github.com/gnomegl/commitctx/internal/logging"
	"github.com/gnomegl/commitctx/internal/metrics"
	"github.com/gnomegl/commitctx/internal/models"
	gh "github.com/google/go-github/v57/github"
	"go.uber.org/zap"
)

const (
	providerName    = "github"
	headerRateLimit = "X-RateLimit-Limit"
)

const blameQuery = `query ($owner: String!, $name: String!, $ref: String!, $path: String!) {
  repository(owner: $owner, name: $name) {
    ref(qualifiedName: $ref) {
      target {
        ... on Commit {
          blame(path: $path) {
            ranges {
              commit { oid message committedDate author { name email } }
              startingLine
              endingLine
            }
          }
        }
      }
    }
  }
}`

type graphQLRequest struct {
	Query     string            `json:"query"`
	Variables map[string]string `json:"variables"`
}

// Blamer resolves single-line blames through the GitHub GraphQL API.
type Blamer struct {
	pool          *ClientPool
	cache         cache.Cache
	integrationID int64
	logger        *zap.Logger
	metrics       *metrics.Metrics
}

type Option func(*Blamer)

func WithCache(c cache.Cache) Option {
	return func(b *Blamer) { b.cache = c }
}

func WithIntegrationID(id int64) Option {
	return func(b *Blamer) { b.integrationID = id }
}

func WithLogger(l *zap.Logger) Option {
	return func(b *Blamer) { b.logger = logging.OrNop(l) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Blamer) { b.metrics = m }
}

func NewBlamer(pool *ClientPool, opts ...Option) *Blamer {
	b := &Blamer{pool: pool, cache: cache.Noop{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Blamer) Provider() string {
	return providerName
}

func (b *Blamer) FetchFileBlame(ctx context.Context, file models.SourceLineInfo, fields []zap.Field) (*models.CommitInfo, *models.RateLimitInfo, error) {
	owner, name, ok := strings.Cut(file.Repo.Name, "/")
	if !ok || owner == "" || name == "" {
		return nil, nil, &blame.APIError{Text: fmt.Sprintf("repository name %q is not owner/name", file.Repo.Name)}
	}

	payload := graphQLRequest{
		Query: blameQuery,
		Variables: map[string]string{
			"owner": owner,
			"name":  name,
			"ref":   file.Ref,
			"path":  file.Path,
		},
	}
	variables, err := json.Marshal(payload.Variables)
	if err != nil {
		return nil, nil, err
	}
	cacheKey := cache.Key(providerName, b.integrationID, "graphql", string(variables))

	var rateLimit *models.RateLimitInfo
	body, hit := b.checkCache(ctx, cacheKey, fields)
	if hit {
		b.logger.Info("get_blame_for_files.got_cached", fields...)
	} else {
		body, rateLimit, err = b.post(ctx, &payload)
		if err != nil {
			return nil, nil, err
		}
		if err := b.cache.Set(ctx, cacheKey, body, cache.BlameTTL); err != nil {
			b.logger.Warn("get_blame_for_files.cache_error", blame.With(fields, zap.Error(err))...)
		}
	}

	raws, err := parseBlameResponse(body, file.Lineno)
	if err != nil {
		return nil, nil, err
	}

	commits := make([]*models.CommitInfo, 0, len(raws))
	for _, raw := range raws {
		commits = append(commits, blame.NewCommitInfo(raw, b.logger, fields))
	}
	return blame.LatestCommit(commits), rateLimit, nil
}

func (b *Blamer) post(ctx context.Context, payload *graphQLRequest) ([]byte, *models.RateLimitInfo, error) {
	client := b.pool.Pick()

	req, err := client.API.NewRequest(http.MethodPost, graphQLPath(client.API), payload)
	if err != nil {
		return nil, nil, &blame.APIError{Text: "failed to build blame request", Err: err}
	}

	var buf bytes.Buffer
	resp, err := client.API.Do(ctx, req, &buf)
	hasRate := resp != nil && resp.Response != nil && resp.Header.Get(headerRateLimit) != ""
	if hasRate {
		client.observe(resp.Rate)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, toAPIError(resp, err)
	}

	var rateLimit *models.RateLimitInfo
	if hasRate {
		rateLimit = &models.RateLimitInfo{
			Limit:     resp.Rate.Limit,
			Remaining: resp.Rate.Remaining,
			Reset:     resp.Rate.Reset.Time.UTC(),
		}
	}
	return buf.Bytes(), rateLimit, nil
}

func toAPIError(resp *gh.Response, err error) *blame.APIError {
	var rateErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	var errResp *gh.ErrorResponse

	switch {
	case errors.As(err, &rateErr) && rateErr.Response != nil:
		return &blame.APIError{Code: rateErr.Response.StatusCode, Text: rateErr.Message, Err: err}
	case errors.As(err, &abuseErr) && abuseErr.Response != nil:
		return &blame.APIError{Code: abuseErr.Response.StatusCode, Text: abuseErr.Message, Err: err}
	case errors.As(err, &errResp) && errResp.Response != nil:
		return &blame.APIError{Code: errResp.Response.StatusCode, Text: errResp.Message, Err: err}
	case resp != nil && resp.Response != nil:
		return &blame.APIError{Code: resp.StatusCode, Err: err}
	}
	return &blame.APIError{Err: err}
}

func (b *Blamer) checkCache(ctx context.Context, key string, fields []zap.Field) ([]byte, bool) {
	body, ok, err := b.cache.Get(ctx, key)
	if err != nil {
		b.logger.Warn("get_blame_for_files.cache_error", blame.With(fields, zap.Error(err))...)
		ok = false
	}
	b.metrics.CacheLookup(providerName, ok)
	return body, ok
}
