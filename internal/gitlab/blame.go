package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gnomegl/commitctx/internal/blame"
	"github.com/gnomegl/commitctx/internal/cache"
	"github.com/gnomegl/commitctx/internal/logging"
	"github.com/gnomegl/commitctx/internal/metrics"
	"github.com/gnomegl/commitctx/internal/models"
	gl "gitlab.com/gitlab-org/api/client-go"
	"go.uber.org/zap"
)

const (
	providerName = "gitlab"
	blamePath    = "projects/%s/repository/files/%s/blame"
)

type blameParams struct {
	Ref        string `url:"ref" json:"ref"`
	RangeStart int    `url:"range[start]" json:"range[start]"`
	RangeEnd   int    `url:"range[end]" json:"range[end]"`
}

// Blamer resolves single-line blames through the GitLab files API.
type Blamer struct {
	api           *gl.Client
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

func NewBlamer(api *gl.Client, opts ...Option) *Blamer {
	b := &Blamer{api: api, cache: cache.Noop{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Blamer) Provider() string {
	return providerName
}

// FetchFileBlame returns the latest commit touching file.Lineno, or nil when
// the response holds no usable commit. Rate limit info is nil for cached responses.
func (b *Blamer) FetchFileBlame(ctx context.Context, file models.SourceLineInfo, fields []zap.Field) (*models.CommitInfo, *models.RateLimitInfo, error) {
	requestPath := fmt.Sprintf(blamePath, url.PathEscape(file.Repo.ProjectID()), url.PathEscape(file.Path))
	params := blameParams{Ref: file.Ref, RangeStart: file.Lineno, RangeEnd: file.Lineno}
	query, err := json.Marshal(params)
	if err != nil {
		return nil, nil, err
	}
	cacheKey := cache.Key(providerName, b.integrationID, requestPath, string(query))

	var rateLimit *models.RateLimitInfo
	body, hit := b.checkCache(ctx, cacheKey, fields)
	if hit {
		b.logger.Info("get_blame_for_files.got_cached", fields...)
	} else {
		var header http.Header
		body, header, err = b.get(ctx, requestPath, &params)
		if err != nil {
			return nil, nil, err
		}
		b.setCache(ctx, cacheKey, body, fields)

		rateLimit, err = rateLimitFromHeaders(header)
		if err != nil {
			b.logger.Warn("get_blame_for_files.invalid_rate_limit_headers", blame.With(fields, zap.Error(err))...)
			rateLimit = nil
		}
	}

	raws, err := parseBlameResponse(body)
	if err != nil {
		return nil, nil, err
	}

	commits := make([]*models.CommitInfo, 0, len(raws))
	for _, raw := range raws {
		commits = append(commits, blame.NewCommitInfo(raw, b.logger, fields))
	}
	return blame.LatestCommit(commits), rateLimit, nil
}

func (b *Blamer) get(ctx context.Context, requestPath string, params *blameParams) ([]byte, http.Header, error) {
	req, err := b.api.NewRequest(http.MethodGet, requestPath, params, []gl.RequestOptionFunc{gl.WithContext(ctx)})
	if err != nil {
		return nil, nil, &blame.APIError{Text: "failed to build blame request", Err: err}
	}

	var buf bytes.Buffer
	resp, err := b.api.Do(req, &buf)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, toAPIError(resp, err)
	}

	return buf.Bytes(), resp.Header, nil
}

func toAPIError(resp *gl.Response, err error) *blame.APIError {
	var errResp *gl.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return &blame.APIError{Code: errResp.Response.StatusCode, Text: errResp.Message, Err: err}
	}
	if resp != nil && resp.Response != nil {
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

func (b *Blamer) setCache(ctx context.Context, key string, body []byte, fields []zap.Field) {
	if err := b.cache.Set(ctx, key, body, cache.BlameTTL); err != nil {
		b.logger.Warn("get_blame_for_files.cache_error", blame.With(fields, zap.Error(err))...)
	}
}
