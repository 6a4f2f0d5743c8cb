package blame

import (
	"context"
	"errors"

	"github.com/gnomegl/commitctx/internal/logging"
	"github.com/gnomegl/commitctx/internal/metrics"
	"github.com/gnomegl/commitctx/internal/models"
	"go.uber.org/zap"
)

// MinimumRequests is the quota a batch must leave untouched on the provider.
const MinimumRequests = 100

// FileBlamer resolves the blame for one file and line.
type FileBlamer interface {
	Provider() string
	FetchFileBlame(ctx context.Context, file models.SourceLineInfo, fields []zap.Field) (*models.CommitInfo, *models.RateLimitInfo, error)
}

type Fetcher struct {
	client   FileBlamer
	logger   *zap.Logger
	metrics  *metrics.Metrics
	progress func()
}

type Option func(*Fetcher)

func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) { f.logger = logging.OrNop(l) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// WithProgress registers a callback run after every file, successful or not.
func WithProgress(fn func()) Option {
	return func(f *Fetcher) { f.progress = fn }
}

func NewFetcher(client FileBlamer, opts ...Option) *Fetcher {
	f := &Fetcher{client: client, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchFileBlames blames every file in order. Per-file API errors are logged
// and skipped; a RateLimitedError is returned when the first response shows
// too little headroom for the rest of the batch.
func (f *Fetcher) FetchFileBlames(ctx context.Context, files []models.SourceLineInfo, fields ...zap.Field) ([]models.FileBlameInfo, error) {
	blames := make([]models.FileBlameInfo, 0, len(files))
	provider := f.client.Provider()

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return blames, err
		}

		commit, rateLimit, err := f.client.FetchFileBlame(ctx, file, fields)
		f.tick()

		if err != nil {
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				return blames, err
			}
			f.handleFileBlameError(apiErr, file, fields)
			continue
		}

		if commit != nil {
			blames = append(blames, models.FileBlameInfo{SourceLineInfo: file, Commit: *commit})
		}

		// the first response decides whether the batch fits in the remaining quota
		if i == 0 && len(files) > 1 && rateLimit != nil && rateLimit.Remaining < MinimumRequests-len(files) {
			f.metrics.RateLimited(provider, metrics.ReasonHeadroom)
			f.logger.Error("get_blame_for_files.rate_limit_too_low", With(fields,
				zap.Int("num_files", len(files)),
				zap.Int("remaining_requests", rateLimit.Remaining),
				zap.Int("total_requests", rateLimit.Limit),
				zap.String("next_window", rateLimit.NextWindow()),
			)...)
			return nil, &RateLimitedError{Provider: provider, Remaining: rateLimit.Remaining, Limit: rateLimit.Limit}
		}
	}

	return blames, nil
}

func (f *Fetcher) handleFileBlameError(err *APIError, file models.SourceLineInfo, fields []zap.Field) {
	if err.RateLimited() {
		f.metrics.RateLimited(f.client.Provider(), metrics.ReasonAPIResponse)
	}
	f.logger.Error("get_blame_for_files.api_error", With(fields,
		zap.String("repo_name", file.Repo.Name),
		zap.String("file_path", file.Path),
		zap.String("branch_name", file.Ref),
		zap.Int("file_lineno", file.Lineno),
		zap.Int("status_code", err.Code),
		zap.Error(err),
	)...)
}

func (f *Fetcher) tick() {
	if f.progress != nil {
		f.progress()
	}
}

// With returns a new slice holding fields followed by extra.
func With(fields []zap.Field, extra ...zap.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+len(extra))
	out = append(out, fields...)
	return append(out, extra...)
}
