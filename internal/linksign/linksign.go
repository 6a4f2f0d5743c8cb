package linksign

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gnomegl/commitctx/internal/logging"
	"github.com/gnomegl/commitctx/internal/metrics"
	"github.com/gnomegl/commitctx/internal/users"
	"go.uber.org/zap"
)

const (
	Salt          = "commitctx-link-signature"
	DefaultMaxAge = 10 * 24 * time.Hour

	signatureParam = "_"
	payloadSep     = "|"
)

// Config is the link signing configuration. RegionURL defaults to URLPrefix.
type Config struct {
	URLPrefix string            `yaml:"url_prefix"`
	RegionURL string            `yaml:"region_url"`
	Secret    string            `yaml:"secret"`
	MaxAge    time.Duration     `yaml:"max_age"`
	Routes    map[string]string `yaml:"routes"`
}

// Service signs links for users and authenticates requests carrying them.
type Service struct {
	urlPrefix string
	regionURL string
	maxAge    time.Duration

	signer  *Signer
	routes  *Routes
	users   users.Service
	logger  *zap.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = logging.OrNop(l) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces time.Now for signing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.signer.now = now }
}

func NewService(cfg Config, userService users.Service, opts ...Option) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("link signing secret is not configured")
	}
	if userService == nil {
		return nil, errors.New("link signing needs a user service")
	}

	routes, err := NewRoutes(cfg.Routes)
	if err != nil {
		return nil, err
	}

	regionURL := cfg.RegionURL
	if regionURL == "" {
		regionURL = cfg.URLPrefix
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	s := &Service{
		urlPrefix: cfg.URLPrefix,
		regionURL: strings.TrimRight(regionURL, "/"),
		maxAge:    maxAge,
		signer:    NewSigner(cfg.Secret, Salt),
		routes:    routes,
		users:     userService,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Routes() *Routes {
	return s.routes
}

// GenerateSignedLink returns an absolute URL to view on which the user
// identified by ref is signed in.
func (s *Service) GenerateSignedLink(ref users.Ref, view, referrer string, args []any, kwargs map[string]any) (string, error) {
	userID, err := users.ResolveID(ref)
	if err != nil {
		return "", err
	}

	path, err := s.routes.Reverse(view, args, kwargs)
	if err != nil {
		return "", err
	}

	encodedID := EncodeID(userID)
	signed := s.signer.Sign(strings.Join([]string{s.urlPrefix, path, encodedID}, payloadSep))
	// keep only <ts>:<mac>
	parts := strings.Split(signed, sep)
	signature := strings.Join(parts[len(parts)-2:], sep)

	link := fmt.Sprintf("%s%s?%s=%s%s%s", s.regionURL, path, signatureParam, encodedID, sep, signature)
	if referrer != "" {
		link += "&" + url.Values{"referrer": {referrer}}.Encode()
	}
	return link, nil
}

// ProcessSignature returns the user the request's signed link was issued
// for, or nil when the link is missing, invalid, expired or issued for
// another path. maxAge <= 0 uses the configured maximum age.
func (s *Service) ProcessSignature(r *http.Request, maxAge time.Duration) *users.User {
	if maxAge <= 0 {
		maxAge = s.maxAge
	}

	sig := r.URL.Query().Get(signatureParam)
	if sig == "" {
		s.metrics.LinkCheck("missing")
		return nil
	}
	if strings.Count(sig, sep) < 2 {
		s.metrics.LinkCheck("malformed")
		return nil
	}

	requestPath := r.URL.EscapedPath()
	data, err := s.signer.Unsign(strings.Join([]string{s.urlPrefix, requestPath, sig}, payloadSep), maxAge)
	if err != nil {
		result := "bad_signature"
		if errors.Is(err, ErrSignatureExpired) {
			result = "expired"
		}
		s.metrics.LinkCheck(result)
		s.logger.Warn("linksign.process_signature.bad_signature",
			zap.String("path", requestPath),
			zap.Error(err),
		)
		return nil
	}

	parts := strings.Split(data, payloadSep)
	if len(parts) < 3 || parts[len(parts)-2] != requestPath {
		s.metrics.LinkCheck("path_mismatch")
		return nil
	}

	userID, err := DecodeID(parts[len(parts)-1])
	if err != nil {
		s.metrics.LinkCheck("malformed")
		return nil
	}

	user, err := s.users.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		s.metrics.LinkCheck("unknown_user")
		return nil
	}

	s.metrics.LinkCheck("ok")
	return user
}

// Middleware attaches the user of a valid signed link to the request context.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := s.ProcessSignature(r, 0); user != nil {
			r = r.WithContext(users.WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

func EncodeID(id int64) string {
	return strings.ToUpper(strconv.FormatInt(id, 36))
}

func DecodeID(s string) (int64, error) {
	return strconv.ParseInt(s, 36, 64)
}
