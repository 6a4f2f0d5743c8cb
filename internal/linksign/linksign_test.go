package linksign

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gnomegl/commitctx/internal/metrics"
	"github.com/gnomegl/commitctx/internal/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var testConfig = Config{
	URLPrefix: "https://commitctx.example.com",
	RegionURL: "https://us.commitctx.example.com/",
	Secret:    "s3cr3t",
	Routes: map[string]string{
		"issue":       "/organizations/{org}/issues/{id}/",
		"unsubscribe": "/unsubscribe/{project}/",
	},
}

var jane = &users.User{ID: 1234, Username: "jane", Name: "Jane Doe", IsActive: true}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestService(t *testing.T, opts ...Option) (*Service, *clock) {
	t.Helper()
	c := &clock{now: time.Unix(1700000000, 0)}
	s, err := NewService(testConfig, users.NewDirectory(jane), append([]Option{WithClock(c.Now)}, opts...)...)
	require.NoError(t, err)
	return s, c
}

func requestFor(t *testing.T, link string) *http.Request {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodGet, u.RequestURI(), nil)
}

func TestGenerateSignedLink(t *testing.T) {
	s, _ := newTestService(t)

	link, err := s.GenerateSignedLink(users.AuthenticatedUser{ID: 1234, Authenticated: true}, "issue", "alert_email", []any{"acme", 99}, nil)
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "us.commitctx.example.com", u.Host)
	assert.Equal(t, "/organizations/acme/issues/99/", u.Path)
	assert.Equal(t, "alert_email", u.Query().Get("referrer"))

	sig := u.Query().Get("_")
	parts := strings.Split(sig, ":")
	require.Len(t, parts, 3)
	assert.Equal(t, "YA", parts[0])
	assert.Equal(t, strings.ToLower(EncodeID(1700000000)), parts[1])
}

func TestGenerateSignedLinkRawID(t *testing.T) {
	s, _ := newTestService(t)

	link, err := s.GenerateSignedLink(users.RawUserID(35), "unsubscribe", "", []any{"web"}, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://us.commitctx.example.com/unsubscribe/web/?_=Z:"))
	assert.NotContains(t, link, "referrer")
}

func TestGenerateSignedLinkRequiresAuthentication(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.GenerateSignedLink(users.AuthenticatedUser{ID: 1234}, "issue", "", []any{"acme", 1}, nil)
	assert.ErrorIs(t, err, users.ErrNotAuthenticated)

	_, err = s.GenerateSignedLink(users.RawUserID(1), "nope", "", nil, nil)
	assert.ErrorIs(t, err, ErrNoReverseMatch)
}

func TestProcessSignatureRoundTrip(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s, _ := newTestService(t, WithMetrics(m))

	link, err := s.GenerateSignedLink(users.RawUserID(jane.ID), "issue", "weekly", nil, map[string]any{"org": "acme", "id": 5})
	require.NoError(t, err)

	user := s.ProcessSignature(requestFor(t, link), 0)
	require.NotNil(t, user)
	assert.Equal(t, jane.ID, user.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignedLinkChecks.WithLabelValues("ok")))
}

func TestProcessSignatureTampered(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s, _ := newTestService(t, WithLogger(zap.New(core)))

	link, err := s.GenerateSignedLink(users.RawUserID(jane.ID), "issue", "", []any{"acme", 5}, nil)
	require.NoError(t, err)

	// claim another user with the same signature
	tampered := strings.Replace(link, "?_=YA:", "?_=YB:", 1)
	require.NotEqual(t, link, tampered)
	assert.Nil(t, s.ProcessSignature(requestFor(t, tampered), 0))
	assert.Equal(t, 1, logs.FilterMessage("linksign.process_signature.bad_signature").Len())
}

func TestProcessSignatureExpired(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s, c := newTestService(t, WithMetrics(m))

	link, err := s.GenerateSignedLink(users.RawUserID(jane.ID), "issue", "", []any{"acme", 5}, nil)
	require.NoError(t, err)

	c.now = c.now.Add(DefaultMaxAge + time.Minute)
	assert.Nil(t, s.ProcessSignature(requestFor(t, link), 0))

	// an explicit max age overrides the default
	assert.NotNil(t, s.ProcessSignature(requestFor(t, link), 30*24*time.Hour))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignedLinkChecks.WithLabelValues("expired")))
}

func TestProcessSignatureOtherPath(t *testing.T) {
	s, _ := newTestService(t)

	link, err := s.GenerateSignedLink(users.RawUserID(jane.ID), "issue", "", []any{"acme", 5}, nil)
	require.NoError(t, err)

	moved := strings.Replace(link, "/issues/5/", "/issues/6/", 1)
	assert.Nil(t, s.ProcessSignature(requestFor(t, moved), 0))
}

func TestProcessSignatureOtherURLPrefix(t *testing.T) {
	s, _ := newTestService(t)
	link, err := s.GenerateSignedLink(users.RawUserID(jane.ID), "issue", "", []any{"acme", 5}, nil)
	require.NoError(t, err)

	cfg := testConfig
	cfg.URLPrefix = "https://elsewhere.example.com"
	other, err := NewService(cfg, users.NewDirectory(jane), WithClock(func() time.Time { return time.Unix(1700000000, 0) }))
	require.NoError(t, err)
	assert.Nil(t, other.ProcessSignature(requestFor(t, link), 0))
}

func TestProcessSignatureMalformed(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s, _ := newTestService(t, WithMetrics(m))

	assert.Nil(t, s.ProcessSignature(httptest.NewRequest(http.MethodGet, "/organizations/acme/issues/5/", nil), 0))
	assert.Nil(t, s.ProcessSignature(httptest.NewRequest(http.MethodGet, "/organizations/acme/issues/5/?_=YA:abc", nil), 0))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignedLinkChecks.WithLabelValues("missing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignedLinkChecks.WithLabelValues("malformed")))
}

func TestProcessSignatureUnknownUser(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s, _ := newTestService(t, WithMetrics(m))

	link, err := s.GenerateSignedLink(users.RawUserID(777), "issue", "", []any{"acme", 5}, nil)
	require.NoError(t, err)
	assert.Nil(t, s.ProcessSignature(requestFor(t, link), 0))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignedLinkChecks.WithLabelValues("unknown_user")))
}

func TestMiddleware(t *testing.T) {
	s, _ := newTestService(t)

	var seen *users.User
	h := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = users.FromContext(r.Context())
	}))

	link, err := s.GenerateSignedLink(users.RawUserID(jane.ID), "unsubscribe", "", []any{"web"}, nil)
	require.NoError(t, err)

	h.ServeHTTP(httptest.NewRecorder(), requestFor(t, link))
	require.NotNil(t, seen)
	assert.Equal(t, "jane", seen.Username)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/unsubscribe/web/", nil))
	assert.Nil(t, seen)
}

func TestNewServiceValidatesConfig(t *testing.T) {
	_, err := NewService(Config{}, users.NewDirectory())
	assert.Error(t, err)

	_, err = NewService(Config{Secret: "x"}, nil)
	assert.Error(t, err)

	_, err = NewService(Config{Secret: "x", Routes: map[string]string{"a": "bad"}}, users.NewDirectory())
	assert.Error(t, err)
}

func TestEncodeID(t *testing.T) {
	assert.Equal(t, "YA", EncodeID(1234))
	id, err := DecodeID("ya")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), id)
}
