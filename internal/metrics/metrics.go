package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "commitctx"

// Rate limit reasons.
const (
	ReasonAPIResponse = "api_response"
	ReasonHeadroom    = "headroom"
)

type Metrics struct {
	BlameRateLimited *prometheus.CounterVec
	BlameCache       *prometheus.CounterVec
	SignedLinkChecks *prometheus.CounterVec
}

// New registers the counters on reg. A nil reg gets a private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		BlameRateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blame_rate_limited_total",
			Help:      "Blame lookups refused or aborted because of provider rate limits.",
		}, []string{"provider", "reason"}),
		BlameCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blame_cache_total",
			Help:      "Blame response cache lookups.",
		}, []string{"provider", "result"}),
		SignedLinkChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signed_link_checks_total",
			Help:      "Signed link validations by outcome.",
		}, []string{"result"}),
	}
}

func (m *Metrics) RateLimited(provider, reason string) {
	if m == nil {
		return
	}
	m.BlameRateLimited.WithLabelValues(provider, reason).Inc()
}

func (m *Metrics) CacheLookup(provider string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.BlameCache.WithLabelValues(provider, result).Inc()
}

func (m *Metrics) LinkCheck(result string) {
	if m == nil {
		return
	}
	m.SignedLinkChecks.WithLabelValues(result).Inc()
}
