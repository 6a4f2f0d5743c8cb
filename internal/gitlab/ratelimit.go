package gitlab

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gnomegl/commitctx/internal/models"
)

const (
	headerRateLimit     = "RateLimit-Limit"
	headerRateRemaining = "RateLimit-Remaining"
	headerRateReset     = "RateLimit-Reset"
	headerRateObserved  = "RateLimit-Observed"
)

// rateLimitFromHeaders returns nil, nil when the response carries no rate limit headers.
func rateLimitFromHeaders(h http.Header) (*models.RateLimitInfo, error) {
	limit := h.Get(headerRateLimit)
	remaining := h.Get(headerRateRemaining)
	reset := h.Get(headerRateReset)
	observed := h.Get(headerRateObserved)

	if limit == "" && remaining == "" && reset == "" && observed == "" {
		return nil, nil
	}
	if limit == "" || remaining == "" {
		return nil, fmt.Errorf("incomplete rate limit headers")
	}

	info := &models.RateLimitInfo{}
	var err error
	if info.Limit, err = strconv.Atoi(limit); err != nil {
		return nil, fmt.Errorf("parse %s: %w", headerRateLimit, err)
	}
	if info.Remaining, err = strconv.Atoi(remaining); err != nil {
		return nil, fmt.Errorf("parse %s: %w", headerRateRemaining, err)
	}
	if observed != "" {
		if info.Used, err = strconv.Atoi(observed); err != nil {
			return nil, fmt.Errorf("parse %s: %w", headerRateObserved, err)
		}
	}
	if reset != "" {
		secs, err := strconv.ParseInt(reset, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", headerRateReset, err)
		}
		info.Reset = time.Unix(secs, 0).UTC()
	}

	return info, nil
}
