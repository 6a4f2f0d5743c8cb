package linksign

import (
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSignerRoundTrip(t *testing.T) {
	s := NewSigner("secret", Salt)
	s.now = fixedClock(time.Unix(1700000000, 0))

	signed := s.Sign("https://example.com|/a/|1")
	assert.True(t, strings.HasPrefix(signed, "https://example.com|/a/|1:"))

	// The value keeps its own colons; the timestamp and MAC are the last two segments.
	parts := strings.Split(signed, ":")
	require.Len(t, parts, 4)
	assert.Equal(t, "https://example.com|/a/|1", strings.Join(parts[:2], ":"))
	ts, err := strconv.ParseInt(parts[2], 36, 64)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), ts)
	mac, err := base64.RawURLEncoding.DecodeString(parts[3])
	require.NoError(t, err)
	assert.Len(t, mac, sha256.Size)

	value, err := s.Unsign(signed, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com|/a/|1", value)
}

func TestSignerRejectsTampering(t *testing.T) {
	s := NewSigner("secret", Salt)
	signed := s.Sign("value")

	_, err := s.Unsign("other"+strings.TrimPrefix(signed, "value"), 0)
	assert.ErrorIs(t, err, ErrBadSignature)

	_, err = NewSigner("another secret", Salt).Unsign(signed, 0)
	assert.ErrorIs(t, err, ErrBadSignature)

	_, err = NewSigner("secret", "another salt").Unsign(signed, 0)
	assert.ErrorIs(t, err, ErrBadSignature)

	_, err = s.Unsign("no separator", 0)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestSignerExpiry(t *testing.T) {
	issued := time.Unix(1700000000, 0)
	s := NewSigner("secret", Salt)
	s.now = fixedClock(issued)
	signed := s.Sign("value")

	s.now = fixedClock(issued.Add(2 * time.Hour))
	_, err := s.Unsign(signed, time.Hour)
	assert.ErrorIs(t, err, ErrSignatureExpired)
	assert.ErrorIs(t, err, ErrBadSignature)

	// no max age
	value, err := s.Unsign(signed, 0)
	require.NoError(t, err)
	assert.Equal(t, "value", value)
}

func TestExpiredMatchesBadSignature(t *testing.T) {
	assert.ErrorIs(t, ErrSignatureExpired, ErrBadSignature)
}
