package linksign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const sep = ":"

var (
	ErrBadSignature = errors.New("bad signature")
	// ErrSignatureExpired also matches ErrBadSignature.
	ErrSignatureExpired = fmt.Errorf("signature expired: %w", ErrBadSignature)
)

// Signer appends a timestamp and an HMAC-SHA256 to a value.
type Signer struct {
	key []byte
	now func() time.Time
}

func NewSigner(secret, salt string) *Signer {
	key := sha256.Sum256([]byte(salt + "signer" + secret))
	return &Signer{key: key[:], now: time.Now}
}

// Sign returns value:<base36 unix ts>:<base64url mac>.
func (s *Signer) Sign(value string) string {
	stamped := value + sep + strconv.FormatInt(s.now().Unix(), 36)
	return stamped + sep + s.signature(stamped)
}

// Unsign verifies signed and returns the original value. A positive maxAge
// rejects signatures older than maxAge.
func (s *Signer) Unsign(signed string, maxAge time.Duration) (string, error) {
	i := strings.LastIndex(signed, sep)
	if i < 0 {
		return "", fmt.Errorf("%w: no %q found in value", ErrBadSignature, sep)
	}
	stamped, sig := signed[:i], signed[i+1:]
	if !hmac.Equal([]byte(sig), []byte(s.signature(stamped))) {
		return "", fmt.Errorf("%w: signature %q does not match", ErrBadSignature, sig)
	}

	j := strings.LastIndex(stamped, sep)
	if j < 0 {
		return "", fmt.Errorf("%w: missing timestamp", ErrBadSignature)
	}
	value, ts := stamped[:j], stamped[j+1:]
	unix, err := strconv.ParseInt(ts, 36, 64)
	if err != nil {
		return "", fmt.Errorf("%w: malformed timestamp", ErrBadSignature)
	}

	if maxAge > 0 {
		if age := s.now().Sub(time.Unix(unix, 0)); age > maxAge {
			return "", fmt.Errorf("%w: age %s > %s", ErrSignatureExpired, age.Truncate(time.Second), maxAge)
		}
	}
	return value, nil
}

func (s *Signer) signature(value string) string {
	mac := hmac.New(sha256.New, s.key)
	_, _ = mac.Write([]byte(value)) // hmac does not return errors
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
