package session

import (
	"crypto/tls"
	"sync"

	"github.com/rs/zerolog"
)

var insecureOnce sync.Once

// TLSConfig returns the client TLS settings for the session.
func (s Session) TLSConfig() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: !s.verifyTLS, //nolint:gosec // opt-in for lab targets with self-signed certificates
	}
}

// AnnounceInsecure logs, once per process, that certificate verification is off.
// Later sessions with verification disabled stay quiet.
func AnnounceInsecure(logger zerolog.Logger, s Session) {
	if s.verifyTLS {
		return
	}
	insecureOnce.Do(func() {
		logger.Warn().
			Str("base_url", s.baseURL).
			Msg("TLS certificate verification disabled; certificate warnings are suppressed for the rest of this process")
	})
}
