package session

import (
	"fmt"
	"maps"
	"strings"
)

// Surface identifies which REST surface a session talks to.
type Surface int

const (
	// Orchestrator is the central orchestration controller.
	Orchestrator Surface = iota
	// Appliance is a single managed edge appliance.
	Appliance
)

// String returns the surface name
func (s Surface) String() string {
	switch s {
	case Orchestrator:
		return "orchestrator"
	case Appliance:
		return "appliance"
	default:
		return "unknown"
	}
}

// ParseSurface converts a configuration string into a Surface
func ParseSurface(name string) (Surface, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "orchestrator":
		return Orchestrator, nil
	case "appliance", "edgeconnect":
		return Appliance, nil
	default:
		return 0, &ConfigError{Field: "surface", Value: name, Reason: "must be 'orchestrator' or 'appliance'"}
	}
}

// DefaultPrefix returns the REST path prefix the surface serves its API under
func (s Surface) DefaultPrefix() string {
	if s == Appliance {
		return "/rest/json"
	}
	return "/gms/rest"
}

// AuthMode is the configured authentication backend.
type AuthMode string

const (
	AuthAPIKey AuthMode = "apikey"
	AuthLocal  AuthMode = "local"
	AuthRadius AuthMode = "radius"
	AuthTacacs AuthMode = "tacacs"
)

// Valid reports whether m is one of the supported modes
func (m AuthMode) Valid() bool {
	switch m {
	case AuthAPIKey, AuthLocal, AuthRadius, AuthTacacs:
		return true
	}
	return false
}

// Interactive reports whether the mode requires a username/password login.
func (m AuthMode) Interactive() bool {
	return m == AuthLocal || m == AuthRadius || m == AuthTacacs
}

// LoginType is the numeric backend selector sent in the login body.
// It returns -1 for API-key mode, which never logs in.
func (m AuthMode) LoginType() int {
	switch m {
	case AuthLocal:
		return 0
	case AuthRadius:
		return 1
	case AuthTacacs:
		return 2
	default:
		return -1
	}
}

// Session is the connection context of one client: where requests go, whether
// certificates are checked and which auth headers ride along.
//
// A Session is a value. Login and logout never edit it; they build a new one
// with WithHeaders or Cleared and hand it to the client in a single swap.
type Session struct {
	baseURL    string
	verifyTLS  bool
	mode       AuthMode
	surface    Surface
	headers    map[string]string
	logSuccess bool
}

// Option configures a Session at construction.
type Option func(*options)

type options struct {
	surface    Surface
	prefix     string
	logSuccess bool
}

// WithSurface selects the REST surface. Defaults to Orchestrator.
func WithSurface(surface Surface) Option {
	return func(o *options) {
		o.surface = surface
	}
}

// WithAPIPrefix overrides the surface's REST path prefix.
func WithAPIPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithLogSuccess includes response bodies in success log lines.
// Bodies can carry credentials, so this is off unless asked for.
func WithLogSuccess(enabled bool) Option {
	return func(o *options) {
		o.logSuccess = enabled
	}
}

// New builds the session for a target. url may be a bare host or carry a scheme;
// https is assumed when it does not.
func New(url string, verifyTLS bool, mode AuthMode, opts ...Option) (Session, error) {
	if !mode.Valid() {
		return Session{}, &ConfigError{
			Field:  "auth_mode",
			Value:  string(mode),
			Reason: "must be one of apikey, local, radius, tacacs",
		}
	}

	host := strings.TrimSpace(url)
	if host == "" {
		return Session{}, &ConfigError{Field: "url", Reason: "is required"}
	}

	o := options{surface: Orchestrator}
	for _, opt := range opts {
		opt(&o)
	}

	prefix := o.prefix
	if prefix == "" {
		prefix = o.surface.DefaultPrefix()
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}

	scheme := "https://"
	if i := strings.Index(host, "://"); i >= 0 {
		scheme = strings.ToLower(host[:i+3])
		host = host[i+3:]
	}
	host = strings.TrimRight(host, "/")
	if host == "" {
		return Session{}, &ConfigError{Field: "url", Value: url, Reason: "has no host"}
	}

	return Session{
		baseURL:    fmt.Sprintf("%s%s%s", scheme, host, strings.TrimRight(prefix, "/")),
		verifyTLS:  verifyTLS,
		mode:       mode,
		surface:    o.surface,
		headers:    map[string]string{},
		logSuccess: o.logSuccess,
	}, nil
}

// BaseURL is scheme + host + REST prefix.
func (s Session) BaseURL() string { return s.baseURL }

// VerifyTLS reports whether server certificates are validated.
func (s Session) VerifyTLS() bool { return s.verifyTLS }

// Mode returns the authentication mode the session was built for.
func (s Session) Mode() AuthMode { return s.mode }

// Surface returns the REST surface.
func (s Session) Surface() Surface { return s.surface }

// LogSuccess reports whether success log lines include the response body.
func (s Session) LogSuccess() bool { return s.logSuccess }

// Headers returns a copy of the current auth headers.
func (s Session) Headers() map[string]string {
	return maps.Clone(s.headers)
}

// Header returns a single auth header value.
func (s Session) Header(name string) string {
	return s.headers[name]
}

// WithHeaders returns a copy of the session whose header map is h.
// The previous headers are discarded, not merged.
func (s Session) WithHeaders(h map[string]string) Session {
	next := s
	next.headers = maps.Clone(h)
	if next.headers == nil {
		next.headers = map[string]string{}
	}
	return next
}

// Cleared returns a copy of the session with no auth headers.
func (s Session) Cleared() Session {
	return s.WithHeaders(nil)
}
