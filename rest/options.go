package rest

import (
	"net/http"
	"time"
)

const (
	defaultTimeout = 120 * time.Second
	// DefaultSource is the tracking parameter every request carries.
	DefaultSource = "source=menu_rest_apis_id"
)

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	timeout       time.Duration
	httpClient    *http.Client
	source        string
	persistedLogs bool
}

// WithTimeout sets the per-call timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its Timeout and Jar stay
// under the caller's control; ResetCookies does not touch them.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

// WithSource overrides the key=value tracking parameter appended to every path.
func WithSource(source string) Option {
	return func(o *clientOptions) {
		if source != "" {
			o.source = source
		}
	}
}

// WithPersistedLogs tells the client its log output is written to disk.
func WithPersistedLogs(persisted bool) Option {
	return func(o *clientOptions) {
		o.persistedLogs = persisted
	}
}

// CallOption adjusts a single call.
type CallOption func(*RequestSpec)

// Expect sets the status codes treated as success. Defaults to 200.
func Expect(codes ...int) CallOption {
	return func(s *RequestSpec) {
		if len(codes) > 0 {
			s.Expected = append([]int(nil), codes...)
		}
	}
}

// Returning selects the result shape. Defaults to json.
func Returning(rt ReturnType) CallOption {
	return func(s *RequestSpec) {
		s.Return = rt
	}
}

// RequestSpec describes one call.
type RequestSpec struct {
	Method   string
	Path     string
	Body     any
	Expected []int
	Return   ReturnType
}

func newSpec(method, path string, body any, opts []CallOption) RequestSpec {
	spec := RequestSpec{
		Method:   method,
		Path:     path,
		Body:     body,
		Expected: []int{http.StatusOK},
		Return:   ReturnJSON,
	}
	for _, opt := range opts {
		opt(&spec)
	}
	return spec
}

func (s RequestSpec) expects(status int) bool {
	for _, code := range s.Expected {
		if code == status {
			return true
		}
	}
	return false
}
