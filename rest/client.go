package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"

	"github.com/s0up4200/orchrest/session"
)

var persistWarnOnce sync.Once

// Client issues REST calls against one target using the current session.
// A Client is meant for one caller at a time; run one Client per concurrent caller.
type Client struct {
	sess       atomic.Pointer[session.Session]
	httpClient *http.Client
	ownsJar    bool
	source     string
	logger     zerolog.Logger
}

// NewClient creates a client bound to sess.
func NewClient(sess session.Session, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if sess.BaseURL() == "" {
		return nil, fmt.Errorf("rest client: %w", &session.ConfigError{Field: "url", Reason: "is required"})
	}

	o := clientOptions{
		timeout: defaultTimeout,
		source:  DefaultSource,
	}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	ownsJar := httpClient == nil
	if ownsJar {
		jar, err := newJar()
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = sess.TLSConfig()
		httpClient = &http.Client{
			Transport: transport,
			Timeout:   o.timeout,
			Jar:       jar,
		}
	}

	c := &Client{
		httpClient: httpClient,
		ownsJar:    ownsJar,
		source:     o.source,
		logger: logger.With().
			Str("client_id", uuid.NewString()).
			Str("surface", sess.Surface().String()).
			Logger(),
	}
	c.sess.Store(&sess)

	session.AnnounceInsecure(c.logger, sess)
	if sess.LogSuccess() && o.persistedLogs {
		persistWarnOnce.Do(func() {
			c.logger.Warn().Msg("log_success is enabled while logs are written to a file; response bodies may persist credentials or personal data")
		})
	}

	return c, nil
}

func newJar() (*cookiejar.Jar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// Session returns the session the next call will use.
func (c *Client) Session() session.Session {
	return *c.sess.Load()
}

// ReplaceSession swaps in a new session for all subsequent calls.
func (c *Client) ReplaceSession(s session.Session) {
	c.sess.Store(&s)
}

// ResetCookies drops every cookie the target has set. A jar on an
// http.Client passed through WithHTTPClient belongs to the caller and is left
// alone.
func (c *Client) ResetCookies() {
	if !c.ownsJar {
		c.logger.Debug().Msg("Cookie jar is caller-owned; not resetting")
		return
	}
	jar, err := newJar()
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to reset cookie jar")
		return
	}
	c.httpClient.Jar = jar
}

// Logger returns the client's logger, tagged with its client_id.
func (c *Client) Logger() zerolog.Logger {
	return c.logger
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, opts ...CallOption) (*Result, error) {
	return c.Do(ctx, newSpec(http.MethodGet, path, nil, opts))
}

// Post issues a POST request with body encoded as JSON.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...CallOption) (*Result, error) {
	return c.Do(ctx, newSpec(http.MethodPost, path, body, opts))
}

// Put issues a PUT request with body encoded as JSON.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...CallOption) (*Result, error) {
	return c.Do(ctx, newSpec(http.MethodPut, path, body, opts))
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts ...CallOption) (*Result, error) {
	return c.Do(ctx, newSpec(http.MethodDelete, path, nil, opts))
}

// Do performs the call described by spec. The returned Result is never nil;
// the error is nil exactly when the outcome is a success. Do never panics.
func (c *Client) Do(ctx context.Context, spec RequestSpec) (result *Result, err error) {
	if len(spec.Expected) == 0 {
		spec.Expected = []int{http.StatusOK}
	}
	if spec.Return == "" {
		spec.Return = ReturnJSON
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = c.transportFailure(spec, fmt.Errorf("panic during %s %s: %v", spec.Method, spec.Path, r), FaultPanic)
		}
	}()

	var contractErr *Error
	if !spec.Return.Valid() {
		contractErr = &Error{
			Kind:   KindContractViolation,
			Method: spec.Method,
			Path:   spec.Path,
			Detail: fmt.Sprintf("unrecognized return type %q", spec.Return),
		}
		c.logger.Error().
			Str("method", spec.Method).
			Str("path", spec.Path).
			Str("return_type", string(spec.Return)).
			Msg("Unrecognized return type; the call is still issued")
	}

	resp, body, err := c.send(ctx, spec)
	if err != nil {
		return c.transportFailure(spec, err, "")
	}

	result, err = c.interpret(spec, resp, body)
	if contractErr != nil {
		if result.StatusCode > 0 {
			contractErr.StatusCode = result.StatusCode
		}
		if err != nil && !IsProtocolStatus(err) {
			return result, err
		}
		contractErr.Err = err
		result.ok = false
		return result, contractErr
	}
	return result, err
}

// send builds the HTTP request from the current session and drains the response.
func (c *Client) send(ctx context.Context, spec RequestSpec) (*http.Response, []byte, error) {
	sess := c.Session()

	var reader io.Reader
	if spec.Body != nil && (spec.Method == http.MethodPost || spec.Method == http.MethodPut) {
		data, err := json.Marshal(spec.Body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, c.requestURL(sess.BaseURL(), spec.Path), reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	for name, value := range sess.Headers() {
		req.Header.Set(name, value)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().
		Str("method", spec.Method).
		Str("path", spec.Path).
		Msg("Sending request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Trace().
		Str("method", spec.Method).
		Str("path", spec.Path).
		Int("status_code", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Int("size", len(body)).
		Msg("Received response")

	return resp, body, nil
}

// transportFailure logs err once with its trace and returns the failure-shaped result.
func (c *Client) transportFailure(spec RequestSpec, err error, fault Fault) (*Result, error) {
	terr := newTransportError(spec.Method, spec.Path, err)
	if fault != "" {
		terr.Fault = fault
	}

	c.logger.Error().
		Str("method", spec.Method).
		Str("path", spec.Path).
		Str("fault", string(terr.Fault)).
		Str("error_type", fmt.Sprintf("%T", err)).
		Str("trace", fmt.Sprintf("%+v", pkgerrors.WithStack(err))).
		Err(err).
		Msg("Request failed before a response was received")

	return &Result{
		Type:   spec.Return,
		Method: spec.Method,
		Path:   spec.Path,
	}, terr
}
