package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/s0up4200/orchrest/rest"
)

// State is the authenticator's position in the login state machine.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

// String returns the state name
func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Authenticator drives login and logout for one client and installs the
// resulting auth headers into the client's session.
type Authenticator struct {
	client  *rest.Client
	adapter Adapter
	creds   Credentials
	state   State
	logger  zerolog.Logger
}

// New creates an authenticator for client. In API-key mode the key is placed
// into the session right away and the authenticator starts Authenticated
// without any network traffic.
func New(client *rest.Client, adapter Adapter, creds Credentials, logger zerolog.Logger) (*Authenticator, error) {
	if client == nil {
		return nil, errors.New("auth: client is required")
	}
	if adapter == nil {
		adapter = ForSurface(client.Session().Surface())
	}
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	sess := client.Session()
	if sess.Mode() != creds.Mode {
		return nil, fmt.Errorf("auth: credentials are for %q but the session was built for %q", creds.Mode, sess.Mode())
	}
	if sess.Surface() != adapter.Surface() {
		return nil, fmt.Errorf("auth: %s adapter cannot log in to a %s session", adapter.Name(), sess.Surface())
	}

	a := &Authenticator{
		client:  client,
		adapter: adapter,
		creds:   creds,
		logger:  logger.With().Str("adapter", adapter.Name()).Logger(),
	}
	if creds.Mode.Interactive() {
		return a, nil
	}

	a.installAPIKey()
	return a, nil
}

// State returns the current state.
func (a *Authenticator) State() State { return a.state }

// IsAuthenticated reports whether the session currently carries a token.
func (a *Authenticator) IsAuthenticated() bool { return a.state == Authenticated }

// Login authenticates and reports success. Failures are logged, never returned
// as panics; use Authenticate to get the classified error.
func (a *Authenticator) Login(ctx context.Context) bool {
	return a.Authenticate(ctx) == nil
}

// LoginWithCode completes a multi-factor login with the one-time code the
// target sent after SendMFA.
func (a *Authenticator) LoginWithCode(ctx context.Context, code string) bool {
	return a.authenticate(ctx, code) == nil
}

// Authenticate performs the login and returns a *rest.Error on failure:
// KindTransport when the target was unreachable and KindAuth when it answered
// without establishing a session.
func (a *Authenticator) Authenticate(ctx context.Context) error {
	return a.authenticate(ctx, a.creds.MFACode)
}

func (a *Authenticator) authenticate(ctx context.Context, mfaCode string) error {
	if !a.creds.Mode.Interactive() {
		a.installAPIKey()
		return nil
	}

	creds := a.creds
	creds.MFACode = mfaCode
	path := a.adapter.LoginPath()

	res, err := a.client.Post(ctx, path, a.adapter.LoginBody(creds),
		rest.Expect(http.StatusOK),
		rest.Returning(rest.ReturnFullResponse),
	)
	if err != nil {
		a.state = Unauthenticated
		if rest.IsTransport(err) {
			return err
		}
		a.logger.Debug().Str("user", creds.User).Int("status_code", rest.StatusCode(err)).Msg("Login rejected")
		return rest.NewAuthError(http.MethodPost, path, rest.StatusCode(err), "login rejected", err)
	}

	cookie := res.Raw().Cookie(a.adapter.TokenCookie())
	if cookie == nil || cookie.Value == "" {
		a.state = Unauthenticated
		a.logger.Error().
			Str("path", path).
			Str("user", creds.User).
			Str("cookie", a.adapter.TokenCookie()).
			Msg("Login returned 200 without a session token cookie; treating as failed")
		return rest.NewAuthError(http.MethodPost, path, res.StatusCode, "no session token cookie in login response", nil)
	}

	a.client.ReplaceSession(a.client.Session().WithHeaders(map[string]string{
		a.adapter.TokenHeader(): cookie.Value,
	}))
	a.state = Authenticated
	a.logger.Info().Str("user", creds.User).Str("mode", string(creds.Mode)).Msg("Logged in")
	return nil
}

// SendMFA asks the target to deliver a one-time code out of band. An
// acknowledgement does not authenticate; call LoginWithCode with the code.
func (a *Authenticator) SendMFA(ctx context.Context) bool {
	path := a.adapter.MFAPath()
	if path == "" {
		a.logger.Error().Msg("One-time code login is not supported on this surface")
		return false
	}
	if !a.creds.Mode.Interactive() {
		a.logger.Error().Msg("One-time codes require an interactive auth mode")
		return false
	}

	res, err := a.client.Post(ctx, path,
		mfaRequest{User: a.creds.User, Password: a.creds.Password, TempCode: true},
		rest.Expect(http.StatusOK, http.StatusNoContent),
		rest.Returning(rest.ReturnBool),
	)
	if err != nil {
		return false
	}
	a.logger.Info().Str("user", a.creds.User).Msg("One-time code requested")
	return res.Bool()
}

// Logout ends the session. Local state is always reset, whatever the remote
// side says; the return value only reports whether the remote logout succeeded.
// Calling it again is harmless.
func (a *Authenticator) Logout(ctx context.Context) bool {
	remoteOK := true
	if a.creds.Mode.Interactive() && a.state == Authenticated {
		res, err := a.client.Get(ctx, a.adapter.LogoutPath(),
			rest.Expect(http.StatusOK, http.StatusNoContent),
			rest.Returning(rest.ReturnBool),
		)
		remoteOK = err == nil && res.Bool()
		if !remoteOK {
			a.logger.Warn().Msg("Remote logout failed; clearing local session anyway")
		}
	}

	a.client.ReplaceSession(a.client.Session().Cleared())
	a.client.ResetCookies()
	a.state = Unauthenticated
	a.logger.Debug().Msg("Session cleared")
	return remoteOK
}

func (a *Authenticator) installAPIKey() {
	a.client.ReplaceSession(a.client.Session().WithHeaders(map[string]string{
		APIKeyHeader: a.creds.APIKey,
	}))
	a.state = Authenticated
}
