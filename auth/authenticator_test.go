package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/orchrest/rest"
	"github.com/s0up4200/orchrest/session"
)

func newClient(t *testing.T, url string, mode session.AuthMode, logs *bytes.Buffer, opts ...session.Option) *rest.Client {
	t.Helper()
	sess, err := session.New(url, true, mode, opts...)
	require.NoError(t, err)

	logger := zerolog.Nop()
	if logs != nil {
		logger = zerolog.New(logs)
	}
	client, err := rest.NewClient(sess, logger)
	require.NoError(t, err)
	return client
}

func localCreds() Credentials {
	return Credentials{Mode: session.AuthLocal, User: "admin", Password: "secret"}
}

func TestAPIKeyModeNeverLogsIn(t *testing.T) {
	var logins atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/authentication/") {
			logins.Add(1)
		}
		assert.Equal(t, "k", r.Header.Get(APIKeyHeader))
		_, _ = io.WriteString(w, "I am alive!")
	}))
	defer server.Close()

	client := newClient(t, server.URL, session.AuthAPIKey, nil)
	a, err := New(client, Orchestrator(), Credentials{Mode: session.AuthAPIKey, APIKey: "k"}, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, a.IsAuthenticated())
	assert.Equal(t, "k", client.Session().Header(APIKeyHeader))

	res, err := client.Get(context.Background(), "/gmsserver/hello", rest.Returning(rest.ReturnText))
	require.NoError(t, err)
	assert.Equal(t, "I am alive!", res.Text())

	assert.True(t, a.Login(context.Background()))
	assert.Zero(t, logins.Load())
}

func TestNewRejectsBadCredentials(t *testing.T) {
	client := newClient(t, "https://orch.example", session.AuthLocal, nil)

	_, err := New(client, Orchestrator(), Credentials{Mode: session.AuthLocal, User: "admin"}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrMissingLogin)

	_, err = New(client, Orchestrator(), Credentials{Mode: session.AuthAPIKey, APIKey: "k"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = New(client, Appliance(), localCreds(), zerolog.Nop())
	assert.Error(t, err)
}

func TestLoginInstallsCookieAsHeader(t *testing.T) {
	var (
		issued  atomic.Int32
		gotCSRF atomic.Value
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gms/rest/authentication/login":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "admin", body["user"])
			assert.Equal(t, "secret", body["password"])
			assert.EqualValues(t, 0, body["loginType"])
			assert.NotContains(t, body, "token")

			n := issued.Add(1)
			token := "tok-1"
			if n > 1 {
				token = "tok-2"
			}
			http.SetCookie(w, &http.Cookie{Name: "orchCsrfToken", Value: token, Path: "/"})
			w.WriteHeader(http.StatusOK)
		case "/gms/rest/alarm/gms":
			gotCSRF.Store(r.Header.Get(CSRFHeader))
			_, _ = io.WriteString(w, "[]")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newClient(t, server.URL, session.AuthLocal, nil)
	a, err := New(client, nil, localCreds(), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, Unauthenticated, a.State())

	require.True(t, a.Login(context.Background()))
	assert.Equal(t, Authenticated, a.State())
	assert.Equal(t, map[string]string{CSRFHeader: "tok-1"}, client.Session().Headers())

	_, err = client.Get(context.Background(), "/alarm/gms")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", gotCSRF.Load())

	require.True(t, a.Login(context.Background()))
	assert.Equal(t, map[string]string{CSRFHeader: "tok-2"}, client.Session().Headers())
}

func TestLoginRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"bad credentials"}`)
	}))
	defer server.Close()

	var logs bytes.Buffer
	client := newClient(t, server.URL, session.AuthLocal, &logs)
	a, err := New(client, Orchestrator(), localCreds(), zerolog.New(&logs))
	require.NoError(t, err)

	err = a.Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, rest.IsAuth(err))
	assert.Equal(t, http.StatusUnauthorized, rest.StatusCode(err))

	assert.Equal(t, Unauthenticated, a.State())
	assert.Empty(t, client.Session().Headers())
	assert.Equal(t, 1, strings.Count(logs.String(), `"level":"error"`))
}

func TestLoginWithoutTokenCookieFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "abc"})
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newClient(t, server.URL, session.AuthLocal, nil)
	a, err := New(client, Orchestrator(), localCreds(), zerolog.Nop())
	require.NoError(t, err)

	err = a.Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, rest.IsAuth(err))
	assert.False(t, a.IsAuthenticated())
	assert.Empty(t, client.Session().Headers())
}

func TestLoginUnreachableIsTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newClient(t, url, session.AuthLocal, nil)
	a, err := New(client, Orchestrator(), localCreds(), zerolog.Nop())
	require.NoError(t, err)

	err = a.Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, rest.IsTransport(err))
	assert.False(t, a.IsAuthenticated())
}

func TestApplianceLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/json/login", r.URL.Path)
		// the orchestrator cookie must not satisfy an appliance login
		http.SetCookie(w, &http.Cookie{Name: "orchCsrfToken", Value: "wrong"})
		http.SetCookie(w, &http.Cookie{Name: "edgeosCsrfToken", Value: "edge-tok"})
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newClient(t, server.URL, session.AuthLocal, nil, session.WithSurface(session.Appliance))
	a, err := New(client, nil, localCreds(), zerolog.Nop())
	require.NoError(t, err)

	require.True(t, a.Login(context.Background()))
	assert.Equal(t, "edge-tok", client.Session().Header(CSRFHeader))
}

func TestLogoutIsIdempotent(t *testing.T) {
	var logouts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gms/rest/authentication/login":
			http.SetCookie(w, &http.Cookie{Name: "orchCsrfToken", Value: "tok"})
		case "/gms/rest/authentication/logout":
			logouts.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := newClient(t, server.URL, session.AuthLocal, nil)
	a, err := New(client, Orchestrator(), localCreds(), zerolog.Nop())
	require.NoError(t, err)
	require.True(t, a.Login(context.Background()))

	assert.False(t, a.Logout(context.Background()))
	assert.Equal(t, Unauthenticated, a.State())
	assert.Empty(t, client.Session().Headers())

	assert.NotPanics(t, func() { a.Logout(context.Background()) })
	assert.Equal(t, Unauthenticated, a.State())
	assert.EqualValues(t, 1, logouts.Load())
}

func TestLogoutAPIKeyClearsHeaders(t *testing.T) {
	client := newClient(t, "https://orch.example", session.AuthAPIKey, nil)
	a, err := New(client, Orchestrator(), Credentials{Mode: session.AuthAPIKey, APIKey: "k"}, zerolog.Nop())
	require.NoError(t, err)

	assert.True(t, a.Logout(context.Background()))
	assert.False(t, a.IsAuthenticated())
	assert.Empty(t, client.Session().Header(APIKeyHeader))
}

func TestMFAFlow(t *testing.T) {
	var loginToken atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Path {
		case "/gms/rest/authentication/loginToken":
			assert.Equal(t, true, body["TempCode"])
			w.WriteHeader(http.StatusNoContent)
		case "/gms/rest/authentication/login":
			if tok, ok := body["token"].(string); ok {
				loginToken.Store(tok)
			}
			http.SetCookie(w, &http.Cookie{Name: "orchCsrfToken", Value: "tok"})
		}
	}))
	defer server.Close()

	client := newClient(t, server.URL, session.AuthLocal, nil)
	a, err := New(client, Orchestrator(), localCreds(), zerolog.Nop())
	require.NoError(t, err)

	require.True(t, a.SendMFA(context.Background()))
	assert.False(t, a.IsAuthenticated())

	require.True(t, a.LoginWithCode(context.Background(), "123456"))
	assert.True(t, a.IsAuthenticated())
	assert.Equal(t, "123456", loginToken.Load())
}

func TestMFAUnsupportedOnAppliance(t *testing.T) {
	client := newClient(t, "https://edge.example", session.AuthLocal, nil, session.WithSurface(session.Appliance))
	a, err := New(client, Appliance(), localCreds(), zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, a.SendMFA(context.Background()))
}

func TestCredentialsStringHidesSecrets(t *testing.T) {
	assert.NotContains(t, Credentials{Mode: session.AuthAPIKey, APIKey: "sekrit"}.String(), "sekrit")
	assert.NotContains(t, localCreds().String(), "secret")
}
