package cmd

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orchestratorServer accepts any local login and answers every other
// REST path with status.
func orchestratorServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32, *atomic.Int32) {
	t.Helper()
	var logins, logouts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gms/rest/authentication/login":
			logins.Add(1)
			http.SetCookie(w, &http.Cookie{Name: "orchCsrfToken", Value: "tok", Path: "/"})
			w.WriteHeader(http.StatusOK)
		case "/gms/rest/authentication/logout":
			logouts.Add(1)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(status)
			_, _ = fmt.Fprint(w, "[]")
		}
	}))
	t.Cleanup(server.Close)
	return server, &logins, &logouts
}

func writeLocalConfig(t *testing.T, url, logPath string) string {
	t.Helper()
	body := fmt.Sprintf(`
target:
  url: %s
  auth:
    mode: local
    user: admin
    password: secret
logging:
  level: error
  file: %s
`, url, logPath)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func runArgs(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	return execute()
}

func TestExecuteLogsOutAfterFailedCall(t *testing.T) {
	server, logins, logouts := orchestratorServer(t, http.StatusInternalServerError)
	logPath := filepath.Join(t.TempDir(), "orchrest.log")
	path := writeLocalConfig(t, server.URL, logPath)

	err := runArgs(t, "--config", path, "call", "GET", "/alarm/gms")
	require.Error(t, err)
	assert.ErrorContains(t, err, "HTTP 500")

	assert.EqualValues(t, 1, logins.Load())
	assert.EqualValues(t, 1, logouts.Load())
	assert.Nil(t, authn)
	assert.Nil(t, logFile)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Unexpected response status")
}

func TestExecuteLogsOutAfterSuccessfulCall(t *testing.T) {
	server, logins, logouts := orchestratorServer(t, http.StatusOK)
	path := writeLocalConfig(t, server.URL, filepath.Join(t.TempDir(), "orchrest.log"))

	require.NoError(t, runArgs(t, "--config", path, "call", "GET", "/alarm/gms"))

	assert.EqualValues(t, 1, logins.Load())
	assert.EqualValues(t, 1, logouts.Load())
}

func TestShutdownWithoutSessionIsNoop(t *testing.T) {
	authn, logFile = nil, nil
	assert.NoError(t, shutdownApp())
	assert.NoError(t, shutdownApp())
}
