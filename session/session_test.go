package session

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		mode    AuthMode
		opts    []Option
		want    string
		wantErr string
	}{
		{
			name: "bare host defaults to https orchestrator",
			url:  "orch.example.com",
			mode: AuthLocal,
			want: "https://orch.example.com/gms/rest",
		},
		{
			name: "explicit scheme kept",
			url:  "http://10.1.1.5:8080/",
			mode: AuthAPIKey,
			want: "http://10.1.1.5:8080/gms/rest",
		},
		{
			name: "appliance surface",
			url:  "ec-1.lab",
			mode: AuthRadius,
			opts: []Option{WithSurface(Appliance)},
			want: "https://ec-1.lab/rest/json",
		},
		{
			name: "prefix override",
			url:  "orch.example.com",
			mode: AuthTacacs,
			opts: []Option{WithAPIPrefix("gms/api/")},
			want: "https://orch.example.com/gms/api",
		},
		{
			name:    "unsupported auth mode",
			url:     "orch.example.com",
			mode:    AuthMode("kerberos"),
			wantErr: "auth_mode",
		},
		{
			name:    "missing url",
			url:     "  ",
			mode:    AuthLocal,
			wantErr: "url",
		},
		{
			name:    "scheme without host",
			url:     "https://",
			mode:    AuthLocal,
			wantErr: "has no host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := New(tt.url, true, tt.mode, tt.opts...)
			if tt.wantErr != "" {
				require.Error(t, err)
				var cfgErr *ConfigError
				require.ErrorAs(t, err, &cfgErr)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, sess.BaseURL())
			assert.Empty(t, sess.Headers())
		})
	}
}

func TestWithHeadersReplaces(t *testing.T) {
	sess, err := New("orch.example.com", true, AuthLocal)
	require.NoError(t, err)

	first := sess.WithHeaders(map[string]string{"X-XSRF-TOKEN": "one", "X-Extra": "keep?"})
	second := first.WithHeaders(map[string]string{"X-XSRF-TOKEN": "two"})

	assert.Equal(t, map[string]string{"X-XSRF-TOKEN": "two"}, second.Headers())
	assert.Equal(t, "one", first.Header("X-XSRF-TOKEN"), "earlier value must be untouched")
	assert.Empty(t, sess.Headers())

	cleared := second.Cleared()
	assert.Empty(t, cleared.Headers())
	assert.Equal(t, second.BaseURL(), cleared.BaseURL())
}

func TestHeadersIsACopy(t *testing.T) {
	sess, err := New("orch.example.com", true, AuthAPIKey)
	require.NoError(t, err)
	sess = sess.WithHeaders(map[string]string{"X-Auth-Token": "k"})

	h := sess.Headers()
	h["X-Auth-Token"] = "tampered"

	assert.Equal(t, "k", sess.Header("X-Auth-Token"))
}

func TestAuthModeLoginType(t *testing.T) {
	assert.Equal(t, 0, AuthLocal.LoginType())
	assert.Equal(t, 1, AuthRadius.LoginType())
	assert.Equal(t, 2, AuthTacacs.LoginType())
	assert.Equal(t, -1, AuthAPIKey.LoginType())
	assert.True(t, AuthTacacs.Interactive())
	assert.False(t, AuthAPIKey.Interactive())
}

func TestParseSurface(t *testing.T) {
	s, err := ParseSurface("Appliance")
	require.NoError(t, err)
	assert.Equal(t, Appliance, s)

	s, err = ParseSurface("")
	require.NoError(t, err)
	assert.Equal(t, Orchestrator, s)

	_, err = ParseSurface("controller")
	assert.Error(t, err)
}

func TestAnnounceInsecureOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	secure, err := New("orch.example.com", true, AuthLocal)
	require.NoError(t, err)
	AnnounceInsecure(logger, secure)
	assert.Empty(t, buf.String())

	insecure, err := New("lab.example.com", false, AuthLocal)
	require.NoError(t, err)
	assert.True(t, insecure.TLSConfig().InsecureSkipVerify)

	AnnounceInsecure(logger, insecure)
	AnnounceInsecure(logger, insecure)

	assert.Equal(t, 1, strings.Count(buf.String(), "verification disabled"))
}
