package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/orchrest/config"
	"github.com/s0up4200/orchrest/rest"
	"github.com/s0up4200/orchrest/session"
)

func TestBuildSpec(t *testing.T) {
	spec, err := buildSpec("post", "appliance/rename", `{"hostName":"lab-01"}`, []int{200, 204}, "bool")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, spec.Method)
	assert.Equal(t, "/appliance/rename", spec.Path)
	assert.Equal(t, []int{200, 204}, spec.Expected)
	assert.Equal(t, rest.ReturnBool, spec.Return)
	assert.Equal(t, map[string]any{"hostName": "lab-01"}, spec.Body)

	_, err = buildSpec("PATCH", "/x", "", nil, "json")
	assert.Error(t, err)

	_, err = buildSpec("GET", "/x", `{"a":1}`, nil, "json")
	assert.Error(t, err)

	_, err = buildSpec("PUT", "/x", `{not json`, nil, "json")
	assert.Error(t, err)
}

func callServer(t *testing.T, status int, body string, opts ...rest.CallOption) *rest.Result {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)

	sess, err := session.New(server.URL, true, session.AuthAPIKey)
	require.NoError(t, err)
	c, err := rest.NewClient(sess, zerolog.Nop())
	require.NoError(t, err)

	res, _ := c.Get(context.Background(), "/appliance", opts...)
	require.NotNil(t, res)
	return res
}

func TestRenderFiltersJSONRecords(t *testing.T) {
	filters = newFilterManager()
	flt, err := filters.Compile(`state == 1`)
	require.NoError(t, err)

	res := callServer(t, http.StatusOK, `[{"id":"1.NE","state":1},{"id":"2.NE","state":2}]`)

	var out bytes.Buffer
	require.NoError(t, render(context.Background(), &out, res, flt))
	assert.JSONEq(t, `[{"id":"1.NE","state":1}]`, out.String())
}

func TestRenderDiagnosticIgnoresFilter(t *testing.T) {
	filters = newFilterManager()
	flt, err := filters.Compile(`state == 1`)
	require.NoError(t, err)

	res := callServer(t, http.StatusInternalServerError, "internal error")

	var out bytes.Buffer
	require.NoError(t, render(context.Background(), &out, res, flt))
	assert.JSONEq(t, `{"request":"GET","api_path":"/appliance","status_code":500,"text":"internal error"}`, out.String())
}

func TestRenderShapes(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, render(context.Background(), &out, callServer(t, 200, "I am alive!", rest.Returning(rest.ReturnText)), nil))
	assert.Equal(t, "I am alive!\n", out.String())

	out.Reset()
	require.NoError(t, render(context.Background(), &out, callServer(t, 503, "", rest.Returning(rest.ReturnBool)), nil))
	assert.Equal(t, "false\n", out.String())

	out.Reset()
	require.NoError(t, render(context.Background(), &out, callServer(t, 201, "made", rest.Expect(201), rest.Returning(rest.ReturnFullResponse)), nil))
	assert.Contains(t, out.String(), "201 Created")
	assert.Contains(t, out.String(), "made")
}

func TestSelectFilterPreset(t *testing.T) {
	filters = newFilterManager()
	require.NoError(t, filters.RegisterFilters(config.FilterConfig{"lab": `startsWith(hostName, "lab")`}))

	filterExpr, presets = "", []string{"lab"}
	t.Cleanup(func() { filterExpr, presets = "", nil })

	f, err := selectFilter()
	require.NoError(t, err)
	assert.Equal(t, `startsWith(hostName, "lab")`, f.Expression())

	presets = []string{"missing"}
	_, err = selectFilter()
	assert.Error(t, err)

	presets = []string{"lab", "missing"}
	_, err = selectFilter()
	assert.Error(t, err)
}

const applianceList = `[
	{"id":"1.NE","hostName":"lab-01","state":1},
	{"id":"2.NE","hostName":"prod-01","state":2},
	{"id":"12.NE","hostName":"lab-02","state":2}
]`

func TestRenderPresetsSelected(t *testing.T) {
	filters = newFilterManager()
	require.NoError(t, filters.RegisterFilters(config.FilterConfig{
		"lab":         `startsWith(hostName, "lab")`,
		"unreachable": `not reachable(state)`,
		"prod":        `startsWith(hostName, "prod")`,
	}))

	res := callServer(t, http.StatusOK, applianceList)

	var out bytes.Buffer
	require.NoError(t, renderPresets(context.Background(), &out, res, []string{"lab", "unreachable"}))
	assert.JSONEq(t, `{
		"lab": [{"id":"1.NE","hostName":"lab-01","state":1},{"id":"12.NE","hostName":"lab-02","state":2}],
		"unreachable": [{"id":"2.NE","hostName":"prod-01","state":2},{"id":"12.NE","hostName":"lab-02","state":2}]
	}`, out.String())

	out.Reset()
	assert.Error(t, renderPresets(context.Background(), &out, res, []string{"lab", "missing"}))
}

func TestRenderPresetsAll(t *testing.T) {
	filters = newFilterManager()
	require.NoError(t, filters.RegisterFilters(config.FilterConfig{
		"lab":  `startsWith(hostName, "lab")`,
		"none": `hostName == "nope"`,
	}))

	var out bytes.Buffer
	require.NoError(t, renderPresets(context.Background(), &out, callServer(t, http.StatusOK, applianceList), nil))
	assert.JSONEq(t, `{
		"lab": [{"id":"1.NE","hostName":"lab-01","state":1},{"id":"12.NE","hostName":"lab-02","state":2}],
		"none": []
	}`, out.String())

	out.Reset()
	require.NoError(t, renderPresets(context.Background(), &out, callServer(t, http.StatusOK, `[]`), nil))
	assert.JSONEq(t, `{"lab": [], "none": []}`, out.String())
}

func TestRenderPresetsFailedCallPrintsDiagnostic(t *testing.T) {
	filters = newFilterManager()
	require.NoError(t, filters.RegisterFilters(config.FilterConfig{"lab": `startsWith(hostName, "lab")`}))

	var out bytes.Buffer
	require.NoError(t, renderPresets(context.Background(), &out, callServer(t, http.StatusBadGateway, "down"), nil))
	assert.JSONEq(t, `{"request":"GET","api_path":"/appliance","status_code":502,"text":"down"}`, out.String())
}

func TestEdgeConnectHelpers(t *testing.T) {
	filters = newFilterManager()
	res := callServer(t, http.StatusOK, applianceList)

	tests := []struct {
		expr string
		want string
	}{
		{`reachable(state)`, `[{"id":"1.NE","hostName":"lab-01","state":1}]`},
		{`applianceNumber(id) > 10`, `[{"id":"12.NE","hostName":"lab-02","state":2}]`},
		{`applianceNumber(hostName) == -1 and applianceNumber(id) == 2`, `[{"id":"2.NE","hostName":"prod-01","state":2}]`},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			flt, err := filters.Compile(tt.expr)
			require.NoError(t, err)

			var out bytes.Buffer
			require.NoError(t, render(context.Background(), &out, res, flt))
			assert.JSONEq(t, tt.want, out.String())
		})
	}
}

func TestSetupLoggerWritesFile(t *testing.T) {
	path := t.TempDir() + "/orchrest.log"
	log, closer, err := setupLogger(config.LoggingConfig{Level: "info", Format: "json", File: path})
	require.NoError(t, err)
	require.NotNil(t, closer)

	log.Info().Msg("hello file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
}
