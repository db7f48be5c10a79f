package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/orchrest/filter"
	"github.com/s0up4200/orchrest/rest"
)

var (
	callData   string
	callExpect []int
	callReturn string
	filterExpr string
	presets    []string
	allPresets bool
)

// callCmd represents the call command
var callCmd = &cobra.Command{
	Use:   "call <GET|POST|PUT|DELETE> <path>",
	Short: "Issue one REST call and print the result",
	Long: `Issue one REST call against the configured target and print the result.

The path is relative to the REST prefix, for example /alarm/gms or
/appliance?id=1.NE. JSON list results can be narrowed client-side with
--filter or a named --preset from the config:

  orchrest call GET /appliance --filter 'startsWith(hostName, "lab") and reachable(state)'

Several presets (--preset lab,unreachable) or --all-presets run together over
the same result and print an object keyed by preset name.`,
	Args: cobra.ExactArgs(2),
	RunE: runCall,
}

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().StringVarP(&callData, "data", "d", "", "JSON request body for POST and PUT")
	callCmd.Flags().IntSliceVarP(&callExpect, "expect", "e", []int{http.StatusOK}, "status codes treated as success")
	callCmd.Flags().StringVarP(&callReturn, "return", "r", "json", "result shape: json, text, bool or full_response")
	callCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression applied to JSON records")
	callCmd.Flags().StringSliceVarP(&presets, "preset", "p", nil, "use preset filters from config, comma separated")
	callCmd.Flags().BoolVar(&allPresets, "all-presets", false, "run every preset filter from config")
	callCmd.MarkFlagsMutuallyExclusive("filter", "preset", "all-presets")
}

func runCall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	spec, err := buildSpec(args[0], args[1], callData, callExpect, callReturn)
	if err != nil {
		return err
	}

	flt, err := selectFilter()
	if err != nil {
		return err
	}
	batch := allPresets || len(presets) > 1
	if (flt != nil || batch) && spec.Return != rest.ReturnJSON {
		return fmt.Errorf("--filter and --preset need --return json")
	}
	if allPresets && len(filters.ListFilters()) == 0 {
		return fmt.Errorf("--all-presets: no filters configured")
	}

	if err := ensureLogin(ctx, authn); err != nil {
		return err
	}

	res, callErr := client.Do(ctx, spec)
	if batch {
		err = renderPresets(ctx, os.Stdout, res, presets)
	} else {
		err = render(ctx, os.Stdout, res, flt)
	}
	if err != nil {
		return err
	}
	if callErr != nil {
		return fmt.Errorf("%s %s failed: %w", spec.Method, spec.Path, callErr)
	}
	return nil
}

// buildSpec turns command-line arguments into a request.
func buildSpec(method, path, data string, expect []int, returnType string) (rest.RequestSpec, error) {
	method = strings.ToUpper(method)
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return rest.RequestSpec{}, fmt.Errorf("unsupported method %q", method)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	spec := rest.RequestSpec{
		Method:   method,
		Path:     path,
		Expected: expect,
		Return:   rest.ParseReturnType(returnType),
	}

	if data != "" {
		if method != http.MethodPost && method != http.MethodPut {
			return rest.RequestSpec{}, fmt.Errorf("--data is only sent with POST and PUT")
		}
		var body any
		if err := json.Unmarshal([]byte(data), &body); err != nil {
			return rest.RequestSpec{}, fmt.Errorf("--data is not valid JSON: %w", err)
		}
		spec.Body = body
	}
	return spec, nil
}

// selectFilter determines the single filter to apply, if any. Several
// presets are resolved by renderPresets instead.
func selectFilter() (filter.CompiledFilter, error) {
	if filterExpr != "" {
		return filters.Compile(filterExpr)
	}
	for _, name := range presets {
		if _, ok := filters.GetFilter(name); !ok {
			return nil, fmt.Errorf("preset '%s' not found in config", name)
		}
	}
	if len(presets) == 1 {
		f, _ := filters.GetFilter(presets[0])
		return f, nil
	}
	return nil, nil
}

// render prints a result in its return shape. Failed json calls print their
// diagnostic; the filter only applies to successful json results.
func render(ctx context.Context, w io.Writer, res *rest.Result, flt filter.CompiledFilter) error {
	switch res.Type {
	case rest.ReturnText:
		_, err := fmt.Fprintln(w, res.Text())
		return err
	case rest.ReturnBool:
		_, err := fmt.Fprintln(w, res.Bool())
		return err
	case rest.ReturnFullResponse:
		return renderRaw(w, res.Raw())
	case rest.ReturnJSON:
		payload := res.JSON()
		if flt != nil && res.OK() {
			records, err := filter.Records(payload)
			if err != nil {
				return fmt.Errorf("cannot filter result: %w", err)
			}
			matches, err := filters.Apply(ctx, flt, records)
			if err != nil {
				return err
			}
			payload = filter.Payload(matches)
		}
		return writeJSON(w, payload)
	}
	return nil
}

// renderPresets runs the named presets, or every preset when names is empty,
// over one json result and prints the matches keyed by preset name.
func renderPresets(ctx context.Context, w io.Writer, res *rest.Result, names []string) error {
	if res.Type != rest.ReturnJSON || !res.OK() {
		return render(ctx, w, res, nil)
	}

	records, err := filter.Records(res.JSON())
	if err != nil {
		return fmt.Errorf("cannot filter result: %w", err)
	}

	var matches map[string][]filter.Record
	if len(names) == 0 {
		matches, err = filters.EvaluateAll(ctx, records)
	} else {
		matches, err = filters.EvaluateSelected(ctx, names, records)
	}
	if err != nil {
		return err
	}

	out := make(map[string]any, len(matches))
	for name, recs := range matches {
		out[name] = filter.Payload(recs)
	}
	return writeJSON(w, out)
}

func renderRaw(w io.Writer, raw *rest.Response) error {
	if raw == nil || raw.Response == nil {
		return nil
	}
	fmt.Fprintf(w, "%s %s\n", raw.Proto, raw.Status)

	names := make([]string, 0, len(raw.Header))
	for name := range raw.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range raw.Header[name] {
			fmt.Fprintf(w, "%s: %s\n", name, v)
		}
	}
	fmt.Fprintln(w)
	_, err := w.Write(raw.Payload)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
