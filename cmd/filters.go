package cmd

import (
	"strconv"
	"strings"

	"github.com/s0up4200/orchrest/filter"
)

// applianceReachable is the orchestrator's appliance state for a reachable
// appliance.
const applianceReachable = 1

// edgeConnectHelpers are filter functions that understand orchestrator
// payloads.
func edgeConnectHelpers() map[string]any {
	return map[string]any{
		// reachable(state) is true for an appliance the orchestrator can reach
		"reachable": func(state any) bool {
			n, ok := number(state)
			return ok && n == applianceReachable
		},
		// applianceNumber("12.NE") is 12; anything else is -1
		"applianceNumber": func(id any) int {
			s, ok := id.(string)
			if !ok {
				return -1
			}
			n, err := strconv.Atoi(strings.TrimSuffix(s, ".NE"))
			if err != nil || !strings.HasSuffix(s, ".NE") {
				return -1
			}
			return n
		},
	}
}

func number(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), float64(int(n)) == n
	case int:
		return n, true
	default:
		return 0, false
	}
}

// newFilterManager builds the preset manager with the EdgeConnect helpers.
func newFilterManager() *filter.Manager {
	return filter.NewManager(filter.WithCompiler(
		filter.NewExprCompiler(
			filter.WithCache(100),
			filter.WithCustomFunctions(edgeConnectHelpers()),
		),
	))
}
