package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/orchrest/config"
	"github.com/s0up4200/orchrest/rest"
)

var (
	probePath        string
	probeConcurrency int
)

// probeCmd represents the probe command
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check every configured target concurrently",
	Long: `Log in to every entry under targets (or the primary target when the list
is empty), issue one GET and log out again. Each target gets its own
client, so sessions are never shared between goroutines.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().StringVar(&probePath, "path", "/gmsserver/hello", "path requested on each target")
	probeCmd.Flags().IntVar(&probeConcurrency, "concurrency", 4, "targets probed at once")
}

type probeResult struct {
	target  string
	ok      bool
	elapsed time.Duration
	detail  string
}

func runProbe(cmd *cobra.Command, args []string) error {
	targets := cfg.Targets
	if len(targets) == 0 {
		targets = []config.TargetConfig{cfg.Target}
	}

	results := make([]probeResult, len(targets))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(probeConcurrency, 1))

	for i, t := range targets {
		g.Go(func() error {
			results[i] = probeTarget(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	var failed int
	for _, r := range results {
		mark := "✓"
		if !r.ok {
			mark = "✗"
			failed++
		}
		fmt.Printf("%s %-30s %8s  %s\n", mark, r.target, r.elapsed.Round(time.Millisecond), r.detail)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, len(results))
	}
	return nil
}

// probeTarget never fails the group; one unreachable target must not cancel the others.
func probeTarget(ctx context.Context, t config.TargetConfig) probeResult {
	start := time.Now()
	result := probeResult{target: t.DisplayName()}

	c, a, err := newTargetClient(t)
	if err != nil {
		result.detail = err.Error()
		return result
	}

	if err := ensureLogin(ctx, a); err != nil {
		result.elapsed = time.Since(start)
		result.detail = err.Error()
		return result
	}
	defer a.Logout(context.WithoutCancel(ctx))

	res, err := c.Get(ctx, probePath, rest.Returning(rest.ReturnText))
	result.elapsed = time.Since(start)
	if err != nil {
		result.detail = err.Error()
		return result
	}

	result.ok = true
	result.detail = strings.TrimSpace(res.Text())
	return result
}
