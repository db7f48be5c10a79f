package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/s0up4200/orchrest/config"
)

var (
	version   = "dev"
	buildTime = "unknown"

	updateRepository string
	checkOnly        bool
)

// SetVersion records the build's version information
func SetVersion(v, built string) {
	version = v
	buildTime = built
	rootCmd.Version = v
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Annotations: map[string]string{skipInit: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("orchrest %s (built %s, %s/%s)\n", version, buildTime, runtime.GOOS, runtime.GOARCH)
	},
}

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:         "update",
	Short:       "Update orchrest to the latest release",
	Annotations: map[string]string{skipInit: "true"},
	RunE:        runUpdate,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().StringVar(&updateRepository, "repository", "s0up4200/orchrest", "GitHub owner/name to fetch releases from")
	updateCmd.Flags().BoolVar(&checkOnly, "check", false, "only report whether an update is available")
}

// currentVersion parses the build version; development builds have none.
func currentVersion() (semver.Version, error) {
	v, err := semver.ParseTolerant(version)
	if err != nil {
		return semver.Version{}, fmt.Errorf("cannot update a %q build: %w", version, err)
	}
	return v, nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	current, err := currentVersion()
	if err != nil {
		return err
	}

	repository := updateRepository
	if !cmd.Flags().Changed("repository") {
		if loaded, err := config.Load(cfgFile); err == nil {
			repository = loaded.Update.Repository
		}
	}

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(repository))
	if err != nil {
		return fmt.Errorf("failed to look up releases: %w", err)
	}
	if !found {
		return fmt.Errorf("no release found for %s/%s in %s", runtime.GOOS, runtime.GOARCH, repository)
	}

	if latest.LessOrEqual(current.String()) {
		fmt.Printf("✓ orchrest %s is the latest version\n", current)
		return nil
	}

	if checkOnly {
		fmt.Printf("Update available: %s → %s\n", current, latest.Version())
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("failed to update binary: %w", err)
	}

	logger.Info().Str("from", current.String()).Str("to", latest.Version()).Msg("Updated")
	fmt.Printf("✓ Updated to %s\n", latest.Version())
	return nil
}
