package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/orchrest/auth"
	"github.com/s0up4200/orchrest/config"
	"github.com/s0up4200/orchrest/filter"
	"github.com/s0up4200/orchrest/rest"
	"github.com/s0up4200/orchrest/session"
)

// skipInit marks commands that run without loading the configuration.
const skipInit = "skip-init"

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	logFile io.Closer
	client  *rest.Client
	authn   *auth.Authenticator
	filters *filter.Manager

	// Command flags
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "orchrest",
	Short: "Call the EdgeConnect Orchestrator and appliance REST APIs",
	Long: `orchrest talks to an EdgeConnect Orchestrator or appliance over its REST API.

It logs in with an API key or with local, RADIUS or TACACS+ credentials,
issues GET/POST/PUT/DELETE calls against any endpoint path and prints the
result shaped as JSON, text, a boolean or the full response.`,
	SilenceUsage:      true,
	PersistentPreRunE: initializeApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// execute runs the selected command and then shuts down. Cobra skips post-run
// hooks when RunE fails, so the shutdown cannot live in one.
func execute() error {
	err := rootCmd.Execute()
	if shutdownErr := shutdownApp(); err == nil {
		err = shutdownErr
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

// initializeApp loads configuration and builds the client for the primary target
func initializeApp(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipInit] == "true" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: !isatty.IsTerminal(os.Stderr.Fd())}).
			With().Timestamp().Logger()
		return nil
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if verbose {
		cfg.Logging.Level = "debug"
	}
	logger, logFile, err = setupLogger(cfg.Logging)
	if err != nil {
		return err
	}

	client, authn, err = newTargetClient(cfg.Target)
	if err != nil {
		return err
	}

	filters = newFilterManager()
	if err := filters.RegisterFilters(cfg.Filters); err != nil {
		return fmt.Errorf("invalid filter preset: %w", err)
	}

	return nil
}

// shutdownApp ends an interactive session and closes the log file. It runs
// once per execution whether or not the command failed.
func shutdownApp() error {
	if authn != nil && authn.IsAuthenticated() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		authn.Logout(ctx)
		cancel()
	}
	authn = nil

	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// newTargetClient builds a session, client and authenticator for one target
func newTargetClient(t config.TargetConfig) (*rest.Client, *auth.Authenticator, error) {
	mode := session.AuthMode(t.Auth.Mode)
	surface, err := session.ParseSurface(t.Surface)
	if err != nil {
		return nil, nil, err
	}

	opts := []session.Option{
		session.WithSurface(surface),
		session.WithLogSuccess(cfg.REST.LogSuccess),
	}
	if t.APIPrefix != "" {
		opts = append(opts, session.WithAPIPrefix(t.APIPrefix))
	}

	sess, err := session.New(t.URL, t.TLSVerify(), mode, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("target %s: %w", t.DisplayName(), err)
	}

	targetLogger := logger.With().Str("target", t.DisplayName()).Logger()
	c, err := rest.NewClient(sess, targetLogger,
		rest.WithTimeout(t.Timeout),
		rest.WithSource(cfg.REST.Source),
		rest.WithPersistedLogs(cfg.Logging.File != ""),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("target %s: %w", t.DisplayName(), err)
	}

	a, err := auth.New(c, auth.ForSurface(surface), auth.Credentials{
		Mode:     mode,
		User:     t.Auth.User,
		Password: t.Auth.Password,
		APIKey:   t.Auth.APIKey,
	}, targetLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("target %s: %w", t.DisplayName(), err)
	}

	return c, a, nil
}

// ensureLogin logs in unless the session already carries a token
func ensureLogin(ctx context.Context, a *auth.Authenticator) error {
	if a.IsAuthenticated() {
		return nil
	}
	if err := a.Authenticate(ctx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return nil
}

// setupLogger configures the zerolog logger. When logging.file is set every
// event is also appended to that file as JSON.
func setupLogger(cfg config.LoggingConfig) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			NoColor:    !cfg.Color || !isatty.IsTerminal(os.Stderr.Fd()),
		}
	}

	if cfg.File == "" {
		return zerolog.New(out).With().Timestamp().Logger(), nil, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}
	multi := zerolog.MultiLevelWriter(out, f)
	return zerolog.New(multi).With().Timestamp().Logger(), f, nil
}
