package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ORCHREST_TARGET_AUTH_PASSWORD.
const EnvPrefix = "ORCHREST"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Load loads the configuration from file, a .env file in the working directory
// and ORCHREST_* environment variables, in increasing order of precedence.
// Without an explicit path a missing config file is not an error, so a target
// can be configured through the environment alone.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "orchrest"))
		}
		v.AddConfigPath("/etc/orchrest/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	for i := range cfg.Targets {
		cfg.Targets[i] = inherit(cfg.Target, cfg.Targets[i])
	}

	// Validate configuration
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Target defaults; empty strings register the keys for env overrides
	v.SetDefault("target.name", "")
	v.SetDefault("target.url", "")
	v.SetDefault("target.surface", "orchestrator")
	v.SetDefault("target.verify_tls", true)
	v.SetDefault("target.api_prefix", "")
	v.SetDefault("target.timeout", "120s")
	v.SetDefault("target.auth.mode", "apikey")
	v.SetDefault("target.auth.api_key", "")
	v.SetDefault("target.auth.user", "")
	v.SetDefault("target.auth.password", "")

	// REST defaults
	v.SetDefault("rest.log_success", false)
	v.SetDefault("rest.source", "source=menu_rest_apis_id")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
	v.SetDefault("logging.file", "")

	v.SetDefault("update.repository", "s0up4200/orchrest")
}

// inherit fills the unset fields of t from the primary target.
func inherit(base, t TargetConfig) TargetConfig {
	if t.Surface == "" {
		t.Surface = base.Surface
	}
	if t.APIPrefix == "" {
		t.APIPrefix = base.APIPrefix
	}
	if t.Timeout == 0 {
		t.Timeout = base.Timeout
	}
	if t.VerifyTLS == nil {
		t.VerifyTLS = base.VerifyTLS
	}
	if t.Auth.Mode == "" {
		t.Auth = base.Auth
	}
	return t
}

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// validateConfig checks if the configuration is valid
func validateConfig(cfg *Config) error {
	err := structValidator().Struct(cfg)
	if err == nil {
		return checkPlaceholders(cfg)
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fmt.Sprintf("%s %s", fieldPath(fe), describe(fe)))
	}
	return errors.New(strings.Join(messages, "; "))
}

// checkPlaceholders rejects values copied unchanged from the example config.
func checkPlaceholders(cfg *Config) error {
	if cfg.Target.Auth.APIKey == "your-api-key-here" {
		return fmt.Errorf("target.auth.api_key must be set to a valid API key")
	}
	return nil
}

// fieldPath turns Config.target.auth.mode into target.auth.mode.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	case "startswith":
		return fmt.Sprintf("must start with %q", fe.Param())
	case "contains":
		return fmt.Sprintf("must contain %q", fe.Param())
	case "gte":
		return "must not be negative"
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}
