package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Target  TargetConfig   `mapstructure:"target"`
	Targets []TargetConfig `mapstructure:"targets" validate:"dive"`
	REST    RESTConfig     `mapstructure:"rest"`
	Logging LoggingConfig  `mapstructure:"logging"`
	Filters FilterConfig   `mapstructure:"filters"`
	Update  UpdateConfig   `mapstructure:"update"`
}

// TargetConfig describes one orchestrator or appliance and how to log in to it
type TargetConfig struct {
	Name      string        `mapstructure:"name"`
	URL       string        `mapstructure:"url" validate:"required"`
	Surface   string        `mapstructure:"surface" validate:"omitempty,oneof=orchestrator appliance edgeconnect"`
	VerifyTLS *bool         `mapstructure:"verify_tls"`
	APIPrefix string        `mapstructure:"api_prefix" validate:"omitempty,startswith=/"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gte=0"`
	Auth      AuthConfig    `mapstructure:"auth"`
}

// TLSVerify reports whether certificates are checked; unset means yes.
func (t TargetConfig) TLSVerify() bool {
	return t.VerifyTLS == nil || *t.VerifyTLS
}

// DisplayName is Name, falling back to URL.
func (t TargetConfig) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.URL
}

// AuthConfig holds login details
type AuthConfig struct {
	Mode     string `mapstructure:"mode" validate:"oneof=apikey local radius tacacs"`
	APIKey   string `mapstructure:"api_key" validate:"required_if=Mode apikey"`
	User     string `mapstructure:"user" validate:"required_unless=Mode apikey"`
	Password string `mapstructure:"password" validate:"required_unless=Mode apikey"`
}

// RESTConfig controls dispatcher behavior shared by every target
type RESTConfig struct {
	LogSuccess bool   `mapstructure:"log_success"`
	Source     string `mapstructure:"source" validate:"required"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
	Color  bool   `mapstructure:"color"`
	File   string `mapstructure:"file"`
}

// FilterConfig maps preset names to filter expressions
type FilterConfig map[string]string

// UpdateConfig points self-update at a release repository
type UpdateConfig struct {
	Repository string `mapstructure:"repository" validate:"required,contains=/"`
}
