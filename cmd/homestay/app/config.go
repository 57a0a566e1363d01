package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/homestay/pkg/constants"
	"github.com/agentstation/homestay/pkg/display"
	"github.com/agentstation/homestay/pkg/errors"
	"github.com/agentstation/homestay/pkg/homestay"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Upstream API
	Endpoint  string
	AuthToken string
	Timeout   time.Duration

	// Snapshot cache
	CacheTTL time.Duration
	RedisURL string

	// HTTP server
	Host        string
	Port        int
	RateLimit   int
	CORSOrigins []string
	RefreshKey  string

	// Report presentation
	Display       display.Options
	MissingFields string

	// Logging configuration. LogLevel is the --log-level flag only;
	// EnvLogLevel comes from LOG_LEVEL or log.level in the config file.
	LogLevel    string
	EnvLogLevel string
	LogFormat   string
	LogOutput   string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (configFile, or ~/.homestay.yaml)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HOMESTAY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigType("yaml")
		v.SetConfigName(".homestay")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit --config must exist; the default location is optional.
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.WrapParse("yaml", configFile, err)
		}
	}

	config := &Config{
		ConfigFile: v.ConfigFileUsed(),

		Endpoint:  v.GetString("api.endpoint"),
		AuthToken: v.GetString("api.auth_token"),
		Timeout:   v.GetDuration("api.timeout"),

		CacheTTL: v.GetDuration("cache.ttl"),
		RedisURL: v.GetString("cache.redis_url"),

		Host:        v.GetString("server.host"),
		Port:        v.GetInt("server.port"),
		RateLimit:   v.GetInt("server.rate_limit"),
		CORSOrigins: v.GetStringSlice("server.cors_origins"),
		RefreshKey:  v.GetString("server.refresh_key"),

		Display: display.Options{
			Title:          v.GetString("display.title"),
			Subtitle:       v.GetString("display.subtitle"),
			Theme:          v.GetString("display.theme"),
			ShowFilters:    v.GetBool("display.show_filters"),
			ShowBreakdown:  v.GetBool("display.show_breakdown"),
			RemoveZeroRows: v.GetBool("display.remove_zero_rows"),
			SummaryScope:   homestay.SummaryScope(strings.ToLower(v.GetString("display.summary_scope"))),
			Labels: display.Labels{
				District:    v.GetString("display.column_labels.district"),
				Cluster:     v.GetString("display.column_labels.cluster"),
				New:         v.GetString("display.column_labels.new"),
				Upgradation: v.GetString("display.column_labels.upgradation"),
			},
		},
		MissingFields: v.GetString("missing_fields"),

		EnvLogLevel: strings.ToLower(v.GetString("log.level")),
		LogFormat:   v.GetString("log.format"),
		LogOutput:   v.GetString("log.output"),
	}

	return config, nil
}

// setDefaults registers every key so environment overrides resolve.
func setDefaults(v *viper.Viper) {
	d := display.DefaultOptions()

	v.SetDefault("api.endpoint", constants.DefaultEndpoint)
	v.SetDefault("api.auth_token", "")
	v.SetDefault("api.timeout", constants.DefaultFetchTimeout)

	v.SetDefault("cache.ttl", constants.CacheTTL)
	v.SetDefault("cache.redis_url", "")

	v.SetDefault("server.host", constants.DefaultHost)
	v.SetDefault("server.port", constants.DefaultPort)
	v.SetDefault("server.rate_limit", constants.DefaultRateLimit)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.refresh_key", "")

	v.SetDefault("display.title", d.Title)
	v.SetDefault("display.subtitle", d.Subtitle)
	v.SetDefault("display.theme", d.Theme)
	v.SetDefault("display.show_filters", d.ShowFilters)
	v.SetDefault("display.show_breakdown", d.ShowBreakdown)
	v.SetDefault("display.remove_zero_rows", d.RemoveZeroRows)
	v.SetDefault("display.summary_scope", string(d.SummaryScope))
	v.SetDefault("display.column_labels.district", d.Labels.District)
	v.SetDefault("display.column_labels.cluster", d.Labels.Cluster)
	v.SetDefault("display.column_labels.new", d.Labels.New)
	v.SetDefault("display.column_labels.upgradation", d.Labels.Upgradation)

	v.SetDefault("missing_fields", "empty")

	v.SetDefault("log.level", "")
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")
}

// bindEnv maps keys whose environment names do not follow the HOMESTAY_
// prefix convention.
func bindEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"api.auth_token":  {"HOMESTAY_API_TOKEN", "API_AUTH_TOKEN", "HOMESTAY_API_AUTH_TOKEN"},
		"cache.redis_url": {"REDIS_URL", "HOMESTAY_CACHE_REDIS_URL"},
		"log.level":       {"LOG_LEVEL", "HOMESTAY_LOG_LEVEL"},
		"log.format":      {"LOG_FORMAT", "HOMESTAY_LOG_FORMAT"},
		"log.output":      {"LOG_OUTPUT", "HOMESTAY_LOG_OUTPUT"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return errors.NewConfigError("env", "failed to bind "+key, err)
		}
	}
	return nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	c.LogLevel = strings.ToLower(logLevel)
}

// RequireToken reports a missing upstream token as a configuration error.
func (c *Config) RequireToken() error {
	if c.AuthToken == "" {
		return errors.NewConfigError("api",
			"auth token is required (set HOMESTAY_API_TOKEN or api.auth_token)", errors.ErrTokenRequired)
	}
	return nil
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// .env.local is loaded first so it wins; godotenv never overrides
	// variables that are already set.
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
