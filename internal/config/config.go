// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Simulation() SimulationConfig
	Viewport() ViewportConfig
	Source() SourceConfig
	Driver() DriverConfig
	Critic() CriticConfig
	Database() DatabaseConfig
	Record() RecordConfig
	Network() NetworkConfig

	// Runtime Setters
	SetSimulation(SimulationConfig)
	SetSourceImage(string)
	SetViewport(width, height int)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	SimulationCfg SimulationConfig `mapstructure:"simulation" yaml:"simulation"`
	ViewportCfg   ViewportConfig   `mapstructure:"viewport" yaml:"viewport"`
	SourceCfg     SourceConfig     `mapstructure:"source" yaml:"source"`
	DriverCfg     DriverConfig     `mapstructure:"driver" yaml:"driver"`
	CriticCfg     CriticConfig     `mapstructure:"critic" yaml:"critic"`
	DatabaseCfg   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	RecordCfg     RecordConfig     `mapstructure:"record" yaml:"record"`
	NetworkCfg    NetworkConfig    `mapstructure:"network" yaml:"network"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig         { return c.LoggerCfg }
func (c *Config) Simulation() SimulationConfig { return c.SimulationCfg }
func (c *Config) Viewport() ViewportConfig     { return c.ViewportCfg }
func (c *Config) Source() SourceConfig         { return c.SourceCfg }
func (c *Config) Driver() DriverConfig         { return c.DriverCfg }
func (c *Config) Critic() CriticConfig         { return c.CriticCfg }
func (c *Config) Database() DatabaseConfig     { return c.DatabaseCfg }
func (c *Config) Record() RecordConfig         { return c.RecordCfg }
func (c *Config) Network() NetworkConfig       { return c.NetworkCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetSimulation(s SimulationConfig) { c.SimulationCfg = s }
func (c *Config) SetSourceImage(src string)        { c.SourceCfg.Image = src }
func (c *Config) SetViewport(width, height int) {
	c.ViewportCfg.Width = width
	c.ViewportCfg.Height = height
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// ViewportConfig is the logical canvas size, in backing-store pixels, used
// for headless rendering and as the initial window size.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// SourceConfig selects the image the field is sampled from.
type SourceConfig struct {
	// Image is a local path, file://, http(s):// or data: URL.
	Image string `mapstructure:"image" yaml:"image"`
}

// DriverConfig controls the frame loop.
type DriverConfig struct {
	// FPS paces headless loops. Interactive hosts tick on display refresh.
	FPS int `mapstructure:"fps" yaml:"fps"`
	// RebuildTimeout bounds a single image load and grid construction.
	RebuildTimeout time.Duration `mapstructure:"rebuild_timeout" yaml:"rebuild_timeout"`
	// Pointer selects the synthetic pointer for headless runs:
	// none, orbit, sweep or wander.
	Pointer string `mapstructure:"pointer" yaml:"pointer"`
	// PointerFeed, when set, is a file followed for live "x y" pointer lines.
	PointerFeed string `mapstructure:"pointer_feed" yaml:"pointer_feed"`
	// Seed feeds the wander pointer's noise.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

// CriticConfig configures the critique collaborator.
type CriticConfig struct {
	Model string `mapstructure:"model" yaml:"model"`
	// PowerfulModel serves requests for the powerful tier. Empty shares Model.
	PowerfulModel string        `mapstructure:"powerful_model" yaml:"powerful_model"`
	APIKey        string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint      string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout    time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature   float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxRetries    int           `mapstructure:"max_retries" yaml:"max_retries"`
}

// DatabaseConfig holds the database connection details. An empty URL
// disables the critique archive.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// RecordConfig configures MJPEG recording.
type RecordConfig struct {
	Output      string        `mapstructure:"output" yaml:"output"`
	Duration    time.Duration `mapstructure:"duration" yaml:"duration"`
	JPEGQuality int           `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`
}

// NetworkConfig configures the HTTP client used for remote images.
type NetworkConfig struct {
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ForceHTTP2      bool          `mapstructure:"force_http2" yaml:"force_http2"`
	UserAgent       string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// NewDefaultConfig creates a configuration populated purely from defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults registers every default value with v.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "flux-cli")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Simulation --
	// Centralized in simulation_config.go.
	setSimulationDefaults(v)

	// -- Viewport --
	v.SetDefault("viewport.width", 1280)
	v.SetDefault("viewport.height", 720)

	// -- Source --
	v.SetDefault("source.image", DefaultImageURL)

	// -- Driver --
	v.SetDefault("driver.fps", 60)
	v.SetDefault("driver.rebuild_timeout", "30s")
	v.SetDefault("driver.pointer", "orbit")
	v.SetDefault("driver.pointer_feed", "")
	v.SetDefault("driver.seed", 1)

	// -- Critic --
	v.SetDefault("critic.model", "gemini-2.5-flash")
	v.SetDefault("critic.powerful_model", "")
	v.SetDefault("critic.api_timeout", "60s")
	v.SetDefault("critic.temperature", 1.0)
	v.SetDefault("critic.max_retries", 3)

	// -- Database --
	v.SetDefault("database.url", "")

	// -- Record --
	v.SetDefault("record.output", "flux.avi")
	v.SetDefault("record.duration", "10s")
	v.SetDefault("record.jpeg_quality", 85)

	// -- Network --
	v.SetDefault("network.timeout", "30s")
	v.SetDefault("network.ignore_tls_errors", false)
	v.SetDefault("network.force_http2", true)
	v.SetDefault("network.user_agent", "flux-cli")
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	v.BindEnv("critic.api_key", "FLUX_CRITIC_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("database.url", "FLUX_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// The generic API_KEY name is honoured last.
	if cfg.CriticCfg.APIKey == "" {
		cfg.CriticCfg.APIKey = os.Getenv("API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate rejects structurally impossible settings. Simulation tuning values
// are not range checked.
func (c *Config) Validate() error {
	if err := c.LoggerCfg.Validate(); err != nil {
		return fmt.Errorf("logger configuration invalid: %w", err)
	}
	if err := c.SimulationCfg.Validate(); err != nil {
		return fmt.Errorf("simulation configuration invalid: %w", err)
	}
	if c.ViewportCfg.Width <= 0 || c.ViewportCfg.Height <= 0 {
		return fmt.Errorf("viewport.width and viewport.height must be positive integers")
	}
	if c.DriverCfg.FPS <= 0 {
		return fmt.Errorf("driver.fps must be a positive integer")
	}
	switch c.DriverCfg.Pointer {
	case "", "none", "orbit", "sweep", "wander":
	default:
		return fmt.Errorf("driver.pointer must be one of none, orbit, sweep, wander (got %q)", c.DriverCfg.Pointer)
	}
	if c.RecordCfg.JPEGQuality < 1 || c.RecordCfg.JPEGQuality > 100 {
		return fmt.Errorf("record.jpeg_quality must be between 1 and 100")
	}
	return nil
}

// Validate checks the logger settings.
func (l *LoggerConfig) Validate() error {
	switch l.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be 'console' or 'json' (got %q)", l.Format)
	}
	return nil
}
