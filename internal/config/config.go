package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable the daemon reads at startup. Values come from
// /etc/powermon.toml, overridden by command line flags.
type Config struct {
	// Meter endpoint.
	MeterURL     string `mapstructure:"meter_url"`
	PollInterval int    `mapstructure:"poll_interval"` // seconds, 1..5
	HTTPTimeout  int    `mapstructure:"http_timeout"`  // seconds

	// Status strip cadence.
	StatusInterval int `mapstructure:"status_interval"` // seconds
	IdleDelayMs    int `mapstructure:"idle_delay_ms"`

	// Connectivity.
	Interface        string `mapstructure:"interface"`
	ProbeHost        string `mapstructure:"probe_host"`
	BackoffBaseMs    int    `mapstructure:"backoff_base_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
	MaxReconnects    int    `mapstructure:"max_reconnects"`
	FailureThreshold int    `mapstructure:"failure_threshold"`

	// Display hardware.
	SPIPort  string `mapstructure:"spi_port"`
	ResetPin string `mapstructure:"reset_pin"`
	DCPin    string `mapstructure:"dc_pin"`
	CSPin    string `mapstructure:"cs_pin"`
	BLPin    string `mapstructure:"bl_pin"`
	Width    int    `mapstructure:"width"`
	Height   int    `mapstructure:"height"`

	// Rendering thresholds.
	PowerThresholds  []float64 `mapstructure:"power_thresholds"` // W, normal/medium/high upper bounds
	TempThresholds   []float64 `mapstructure:"temp_thresholds"`  // °C, green/yellow/orange upper bounds
	PowerDelta       float64   `mapstructure:"power_delta"`      // W, minimum change worth a repaint
	CurrentDelta     float64   `mapstructure:"current_delta"`    // A
	FontPath         string    `mapstructure:"font_path"`
	HistoryFile      string    `mapstructure:"history_file"`
	HistoryMaxPoints int       `mapstructure:"history_max_points"`

	// Diagnostics web server; empty disables it.
	WebListen string `mapstructure:"web_listen"`

	Debug   bool `mapstructure:"debug"`
	Verbose bool `mapstructure:"verbose"`
}

func setDefaults() {
	viper.SetDefault("meter_url", "http://fox-energy.lan/api/v1/now")
	viper.SetDefault("poll_interval", 2)
	viper.SetDefault("http_timeout", 4)
	viper.SetDefault("status_interval", 1)
	viper.SetDefault("idle_delay_ms", 50)
	viper.SetDefault("interface", "wlan0")
	viper.SetDefault("probe_host", "")
	viper.SetDefault("backoff_base_ms", 1000)
	viper.SetDefault("backoff_max_ms", 16000)
	viper.SetDefault("max_reconnects", 3)
	viper.SetDefault("failure_threshold", 5)
	viper.SetDefault("spi_port", "SPI0.0")
	viper.SetDefault("reset_pin", "GPIO27")
	viper.SetDefault("dc_pin", "GPIO25")
	viper.SetDefault("cs_pin", "GPIO8")
	viper.SetDefault("bl_pin", "GPIO18")
	viper.SetDefault("width", 320)
	viper.SetDefault("height", 240)
	viper.SetDefault("power_thresholds", []float64{1500, 2500, 3500})
	viper.SetDefault("temp_thresholds", []float64{60, 65, 70})
	viper.SetDefault("power_delta", 0.5)
	viper.SetDefault("current_delta", 0.05)
	viper.SetDefault("font_path", "")
	viper.SetDefault("history_file", "/var/lib/powermon/history.json")
	viper.SetDefault("history_max_points", 900)
	viper.SetDefault("web_listen", ":8081")
}

// Load reads /etc/powermon.toml (if present), applies flag overrides and
// validates the result.
func Load() (*Config, error) {
	debugFlag := flag.Bool("debug", false, "Enable debugging mode")
	verboseFlag := flag.Bool("verbose", false, "Enable verbose logging")
	urlFlag := flag.String("url", "", "Meter endpoint URL")
	intervalFlag := flag.Int("interval", 0, "Metric poll interval in seconds")
	webFlag := flag.String("web", "", "Diagnostics listen address")
	flag.Parse()

	setDefaults()

	viper.SetConfigName("powermon")
	viper.SetConfigType("toml")
	viper.AddConfigPath("/etc")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if *debugFlag {
		viper.Set("debug", true)
	}
	if *verboseFlag {
		viper.Set("verbose", true)
	}
	if *urlFlag != "" {
		viper.Set("meter_url", *urlFlag)
	}
	if *intervalFlag != 0 {
		viper.Set("poll_interval", *intervalFlag)
	}
	if *webFlag != "" {
		viper.Set("web_listen", *webFlag)
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the renderer cannot work with.
func (c *Config) Validate() error {
	if c.MeterURL == "" {
		return fmt.Errorf("meter_url must be set")
	}
	if c.PollInterval < 1 || c.PollInterval > 5 {
		return fmt.Errorf("poll_interval must be 1..5 seconds, got %d", c.PollInterval)
	}
	if c.HTTPTimeout < 1 {
		return fmt.Errorf("http_timeout must be at least 1 second")
	}
	if c.StatusInterval < 1 {
		return fmt.Errorf("status_interval must be at least 1 second")
	}
	if err := monotonic("power_thresholds", c.PowerThresholds); err != nil {
		return err
	}
	if err := monotonic("temp_thresholds", c.TempThresholds); err != nil {
		return err
	}
	if c.BackoffBaseMs < 1 || c.BackoffMaxMs < c.BackoffBaseMs {
		return fmt.Errorf("backoff_max_ms (%d) must be >= backoff_base_ms (%d)", c.BackoffMaxMs, c.BackoffBaseMs)
	}
	if c.MaxReconnects < 1 {
		return fmt.Errorf("max_reconnects must be at least 1")
	}
	if c.Width < 1 || c.Height < 1 {
		return fmt.Errorf("display dimensions must be positive, got %dx%d", c.Width, c.Height)
	}
	return nil
}

func monotonic(name string, bounds []float64) error {
	if len(bounds) != 3 {
		return fmt.Errorf("%s must have exactly 3 entries, got %d", name, len(bounds))
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			return fmt.Errorf("%s must be strictly increasing: %v", name, bounds)
		}
	}
	return nil
}

// PollPeriod returns the metric cadence as a duration.
func (c *Config) PollPeriod() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// StatusPeriod returns the status strip cadence as a duration.
func (c *Config) StatusPeriod() time.Duration {
	return time.Duration(c.StatusInterval) * time.Second
}

// IdleDelay returns the loop end sleep.
func (c *Config) IdleDelay() time.Duration {
	return time.Duration(c.IdleDelayMs) * time.Millisecond
}
