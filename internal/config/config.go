package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BuzzLyutic/todo-display/internal/display"
)

const (
	PanelEPD7in5V2 = "epd7in5v2"
	PanelPNG       = "png"
)

// ErrInvalidConfig is returned for unreadable files or malformed values.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Port           string        `yaml:"port"`
	DatabaseURL    string        `yaml:"database_url"`
	PollInterval   time.Duration `yaml:"-"`
	TodoistBaseURL string        `yaml:"todoist_base_url"`
	TodoistToken   string        `yaml:"todoist_token"`
	FontPath       string        `yaml:"font_path"`
	Panel          string        `yaml:"panel"`
	PNGPath        string        `yaml:"png_path"`
	PNGWidth       int           `yaml:"png_width"`
	PNGHeight      int           `yaml:"png_height"`
	IdleTitle      string        `yaml:"idle_title"`
	IdleImage      string        `yaml:"idle_image"`
	SPIPort        string        `yaml:"spi_port"`
	DCPin          string        `yaml:"dc_pin"`
	RSTPin         string        `yaml:"rst_pin"`
	BUSYPin        string        `yaml:"busy_pin"`
	LogDevelopment bool          `yaml:"log_development"`
}

func defaults() Config {
	return Config{
		Port:           "8080",
		PollInterval:   60 * time.Second,
		TodoistBaseURL: "https://api.todoist.com",
		FontPath:       "fonts/Roboto-Medium.ttf",
		Panel:          PanelEPD7in5V2,
		PNGPath:        "display.png",
		PNGWidth:       800,
		PNGHeight:      480,
		IdleTitle:      "Nothing due",
		SPIPort:        display.DefaultEPDPins.SPIPort,
		DCPin:          display.DefaultEPDPins.DC,
		RSTPin:         display.DefaultEPDPins.RST,
		BUSYPin:        display.DefaultEPDPins.BUSY,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// TODO_DISPLAY_CONFIG (if any), then environment variables.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("TODO_DISPLAY_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.TodoistBaseURL = getEnv("TODOIST_API_URL", cfg.TodoistBaseURL)
	cfg.TodoistToken = getEnv("TODOIST_PERSONAL_TOKEN", cfg.TodoistToken)
	cfg.FontPath = getEnv("FONT_PATH", cfg.FontPath)
	cfg.Panel = getEnv("PANEL", cfg.Panel)
	cfg.PNGPath = getEnv("PNG_PATH", cfg.PNGPath)
	cfg.IdleTitle = getEnv("IDLE_TITLE", cfg.IdleTitle)
	cfg.IdleImage = getEnv("IDLE_IMAGE", cfg.IdleImage)
	cfg.SPIPort = getEnv("EPD_SPI_PORT", cfg.SPIPort)
	cfg.DCPin = getEnv("EPD_DC_PIN", cfg.DCPin)
	cfg.RSTPin = getEnv("EPD_RST_PIN", cfg.RSTPin)
	cfg.BUSYPin = getEnv("EPD_BUSY_PIN", cfg.BUSYPin)

	var err error
	if cfg.PollInterval, err = getEnvDuration("POLL_INTERVAL", cfg.PollInterval); err != nil {
		return Config{}, err
	}
	if cfg.PNGWidth, err = getEnvInt("PNG_WIDTH", cfg.PNGWidth); err != nil {
		return Config{}, err
	}
	if cfg.PNGHeight, err = getEnvInt("PNG_HEIGHT", cfg.PNGHeight); err != nil {
		return Config{}, err
	}
	if cfg.LogDevelopment, err = getEnvBool("LOG_DEVELOPMENT", cfg.LogDevelopment); err != nil {
		return Config{}, err
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive, got %s", ErrInvalidConfig, c.PollInterval)
	}
	switch c.Panel {
	case PanelEPD7in5V2:
	case PanelPNG:
		if c.PNGWidth <= 0 || c.PNGHeight <= 0 {
			return fmt.Errorf("%w: png panel size %dx%d", ErrInvalidConfig, c.PNGWidth, c.PNGHeight)
		}
	default:
		return fmt.Errorf("%w: unknown panel %q", ErrInvalidConfig, c.Panel)
	}
	return nil
}

// interval is a poll interval in YAML: a Go duration or a bare number of seconds.
type interval time.Duration

func (i *interval) UnmarshalYAML(value *yaml.Node) error {
	d, err := parseInterval(value.Value)
	if err != nil {
		return err
	}
	*i = interval(d)
	return nil
}

type fileConfig struct {
	Config       `yaml:",inline"`
	PollInterval *interval `yaml:"poll_interval"`
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrInvalidConfig, path, err)
	}
	fc := fileConfig{Config: *cfg}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, path, err)
	}
	*cfg = fc.Config
	if fc.PollInterval != nil {
		cfg.PollInterval = time.Duration(*fc.PollInterval)
	}
	return nil
}

func parseInterval(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}
	return n, nil
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := parseInterval(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}
	return d, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}
	return b, nil
}
