package shared

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vegarwe/skistart-lockedup/internal/rack"
)

type ReaderConfig struct {
	Type      string `yaml:"type"` // serial | stdin | none
	Device    string `yaml:"device"`
	Baud      int    `yaml:"baud"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type DebounceConfig struct {
	PresentMS int `yaml:"present_ms"`
	HoldMS    int `yaml:"hold_ms"`
}

// ServerConfig is read from server.json. Any YAML document works too.
type ServerConfig struct {
	HTTPAddr     string         `yaml:"http_addr"`
	HTTPPort     int            `yaml:"http_port"`
	AuthData     string         `yaml:"auth_data"`
	CookieSecret string         `yaml:"cookie_secret"`
	StaticDir    string         `yaml:"static_dir"`
	Ports        int            `yaml:"ports"`
	DoorPins     []string       `yaml:"door_pins"`
	DoorPollMS   int            `yaml:"door_poll_ms"`
	Reader       ReaderConfig   `yaml:"reader"`
	Debounce     DebounceConfig `yaml:"debounce"`
	JournalPath  string         `yaml:"journal_path"`
	LogLevel     string         `yaml:"log_level"`
	LogFormat    string         `yaml:"log_format"`
}

// LoadServerConfig reads path (skipped when empty), fills defaults, applies
// LU_* environment overrides and validates the result.
func LoadServerConfig(path string) (*ServerConfig, error) {
	var c ServerConfig
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if c.AuthData != "" && c.CookieSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		c.CookieSecret = secret
	}
	return &c, nil
}

func (c *ServerConfig) applyEnv() error {
	if v := os.Getenv("LU_HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("LU_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("failed to parse LU_HTTP_PORT: %w", err)
		}
		c.HTTPPort = port
	}
	if v := os.Getenv("LU_AUTH_DATA"); v != "" {
		c.AuthData = v
	}
	if v := os.Getenv("LU_COOKIE_SECRET"); v != "" {
		c.CookieSecret = v
	}
	if v := os.Getenv("LU_JOURNAL_PATH"); v != "" {
		c.JournalPath = v
	}
	if v := os.Getenv("LU_READER_DEVICE"); v != "" {
		c.Reader.Device = v
	}
	return nil
}

func (c *ServerConfig) applyDefaults() {
	if c.HTTPPort == 0 {
		c.HTTPPort = 8888
	}
	if c.StaticDir == "" {
		c.StaticDir = "./web"
	}
	if c.Ports == 0 {
		c.Ports = rack.MaxPorts
	}
	if c.DoorPollMS <= 0 {
		c.DoorPollMS = 200
	}
	if c.Reader.Type == "" {
		c.Reader.Type = "serial"
	}
	if c.Reader.Device == "" {
		c.Reader.Device = "/dev/ttyUSB0"
	}
	if c.Reader.Baud <= 0 {
		c.Reader.Baud = 115200
	}
	if c.Reader.TimeoutMS <= 0 {
		c.Reader.TimeoutMS = 250
	}
	if c.Debounce.PresentMS <= 0 {
		c.Debounce.PresentMS = 5000
	}
	if c.Debounce.HoldMS <= 0 {
		c.Debounce.HoldMS = 500
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}

func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port %d out of range", c.HTTPPort)
	}
	if c.Ports < 1 || c.Ports > rack.MaxPorts {
		return fmt.Errorf("ports must be between 1 and %d, got %d", rack.MaxPorts, c.Ports)
	}
	if len(c.DoorPins) > 0 && len(c.DoorPins) != c.Ports {
		return fmt.Errorf("door_pins lists %d pins for %d ports", len(c.DoorPins), c.Ports)
	}
	switch c.Reader.Type {
	case "serial", "stdin", "keyboard", "none":
	default:
		return fmt.Errorf("unknown reader type %q", c.Reader.Type)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

func (c *ServerConfig) ListenAddr() string {
	return net.JoinHostPort(c.HTTPAddr, strconv.Itoa(c.HTTPPort))
}

// DoorSensors reports whether the rack runs the door-sensor variant.
func (c *ServerConfig) DoorSensors() bool {
	return len(c.DoorPins) > 0
}

func (c *ServerConfig) DoorPollInterval() time.Duration {
	return time.Duration(c.DoorPollMS) * time.Millisecond
}

func (c *ServerConfig) ReaderTimeout() time.Duration {
	return time.Duration(c.Reader.TimeoutMS) * time.Millisecond
}

func (c *ServerConfig) PresentWindow() time.Duration {
	return time.Duration(c.Debounce.PresentMS) * time.Millisecond
}

func (c *ServerConfig) HoldWindow() time.Duration {
	return time.Duration(c.Debounce.HoldMS) * time.Millisecond
}

func (c *ServerConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("unknown log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate cookie secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
