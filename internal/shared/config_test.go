package shared

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LU_HTTP_ADDR", "LU_HTTP_PORT", "LU_AUTH_DATA", "LU_COOKIE_SECRET", "LU_JOURNAL_PATH", "LU_READER_DEVICE"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadServerConfig_Defaults(t *testing.T) {
	clearEnv(t)

	c, err := LoadServerConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8888, c.HTTPPort)
	assert.Equal(t, ":8888", c.ListenAddr())
	assert.Equal(t, 2, c.Ports)
	assert.False(t, c.DoorSensors())
	assert.Equal(t, "serial", c.Reader.Type)
	assert.Equal(t, "/dev/ttyUSB0", c.Reader.Device)
	assert.Equal(t, 250*time.Millisecond, c.ReaderTimeout())
	assert.Equal(t, 5*time.Second, c.PresentWindow())
	assert.Equal(t, 500*time.Millisecond, c.HoldWindow())
	assert.Equal(t, 200*time.Millisecond, c.DoorPollInterval())
	assert.Empty(t, c.CookieSecret, "no secret needed without auth")

	lvl, err := c.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestLoadServerConfig_ServerJSON(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server.json", `{"http_port": 8080, "http_addr": "127.0.0.1", "auth_data": "hunter2"}`)

	c, err := LoadServerConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", c.ListenAddr())
	assert.Equal(t, "hunter2", c.AuthData)
	assert.Len(t, c.CookieSecret, 64, "secret generated when auth is on")
}

func TestLoadServerConfig_YAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server.yaml", `
ports: 2
door_pins: [GPIO17, GPIO27]
reader:
  type: stdin
debounce:
  hold_ms: 1500
log_level: debug
log_format: json
`)

	c, err := LoadServerConfig(path)
	require.NoError(t, err)

	assert.True(t, c.DoorSensors())
	assert.Equal(t, []string{"GPIO17", "GPIO27"}, c.DoorPins)
	assert.Equal(t, "stdin", c.Reader.Type)
	assert.Equal(t, 1500*time.Millisecond, c.HoldWindow())
	assert.Equal(t, "json", c.LogFormat)
	lvl, err := c.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestLoadServerConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LU_HTTP_PORT", "9000")
	t.Setenv("LU_AUTH_DATA", "secret-pw")
	t.Setenv("LU_COOKIE_SECRET", "fixed")
	t.Setenv("LU_READER_DEVICE", "/dev/ttyACM0")
	path := writeConfig(t, "server.json", `{"http_port": 8080}`)

	c, err := LoadServerConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, c.HTTPPort)
	assert.Equal(t, "secret-pw", c.AuthData)
	assert.Equal(t, "fixed", c.CookieSecret)
	assert.Equal(t, "/dev/ttyACM0", c.Reader.Device)

	t.Setenv("LU_HTTP_PORT", "eighty")
	_, err = LoadServerConfig(path)
	assert.Error(t, err)
}

func TestLoadServerConfig_Invalid(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"too many ports": `{"ports": 3}`,
		"pin count":      `{"ports": 2, "door_pins": ["GPIO17"]}`,
		"reader type":    `{"reader": {"type": "wiegand"}}`,
		"log format":     `{"log_format": "xml"}`,
		"log level":      `{"log_level": "loud"}`,
		"port range":     `{"http_port": 70000}`,
		"malformed":      `{"ports": `,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadServerConfig(writeConfig(t, "server.json", body))
			assert.Error(t, err)
		})
	}

	_, err := LoadServerConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
