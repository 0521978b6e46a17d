package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/native-bridge/errors"
)

// Environment variables applied by FromEnv.
const (
	EnvLogLevel        = "BRIDGE_LOG_LEVEL"
	EnvLogDevelopment  = "BRIDGE_LOG_DEVELOPMENT"
	EnvFilesHost       = "BRIDGE_FILES_HOST"
	EnvFilesRoot       = "BRIDGE_FILES_ROOT"
	EnvHeapLimit       = "BRIDGE_HEAP_LIMIT"
	EnvSerialTransport = "BRIDGE_SERIAL_TRANSPORT"
	EnvSerialParams    = "BRIDGE_SERIAL_PARAMS" // comma separated
	EnvDisplayBackend  = "BRIDGE_DISPLAY_BACKEND"
	EnvDisplayTitle    = "BRIDGE_DISPLAY_TITLE"
)

// Config is the complete bridge configuration.
type Config struct {
	Log     Log     `toml:"log"`
	Files   Files   `toml:"files"`
	Heap    Heap    `toml:"heap"`
	Serial  Serial  `toml:"serial"`
	Display Display `toml:"display"`

	// Path is the file the configuration was loaded from, if any.
	Path string `toml:"-"`
}

// Log configures the zap logger.
type Log struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Files selects the host filesystem.
type Files struct {
	Host string `toml:"host"` // "os" or "sandbox"
	Root string `toml:"root"` // sandbox root
}

// Heap bounds the managed heap.
type Heap struct {
	Limit int `toml:"limit"` // bytes, 0 for unlimited
}

// Serial selects the connection transport.
type Serial struct {
	Transport string   `toml:"transport"`
	Params    []string `toml:"params"`
}

// Display selects the presentation backend.
type Display struct {
	Backend    string `toml:"backend"`
	Title      string `toml:"title"`
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Fullscreen bool   `toml:"fullscreen"`
}

// Known backend names.
var (
	FileHosts        = []string{"os", "sandbox"}
	SerialTransports = []string{"pipe", "loopback", "rfcomm"}
	DisplayBackends  = []string{"memory", "terminal", "sdl"}
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:    Log{Level: "info"},
		Files:  Files{Host: "os"},
		Serial: Serial{Transport: "pipe"},
		Display: Display{
			Backend: "memory",
			Title:   "bridge",
			Width:   640,
			Height:  400,
		},
	}
}

// Load reads a TOML file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.FromHost(errors.PhaseConfig, "load", path, err)
	}
	if err := cfg.Decode(string(data)); err != nil {
		return cfg, err
	}
	cfg.Path = path
	return cfg, nil
}

// Decode applies TOML text to c.
func (c *Config) Decode(text string) error {
	md, err := toml.Decode(text, c)
	if err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidArgument).
			Op("decode").
			Path(c.Path).
			Detail("parse error").
			Cause(err).
			Build()
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.PhaseConfig, errors.KindInvalidArgument).
			Op("decode").
			Path(c.Path).
			Detail("unknown keys: %s", strings.Join(keys, ", ")).
			Build()
	}
	return nil
}

// FromEnv applies BRIDGE_* overrides. lookup is usually os.LookupEnv.
func (c *Config) FromEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str(EnvLogLevel, &c.Log.Level)
	str(EnvFilesHost, &c.Files.Host)
	str(EnvFilesRoot, &c.Files.Root)
	str(EnvSerialTransport, &c.Serial.Transport)
	str(EnvDisplayBackend, &c.Display.Backend)
	str(EnvDisplayTitle, &c.Display.Title)

	if v, ok := lookup(EnvSerialParams); ok && v != "" {
		c.Serial.Params = strings.Split(v, ",")
	}
	if v, ok := lookup(EnvLogDevelopment); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.InvalidArgument(errors.PhaseConfig, "env", EnvLogDevelopment+" must be a boolean")
		}
		c.Log.Development = b
	}
	if v, ok := lookup(EnvHeapLimit); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.InvalidArgument(errors.PhaseConfig, "env", EnvHeapLimit+" must be an integer")
		}
		c.Heap.Limit = n
	}
	return nil
}

// Validate checks names and ranges.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.InvalidArgument(errors.PhaseConfig, "validate", "unknown log level "+strconv.Quote(c.Log.Level))
	}
	if err := oneOf("files.host", c.Files.Host, FileHosts); err != nil {
		return err
	}
	if c.Files.Host == "sandbox" && c.Files.Root == "" {
		return errors.InvalidArgument(errors.PhaseConfig, "validate", "files.root is required for the sandbox host")
	}
	if c.Heap.Limit < 0 {
		return errors.InvalidArgument(errors.PhaseConfig, "validate", "heap.limit must not be negative")
	}
	if err := oneOf("serial.transport", c.Serial.Transport, SerialTransports); err != nil {
		return err
	}
	for _, p := range c.Serial.Params {
		if !strings.Contains(p, "=") {
			return errors.InvalidArgument(errors.PhaseConfig, "validate", "serial.params entries must be key=value, got "+strconv.Quote(p))
		}
	}
	if err := oneOf("display.backend", c.Display.Backend, DisplayBackends); err != nil {
		return err
	}
	if c.Display.Width < 0 || c.Display.Height < 0 {
		return errors.InvalidArgument(errors.PhaseConfig, "validate", "display size must not be negative")
	}
	return nil
}

func oneOf(key, v string, allowed []string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return errors.New(errors.PhaseConfig, errors.KindInvalidArgument).
		Op("validate").
		Detail("unknown %s %q (want one of %s)", key, v, strings.Join(allowed, ", ")).
		Build()
}
