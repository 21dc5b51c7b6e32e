// Package config loads the secure element configuration file.
//
// The file is a flat TOML document of upper-case keys, mirroring the
// key/value configuration files shipped with eSE HALs:
//
//	ST_ESE_DEV_NODE    = "/dev/st54j"
//	STESE_HAL_LOGLEVEL = 3
//	ESE_IFSC           = 254
//	ESE_TRANSPORT      = "pcsc"
//
// Lookups never fail: a missing key yields the caller's default.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pion/logging"
)

// Well-known keys.
const (
	KeyDevNode   = "ST_ESE_DEV_NODE"
	KeyLogLevel  = "STESE_HAL_LOGLEVEL"
	KeyIFSC      = "ESE_IFSC"
	KeyIFSD      = "ESE_IFSD"
	KeyTransport = "ESE_TRANSPORT"
)

// ErrLoad is wrapped by every error returned from Load.
var ErrLoad = errors.New("config: load failed")

// Config is a read-only set of configuration values.
type Config struct {
	values map[string]interface{}
}

// Empty returns a configuration without any key.
func Empty() *Config {
	return &Config{values: map[string]interface{}{}}
}

// FromMap builds a configuration from already decoded values.
func FromMap(values map[string]interface{}) *Config {
	c := Empty()
	for k, v := range values {
		c.values[strings.TrimSpace(k)] = v
	}
	return c
}

// Load decodes the TOML file at path.
func Load(path string) (*Config, error) {
	var raw map[string]interface{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}
	return FromMap(raw), nil
}

// Parse decodes TOML text.
func Parse(text string) (*Config, error) {
	var raw map[string]interface{}
	if _, err := toml.Decode(text, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	return FromMap(raw), nil
}

// LoadOrEmpty is Load, except that a missing file yields an empty configuration.
func LoadOrEmpty(path string) (*Config, error) {
	if path == "" {
		return Empty(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Empty(), nil
	}
	return Load(path)
}

// Has reports whether key is defined.
func (c *Config) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// GetString returns the value of key, or def if the key is absent.
// Scalar values of other types are formatted.
func (c *Config) GetString(key, def string) string {
	v, ok := c.values[key]
	if !ok {
		return def
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return def
	}
}

// GetInt returns the integer value of key, or def if the key is absent or not a number.
// Hexadecimal strings ("0xFE") are accepted.
func (c *Config) GetInt(key string, def int) int {
	v, ok := c.values[key]
	if !ok {
		return def
	}
	switch val := v.(type) {
	case int64:
		return int(val)
	case float64:
		return int(val)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 0, 64)
		if err != nil {
			return def
		}
		return int(n)
	default:
		return def
	}
}

// LogLevel maps KeyLogLevel to a pion log level.
// 0 disables logging, 1 error, 2 warn, 3 info, 4 debug, 5 and above trace.
// The default is warn.
func (c *Config) LogLevel() logging.LogLevel {
	switch n := c.GetInt(KeyLogLevel, 2); {
	case n <= 0:
		return logging.LogLevelDisabled
	case n == 1:
		return logging.LogLevelError
	case n == 2:
		return logging.LogLevelWarn
	case n == 3:
		return logging.LogLevelInfo
	case n == 4:
		return logging.LogLevelDebug
	default:
		return logging.LogLevelTrace
	}
}

// LoggerFactory returns a logger factory writing to stderr at LogLevel.
func (c *Config) LoggerFactory() logging.LoggerFactory {
	f := logging.NewDefaultLoggerFactory()
	f.Writer = os.Stderr
	f.DefaultLogLevel = c.LogLevel()
	return f
}
