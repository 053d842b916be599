package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Serial   SerialConfig   `mapstructure:"serial"`
	Device   DeviceConfig   `mapstructure:"device"`
	HTTPAddr string         `mapstructure:"http_addr"` // WebSocket and metrics server address
	Mock     bool           `mapstructure:"mock"`      // use the in-process simulator instead of a port
	Log      LogConfig      `mapstructure:"log"`
	T90      map[string]int `mapstructure:"t90"` // optional override of the response time table
}

type SerialConfig struct {
	Port     string `mapstructure:"port"` // COM3, /dev/ttyUSB0 or tcp://host:port
	BaudRate int    `mapstructure:"baud_rate"`
	DataBits int    `mapstructure:"data_bits"`
	Parity   string `mapstructure:"parity"` // none, even, odd
	StopBits int    `mapstructure:"stop_bits"`
}

type DeviceConfig struct {
	ID              string        `mapstructure:"id"`
	ResponseTimeout time.Duration `mapstructure:"response_timeout"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // text or json
	Dir        string `mapstructure:"dir"`    // empty logs to stdout
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func defaultPort() string {
	if runtime.GOOS == "windows" {
		return "COM3"
	}
	return "/dev/ttyUSB0"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.port", defaultPort())
	v.SetDefault("serial.baud_rate", 19200)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.parity", "even")
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("device.id", "00")
	v.SetDefault("device.response_timeout", 2*time.Second)
	v.SetDefault("http_addr", ":8989")
	v.SetDefault("mock", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// Flags registers the command line flags understood by Load.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "YAML config file")
	fs.String("port", defaultPort(), "Serial port (e.g. COM3, /dev/ttyUSB0, tcp://localhost:9999)")
	fs.Int("baud", 19200, "Serial baud rate")
	fs.String("device-id", "00", "Device address prefixed to every command")
	fs.String("http", ":8989", "WebSocket and metrics server address")
	fs.Bool("mock", false, "Use the built-in pyrometer simulator")
	fs.String("log-level", "info", "Log level")
	fs.String("log-dir", "", "Log directory (stdout when empty)")
}

// Load reads defaults, the optional config file, PYRO_* environment
// variables and the parsed flags, in increasing precedence.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PYRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		binds := map[string]string{
			"serial.port":      "port",
			"serial.baud_rate": "baud",
			"device.id":        "device-id",
			"http_addr":        "http",
			"mock":             "mock",
			"log.level":        "log-level",
			"log.dir":          "log-dir",
		}
		for key, name := range binds {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}

		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail when the port is opened.
func (c *Config) Validate() error {
	var errs []string
	if c.Serial.Port == "" && !c.Mock {
		errs = append(errs, "serial.port is required")
	}
	if c.Serial.BaudRate <= 0 {
		errs = append(errs, fmt.Sprintf("invalid baud_rate %d", c.Serial.BaudRate))
	}
	switch strings.ToLower(c.Serial.Parity) {
	case "none", "even", "odd":
	default:
		errs = append(errs, fmt.Sprintf("invalid parity %q, acceptable values are none, even, odd", c.Serial.Parity))
	}
	if c.Serial.StopBits != 1 && c.Serial.StopBits != 2 {
		errs = append(errs, fmt.Sprintf("invalid stop_bits %d", c.Serial.StopBits))
	}
	if c.Serial.DataBits < 5 || c.Serial.DataBits > 8 {
		errs = append(errs, fmt.Sprintf("invalid data_bits %d", c.Serial.DataBits))
	}
	if c.Device.ResponseTimeout <= 0 {
		errs = append(errs, "device.response_timeout must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
