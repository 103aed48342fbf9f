// Package config loads the arke-node daemon configuration from a YAML file,
// ARKE_* environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/notnil/arke"
	"github.com/notnil/arke/nvram"
)

// Config is the daemon configuration.
type Config struct {
	Bus     BusConfig     `mapstructure:"bus"`
	Node    NodeConfig    `mapstructure:"node"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

// BusConfig selects the CAN driver.
type BusConfig struct {
	Driver    string `mapstructure:"driver"`    // socketcan, slcan, loopback
	Interface string `mapstructure:"interface"` // SocketCAN interface, e.g. can0
	Device    string `mapstructure:"device"`    // SLCAN serial device
	BaudRate  int    `mapstructure:"baud_rate"` // SLCAN serial speed
	Bitrate   int    `mapstructure:"bitrate"`   // SocketCAN bitrate to apply, 0 keeps the current one
	LogFrames bool   `mapstructure:"log_frames"`
}

// NodeConfig describes the node itself.
type NodeConfig struct {
	Family       string        `mapstructure:"family"`
	Version      string        `mapstructure:"version"`
	Mailboxes    int           `mapstructure:"mailboxes"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	RestartDelay time.Duration `mapstructure:"restart_delay"`
}

// StorageConfig locates the persisted node address.
type StorageConfig struct {
	Type   string `mapstructure:"type"` // memory, file, mmap
	Path   string `mapstructure:"path"`
	Offset int    `mapstructure:"offset"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path, empty or "-" for stdout
}

// Flags registers the command-line overrides on fs.
func Flags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Configuration file path.")
	fs.String("bus.driver", "socketcan", "CAN driver (socketcan, slcan, loopback).")
	fs.StringP("bus.interface", "i", "can0", "SocketCAN interface.")
	fs.String("bus.device", "/dev/ttyACM0", "SLCAN serial device.")
	fs.Int("bus.baud_rate", 115200, "SLCAN serial speed.")
	fs.Int("bus.bitrate", 0, "SocketCAN bitrate to configure, 0 to keep the current one.")
	fs.Bool("bus.log_frames", false, "Log every frame at debug level.")
	fs.StringP("node.family", "f", "celaeno", "Device family (zeus, helios, celaeno, notus).")
	fs.String("node.version", "1.0", "Firmware version announced by heartbeats.")
	fs.Int("node.mailboxes", 6, "Number of transport slots.")
	fs.Duration("node.poll_interval", time.Millisecond, "Poll loop period.")
	fs.Duration("node.restart_delay", 15*time.Millisecond, "Delay before restarting the node.")
	fs.String("storage.type", "file", "Address storage (memory, file, mmap).")
	fs.String("storage.path", "arke-node.eeprom", "EEPROM image path.")
	fs.Int("storage.offset", 0, "Address byte offset in the image.")
	fs.StringP("log.level", "v", "info", "Log verbosity level (debug, info, warn, error).")
	fs.StringP("log.file", "L", "", "Log file name ('-' for logging to STDOUT only).")
}

// LoadConfig builds the configuration from the flags registered by Flags
// on an already parsed fs. Without --config the file is searched as
// arke-node.yaml in /etc/arke, $HOME/.arke and the working directory, and
// may be absent.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind pflags: %w", err)
	}
	v.SetEnvPrefix("arke")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configFile := v.GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("arke-node")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/arke/")
		v.AddConfigPath("$HOME/.arke")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	c.Bus.Driver = strings.ToLower(c.Bus.Driver)
	switch c.Bus.Driver {
	case "socketcan", "slcan", "loopback":
	default:
		return fmt.Errorf("config: unknown bus driver %q", c.Bus.Driver)
	}
	if _, err := c.Family(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.Version(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch nvram.Kind(c.Storage.Type) {
	case nvram.KindMemory, nvram.KindFile, nvram.KindMmap:
	default:
		return fmt.Errorf("config: unknown storage type %q", c.Storage.Type)
	}
	return nil
}

// Family resolves node.family.
func (c *Config) Family() (arke.Family, error) {
	return arke.FamilyByName(c.Node.Family)
}

// Version parses node.version.
func (c *Config) Version() (arke.Version, error) {
	return arke.ParseVersion(c.Node.Version)
}
