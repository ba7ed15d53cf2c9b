// Package config loads this tool's YAML configuration file on top of
// built-in defaults. It applies no CLI-flag overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TransportKind selects which internal/transport implementation to use.
type TransportKind string

const (
	TransportSerial    TransportKind = "serial"
	TransportWiFi      TransportKind = "wifi"
	TransportSocketCAN TransportKind = "socketcan"
)

// Config is the full set of settings this tool accepts from the YAML file.
type Config struct {
	Transport TransportKind `yaml:"transport"`

	SerialDevice string `yaml:"serial_device"`
	SerialBaud   int    `yaml:"serial_baud"`

	WiFiAddress string `yaml:"wifi_address"`

	CANInterface string `yaml:"can_interface"`

	PollInterval time.Duration `yaml:"poll_interval"`
	PIDs         []string      `yaml:"pids"`

	MQTTBroker       string `yaml:"mqtt_broker"`
	MQTTTopic        string `yaml:"mqtt_topic"`
	MQTTCommandTopic string `yaml:"mqtt_command_topic"`

	DBPath string `yaml:"db_path"`

	TripLogDir string `yaml:"trip_log_dir"`

	MILGPIOChip string `yaml:"mil_gpio_chip"`
	MILGPIOLine int    `yaml:"mil_gpio_line"`

	Debug bool `yaml:"debug"`
}

// Default returns the configuration used when no file and no flags
// override anything.
func Default() Config {
	return Config{
		Transport:    TransportSerial,
		SerialDevice: "/dev/ttyUSB0",
		SerialBaud:   38400,
		PollInterval: 2 * time.Second,
		PIDs:         []string{"010C", "010D", "0105"},
		MQTTBroker:   "tcp://localhost:1883",
		MQTTTopic:    "vehicle/obd",
		DBPath:       "obdscan.db",
		TripLogDir:   "./trips",
	}
}

// Load reads a YAML config file, starting from Default() so any field the
// file omits keeps its default value.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first configuration error found, if any.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportSerial:
		if c.SerialDevice == "" {
			return fmt.Errorf("config: serial transport requires serial_device")
		}
	case TransportWiFi:
		if c.WiFiAddress == "" {
			return fmt.Errorf("config: wifi transport requires wifi_address")
		}
	case TransportSocketCAN:
		if c.CANInterface == "" {
			return fmt.Errorf("config: socketcan transport requires can_interface")
		}
	default:
		return fmt.Errorf("config: unknown transport %q", c.Transport)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("config: poll_interval must be positive")
	}
	return nil
}
