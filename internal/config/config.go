// Package config loads the YAML configuration shared by the
// tornado-hostd and tornado-mcusim entry points.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Host holds the host device session's settings (§4.G, §6).
type Host struct {
	Transport       string        `yaml:"transport"` // tornado-hostd accepts only "serial"
	SerialPort      string        `yaml:"serial_port"`
	SerialBaudRate  int           `yaml:"serial_baud_rate"`
	KeepAlivePeriod time.Duration `yaml:"keep_alive_period"`
}

// Mcu holds the MCU sample loop and SPI/GPIO device settings (§4.D,
// §4.E, §4.F, §6).
type Mcu struct {
	Transport          string        `yaml:"transport"` // "serial" (hardware SkifIO) or "sim" (simulated SkifIO); both use the serial port
	SerialPort         string        `yaml:"serial_port"`
	SerialBaudRate     int           `yaml:"serial_baud_rate"`
	SPIDevice          string        `yaml:"spi_device"`
	SPISpeedHz         int           `yaml:"spi_speed_hz"`
	DacBufferSize      int           `yaml:"dac_buffer_size"`
	AdcBufferSize      int           `yaml:"adc_buffer_size"`
	SampleReadyTimeout time.Duration `yaml:"sample_ready_timeout"`
	KeepAliveMaxDelay  time.Duration `yaml:"keep_alive_max_delay"`
}

// Stats holds the periodic statistics reporting settings (§4.H).
type Stats struct {
	ReportPeriod time.Duration `yaml:"report_period"`
}

// Duration fields accept either a Go duration string such as "100ms" or
// a plain integer count of nanoseconds.

// Config is the top-level document loaded from YAML.
type Config struct {
	Host  Host  `yaml:"host"`
	Mcu   Mcu   `yaml:"mcu"`
	Stats Stats `yaml:"stats"`
}

// Default returns the configuration the binaries start from before a
// file is applied on top of it, matching the §6 constants.
func Default() Config {
	return Config{
		Host: Host{
			Transport:       "sim",
			SerialBaudRate:  115200,
			KeepAlivePeriod: 100 * time.Millisecond,
		},
		Mcu: Mcu{
			Transport:          "sim",
			SerialBaudRate:     115200,
			SPIDevice:          "/dev/spidev0.0",
			SPISpeedHz:         25_000_000,
			DacBufferSize:      1024,
			AdcBufferSize:      256,
			SampleReadyTimeout: time.Second,
			KeepAliveMaxDelay:  200 * time.Millisecond,
		},
		Stats: Stats{ReportPeriod: 10 * time.Second},
	}
}

// Load reads and parses a YAML configuration file, starting from
// Default() so a partial file only overrides what it names.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
