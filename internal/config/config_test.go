package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tornado.yaml")
	doc := `
host:
  transport: serial
  serial_port: /dev/ttyACM0
  serial_baud_rate: 230400
mcu:
  spi_speed_hz: 20000000
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "serial", cfg.Host.Transport)
	assert.Equal(t, "/dev/ttyACM0", cfg.Host.SerialPort)
	assert.Equal(t, 230400, cfg.Host.SerialBaudRate)
	assert.Equal(t, 20_000_000, cfg.Mcu.SPISpeedHz)

	// Untouched fields keep their defaults.
	assert.Equal(t, "/dev/spidev0.0", cfg.Mcu.SPIDevice)
	assert.Equal(t, 10*time.Second, cfg.Stats.ReportPeriod)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
