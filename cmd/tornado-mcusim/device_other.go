//go:build !linux

package main

import (
	"fmt"

	"github.com/binp-dev/tornado/internal/config"
	"github.com/binp-dev/tornado/internal/skifio"
)

func openHardwareDevice(config.Mcu) (skifio.Device, error) {
	return nil, fmt.Errorf("tornado-mcusim: hardware SkifIO access requires linux (spidev/sysfs-gpio); use transport: sim")
}
