//go:build linux

package main

import (
	"github.com/binp-dev/tornado/conn/physic"
	"github.com/binp-dev/tornado/internal/config"
	"github.com/binp-dev/tornado/internal/skifio"
)

func openHardwareDevice(cfg config.Mcu) (skifio.Device, error) {
	lcfg := skifio.DefaultLinuxConfig()
	lcfg.SPIDevice = cfg.SPIDevice
	if cfg.SPISpeedHz > 0 {
		lcfg.SPISpeed = physic.Frequency(cfg.SPISpeedHz) * physic.Hertz
	}
	return skifio.NewLinuxDevice(lcfg)
}
