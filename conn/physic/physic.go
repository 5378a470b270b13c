// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package physic declares the physical units used to describe the SkifIO
// SPI clock, the 10 kHz sample rate, and DAC/ADC voltages.
package physic

import "fmt"

// Frequency is a frequency in Hertz, stored as an int64.
type Frequency int64

// String returns the frequency formatted as a string in Hertz.
func (f Frequency) String() string {
	switch {
	case f >= GigaHertz:
		return fmt.Sprintf("%d.%03dGHz", f/GigaHertz, (f/MegaHertz)%1000)
	case f >= MegaHertz:
		return fmt.Sprintf("%d.%03dMHz", f/MegaHertz, (f/KiloHertz)%1000)
	case f >= KiloHertz:
		return fmt.Sprintf("%d.%03dkHz", f/KiloHertz, f%KiloHertz)
	default:
		return fmt.Sprintf("%dHz", f)
	}
}

// Frequency constants.
const (
	Hertz     Frequency = 1
	KiloHertz Frequency = 1000 * Hertz
	MegaHertz Frequency = 1000 * KiloHertz
	GigaHertz Frequency = 1000 * MegaHertz
)

// ElectricPotential is a voltage in nanovolts, stored as an int64.
type ElectricPotential int64

// String returns the voltage formatted as a string in Volts.
func (e ElectricPotential) String() string {
	sign := ""
	v := int64(e)
	if v < 0 {
		sign = "-"
		v = -v
	}
	switch {
	case v >= int64(Volt):
		return fmt.Sprintf("%s%d.%06dV", sign, v/int64(Volt), (v/int64(MicroVolt))%1e6)
	case v >= int64(MilliVolt):
		return fmt.Sprintf("%s%d.%03dmV", sign, v/int64(MilliVolt), (v/int64(MicroVolt))%1000)
	case v >= int64(MicroVolt):
		return fmt.Sprintf("%s%duV", sign, v/int64(MicroVolt))
	default:
		return fmt.Sprintf("%s%dnV", sign, v)
	}
}

// ElectricPotential constants.
const (
	NanoVolt  ElectricPotential = 1
	MicroVolt ElectricPotential = 1000 * NanoVolt
	MilliVolt ElectricPotential = 1000 * MicroVolt
	Volt      ElectricPotential = 1000 * MilliVolt
	KiloVolt  ElectricPotential = 1000 * Volt
)
