// Copyright 2016 The PIO Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpio defines the digital pin levels and edge kinds used by the
// SkifIO discrete I/O and sample-ready interrupt.
package gpio

import "fmt"

// Level is the level of a pin: Low or High.
type Level bool

const (
	// Low represents 0v.
	Low Level = false
	// High represents Vin, generally 3.3v or 5v.
	High Level = true
)

func (l Level) String() string {
	if l == Low {
		return "Low"
	}
	return "High"
}

// Edge specifies if an input pin should have edge detection enabled.
//
// Only enable it when needed, since this causes system interrupts.
type Edge uint8

// Acceptable edge detection values.
const (
	None    Edge = 0
	Rising  Edge = 1
	Falling Edge = 2
	Both    Edge = 3
)

const edgeName = "NoneRisingFallingBoth"

var edgeIndex = [...]uint8{0, 4, 10, 17, 21}

func (i Edge) String() string {
	if i >= Edge(len(edgeIndex)-1) {
		return fmt.Sprintf("Edge(%d)", i)
	}
	return edgeName[edgeIndex[i]:edgeIndex[i+1]]
}
