// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18x20

import (
	"strconv"

	"periph.io/x/conn/v3/physic"

	"github.com/onewire-go/owtherm/owbus"
)

// Scratchpad is the raw 9-byte snapshot of a device's volatile memory:
// temperature LSB and MSB, the TH and TL user alarm thresholds, the
// configuration register (meaningful on the DS18B20 only), three reserved
// bytes and a CRC. The CRC byte is carried but not validated.
type Scratchpad [9]byte

func (s Scratchpad) String() string {
	return owbus.Hex(s[:])
}

// TempRaw returns the two's-complement raw temperature from bytes 1 (MSB)
// and 0 (LSB).
func (s Scratchpad) TempRaw() int16 {
	return int16(s[1])<<8 | int16(s[0])
}

// Resolution parses the configuration register at byte 4.
func (s Scratchpad) Resolution() Resolution {
	return ParseResolution(s[4])
}

// DecodeDS18B20 converts a raw DS18B20 temperature register pair, in units
// of 1/16°C two's complement, to a temperature (datasheet p.4).
func DecodeDS18B20(msb, lsb byte) physic.Temperature {
	raw := int16(msb)<<8 | int16(lsb)
	return physic.Temperature(raw)*physic.Kelvin/16 + physic.ZeroCelsius
}

// DecodeDS18S20 converts a raw DS18S20 temperature register pair, in units
// of 1/2°C two's complement, to a temperature.
func DecodeDS18S20(msb, lsb byte) physic.Temperature {
	raw := int16(msb)<<8 | int16(lsb)
	return physic.Temperature(raw)*physic.Kelvin/2 + physic.ZeroCelsius
}

// Resolution is the number of significant bits of a DS18B20 conversion,
// 9 to 12. ResolutionUnknown reports a configuration register matching none
// of the four defined patterns; it is informational, not an error, and does
// not prevent temperature decoding.
type Resolution int

const ResolutionUnknown Resolution = 0

func (r Resolution) String() string {
	if r == ResolutionUnknown {
		return "unknown"
	}
	return strconv.Itoa(int(r)) + " bits"
}

// Configuration register patterns, datasheet table 2.
const (
	cfg9Bit  byte = 0x1f
	cfg10Bit byte = 0x3f
	cfg11Bit byte = 0x5f
	cfg12Bit byte = 0x7f
)

// ParseResolution maps a configuration register value to a resolution.
func ParseResolution(cfg byte) Resolution {
	switch cfg {
	case cfg9Bit:
		return 9
	case cfg10Bit:
		return 10
	case cfg11Bit:
		return 11
	case cfg12Bit:
		return 12
	default:
		return ResolutionUnknown
	}
}

// configByte is the inverse of ParseResolution for the valid range 9..12.
func configByte(bits int) (byte, bool) {
	if bits < 9 || bits > 12 {
		return 0, false
	}
	return byte((bits-9)<<5) | cfg9Bit, true
}
