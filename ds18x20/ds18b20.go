// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18x20

import (
	"fmt"

	"periph.io/x/conn/v3/physic"

	"github.com/onewire-go/owtherm/owbus"
)

// DS18B20Dev is a handle to a DS18B20 sensor. The scratchpad encodes the
// temperature in units of 1/16°C and the conversion resolution is
// configurable between 9 and 12 bits.
type DS18B20Dev struct {
	probe
	resolution Resolution
}

func (d *DS18B20Dev) String() string {
	return "DS18B20{" + d.id.String() + "}"
}

// Convert implements Probe.
func (d *DS18B20Dev) Convert() error {
	return d.convert()
}

// ReadScratchPad implements Probe. Besides the temperature it also reparses
// the configuration register, so Resolution reflects the device state as of
// the last read.
func (d *DS18B20Dev) ReadScratchPad() (physic.Temperature, error) {
	if err := d.readScratchpad(); err != nil {
		return 0, err
	}
	d.resolution = d.spad.Resolution()
	d.temp = DecodeDS18B20(d.spad[1], d.spad[0])
	return d.temp, nil
}

// Resolution returns the resolution parsed from the most recent scratchpad
// read, or ResolutionUnknown before the first read.
func (d *DS18B20Dev) Resolution() Resolution {
	return d.resolution
}

// SetResolution writes the configuration register for a conversion
// resolution of bits (9..12).
//
// The TH and TL alarm thresholds share the write-scratchpad command and are
// written back unchanged, which forces a scratchpad read first if none has
// happened yet. The setting is volatile (no copy to EEPROM) and only takes
// effect on the next conversion.
func (d *DS18B20Dev) SetResolution(bits int) error {
	cfg, ok := configByte(bits)
	if !ok {
		return fmt.Errorf("%w: %d bits", ErrInvalidResolution, bits)
	}
	if !d.read {
		if _, err := d.ReadScratchPad(); err != nil {
			return err
		}
	}
	if err := owbus.Select(d.bus, d.id); err != nil {
		return err
	}
	for _, b := range []byte{cmdWriteScratchpad, d.spad[2], d.spad[3], cfg} {
		if err := d.bus.WriteByte(b); err != nil {
			return err
		}
	}
	d.spad[4] = cfg
	d.resolution = Resolution(bits)
	return nil
}

var _ Probe = &DS18B20Dev{}
