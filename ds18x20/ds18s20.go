// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18x20

import (
	"periph.io/x/conn/v3/physic"
)

// DS18S20Dev is a handle to a DS18S20 sensor. The scratchpad encodes the
// temperature in units of 1/2°C; the precision is fixed, so the variant has
// no resolution API.
type DS18S20Dev struct {
	probe
}

func (d *DS18S20Dev) String() string {
	return "DS18S20{" + d.id.String() + "}"
}

// Convert implements Probe.
func (d *DS18S20Dev) Convert() error {
	return d.convert()
}

// ReadScratchPad implements Probe.
func (d *DS18S20Dev) ReadScratchPad() (physic.Temperature, error) {
	if err := d.readScratchpad(); err != nil {
		return 0, err
	}
	d.temp = DecodeDS18S20(d.spad[1], d.spad[0])
	return d.temp, nil
}

var _ Probe = &DS18S20Dev{}
