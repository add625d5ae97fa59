// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ds18x20 drives the Dallas Semi / Maxim DS18B20 and DS18S20 1-wire
// temperature sensors.
//
// Devices are classified by the family code in their bus ID: New maps a raw
// ID to the matching probe variant, Discover does so for every device the
// bus search returns. A conversion can be started per probe or broadcast to
// the whole bus with ConvertAll, after which each probe's scratchpad is read
// and decoded individually.
package ds18x20

import (
	"fmt"
	"time"

	"github.com/onewire-go/owtherm/owbus"
)

// Family code of the specific device type.
type Family byte

const (
	// DS18B20 has a configurable 9 to 12 bit resolution.
	DS18B20 Family = 0x28
	// DS18S20 has a fixed 0.5°C resolution.
	DS18S20 Family = 0x10
)

func (f Family) String() string {
	switch f {
	case DS18B20:
		return "DS18B20"
	case DS18S20:
		return "DS18S20"
	default:
		return "unknown"
	}
}

// Function commands, valid once a device (or all of them) has been
// addressed.
const (
	cmdConvert         byte = 0x44 // start a temperature conversion
	cmdWriteScratchpad byte = 0x4e // write TH, TL and the config register
	cmdReadScratchpad  byte = 0xbe // read the 9 scratchpad bytes
	cmdCopyScratchpad  byte = 0x48 // persist TH/TL/config to EEPROM, never issued
	cmdReadPowerSupply byte = 0xb4 // parasite power detection, never issued
)

// ConvertTime is the fixed wait after issuing a convert command. It covers
// the worst-case 12 bit conversion latency (datasheet p.6) regardless of the
// resolution actually configured.
const ConvertTime = 750 * time.Millisecond

// New returns the probe driver matching the family code of id.
//
// This is the only place the family-to-variant mapping is established; the
// decoding paths never re-inspect it. An unrecognized family code fails with
// ErrUnsupportedFamily.
func New(b owbus.Bus, id owbus.ID) (Probe, error) {
	switch Family(id.Family()) {
	case DS18B20:
		return &DS18B20Dev{probe: probe{bus: b, id: id}}, nil
	case DS18S20:
		return &DS18S20Dev{probe{bus: b, id: id}}, nil
	default:
		return nil, fmt.Errorf("%w: %#02x (device %s)", ErrUnsupportedFamily, id.Family(), id)
	}
}

// Discover enumerates the bus and builds a probe for every device found, in
// search order.
//
// Any device with an unsupported family code fails the whole batch. Callers
// that would rather skip such devices can run the search themselves and call
// New per ID, testing for ErrUnsupportedFamily.
func Discover(b owbus.SearchBus) (Probes, error) {
	ids, err := b.Search()
	if err != nil {
		return nil, err
	}
	probes := make(Probes, 0, len(ids))
	for _, id := range ids {
		p, err := New(b, id)
		if err != nil {
			return nil, err
		}
		probes = append(probes, p)
	}
	return probes, nil
}

// Probes is the set of probes discovered in one poll cycle. It is rebuilt
// from scratch by the next Discover; probes do not persist across cycles.
type Probes []Probe

// SendCommandToAll broadcasts a single function command: reset, skip ROM,
// the command byte, then a wait for the caller-specified duration.
//
// No per-device acknowledgment exists on this path and probe state is not
// touched.
func SendCommandToAll(b owbus.Bus, cmd byte, wait time.Duration) error {
	if err := owbus.SelectAll(b); err != nil {
		return err
	}
	if err := b.WriteByte(cmd); err != nil {
		return err
	}
	sleep(wait)
	return nil
}

// ConvertAll starts a conversion on every device on the bus at once and
// waits out the worst-case conversion time. It is an optimization over
// calling Convert per probe, paying the settle wait once instead of once per
// device. Not suitable when devices run on parasite power.
func ConvertAll(b owbus.Bus) error {
	return SendCommandToAll(b, cmdConvert, ConvertTime)
}

var sleep = time.Sleep
