// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18x20

import (
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"

	"github.com/onewire-go/owtherm/owbus"
)

// Probe is the capability shared by all supported temperature sensor
// variants.
//
// A probe owns its bus ID, the last raw scratchpad read and the last decoded
// temperature. All mutation happens through the probe's own methods; probes
// never touch each other's state and the invariant that the ID's family code
// matches the concrete variant is established once, in New.
type Probe interface {
	conn.Resource

	// ID returns the 8-byte bus identity assigned at discovery.
	ID() owbus.ID
	// Family returns the device family, always consistent with ID.
	Family() Family
	// Convert addresses the device individually, starts a conversion and
	// waits out ConvertTime.
	Convert() error
	// ReadScratchPad reads the 9 scratchpad bytes, updates the stored
	// scratchpad and last temperature, and returns the decoded value.
	ReadScratchPad() (physic.Temperature, error)
	// LastTemp returns the temperature decoded by the most recent
	// ReadScratchPad, or 0 before the first read.
	LastTemp() physic.Temperature
	// Scratchpad returns the most recent raw scratchpad.
	Scratchpad() Scratchpad
}

// probe carries the state and bus plumbing common to both variants.
type probe struct {
	bus  owbus.Bus
	id   owbus.ID
	spad Scratchpad
	read bool // spad holds an actual device read
	temp physic.Temperature
}

func (p *probe) ID() owbus.ID {
	return p.id
}

func (p *probe) Family() Family {
	return Family(p.id.Family())
}

func (p *probe) LastTemp() physic.Temperature {
	return p.temp
}

func (p *probe) Scratchpad() Scratchpad {
	return p.spad
}

// Halt implements conn.Resource.
func (p *probe) Halt() error {
	return nil
}

// convert addresses this device alone, issues the convert command and waits
// out the worst-case conversion time. The result is observed by a subsequent
// scratchpad read.
func (p *probe) convert() error {
	if err := owbus.Select(p.bus, p.id); err != nil {
		return err
	}
	if err := p.bus.WriteByte(cmdConvert); err != nil {
		return err
	}
	sleep(ConvertTime)
	return nil
}

// readScratchpad reads exactly 9 bytes into p.spad.
func (p *probe) readScratchpad() error {
	if err := owbus.Select(p.bus, p.id); err != nil {
		return err
	}
	if err := p.bus.WriteByte(cmdReadScratchpad); err != nil {
		return err
	}
	for i := range p.spad {
		v, err := p.bus.ReadByte()
		if err != nil {
			return err
		}
		p.spad[i] = v
	}
	p.read = true
	return nil
}
