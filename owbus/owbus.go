// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package owbus defines the byte-level contract of a 1-wire bus master and
// the ROM commands used to address devices on the shared bus.
//
// The electrical signaling (reset pulses, bit slot timing) is the bus
// implementation's concern; drivers built on this package only see reset,
// byte write, byte read and device search.
package owbus

// ID is the 64-bit identity of a device on the bus: byte 0 is the family
// code, bytes 1..6 the serial number and byte 7 a CRC over the first seven
// bytes. The CRC is produced by the bus search and not re-validated here.
//
// An ID is assigned at discovery time and never changes.
type ID [8]byte

// Family returns the device family code.
func (id ID) Family() byte {
	return id[0]
}

func (id ID) String() string {
	return Hex(id[:])
}

// Bus is a 1-wire bus master. A bus is an exclusive resource: exactly one
// addressing/command sequence may be in flight at a time, and implementations
// are not required to be safe for concurrent use.
type Bus interface {
	// Reset issues a bus reset and reports whether any device answered with
	// a presence pulse.
	Reset() (bool, error)
	// WriteByte shifts one byte onto the bus.
	WriteByte(b byte) error
	// ReadByte shifts one byte off the bus.
	ReadByte() (byte, error)
}

// SearchBus is a Bus that can also enumerate the devices attached to it.
type SearchBus interface {
	Bus
	// Search returns the IDs of all devices on the bus.
	Search() ([]ID, error)
}

// ROM commands select which devices on the shared bus respond to the bytes
// that follow.
const (
	SearchROM byte = 0xf0 // enumerate all device IDs on the bus
	ReadROM   byte = 0x33 // read the ID of the only device on the bus
	MatchROM  byte = 0x55 // address one device by its full ID
	SkipROM   byte = 0xcc // address every device at once
)

// Select addresses a single device: reset, match ROM, then the 8 ID bytes in
// order, family code first. Every individually addressed command must be
// preceded by this sequence.
func Select(b Bus, id ID) error {
	if err := reset(b); err != nil {
		return err
	}
	if err := b.WriteByte(MatchROM); err != nil {
		return err
	}
	for _, v := range id {
		if err := b.WriteByte(v); err != nil {
			return err
		}
	}
	return nil
}

// SelectAll addresses all devices at once: reset followed by skip ROM. Only
// commands that need no per-device response may follow.
func SelectAll(b Bus) error {
	if err := reset(b); err != nil {
		return err
	}
	return b.WriteByte(SkipROM)
}

// ReadID reads the ID of the only device on the bus using the read-ROM
// command. With more than one device attached the replies collide and the
// result is garbage.
func ReadID(b Bus) (ID, error) {
	var id ID
	if err := reset(b); err != nil {
		return id, err
	}
	if err := b.WriteByte(ReadROM); err != nil {
		return id, err
	}
	for i := range id {
		v, err := b.ReadByte()
		if err != nil {
			return id, err
		}
		id[i] = v
	}
	return id, nil
}

func reset(b Bus) error {
	present, err := b.Reset()
	if err != nil {
		return err
	}
	if !present {
		return busError("owbus: no device present")
	}
	return nil
}

// busError implements error and the BusError marker for failures on the
// 1-wire side, as opposed to failures of the bus master itself.
type busError string

func (e busError) Error() string  { return string(e) }
func (e busError) BusError() bool { return true }
