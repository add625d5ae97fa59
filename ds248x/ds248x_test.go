// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds248x

import (
	"strings"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c/i2ctest"
)

const addr uint16 = 0x18

// initOps is the I²C exchange performed by New against a ds2483 with
// DefaultOpts: chip reset, status check, device configuration, chip
// detection via the port configuration register and the port adjustment.
func initOps() []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: addr, W: []byte{0xf0}},
		{Addr: addr, W: []byte{0xe1, 0xf0}, R: []byte{0x18}},
		{Addr: addr, W: []byte{0xd2, 0xe1}, R: []byte{0x01}},
		{Addr: addr, W: []byte{0xe1, 0xb4}},
		{Addr: addr, W: []byte{0xc3, 0x06, 0x26, 0x46, 0x66, 0x86}},
	}
}

func TestNew_badAddress(t *testing.T) {
	bus := &i2ctest.Playback{DontPanic: true}
	if d, err := New(bus, 0x30, &DefaultOpts); d != nil || err == nil {
		t.Fatal("expected an address error")
	}
}

func TestNew_badStatus(t *testing.T) {
	bus := &i2ctest.Playback{Ops: []i2ctest.IO{
		{Addr: addr, W: []byte{0xf0}},
		{Addr: addr, W: []byte{0xe1, 0xf0}, R: []byte{0x00}},
	}, DontPanic: true}
	if d, err := New(bus, addr, &DefaultOpts); d != nil || err == nil {
		t.Fatal("expected a status register error")
	}
}

func TestNew_ds2483(t *testing.T) {
	bus := &i2ctest.Playback{Ops: initOps(), DontPanic: true}
	d, err := New(bus, addr, &DefaultOpts)
	if err != nil {
		t.Fatal(err)
	}
	if s := d.String(); !strings.HasPrefix(s, "DS2483{") {
		t.Error(s)
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

// TestByteOps covers the owbus contract: a 1-wire reset with presence
// detection, a byte write and a byte read, each framed by the bridge's
// status polling.
func TestByteOps(t *testing.T) {
	ops := initOps()
	ops = append(ops,
		// Reset: 1-wire reset, status shows idle + presence.
		i2ctest.IO{Addr: addr, W: []byte{0xb4}},
		i2ctest.IO{Addr: addr, R: []byte{0x0a}},
		// WriteByte(0xcc).
		i2ctest.IO{Addr: addr, W: []byte{0xa5, 0xcc}},
		i2ctest.IO{Addr: addr, R: []byte{0x08}},
		// ReadByte: shift in, wait idle, fetch the read data register.
		i2ctest.IO{Addr: addr, W: []byte{0x96}},
		i2ctest.IO{Addr: addr, R: []byte{0x08}},
		i2ctest.IO{Addr: addr, W: []byte{0xe1, 0xe1}, R: []byte{0x42}},
	)
	bus := &i2ctest.Playback{Ops: ops, DontPanic: true}
	d, err := New(bus, addr, &DefaultOpts)
	if err != nil {
		t.Fatal(err)
	}
	present, err := d.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if !present {
		t.Fatal("expected a presence pulse")
	}
	if err := d.WriteByte(0xcc); err != nil {
		t.Fatal(err)
	}
	b, err := d.ReadByte()
	if err != nil {
		t.Fatal(err)
	}
	if b != 0x42 {
		t.Errorf("expected 0x42, got %#02x", b)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSearchTriplet(t *testing.T) {
	ops := initOps()
	ops = append(ops,
		i2ctest.IO{Addr: addr, W: []byte{0x78, 0x80}},
		i2ctest.IO{Addr: addr, R: []byte{0x80}},
	)
	bus := &i2ctest.Playback{Ops: ops, DontPanic: true}
	d, err := New(bus, addr, &DefaultOpts)
	if err != nil {
		t.Fatal(err)
	}
	tr, err := d.SearchTriplet(1)
	if err != nil {
		t.Fatal(err)
	}
	if !tr.GotZero || !tr.GotOne || tr.Taken != 1 {
		t.Errorf("unexpected triplet result: %+v", tr)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

// ChannelSelect is a no-op on anything but a DS2482-800.
func TestChannelSelect_ds2483(t *testing.T) {
	bus := &i2ctest.Playback{Ops: initOps(), DontPanic: true}
	d, err := New(bus, addr, &DefaultOpts)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.ChannelSelect(3); err != nil {
		t.Fatal(err)
	}
	if ch := d.SelectedChannel(); ch != 0 {
		t.Errorf("expected channel 0, got %d", ch)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func init() {
	sleep = func(time.Duration) {}
}
