// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owbus_test

import (
	"errors"
	"testing"

	"github.com/onewire-go/owtherm/owbus"
	"github.com/onewire-go/owtherm/owbus/owbustest"
)

var testID = owbus.ID{0x28, 0xac, 0x41, 0x0e, 0x07, 0x00, 0x00, 0x74}

func TestHex(t *testing.T) {
	if s := owbus.Hex([]byte{0x28, 0x01, 0x02}); s != "280102" {
		t.Error(s)
	}
	if s := owbus.Hex(nil); s != "" {
		t.Error(s)
	}
}

func TestID(t *testing.T) {
	if s := testID.String(); s != "28ac410e07000074" {
		t.Error(s)
	}
	if f := testID.Family(); f != 0x28 {
		t.Errorf("expected family 0x28, got %#02x", f)
	}
}

func TestID_uint64(t *testing.T) {
	if v := testID.Uint64(); v != 0x740000070e41ac28 {
		t.Errorf("got %#016x", v)
	}
	if id := owbus.IDFromUint64(0x740000070e41ac28); id != testID {
		t.Errorf("got %s", id)
	}
}

func TestSelect(t *testing.T) {
	bus := &owbustest.Playback{Ops: []owbustest.IO{
		{W: []byte{0x55, 0x28, 0xac, 0x41, 0x0e, 0x07, 0x00, 0x00, 0x74}},
	}}
	if err := owbus.Select(bus, testID); err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSelect_noDevice(t *testing.T) {
	bus := &owbustest.Playback{Absent: true}
	err := owbus.Select(bus, testID)
	if err == nil {
		t.Fatal("expected an error on an empty bus")
	}
	var be interface{ BusError() bool }
	if !errors.As(err, &be) || !be.BusError() {
		t.Fatalf("expected a bus error, got %v", err)
	}
}

func TestSelectAll(t *testing.T) {
	bus := &owbustest.Playback{Ops: []owbustest.IO{
		{W: []byte{0xcc}},
	}}
	if err := owbus.SelectAll(bus); err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestReadID(t *testing.T) {
	bus := &owbustest.Playback{Ops: []owbustest.IO{
		{W: []byte{0x33}, R: testID[:]},
	}}
	id, err := owbus.ReadID(bus)
	if err != nil {
		t.Fatal(err)
	}
	if id != testID {
		t.Errorf("expected %s, got %s", testID, id)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}
