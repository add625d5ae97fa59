// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owbustest

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/onewire-go/owtherm/owbus"
)

func TestPlayback(t *testing.T) {
	p := &Playback{Ops: []IO{
		{W: []byte{0xcc, 0x44}},
		{W: []byte{0x33}, R: []byte{0x28, 0x01}},
	}}
	if present, err := p.Reset(); err != nil || !present {
		t.Fatal(present, err)
	}
	for _, b := range []byte{0xcc, 0x44} {
		if err := p.WriteByte(b); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := p.Reset(); err != nil {
		t.Fatal(err)
	}
	if err := p.WriteByte(0x33); err != nil {
		t.Fatal(err)
	}
	for _, expected := range []byte{0x28, 0x01} {
		b, err := p.ReadByte()
		if err != nil {
			t.Fatal(err)
		}
		if b != expected {
			t.Errorf("expected %#02x, got %#02x", expected, b)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPlayback_mismatch(t *testing.T) {
	p := &Playback{Ops: []IO{{W: []byte{0xcc}}}, DontPanic: true}
	if _, err := p.Reset(); err != nil {
		t.Fatal(err)
	}
	if err := p.WriteByte(0x55); err == nil {
		t.Fatal("expected a mismatch error")
	}
}

func TestPlayback_leftover(t *testing.T) {
	p := &Playback{Ops: []IO{{W: []byte{0xcc}}}, DontPanic: true}
	if err := p.Close(); err == nil {
		t.Fatal("expected an error for unplayed ops")
	}
}

func TestPlayback_search(t *testing.T) {
	id := owbus.ID{0x28, 1, 2, 3, 4, 5, 6, 7}
	p := &Playback{Devices: []owbus.ID{id}}
	ids, err := p.Search()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatal(ids)
	}
}

// TestRecord drives a recorded bus through a scripted playback and checks
// that the recording reproduces the script.
func TestRecord(t *testing.T) {
	ops := []IO{
		{W: []byte{0xcc, 0x44}},
		{W: []byte{0x33}, R: []byte{0x28, 0xac}},
	}
	p := &Playback{Ops: ops}
	r := &Record{Bus: p}

	if _, err := r.Reset(); err != nil {
		t.Fatal(err)
	}
	for _, b := range []byte{0xcc, 0x44} {
		if err := r.WriteByte(b); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := r.Reset(); err != nil {
		t.Fatal(err)
	}
	if err := r.WriteByte(0x33); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := r.ReadByte(); err != nil {
			t.Fatal(err)
		}
	}

	if diff := cmp.Diff(ops, r.Ops); diff != "" {
		t.Errorf("recording mismatch (-want +got):\n%s", diff)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}
