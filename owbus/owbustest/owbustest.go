// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package owbustest is meant to be used to test drivers over a fake 1-wire
// bus.
package owbustest

import (
	"errors"
	"fmt"

	"github.com/onewire-go/owtherm/owbus"
)

// IO registers the bytes of one reset-framed transaction: W is what the
// driver is expected to write after the reset, R is what reads return.
type IO struct {
	W []byte
	R []byte
}

// Playback implements owbus.SearchBus and plays back a recorded sequence of
// transactions.
//
// Each Reset opens the next IO op; writes are verified byte for byte against
// the op's W and reads are served from the op's R. A mismatch panics unless
// DontPanic is set, in which case an error is returned instead.
type Playback struct {
	// Ops is the list of expected transactions, in order.
	Ops []IO
	// Devices is returned by Search.
	Devices []owbus.ID
	// Absent makes Reset report no presence pulse.
	Absent bool
	// DontPanic turns sequence mismatches into errors.
	DontPanic bool

	count int  // ops fully consumed
	w, r  int  // cursor within the current op
	inOp  bool // a Reset opened an op that Close hasn't seen finished
}

// Close verifies that all expected transactions were played back.
func (p *Playback) Close() error {
	if p.inOp {
		if err := p.finish(); err != nil {
			return err
		}
	}
	if p.count != len(p.Ops) {
		return p.fail(fmt.Sprintf("owbustest: expected %d transactions, got %d", len(p.Ops), p.count))
	}
	return nil
}

func (p *Playback) String() string {
	return "playback"
}

// Reset implements owbus.Bus.
func (p *Playback) Reset() (bool, error) {
	if p.inOp {
		if err := p.finish(); err != nil {
			return false, err
		}
	}
	if p.Absent {
		return false, nil
	}
	if p.count >= len(p.Ops) {
		return false, p.fail("owbustest: unexpected Reset")
	}
	p.inOp = true
	p.w = 0
	p.r = 0
	return true, nil
}

// WriteByte implements owbus.Bus.
func (p *Playback) WriteByte(b byte) error {
	if !p.inOp {
		return p.fail("owbustest: WriteByte without Reset")
	}
	op := p.Ops[p.count]
	if p.w >= len(op.W) {
		return p.fail(fmt.Sprintf("owbustest: unexpected write %#02x in op %d", b, p.count))
	}
	if op.W[p.w] != b {
		return p.fail(fmt.Sprintf("owbustest: op %d write %d: expected %#02x, got %#02x", p.count, p.w, op.W[p.w], b))
	}
	p.w++
	return nil
}

// ReadByte implements owbus.Bus.
func (p *Playback) ReadByte() (byte, error) {
	if !p.inOp {
		return 0, p.fail("owbustest: ReadByte without Reset")
	}
	op := p.Ops[p.count]
	if p.r >= len(op.R) {
		return 0, p.fail(fmt.Sprintf("owbustest: unexpected read in op %d", p.count))
	}
	b := op.R[p.r]
	p.r++
	return b, nil
}

// Search implements owbus.SearchBus and returns the configured device list.
func (p *Playback) Search() ([]owbus.ID, error) {
	ids := make([]owbus.ID, len(p.Devices))
	copy(ids, p.Devices)
	return ids, nil
}

// finish closes the current op, verifying it was fully consumed.
func (p *Playback) finish() error {
	op := p.Ops[p.count]
	if p.w != len(op.W) || p.r != len(op.R) {
		return p.fail(fmt.Sprintf("owbustest: op %d not consumed: wrote %d/%d, read %d/%d", p.count, p.w, len(op.W), p.r, len(op.R)))
	}
	p.inOp = false
	p.count++
	return nil
}

func (p *Playback) fail(msg string) error {
	if p.DontPanic {
		return errors.New(msg)
	}
	panic(msg)
}

// Record implements owbus.SearchBus and records every transaction performed
// on the underlying bus, to be able to feed it into a Playback later.
type Record struct {
	// Bus is the live bus being recorded. It may be nil, in which case
	// Search returns nothing, writes are accepted blindly and reads fail.
	Bus owbus.Bus
	// Ops accumulates the recorded transactions.
	Ops []IO
}

func (r *Record) String() string {
	return "record"
}

// Reset implements owbus.Bus and opens a new recorded transaction.
func (r *Record) Reset() (bool, error) {
	present := true
	if r.Bus != nil {
		var err error
		if present, err = r.Bus.Reset(); err != nil {
			return present, err
		}
	}
	r.Ops = append(r.Ops, IO{})
	return present, nil
}

// WriteByte implements owbus.Bus.
func (r *Record) WriteByte(b byte) error {
	if r.Bus != nil {
		if err := r.Bus.WriteByte(b); err != nil {
			return err
		}
	}
	if len(r.Ops) == 0 {
		return errors.New("owbustest: write without Reset")
	}
	op := &r.Ops[len(r.Ops)-1]
	op.W = append(op.W, b)
	return nil
}

// ReadByte implements owbus.Bus.
func (r *Record) ReadByte() (byte, error) {
	if r.Bus == nil {
		return 0, errors.New("owbustest: no bus to read from")
	}
	b, err := r.Bus.ReadByte()
	if err != nil {
		return 0, err
	}
	if len(r.Ops) == 0 {
		return 0, errors.New("owbustest: read without Reset")
	}
	op := &r.Ops[len(r.Ops)-1]
	op.R = append(op.R, b)
	return b, nil
}

// Search implements owbus.SearchBus.
func (r *Record) Search() ([]owbus.ID, error) {
	if s, ok := r.Bus.(owbus.SearchBus); ok {
		return s.Search()
	}
	return nil, nil
}

var _ owbus.SearchBus = &Playback{}
var _ owbus.SearchBus = &Record{}
