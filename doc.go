// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package owtherm is a container for 1-wire temperature probe drivers.
//
// The owbus package defines the byte-level bus contract and the ROM
// addressing commands, ds18x20 implements the DS18B20 and DS18S20 probe
// drivers on top of it, and ds248x provides a bus implementation using the
// Maxim DS2482/DS2483 I²C-to-1-wire bridge chips.
package owtherm
