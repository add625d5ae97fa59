// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owbus

import (
	"encoding/binary"
	"encoding/hex"
)

// Hex renders p as lowercase hexadecimal, two characters per byte, no
// separators. IDs and scratchpad dumps use this form.
func Hex(p []byte) string {
	return hex.EncodeToString(p)
}

// Uint64 packs the ID into a 64-bit integer with the family code in the low
// byte, the representation bus search implementations commonly use.
func (id ID) Uint64() uint64 {
	return binary.LittleEndian.Uint64(id[:])
}

// IDFromUint64 is the inverse of Uint64.
func IDFromUint64(v uint64) ID {
	var id ID
	binary.LittleEndian.PutUint64(id[:], v)
	return id
}
