// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18x20

import (
	"errors"
)

var (
	// ErrUnsupportedFamily reports a device ID whose family code maps to no
	// known probe variant. It indicates a hard protocol mismatch and fails
	// the whole classification batch.
	ErrUnsupportedFamily = errors.New("ds18x20: unsupported device family")
	// ErrInvalidResolution reports a requested resolution outside 9..12
	// bits. It is raised before any bus I/O takes place.
	ErrInvalidResolution = errors.New("ds18x20: invalid resolution")
)
