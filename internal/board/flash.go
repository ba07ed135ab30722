// Copyright © 2024 Jeff Berkowitz (pdxjjb@gmail.com)
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.

package board

import (
	"fmt"
	"os"
)

// Flash is a simulated byte-addressable, erase-before-write flash
// region backed by a host file, the same posture emul/sdcard.go takes
// toward the WUT-4's SD card: an *os.File stands in for the physical
// medium, and every access reasons about offsets into it.
type Flash struct {
	file *os.File
	size int64
}

// Erased is the value a Cortex-M part's flash reads back as after an
// erase cycle.
const Erased byte = 0xFF

// OpenFlash opens (creating if necessary) a host file of size bytes to
// back simulated flash.
func OpenFlash(path string, size int64) (*Flash, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open flash image: %w", err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("size flash image: %w", err)
	}
	return &Flash{file: f, size: size}, nil
}

// Close releases the backing file.
func (fl *Flash) Close() error { return fl.file.Close() }

// Erase sets size bytes starting at offset to Erased.
func (fl *Flash) Erase(offset, size int64) error {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = Erased
	}
	_, err := fl.file.WriteAt(buf, offset)
	return err
}

// Write programs data at offset. Callers are responsible for erasing
// first, matching real NOR flash semantics.
func (fl *Flash) Write(offset int64, data []byte) error {
	_, err := fl.file.WriteAt(data, offset)
	return err
}

// Read reads len(buf) bytes starting at offset.
func (fl *Flash) Read(offset int64, buf []byte) error {
	_, err := fl.file.ReadAt(buf, offset)
	return err
}

// Size returns the flash region's total size in bytes.
func (fl *Flash) Size() int64 { return fl.size }
