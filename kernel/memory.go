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

package kernel

import "encoding/binary"

// Memory is the host-side stand-in for the device's addressable byte
// space: task stacks, task images and the simulated hardware registers
// the rest of the kernel package manipulates all live inside one of
// these. Word accesses use little-endian encoding, matching the
// Cortex-M3.
type Memory struct {
	bytes []byte
	base  uint32
}

// NewMemory allocates a simulated address space of size bytes starting
// at base.
func NewMemory(base uint32, size uint32) *Memory {
	return &Memory{bytes: make([]byte, size), base: base}
}

func (m *Memory) offset(addr uint32) uint32 {
	return addr - m.base
}

// ReadWord reads a little-endian 32-bit word at addr.
func (m *Memory) ReadWord(addr uint32) uint32 {
	off := m.offset(addr)
	return binary.LittleEndian.Uint32(m.bytes[off : off+4])
}

// WriteWord writes a little-endian 32-bit word at addr.
func (m *Memory) WriteWord(addr uint32, v uint32) {
	off := m.offset(addr)
	binary.LittleEndian.PutUint32(m.bytes[off:off+4], v)
}

// Load copies data into the address space starting at addr, as if it
// had been programmed into flash or loaded by a bootloader.
func (m *Memory) Load(addr uint32, data []byte) {
	off := m.offset(addr)
	copy(m.bytes[off:], data)
}

// Base returns the address space's lowest addressable byte.
func (m *Memory) Base() uint32 { return m.base }

// Size returns the address space's size in bytes.
func (m *Memory) Size() uint32 { return uint32(len(m.bytes)) }
