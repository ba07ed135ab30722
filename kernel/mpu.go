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

// Fixed MPU region indices.
const (
	RegionKernelCode = 0
	RegionKernelData = 1
	RegionGPIO       = 2
	RegionPeriph     = 3
	RegionSharedCode = 4
	RegionSharedData = 5
	RegionUserCode   = 6
	RegionUserData   = 7

	numRegions = 8
)

// AP encodings, Cortex-M3 MPU RASR.AP field.
const (
	apPrivilegedRW = 1
	apPrivilegedRO = 5
	apRW           = 3
	apRO           = 6
)

const minRegionSize = 32

// Region is one MPU region's programmed state.
type Region struct {
	Valid bool
	Base  uint32
	Size  uint32
	AP    uint8
	XN    bool // execute-never
}

// MPU is the simulated Cortex-M3 memory protection unit: eight fixed
// regions, a global enable bit, and the "privileged default access
// allowed" bit the original driver sets alongside enable.
type MPU struct {
	regions [numRegions]Region
	enabled bool
	privDef bool
}

// EncodeRegionSize returns the Cortex-M3 RASR.SIZE encoding for a region
// covering at least size bytes: the region size in bytes is
// 2^(encoding+1), and the smallest permitted region is 32 bytes
// (encoding 4).
func EncodeRegionSize(size uint32) uint8 {
	encoding := uint8(4)
	regionSize := uint32(minRegionSize)
	for encoding < 31 {
		if size <= regionSize {
			break
		}
		regionSize <<= 1
		encoding++
	}
	return encoding
}

// program writes one region's fields directly (no background-region
// rule applied — boot-time fixed regions always get programmed).
func (m *MPU) program(index int, base uint32, size uint32, ap uint8, xn bool) {
	m.regions[index] = Region{
		Valid: true,
		Base:  base,
		Size:  size,
		AP:    ap,
		XN:    xn,
	}
}

// InitMPU programs the four fixed regions (kernel code,
// kernel data, GPIO, peripherals) plus the two optional shared regions,
// then enables the MPU with PRIVDEFENA set so the kernel continues
// running in the gaps between programmed regions. Disabling and
// re-enabling interrupts around the whole sequence mirrors
// Drv_CPUCore_InitializeMPU's critical section; here it is expressed as
// a call into the supplied criticalSection helper so tests can observe
// it was invoked exactly once.
func (m *MPU) InitMPU(layout KernelLayout, sharedCode, sharedData Range, cs CriticalSection) {
	cs.Enter()
	defer cs.Exit()

	m.program(RegionKernelCode, layout.CodeBase, layout.CodeSize, apPrivilegedRO, false)
	m.program(RegionKernelData, layout.DataBase, layout.DataSize, apPrivilegedRW, false)
	m.program(RegionGPIO, layout.GPIOBase, layout.GPIOSize, apRW, false)
	m.program(RegionPeriph, layout.PeriphBase, layout.PeriphSize, apPrivilegedRW, true)

	if sharedCode.Size >= minRegionSize {
		m.program(RegionSharedCode, sharedCode.Base, sharedCode.Size, apRO, false)
	}
	if sharedData.Size >= minRegionSize {
		m.program(RegionSharedData, sharedData.Base, sharedData.Size, apRW, false)
	}

	m.enabled = true
	m.privDef = true
}

// SetUserRegions reprograms only the two per-task regions (6 and 7),
// leaving 0..5 untouched. Called from the tail-exception handler after
// the next task has been selected.
func (m *MPU) SetUserRegions(code, data Range) {
	m.program(RegionUserCode, code.Base, code.Size, apRO, false)
	m.program(RegionUserData, data.Base, data.Size, apRW, false)
}

// Region returns the current programmed state of region index, for
// tests and diagnostics.
func (m *MPU) Region(index int) Region { return m.regions[index] }

// Enabled reports whether InitMPU has run.
func (m *MPU) Enabled() bool { return m.enabled }

// Range is a (base, size) memory extent.
type Range struct {
	Base uint32
	Size uint32
}

// KernelLayout describes the fixed regions of the address space: kernel
// code/data (privileged only), the GPIO window (unprivileged access
// allowed) and the peripheral window (privileged only). Supplied once at
// boot by the embedder (normally derived from the linker's memory map).
type KernelLayout struct {
	CodeBase, CodeSize     uint32
	DataBase, DataSize     uint32
	GPIOBase, GPIOSize     uint32
	PeriphBase, PeriphSize uint32
}

// CriticalSection brackets a region of code that must not be
// interrupted, standing in for disable_irq/enable_irq.
type CriticalSection interface {
	Enter()
	Exit()
}
