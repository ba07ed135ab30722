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

// initialPSR is the Program Status Register value seeded for every new
// task: Thumb bit set, no flags.
const initialPSR = 0x01000000

// taskStartAddressMask clears bit 0 of a task entry address, as required
// by the exception-return hardware.
const taskStartAddressMask = ^uint32(1)

// StackFrame mirrors the layout the exception-return hardware expects on
// a task's stack, in descending-stack (low to high address) order. The
// first eight words are popped by software in the tail exception; the
// remaining eight are popped automatically by hardware on exception
// return.
type StackFrame struct {
	R4, R5, R6, R7, R8, R9, R10, R11 uint32
	R0, R1, R2, R3, R12              uint32
	LR, PC, PSR                      uint32
}

// frameWords is the number of 32-bit words a StackFrame occupies.
const frameWords = 16

// TCB is a task control block. The first field MUST be topOfStack: the
// low-level switch code treats a *TCB as a pointer to its own stack
// pointer when saving and restoring context.
type TCB struct {
	topOfStack uint32

	Privileged bool
	CodeBase   uint32
	CodeSize   uint32
	DataBase   uint32
	DataSize   uint32
}

// TopOfStack returns the task's current stack pointer.
func (t *TCB) TopOfStack() uint32 { return t.topOfStack }

// haltTrap is the address the kernel registers as every task's return
// address. A task that returns from its entry function lands here
// instead of into undefined memory. The host simulation never executes
// task code, so nothing in this package branches to or checks for it.
const haltTrap uint32 = 0xFFFFFFFE

// InitTCB seeds a fresh stack for a task about to start at entry, given
// the raw (unaligned) top of its stack region, and writes the result
// into tcb.topOfStack. mem is the simulated memory the frame is written
// into; it must cover at least frameWords*4 bytes below top.
//
// Returns the new top-of-stack value (also stored in tcb.topOfStack).
func (t *TCB) InitTCB(mem *Memory, top uint32, entry uint32) uint32 {
	// Reserve one word, then align down to an 8-byte boundary, exactly
	// as Drv_CPUCore_CSInitializeTCB does.
	top -= 4
	top &^= 7

	frame := StackFrame{
		PSR: initialPSR,
		PC:  entry & taskStartAddressMask,
		LR:  haltTrap,
		R0:  0,
	}

	// top now points one word past the frame, matching the C driver's
	// stackMap cast; the frame itself starts one struct below that.
	base := top - uint32(frameWords)*4
	mem.writeFrame(base, &frame)

	t.topOfStack = base
	return base
}

// writeFrame writes frame's sixteen words starting at addr, in the
// exact order StackFrame declares them.
func (m *Memory) writeFrame(addr uint32, f *StackFrame) {
	words := [frameWords]uint32{
		f.R4, f.R5, f.R6, f.R7, f.R8, f.R9, f.R10, f.R11,
		f.R0, f.R1, f.R2, f.R3, f.R12,
		f.LR, f.PC, f.PSR,
	}
	for i, w := range words {
		m.WriteWord(addr+uint32(i*4), w)
	}
}

// readFrame is the inverse of writeFrame, used by tests and by the
// fault dispatcher to reconstruct the trapped context.
func (m *Memory) readFrame(addr uint32) StackFrame {
	var f StackFrame
	f.R4 = m.ReadWord(addr + 0)
	f.R5 = m.ReadWord(addr + 4)
	f.R6 = m.ReadWord(addr + 8)
	f.R7 = m.ReadWord(addr + 12)
	f.R8 = m.ReadWord(addr + 16)
	f.R9 = m.ReadWord(addr + 20)
	f.R10 = m.ReadWord(addr + 24)
	f.R11 = m.ReadWord(addr + 28)
	f.R0 = m.ReadWord(addr + 32)
	f.R1 = m.ReadWord(addr + 36)
	f.R2 = m.ReadWord(addr + 40)
	f.R3 = m.ReadWord(addr + 44)
	f.R12 = m.ReadWord(addr + 48)
	f.LR = m.ReadWord(addr + 52)
	f.PC = m.ReadWord(addr + 56)
	f.PSR = m.ReadWord(addr + 60)
	return f
}
