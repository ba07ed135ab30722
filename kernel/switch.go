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

// CalleeSaved is the register group (R4..R11) a context switch must
// explicitly push and pop; the remaining registers are handled by the
// exception-return hardware on a real part.
type CalleeSaved struct {
	R4, R5, R6, R7, R8, R9, R10, R11 uint32
}

// svc immediates the switch primitives recognise. On real hardware the
// reset handler issues SVC 0 to leave handler mode for the first task;
// Boot calls Switcher.StartFirstTask directly instead, since there is
// no handler-mode/thread-mode distinction to cross in this simulation.
const (
	svcStartFirstTask = 0
	svcYield          = 1
	// svcRaisePrivilege is reserved but unimplemented: ZAYA-OS mentions
	// privilege escalation from an SVC but never defines a handler for
	// it. Calling it is a documented no-op.
	svcRaisePrivilege = 2
)

// Switcher holds the simulated CPU-level state a real implementation
// would keep in hardware registers: the process stack pointer and the
// current privilege bit. Callee-saved registers are kept in each task's
// stack frame in mem, not here.
type Switcher struct {
	mem *Memory
	mpu *MPU

	psp        uint32
	privileged bool
}

// NewSwitcher creates a Switcher operating on mem's stack memory and
// reprogramming mpu's per-task regions on every switch.
func NewSwitcher(mem *Memory, mpu *MPU) *Switcher {
	return &Switcher{mem: mem, mpu: mpu}
}

// StartFirstTask loads the stack pointer from app's TCB, pops R4..R11,
// and marks the CPU as running app's privilege level. There is no
// "previous task" to save.
func (sw *Switcher) StartFirstTask(app *Application) CalleeSaved {
	sw.psp = app.TCB.topOfStack
	saved := sw.popCalleeSaved()
	sw.privileged = app.TCB.Privileged
	sw.mpu.SetUserRegions(Range{Base: app.TCB.CodeBase, Size: app.TCB.CodeSize}, Range{Base: app.TCB.DataBase, Size: app.TCB.DataSize})
	return saved
}

// TailSwitch saves the outgoing task's callee-saved registers and stack
// pointer, asks getNext for the incoming task, reloads its stack
// pointer, reprograms the per-task MPU regions, and sets the privilege
// bit. Returns the incoming task's callee-saved group, as the software
// pop before exception return restores it.
//
// The barrier instructions a cross-compiled build issues around the
// stack-pointer reload and the CONTROL write have no host analogue;
// the ordering they enforce is instead guaranteed by this function's
// statement order, covered by I3/I4.
func (sw *Switcher) TailSwitch(outgoing *Application, saved CalleeSaved, getNext func() *Application) (*Application, CalleeSaved) {
	outgoing.TCB.topOfStack = sw.psp
	sw.pushCalleeSaved(saved)

	incoming := getNext()
	if incoming == nil {
		return nil, CalleeSaved{}
	}

	sw.psp = incoming.TCB.topOfStack
	restored := sw.popCalleeSaved()

	sw.mpu.SetUserRegions(
		Range{Base: incoming.TCB.CodeBase, Size: incoming.TCB.CodeSize},
		Range{Base: incoming.TCB.DataBase, Size: incoming.TCB.DataSize},
	)
	sw.privileged = incoming.TCB.Privileged

	return incoming, restored
}

// Privileged reports the currently-loaded task's privilege bit.
func (sw *Switcher) Privileged() bool { return sw.privileged }

// PSP returns the currently-loaded process stack pointer.
func (sw *Switcher) PSP() uint32 { return sw.psp }

func (sw *Switcher) popCalleeSaved() CalleeSaved {
	f := sw.mem.readFrame(sw.psp)
	return CalleeSaved{R4: f.R4, R5: f.R5, R6: f.R6, R7: f.R7, R8: f.R8, R9: f.R9, R10: f.R10, R11: f.R11}
}

func (sw *Switcher) pushCalleeSaved(cs CalleeSaved) {
	f := sw.mem.readFrame(sw.psp)
	f.R4, f.R5, f.R6, f.R7 = cs.R4, cs.R5, cs.R6, cs.R7
	f.R8, f.R9, f.R10, f.R11 = cs.R8, cs.R9, cs.R10, cs.R11
	sw.mem.writeFrame(sw.psp, &f)
}
