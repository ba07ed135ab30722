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

// Package trace provides the kernel's event log: boot milestones,
// context switches, faults. It is the microkernel's analogue of the
// WUT-4 emulator's per-instruction Tracer, scoped to kernel-level
// events instead of per-instruction state.
package trace

import (
	"io"
	"log"
)

// Tracer writes kernel events to an underlying writer using the
// standard logger. A nil *Tracer is valid and discards everything,
// so components can be constructed without one in tests that don't
// care about log output.
type Tracer struct {
	log *log.Logger
}

// New creates a Tracer writing to out with the given prefix.
func New(out io.Writer, prefix string) *Tracer {
	return &Tracer{log: log.New(out, prefix, log.LstdFlags|log.Lmicroseconds)}
}

// Discard returns a Tracer that drops everything, for tests.
func Discard() *Tracer {
	return New(io.Discard, "")
}

func (t *Tracer) printf(format string, args ...any) {
	if t == nil || t.log == nil {
		return
	}
	t.log.Printf(format, args...)
}

// Boot logs the kernel finishing its boot sequence with n tasks seeded.
func (t *Tracer) Boot(n int) {
	t.printf("boot: %d task(s) seeded, scheduler started", n)
}

// Switch logs a context switch from one task ID to another.
func (t *Tracer) Switch(from, to int) {
	t.printf("switch: task %d -> task %d", from, to)
}

// Terminate logs a task being terminated.
func (t *Tracer) Terminate(id int) {
	t.printf("terminate: task %d", id)
}

// Fault logs a classified fault.
func (t *Tracer) Fault(kind string, value uint32) {
	t.printf("fault: %s value=0x%08X", kind, value)
}

// StackDump logs a one-shot stack dump.
func (t *Tracer) StackDump(pc, lr, psr uint32) {
	t.printf("stackdump: pc=0x%08X lr=0x%08X psr=0x%08X", pc, lr, psr)
}

// Fatal logs an unrecoverable kernel condition. It does not exit the
// process; callers decide how to react (reset, halt, return an error).
func (t *Tracer) Fatal(msg string) {
	t.printf("FATAL: %s", msg)
}
