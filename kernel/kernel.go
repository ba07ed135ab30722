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

import "github.com/gmofishsauce/armcore/internal/trace"

// ImageInfo is the parsed header of one task image.
type ImageInfo struct {
	CodeBase uint32
	CodeSize uint32
	DataBase uint32
	DataSize uint32
	InitialSP uint32
	EntryPC   uint32
}

// Kernel owns the task pool, the scheduler, the low-level switch state
// and the fault dispatcher, and drives the kernel boot sequence: seed
// every task's stack, start the scheduler, and hand control to the
// first task.
type Kernel struct {
	mem  *Memory
	mpu  *MPU
	sw   *Switcher
	sched Scheduler
	fault *FaultDispatcher
	tr   *trace.Tracer

	supervisorMode bool
	active         *Application
	pendingTail    bool
	resetHook      func()
	halted         bool

	apps []*Application
}

// NewKernel wires the components together. mem backs both task stacks
// and task images; layout and shared regions are the boot-time MPU
// configuration.
func NewKernel(mem *Memory, layout KernelLayout, sharedCode, sharedData Range, enableDump bool, tr *trace.Tracer) *Kernel {
	mpu := &MPU{}
	k := &Kernel{
		mem:   mem,
		mpu:   mpu,
		sw:    NewSwitcher(mem, mpu),
		fault: NewFaultDispatcher(mem, enableDump),
		tr:    tr,
	}
	k.fault.Register(k.handleFault)
	k.supervisorMode = true

	mpu.InitMPU(layout, sharedCode, sharedData, noopCriticalSection{})
	return k
}

// noopCriticalSection is the host-side stand-in for disable_irq/
// enable_irq: there is nothing to preempt this process, but the call
// sites are preserved so they read the same as Drv_CPUCore_InitializeMPU.
type noopCriticalSection struct{}

func (noopCriticalSection) Enter() {}
func (noopCriticalSection) Exit()  {}

// Boot seeds every task's stack from its image, initialises the
// scheduler, clears supervisor mode, and starts the first task.
func (k *Kernel) Boot(images []ImageInfo) *Application {
	k.apps = make([]*Application, len(images))
	for i, info := range images {
		tcb := &TCB{
			Privileged: false,
			CodeBase:   info.CodeBase,
			CodeSize:   info.CodeSize,
			DataBase:   info.DataBase,
			DataSize:   info.DataSize,
		}
		tcb.InitTCB(k.mem, info.InitialSP, info.EntryPC)
		k.apps[i] = &Application{TCB: tcb}
	}

	k.sched.Init(k.apps)

	first := k.sched.NextApp()
	if first == nil {
		k.tr.Fatal("boot: no ready task in pool")
		k.halted = true
		return nil
	}

	k.supervisorMode = false
	k.sched.MarkRunning(first)
	k.active = first
	k.sw.StartFirstTask(first)

	k.tr.Boot(len(images))
	return first
}

// Yield dispatches through one of two paths: a direct tail-exception
// pend when already in supervisor mode (kernel code cannot issue an SVC
// meaningfully while already in handler context), or the user-mode SVC
// path otherwise.
func (k *Kernel) Yield() {
	if k.halted {
		return
	}
	if k.supervisorMode {
		k.pendingTail = true
		k.runTailException()
		return
	}
	k.svc(svcYield)
}

// svc models the user-mode supervisor-call path: only svcYield is
// wired to a handler. svcRaisePrivilege is reserved but unimplemented;
// calling it is a no-op.
func (k *Kernel) svc(immediate int) {
	switch immediate {
	case svcYield:
		k.pendingTail = true
		k.runTailException()
	case svcRaisePrivilege:
		// reserved, unimplemented
	}
}

// runTailException performs the actual switch once pended, mirroring
// the PendSV handler body.
func (k *Kernel) runTailException() {
	if !k.pendingTail {
		return
	}
	k.pendingTail = false

	outgoing := k.active
	if outgoing.State != StateTerminated {
		outgoing.State = StateReady
	}

	saved := CalleeSaved{}
	incoming, restored := k.sw.TailSwitch(outgoing, saved, k.sched.NextApp)
	if incoming == nil {
		k.tr.Fatal("scheduler: no ready task, halting")
		k.halted = true
		return
	}
	_ = restored

	k.sched.MarkRunning(incoming)
	k.active = incoming
	k.tr.Switch(outgoing.ID, incoming.ID)
}

// ActiveApp returns the currently loaded Application.
func (k *Kernel) ActiveApp() *Application { return k.active }

// Halted reports whether the scheduler has run out of Ready tasks. Once
// true, Yield is a permanent no-op.
func (k *Kernel) Halted() bool { return k.halted }

// SupervisorMode reports whether the kernel believes it is in
// supervisor mode.
func (k *Kernel) SupervisorMode() bool { return k.supervisorMode }

// Fault delivers a classified fault status into the fault dispatcher,
// as a real hard-fault trampoline would after reading HFSR/CFSR/MMFAR.
func (k *Kernel) Fault(status FaultStatus) {
	k.fault.Dispatch(status)
}

// handleFault is the kernel-level exception handler registered with
// the fault dispatcher at construction, grounded on Kernel.c's
// exceptionHandler: log, optionally dump, then either terminate the
// active task and yield, or reset the device.
func (k *Kernel) handleFault(kind FaultKind, value uint32, dump StackDumper) {
	k.tr.Fault(kind.String(), value)

	if dump != nil {
		dump(func(f StackFrame) {
			k.tr.StackDump(f.PC, f.LR, f.PSR)
		})
	}

	if !k.supervisorMode {
		k.sched.TerminateActive(k.active)
		k.tr.Terminate(k.active.ID)
		k.supervisorMode = true
		k.Yield()
		k.supervisorMode = false
		return
	}

	k.tr.Fatal("kernel fault, resetting device")
	if k.resetHook != nil {
		k.resetHook()
	}
}

// ResetHook installs a callback invoked when a supervisor-mode fault
// would reset the device.
func (k *Kernel) ResetHook(f func()) { k.resetHook = f }
