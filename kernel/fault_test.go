package kernel

import "testing"

func TestDispatchDivideByZero(t *testing.T) {
	mem := newTestMemory()
	d := NewFaultDispatcher(mem, true)

	var gotKind FaultKind
	var gotValue uint32
	d.Register(func(kind FaultKind, value uint32, dump StackDumper) {
		gotKind, gotValue = kind, value
	})

	d.Dispatch(FaultStatus{
		HFSR: hfsrForced,
		CFSR: cfsrUsgDivByZero,
	})

	if gotKind != DivideByZero {
		t.Fatalf("kind = %v, want DivideByZero", gotKind)
	}
	if gotValue != 0 {
		t.Errorf("value = %d, want 0", gotValue)
	}
}

func TestDispatchPriorityUsageOverBusOverMem(t *testing.T) {
	mem := newTestMemory()
	d := NewFaultDispatcher(mem, false)

	var gotKind FaultKind
	d.Register(func(kind FaultKind, value uint32, dump StackDumper) {
		gotKind = kind
	})

	// Usage, bus and mem bits all set: usage must win.
	d.Dispatch(FaultStatus{
		HFSR: hfsrForced,
		CFSR: (1 << 16) | (1 << 8) | cfsrMemIACCVIOL,
	})
	if gotKind != UsageFault {
		t.Fatalf("kind = %v, want UsageFault (usage beats bus/mem)", gotKind)
	}

	d.Dispatch(FaultStatus{
		HFSR: hfsrForced,
		CFSR: (1 << 8) | cfsrMemIACCVIOL,
	})
	if gotKind != BusFault {
		t.Fatalf("kind = %v, want BusFault (bus beats mem)", gotKind)
	}
}

func TestDispatchMemFaultClassification(t *testing.T) {
	mem := newTestMemory()
	d := NewFaultDispatcher(mem, false)

	var gotKind FaultKind
	var gotValue uint32
	d.Register(func(kind FaultKind, value uint32, dump StackDumper) {
		gotKind, gotValue = kind, value
	})

	d.Dispatch(FaultStatus{HFSR: hfsrForced, CFSR: cfsrMemIACCVIOL})
	if gotKind != CodeAccessViolation {
		t.Errorf("kind = %v, want CodeAccessViolation", gotKind)
	}

	d.Dispatch(FaultStatus{HFSR: hfsrForced, CFSR: cfsrMemDACCVIOL | cfsrMemMMARVALID, MMFAR: 0xDEADBEEF})
	if gotKind != DataAccessViolation || gotValue != 0xDEADBEEF {
		t.Errorf("kind=%v value=0x%X, want DataAccessViolation/0xDEADBEEF", gotKind, gotValue)
	}
}

func TestDispatchNonForcedIsGenericHardFault(t *testing.T) {
	mem := newTestMemory()
	d := NewFaultDispatcher(mem, false)

	var gotKind FaultKind
	var gotValue uint32
	d.Register(func(kind FaultKind, value uint32, dump StackDumper) {
		gotKind, gotValue = kind, value
	})

	d.Dispatch(FaultStatus{HFSR: 0x1234})
	if gotKind != HardFault || gotValue != 0x1234 {
		t.Errorf("kind=%v value=0x%X, want HardFault/0x1234", gotKind, gotValue)
	}
}

// TestStackDumpOneShot covers I5/R2: a second call to the dump
// function is a no-op.
func TestStackDumpOneShot(t *testing.T) {
	mem := newTestMemory()
	d := NewFaultDispatcher(mem, true)

	frame := StackFrame{PC: 0x1000, LR: 0x2000, PSR: initialPSR}
	mem.writeFrame(0x20000100, &frame)

	calls := 0
	d.Register(func(kind FaultKind, value uint32, dump StackDumper) {
		dump(func(StackFrame) { calls++ })
		dump(func(StackFrame) { calls++ }) // second call must be a no-op
	})

	d.Dispatch(FaultStatus{HFSR: hfsrForced, CFSR: 1, SP: 0x20000100})

	if calls != 1 {
		t.Fatalf("I5/R2 violated: dump invoked %d times, want 1", calls)
	}
}

func TestStackDumpDisabledWhenNotEnabled(t *testing.T) {
	mem := newTestMemory()
	d := NewFaultDispatcher(mem, false)

	var dumpWasNil bool
	d.Register(func(kind FaultKind, value uint32, dump StackDumper) {
		dumpWasNil = dump == nil
	})
	d.Dispatch(FaultStatus{HFSR: hfsrForced, CFSR: 1})
	if !dumpWasNil {
		t.Fatal("dump function provided despite enableDump=false")
	}
}
