// Unit tests for task stack seeding.

package kernel

import "testing"

func newTestMemory() *Memory {
	return NewMemory(0x20000000, 0x10000)
}

// TestInitTCBFrameLayout covers I1, I2, R1: the first field of the TCB
// equals the task's stack pointer, and the seeded frame has Thumb set,
// bit 0 cleared on PC, and R0 zero.
func TestInitTCBFrameLayout(t *testing.T) {
	mem := newTestMemory()
	tcb := &TCB{}

	top := tcb.InitTCB(mem, 0x20001000, 0x08001235)

	if top != tcb.topOfStack {
		t.Fatalf("I1 violated: InitTCB returned 0x%X but tcb.topOfStack=0x%X", top, tcb.topOfStack)
	}

	frame := mem.readFrame(top)
	if frame.PSR != initialPSR {
		t.Errorf("PSR = 0x%X, want 0x%X (Thumb bit)", frame.PSR, initialPSR)
	}
	if frame.PC&1 != 0 {
		t.Errorf("PC bit 0 not cleared: 0x%X", frame.PC)
	}
	if frame.PC != 0x08001234 {
		t.Errorf("PC = 0x%X, want 0x08001234", frame.PC)
	}
	if frame.R0 != 0 {
		t.Errorf("R0 = %d, want 0", frame.R0)
	}
	if frame.LR != haltTrap {
		t.Errorf("LR = 0x%X, want halt trap 0x%X", frame.LR, haltTrap)
	}
	if top%8 != 0 {
		t.Errorf("top of stack 0x%X not 8-byte aligned", top)
	}
}

// TestInitTCBUnalignedInput covers B2: an unaligned input top still
// produces an 8-byte-aligned result.
func TestInitTCBUnalignedInput(t *testing.T) {
	mem := newTestMemory()
	tcb := &TCB{}

	top := tcb.InitTCB(mem, 0x20000FFF, 0x1234)

	if top%8 != 0 {
		t.Fatalf("B2 violated: top of stack 0x%X not 8-byte aligned", top)
	}
	if top != 0x20000FB8 {
		t.Errorf("S5: top of stack = 0x%X, want 0x20000FB8", top)
	}

	frame := mem.readFrame(top)
	if frame.PC != 0x1234 {
		t.Errorf("S5: PC = 0x%X, want 0x1234", frame.PC)
	}
	if frame.PSR != 0x01000000 {
		t.Errorf("S5: PSR = 0x%X, want 0x01000000", frame.PSR)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	mem := newTestMemory()
	in := StackFrame{
		R4: 4, R5: 5, R6: 6, R7: 7, R8: 8, R9: 9, R10: 10, R11: 11,
		R0: 0, R1: 1, R2: 2, R3: 3, R12: 12,
		LR: 0xDEAD, PC: 0x1000, PSR: initialPSR,
	}
	mem.writeFrame(0x20000100, &in)
	out := mem.readFrame(0x20000100)
	if in != out {
		t.Fatalf("round trip mismatch: wrote %+v, read %+v", in, out)
	}
}
