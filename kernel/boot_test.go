package kernel

import "testing"

type fixedValidator struct{ valid bool }

func (f fixedValidator) Valid(mem *Memory, addr uint32) bool { return f.valid }

// TestJumpToImage covers S6: VTOR masking and SP/PC load order.
func TestJumpToImage(t *testing.T) {
	mem := NewMemory(0, 1<<20)
	mem.WriteWord(0x8000, 0x20008000)
	mem.WriteWord(0x8004, 0x8201)

	bl := NewBootloader(mem, nil)
	result := bl.JumpToImage(0x8000)

	if result.SP != 0x20008000 {
		t.Errorf("SP = 0x%X, want 0x20008000", result.SP)
	}
	if result.PC != 0x8201 {
		t.Errorf("PC = 0x%X, want 0x8201 (bit-0 clearing happens at hardware PC load, not here)", result.PC)
	}
	if result.VTOR != 0x8000&vectorTableAlignMask {
		t.Errorf("VTOR = 0x%X, want 0x%X", result.VTOR, 0x8000&vectorTableAlignMask)
	}
}

func TestBootloaderRunRetriesUntilValid(t *testing.T) {
	mem := NewMemory(0, 1<<20)
	mem.WriteWord(0x8000, 0x20008000)
	mem.WriteWord(0x8004, 0x8200)

	attempts := 0
	validateAttempt := 2
	bl := NewBootloader(mem, validatorFunc(func(mem *Memory, addr uint32) bool {
		attempts++
		return attempts >= validateAttempt
	}))

	_, ok := bl.Run(0x8000, func() bool { return true })
	if !ok {
		t.Fatal("Run() failed, want success after retry")
	}
	if attempts != validateAttempt {
		t.Errorf("attempts = %d, want %d", attempts, validateAttempt)
	}
}

func TestBootloaderRunGivesUp(t *testing.T) {
	bl := NewBootloader(NewMemory(0, 0x100), fixedValidator{valid: false})
	_, ok := bl.Run(0, func() bool { return false })
	if ok {
		t.Fatal("Run() succeeded, want failure when attempt() gives up")
	}
}

type validatorFunc func(mem *Memory, addr uint32) bool

func (f validatorFunc) Valid(mem *Memory, addr uint32) bool { return f(mem, addr) }
