package board

import (
	"strings"
	"testing"
	"time"
)

func TestUARTWriteByteOverflowSticky(t *testing.T) {
	u := NewUART(2, nil, nil)
	u.WriteByte('a')
	u.WriteByte('b')
	u.WriteByte('c') // FIFO depth 2, third byte overflows

	txOverflow, rxOverflow, rxUnderflow := u.Status()
	if !txOverflow {
		t.Error("txOverflow = false, want true after writing past FIFO depth")
	}
	if rxOverflow || rxUnderflow {
		t.Errorf("rxOverflow=%v rxUnderflow=%v, want both false", rxOverflow, rxUnderflow)
	}

	// Status() clears the sticky flags.
	txOverflow, _, _ = u.Status()
	if txOverflow {
		t.Error("txOverflow still set after a prior Status() call")
	}
}

func TestUARTReadByteUnderflow(t *testing.T) {
	u := NewUART(2, nil, nil)
	if _, ok := u.ReadByte(); ok {
		t.Fatal("ReadByte() on an empty FIFO returned ok=true")
	}
	_, _, rxUnderflow := u.Status()
	if !rxUnderflow {
		t.Error("rxUnderflow = false, want true after reading an empty FIFO")
	}
}

func TestUARTReadByteDrainsQueuedBytes(t *testing.T) {
	u := NewUART(4, nil, nil)
	u.rxChan <- 'x'
	u.rxChan <- 'y'

	b, ok := u.ReadByte()
	if !ok || b != 'x' {
		t.Fatalf("ReadByte() = (0x%X, %v), want ('x', true)", b, ok)
	}
	b, ok = u.ReadByte()
	if !ok || b != 'y' {
		t.Fatalf("ReadByte() = (0x%X, %v), want ('y', true)", b, ok)
	}
	_, _, rxUnderflow := u.Status()
	if rxUnderflow {
		t.Error("rxUnderflow = true after two successful reads, want false")
	}
}

// TestUARTStartIOPumpsReaderIntoRxFIFO exercises pumpIn end to end: bytes
// written to the input reader show up via ReadByte without the caller
// touching the FIFO directly.
func TestUARTStartIOPumpsReaderIntoRxFIFO(t *testing.T) {
	u := NewUART(4, strings.NewReader("hi"), nil)
	u.StartIO()

	want := []byte("hi")
	for _, w := range want {
		deadline := time.Now().Add(time.Second)
		for {
			if b, ok := u.ReadByte(); ok {
				if b != w {
					t.Fatalf("ReadByte() = 0x%X, want 0x%X", b, w)
				}
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("byte 0x%X never arrived in the rx FIFO", w)
			}
			time.Sleep(time.Millisecond)
		}
	}
}
