package trace

import (
	"bytes"
	"strings"
	"testing"
)

func TestTracerWritesExpectedEvents(t *testing.T) {
	var buf bytes.Buffer
	tr := New(&buf, "")

	tr.Boot(2)
	tr.Switch(0, 1)
	tr.Terminate(1)
	tr.Fault("DivideByZero", 0)
	tr.StackDump(0x08000100, 0xFFFFFFFE, 0x01000000)
	tr.Fatal("kernel fault, resetting device")

	out := buf.String()
	for _, want := range []string{
		"boot: 2 task(s) seeded",
		"switch: task 0 -> task 1",
		"terminate: task 1",
		"fault: DivideByZero value=0x00000000",
		"stackdump: pc=0x08000100 lr=0xFFFFFFFE psr=0x01000000",
		"FATAL: kernel fault, resetting device",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q, got:\n%s", want, out)
		}
	}
}

func TestDiscardTracerProducesNoOutput(t *testing.T) {
	tr := Discard()
	tr.Boot(1)
	tr.Fault("HardFault", 0x1234)
	// Discard() writes to io.Discard; nothing to assert beyond "does not panic".
}

func TestNilTracerIsSafe(t *testing.T) {
	var tr *Tracer
	tr.Boot(1)
	tr.Switch(0, 1)
	tr.Terminate(0)
	tr.Fault("HardFault", 0)
	tr.StackDump(0, 0, 0)
	tr.Fatal("unreachable")
}
