package board

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `
tasks:
  - name: blinker
    image: blinker.img
    load_addr: 0x40000
  - name: logger
    image: logger.img
    load_addr: 0x41000
enable_stack_dump: true
kernel_interrupt_priority: 0
shared_code_base: 0x08010000
shared_code_size: 0x1000
shared_data_base: 0x20010000
shared_data_size: 0x1000
kernel_code_base: 0x08000000
kernel_code_size: 0x10000
kernel_data_base: 0x20000000
kernel_data_size: 0x10000
gpio_base: 0x2009C000
gpio_size: 0x4000
periph_base: 0x40000000
periph_size: 0x100000
`

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "board.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(cfg.Tasks) != 2 {
		t.Fatalf("len(Tasks) = %d, want 2", len(cfg.Tasks))
	}
	if cfg.Tasks[0].Name != "blinker" || cfg.Tasks[0].LoadAddr != 0x40000 {
		t.Errorf("Tasks[0] = %+v, want name=blinker load_addr=0x40000", cfg.Tasks[0])
	}
	if !cfg.EnableStackDump {
		t.Error("EnableStackDump = false, want true")
	}
	if cfg.KernelCodeBase != 0x08000000 || cfg.KernelCodeSize != 0x10000 {
		t.Errorf("kernel code range = 0x%X/0x%X, want 0x08000000/0x10000", cfg.KernelCodeBase, cfg.KernelCodeSize)
	}
}

func TestLoadConfigMissingTasksIsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	os.WriteFile(path, []byte("enable_stack_dump: false\n"), 0o644)

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() with no tasks succeeded, want error")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/board.yaml"); err == nil {
		t.Fatal("LoadConfig() of a missing file succeeded, want error")
	}
}
