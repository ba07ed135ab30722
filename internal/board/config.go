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

// Package board models the hardware the kernel package treats as
// external collaborators: UART, GPIO, a periodic timer, flash storage,
// and the board-level configuration that ties them together with the
// kernel's own build-time options.
package board

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes a board: the task images to load, the kernel's
// build-time options, and the memory layout InitMPU needs.
type Config struct {
	Tasks []TaskConfig `yaml:"tasks"`

	EnableStackDump        bool `yaml:"enable_stack_dump"`
	KernelInterruptPriority int  `yaml:"kernel_interrupt_priority"`

	SharedCodeBase uint32 `yaml:"shared_code_base"`
	SharedCodeSize uint32 `yaml:"shared_code_size"`
	SharedDataBase uint32 `yaml:"shared_data_base"`
	SharedDataSize uint32 `yaml:"shared_data_size"`

	KernelCodeBase uint32 `yaml:"kernel_code_base"`
	KernelCodeSize uint32 `yaml:"kernel_code_size"`
	KernelDataBase uint32 `yaml:"kernel_data_base"`
	KernelDataSize uint32 `yaml:"kernel_data_size"`

	GPIOBase   uint32 `yaml:"gpio_base"`
	GPIOSize   uint32 `yaml:"gpio_size"`
	PeriphBase uint32 `yaml:"periph_base"`
	PeriphSize uint32 `yaml:"periph_size"`
}

// TaskConfig names one task's image on disk and where it loads in the
// simulated address space.
type TaskConfig struct {
	Name     string `yaml:"name"`
	Image    string `yaml:"image"`
	LoadAddr uint32 `yaml:"load_addr"`
}

// LoadConfig reads and decodes a YAML board description.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read board config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse board config: %w", err)
	}
	if len(cfg.Tasks) == 0 {
		return nil, fmt.Errorf("board config %s: no tasks", path)
	}
	return &cfg, nil
}
