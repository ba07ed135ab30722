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

// armsim runs the microkernel against task images named by a board
// config, with the simulated UART connected to the host terminal.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/gmofishsauce/armcore/internal/board"
	"github.com/gmofishsauce/armcore/internal/trace"
	"github.com/gmofishsauce/armcore/kernel"
)

var (
	boardFile   = flag.String("board", "", "board configuration YAML file")
	traceFile   = flag.String("trace", "", "write kernel event trace to file")
	maxSwitches = flag.Uint64("max-switches", 0, "stop after N context switches (0 = unlimited)")
	showVersion = flag.Bool("version", false, "show version and exit")
)

const version = "1.0.0"

var savedTermState *term.State

func setupTerminal() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	state, err := term.GetState(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("failed to get terminal state: %v", err)
	}
	savedTermState = state

	if _, err := term.MakeRaw(int(os.Stdin.Fd())); err != nil {
		return fmt.Errorf("failed to set raw mode: %v", err)
	}
	return nil
}

func restoreTerminal() {
	if savedTermState != nil && term.IsTerminal(int(os.Stdin.Fd())) {
		term.Restore(int(os.Stdin.Fd()), savedTermState)
	}
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("armsim v%s\n", version)
		os.Exit(0)
	}

	if *boardFile == "" {
		usage()
		os.Exit(1)
	}

	cfg, err := board.LoadConfig(*boardFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading board config: %v\n", err)
		os.Exit(1)
	}

	var tr *trace.Tracer
	if *traceFile != "" {
		f, err := os.Create(*traceFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating trace file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		tr = trace.New(f, "")
	} else {
		tr = trace.Discard()
	}

	mem := kernel.NewMemory(0, 1<<24)
	images := make([]kernel.ImageInfo, 0, len(cfg.Tasks))
	for _, t := range cfg.Tasks {
		data, err := os.ReadFile(t.Image)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading task image %s: %v\n", t.Image, err)
			os.Exit(1)
		}
		mem.Load(t.LoadAddr, data)
		images = append(images, kernel.ReadImage(mem, t.LoadAddr))
	}

	layout := kernel.KernelLayout{
		CodeBase: cfg.KernelCodeBase, CodeSize: cfg.KernelCodeSize,
		DataBase: cfg.KernelDataBase, DataSize: cfg.KernelDataSize,
		GPIOBase: cfg.GPIOBase, GPIOSize: cfg.GPIOSize,
		PeriphBase: cfg.PeriphBase, PeriphSize: cfg.PeriphSize,
	}
	shared := kernel.Range{Base: cfg.SharedCodeBase, Size: cfg.SharedCodeSize}
	sharedData := kernel.Range{Base: cfg.SharedDataBase, Size: cfg.SharedDataSize}

	k := kernel.NewKernel(mem, layout, shared, sharedData, cfg.EnableStackDump, tr)

	uart := board.NewUART(64, os.Stdin, os.Stderr)
	k.ResetHook(func() {
		fmt.Fprintf(os.Stderr, "\n*** DEVICE RESET ***\n")
		os.Exit(1)
	})

	if err := setupTerminal(); err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up terminal: %v\n", err)
		os.Exit(1)
	}
	defer restoreTerminal()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		restoreTerminal()
		os.Exit(130)
	}()

	uart.StartIO()

	startTime := time.Now()
	k.Boot(images)
	switches := runLoop(k, *maxSwitches)
	elapsed := time.Since(startTime)

	restoreTerminal()

	fmt.Fprintf(os.Stderr, "\n========================================\n")
	fmt.Fprintf(os.Stderr, "Execution completed\n")
	fmt.Fprintf(os.Stderr, "Switches: %d\n", switches)
	fmt.Fprintf(os.Stderr, "Time: %v\n", elapsed.Round(time.Millisecond))
}

// runLoop yields the running task repeatedly until maxSwitches is
// reached (0 = unlimited) or the scheduler runs out of ready tasks.
// A real build drives this loop from the idle task and from interrupt
// handlers instead of a host for-loop.
func runLoop(k *kernel.Kernel, maxSwitches uint64) uint64 {
	var n uint64
	for {
		if maxSwitches > 0 && n >= maxSwitches {
			return n
		}
		if k.ActiveApp() == nil || k.Halted() {
			return n
		}
		k.Yield()
		n++
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -board board.yaml [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "armsim runs the microkernel's scheduler over the tasks named\n")
	fmt.Fprintf(os.Stderr, "in a board configuration, with the simulated UART connected\n")
	fmt.Fprintf(os.Stderr, "to the host terminal.\n\n")
	flag.PrintDefaults()
}
