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

package board

import "sync"

// GPIO is a simulated bank of 32 pins, mapped into MPU region 2 on a
// real device and modelled here as plain state a test can assert on.
type GPIO struct {
	mu  sync.Mutex
	dir uint32 // 1 = output
	out uint32
	in  uint32
}

// SetDirection sets pin as output (true) or input (false).
func (g *GPIO) SetDirection(pin uint, output bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if output {
		g.dir |= 1 << pin
	} else {
		g.dir &^= 1 << pin
	}
}

// Write sets an output pin's level. It is a no-op on an input pin.
func (g *GPIO) Write(pin uint, high bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dir&(1<<pin) == 0 {
		return
	}
	if high {
		g.out |= 1 << pin
	} else {
		g.out &^= 1 << pin
	}
}

// Read returns an input pin's current level, or the last written value
// if the pin is configured as output (read-back).
func (g *GPIO) Read(pin uint) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dir&(1<<pin) != 0 {
		return g.out&(1<<pin) != 0
	}
	return g.in&(1<<pin) != 0
}

// Drive sets an input pin's level, as a test harness simulating an
// external signal would.
func (g *GPIO) Drive(pin uint, high bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if high {
		g.in |= 1 << pin
	} else {
		g.in &^= 1 << pin
	}
}
