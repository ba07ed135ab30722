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

import "time"

// Timer is a periodic tick source standing in for the device's system
// timer peripheral (SysTick on a real Cortex-M3). The kernel core does
// not depend on it directly — the core scheduler is cooperative — but
// an embedder can pass Kernel.Yield to Start as the fire callback to get
// preemptive ticks.
type Timer struct {
	period time.Duration
	stop   chan struct{}
}

// NewTimer creates a Timer that has not yet started.
func NewTimer(period time.Duration) *Timer {
	return &Timer{period: period}
}

// Start calls fire once per period until Stop is called.
func (t *Timer) Start(fire func()) {
	t.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(t.period)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fire()
			case <-t.stop:
				return
			}
		}
	}()
}

// Stop halts the timer. Safe to call once after Start.
func (t *Timer) Stop() {
	if t.stop != nil {
		close(t.stop)
	}
}
