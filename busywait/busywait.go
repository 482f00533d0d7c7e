// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package busywait provides pacing delays for register level drivers.
//
// A Delayer only promises to block for a duration that grows with its
// argument. Spin burns CPU and has no relation to wall clock time; it must
// not be used where a real deadline matters.
package busywait

import (
	"sync/atomic"
	"time"
)

// Delayer blocks the calling goroutine for n units.
type Delayer interface {
	Delay(n int)
}

// Spin is a Delayer that performs Spin iterations of CPU bound work per
// unit.
type Spin uint

// DefaultSpin is the number of iterations per unit used by drivers that do
// not specify one.
const DefaultSpin Spin = 100000

// sink keeps the loop result alive so the loop is not optimized away.
var sink uint32

// Delay implements Delayer. It is safe for concurrent use.
func (s Spin) Delay(n int) {
	if n <= 0 {
		return
	}
	x := uint32(n)
	for i := uint64(0); i < uint64(n)*uint64(s); i++ {
		x = x*1664525 + 1013904223
	}
	atomic.StoreUint32(&sink, x)
}

// Sleep is a Delayer that sleeps for Sleep per unit.
type Sleep time.Duration

// Delay implements Delayer.
func (s Sleep) Delay(n int) {
	if n <= 0 {
		return
	}
	time.Sleep(time.Duration(n) * time.Duration(s))
}

// Func adapts a function to a Delayer.
type Func func(n int)

// Delay implements Delayer.
func (f Func) Delay(n int) {
	f(n)
}

// None is a Delayer that returns immediately.
var None Delayer = Func(func(int) {})

var (
	_ Delayer = Spin(0)
	_ Delayer = Sleep(0)
)
