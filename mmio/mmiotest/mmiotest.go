// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mmiotest is meant to be used to test drivers over a simulated
// controller register file.
package mmiotest

import (
	"sync"

	"github.com/GermanBionicSystems/oledi2c/mmio"
)

// Controller bits the simulator reacts to.
const (
	StopBit  = 1 << 9 // mmio.DataCmd
	AbortBit = 1 << 9 // mmio.RawIntrStat
	TFNFBit  = 1 << 1 // mmio.Status
)

// Op is one register write.
type Op struct {
	Reg   mmio.Reg
	Value uint32
}

// Sim implements mmio.Registers. It behaves like an idle controller whose
// transmit FIFO never fills and whose transfers never abort, unless told
// otherwise.
//
// All fields must be set before first use.
type Sim struct {
	// FullPolls is the number of upcoming Status reads that report the
	// transmit FIFO as full. It is decremented by each such read.
	FullPolls int
	// Abort, if set, is called for every word written to DataCmd with the
	// zero based count of words written so far. Returning true raises
	// TX_ABRT until the next DataCmd write.
	Abort func(n int, word uint32) bool
	// Transaction, if set, is called with the bytes of every transfer
	// terminated by a STOP that was not aborted.
	Transaction func(w []byte)

	mu      sync.Mutex
	regs    map[mmio.Reg]uint32
	ops     []Op
	words   []uint32
	polls   int
	aborted bool
	pending []byte
}

// Read implements mmio.Registers.
func (s *Sim) Read(r mmio.Reg) uint32 {
	r.Check()
	s.mu.Lock()
	defer s.mu.Unlock()
	switch r {
	case mmio.Status:
		s.polls++
		if s.FullPolls > 0 {
			s.FullPolls--
			return 0
		}
		return TFNFBit
	case mmio.RawIntrStat:
		if s.aborted {
			return AbortBit
		}
		return 0
	}
	return s.regs[r]
}

// Write implements mmio.Registers.
func (s *Sim) Write(r mmio.Reg, v uint32) {
	r.Check()
	s.mu.Lock()
	if s.regs == nil {
		s.regs = map[mmio.Reg]uint32{}
	}
	s.regs[r] = v
	s.ops = append(s.ops, Op{Reg: r, Value: v})
	var done []byte
	if r == mmio.DataCmd {
		n := len(s.words)
		s.words = append(s.words, v)
		s.aborted = s.Abort != nil && s.Abort(n, v)
		if s.aborted {
			// The controller flushes its FIFO on abort.
			s.pending = nil
		} else {
			s.pending = append(s.pending, byte(v))
			if v&StopBit != 0 {
				done, s.pending = s.pending, nil
			}
		}
	}
	cb := s.Transaction
	s.mu.Unlock()
	if done != nil && cb != nil {
		cb(done)
	}
}

// Value returns the last value written to r.
func (s *Sim) Value(r mmio.Reg) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[r]
}

// Ops returns every register write in order.
func (s *Sim) Ops() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Op(nil), s.ops...)
}

// Words returns every word written to DataCmd in order, including the ones
// that aborted.
func (s *Sim) Words() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint32(nil), s.words...)
}

// Polls returns the number of Status reads.
func (s *Sim) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

// Reset forgets recorded operations. Scripted faults are kept.
func (s *Sim) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = nil
	s.words = nil
	s.polls = 0
	s.aborted = false
	s.pending = nil
}

// AbortAt returns an Abort func that aborts the given word indexes.
func AbortAt(n ...int) func(int, uint32) bool {
	m := make(map[int]bool, len(n))
	for _, i := range n {
		m[i] = true
	}
	return func(i int, _ uint32) bool { return m[i] }
}

var _ mmio.Registers = &Sim{}
