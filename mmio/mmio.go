// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mmio

import (
	"fmt"
	"sync/atomic"

	"periph.io/x/host/v3/pmem"
)

// Reg is the byte offset of a controller register from the base address.
type Reg uint32

// Controller registers.
const (
	Con         Reg = 0x00   // Master mode, address width, speed.
	Tar         Reg = 0x04   // Target address.
	DataCmd     Reg = 0x10   // TX FIFO entry: data byte plus STOP (bit 9).
	RawIntrStat Reg = 0x34   // Raw interrupt status; bit 9 is TX_ABRT.
	Enable      Reg = 0x6C   // 1 enables the controller.
	Status      Reg = 0x70   // Bit 1 is TFNF, transmit FIFO not full.
	FuncSel     Reg = 0x1000 // Pin function select (MIO).
)

// Size is the number of bytes spanned by the register file.
const Size = int(FuncSel) + 4

// DefaultBase is the physical address of the controller on the reference
// board.
const DefaultBase uint64 = 0x2801_6000

var names = map[Reg]string{
	Con:         "IC_CON",
	Tar:         "IC_TAR",
	DataCmd:     "IC_DATA_CMD",
	RawIntrStat: "IC_RAW_INTR_STAT",
	Enable:      "IC_ENABLE",
	Status:      "IC_STATUS",
	FuncSel:     "CREG_MIO_FUNC_SEL",
}

func (r Reg) String() string {
	if n, ok := names[r]; ok {
		return n
	}
	return fmt.Sprintf("Reg(0x%X)", uint32(r))
}

// Valid reports whether r is one of the known registers.
func (r Reg) Valid() bool {
	_, ok := names[r]
	return ok
}

// Check panics if r is not one of the known registers.
func (r Reg) Check() {
	if !r.Valid() {
		panic(fmt.Sprintf("mmio: invalid register offset 0x%X", uint32(r)))
	}
}

// Registers is the register file of one controller.
//
// Implementations must not reorder accesses.
type Registers interface {
	Read(r Reg) uint32
	Write(r Reg, v uint32)
}

// block overlays the mapped register file.
type block [Size / 4]uint32

// Mem is a Registers backed by physical memory.
type Mem struct {
	base uint64
	view *pmem.View
	b    *block
}

// Map maps the register file located at the physical address base.
//
// Call Close to release the mapping.
func Map(base uint64) (*Mem, error) {
	v, err := pmem.Map(base, Size)
	if err != nil {
		return nil, fmt.Errorf("mmio: failed to map 0x%X: %w", base, err)
	}
	m := &Mem{base: base, view: v}
	if err := v.AsPOD(&m.b); err != nil {
		_ = v.Close()
		return nil, fmt.Errorf("mmio: failed to map 0x%X: %w", base, err)
	}
	return m, nil
}

func (m *Mem) String() string {
	return fmt.Sprintf("mmio.Mem{0x%X}", m.base)
}

// Read implements Registers.
func (m *Mem) Read(r Reg) uint32 {
	r.Check()
	return atomic.LoadUint32(&m.b[r/4])
}

// Write implements Registers.
func (m *Mem) Write(r Reg, v uint32) {
	r.Check()
	atomic.StoreUint32(&m.b[r/4], v)
}

// Close unmaps the register file. The Mem must not be used afterward.
func (m *Mem) Close() error {
	m.b = nil
	return m.view.Close()
}

var _ Registers = &Mem{}
