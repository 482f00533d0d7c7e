// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dwi2c

import (
	"io"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"

	"github.com/GermanBionicSystems/oledi2c/mmio"
)

// Opener returns the register file of a controller.
type Opener func() (mmio.Registers, error)

// MapRegisters returns an Opener mapping the controller at the physical
// address base.
func MapRegisters(base uint64) Opener {
	return func() (mmio.Registers, error) {
		return mmio.Map(base)
	}
}

// Register makes the controller available through i2creg under name.
//
// Opening the bus opens the register file and initializes the controller.
// Closing the bus disables it.
func Register(name string, number int, open Opener, opts *Opts) error {
	return i2creg.Register(name, nil, number, func() (i2c.BusCloser, error) {
		r, err := open()
		if err != nil {
			return nil, err
		}
		d, err := New(r, opts)
		if err != nil {
			if c, ok := r.(io.Closer); ok {
				_ = c.Close()
			}
			return nil, err
		}
		d.name = name
		d.Init()
		return d, nil
	})
}
