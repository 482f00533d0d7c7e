// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dwi2c drives a memory-mapped DesignWare style I²C master
// controller in write-only, 7 bit address mode.
//
// The controller is programmed with a single target address at Init. Each
// call to Write is one transfer: every byte is pushed through the transmit
// FIFO and the last one carries the STOP flag. A byte whose transfer aborts
// (NACK, lost arbitration) is retried; a full FIFO is waited on for a bounded
// number of polls. Both failures draw from the same per byte retry budget.
//
// Dev also implements i2c.BusCloser so it can be used with i2c.Dev and
// registered in i2creg, as long as transactions are write-only and addressed
// to the configured target.
//
// Timing is iteration bound. Pacing between register writes is done with a
// busywait.Delayer, which tests replace with busywait.None.
//
// # Datasheets
//
// https://www.synopsys.com/dw/ipdir.php?c=DW_apb_i2c
package dwi2c
