// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mmio gives access to the register file of a memory-mapped I²C
// master controller.
//
// Only the registers the driver needs are addressable. Each one is a 32 bit
// word at a fixed byte offset from the controller base address. Accessing any
// other offset is a programming error and panics.
//
// On hardware the register file is mapped from physical memory via
// periph.io/x/host/v3/pmem, which requires root on Linux. Tests use
// mmiotest.Sim instead.
package mmio
