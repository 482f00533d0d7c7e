// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package oledi2c is a container for the packages driving a SSD1306 OLED
// through a memory-mapped I²C master controller.
//
// The layers, bottom up:
//
//	mmio      register file access (physical memory or mmiotest.Sim)
//	busywait  pacing delays
//	dwi2c     I²C master: init, FIFO backoff and per byte retry
//	ssd1306   display command protocol and drawing
package oledi2c
