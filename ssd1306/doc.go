// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ssd1306 controls a monochrome OLED display via a SSD1306
// controller over I²C.
//
// Every command or data stream is framed as three bus writes: the display
// address byte, the control byte (0x00 for commands, 0x40 for data), then the
// payload. The power-on script and the text path fold the control byte into
// the payload and use a single write instead.
//
// The driver keeps no knowledge of the controller state besides whether it
// was halted and what it last drew; it cannot read anything back.
//
// Draw and Write do differential updates: they only send modified pixels for
// the smallest rectangle, to economize bus bandwidth.
//
// # More details
//
// See https://periph.io/device/ssd1306/ for more details about the device.
//
// # Datasheets
//
// https://cdn-shop.adafruit.com/datasheets/SSD1306.pdf
package ssd1306
