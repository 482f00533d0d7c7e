// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ssd1306test emulates a SSD1306 controller for tests and local
// previews.
//
// Panel decodes the transactions a driver emits, keeps the resulting GDDRAM
// and display state, and can print it to a terminal using ANSI color codes.
package ssd1306test

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"sync"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3"
)

// Geometry of the GDDRAM.
const (
	Columns = 128
	Pages   = 8
)

// Addressing modes set by command 0x20.
const (
	Horizontal = 0
	Vertical   = 1
	PageMode   = 2
)

// Panel is an emulated SSD1306 behind an I²C controller.
//
// A single byte transaction holding the address byte announces a frame: the
// next single byte transaction is the control byte and the one after is the
// payload. A transaction starting with a control byte carries its own payload.
// Any other transaction continues the last selected stream.
type Panel struct {
	// Addr is the address byte that opens a frame.
	Addr byte
	// Palette renders lit pixels. Defaults to ansi256.Default.
	Palette *ansi256.Palette

	mu         sync.Mutex
	ram        [Pages * Columns]byte
	mode       byte
	afterAddr  bool
	payload    bool
	addrMode   byte
	col, page  int
	colStart   int
	colEnd     int
	pageStart  int
	pageEnd    int
	on         bool
	inverted   bool
	contrast   byte
	multiplex  byte
	chargePump bool
	unknown    []byte
	txs        int
}

// NewPanel returns a Panel in its reset state.
func NewPanel(addr byte) *Panel {
	p := &Panel{Addr: addr}
	p.Reset()
	return p
}

// Reset puts the panel in its reset state. GDDRAM content is kept.
func (p *Panel) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = 0x00
	p.afterAddr = false
	p.payload = false
	p.addrMode = PageMode
	p.col, p.page = 0, 0
	p.colStart, p.colEnd = 0, Columns-1
	p.pageStart, p.pageEnd = 0, Pages-1
	p.on = false
	p.inverted = false
	p.contrast = 0x7F
	p.multiplex = 0x3F
	p.chargePump = false
	p.unknown = nil
	p.txs = 0
}

func (p *Panel) String() string {
	return "ssd1306test.Panel"
}

// Tx implements conn.Conn. Reads are not supported.
func (p *Panel) Tx(w, r []byte) error {
	if len(r) != 0 {
		return fmt.Errorf("ssd1306test: read not supported")
	}
	p.Transaction(w)
	return nil
}

// Duplex implements conn.Conn.
func (p *Panel) Duplex() conn.Duplex {
	return conn.Half
}

// Transaction decodes one STOP terminated transfer. Its signature matches
// mmiotest.Sim.Transaction.
func (p *Panel) Transaction(w []byte) {
	if len(w) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txs++
	switch {
	case p.payload:
		p.payload = false
		p.stream(p.mode, w)
	case len(w) == 1 && w[0] == p.Addr:
		p.afterAddr = true
	case len(w) == 1 && isControl(w[0]):
		p.mode = w[0]
		p.payload = p.afterAddr
		p.afterAddr = false
	case isControl(w[0]):
		p.afterAddr = false
		p.mode = w[0]
		p.stream(p.mode, w[1:])
	default:
		p.afterAddr = false
		p.stream(p.mode, w)
	}
}

func isControl(b byte) bool {
	return b == 0x00 || b == 0x40
}

func (p *Panel) stream(mode byte, b []byte) {
	if mode == 0x40 {
		for _, v := range b {
			p.data(v)
		}
		return
	}
	for len(b) != 0 {
		b = b[p.command(b):]
	}
}

func (p *Panel) data(v byte) {
	p.ram[p.page*Columns+p.col] = v
	switch p.addrMode {
	case Horizontal:
		if p.col++; p.col > p.colEnd {
			p.col = p.colStart
			if p.page++; p.page > p.pageEnd {
				p.page = p.pageStart
			}
		}
	case Vertical:
		if p.page++; p.page > p.pageEnd {
			p.page = p.pageStart
			if p.col++; p.col > p.colEnd {
				p.col = p.colStart
			}
		}
	default:
		if p.col++; p.col >= Columns {
			p.col = 0
		}
	}
}

// command executes the command at the start of b and returns the number of
// bytes it used.
func (p *Panel) command(b []byte) int {
	c := b[0]
	arg := func(i int) byte {
		if i < len(b) {
			return b[i]
		}
		return 0
	}
	n := 1
	switch {
	case c <= 0x0F:
		p.col = p.col&0xF0 | int(c&0x0F)
	case c <= 0x1F:
		p.col = p.col&0x0F | int(c&0x07)<<4
	case c == 0x20:
		p.addrMode = arg(1) & 3
		n = 2
	case c == 0x21:
		p.colStart, p.colEnd = int(arg(1)&0x7F), int(arg(2)&0x7F)
		p.col = p.colStart
		n = 3
	case c == 0x22:
		p.pageStart, p.pageEnd = int(arg(1)&7), int(arg(2)&7)
		p.page = p.pageStart
		n = 3
	case c == 0x26 || c == 0x27:
		n = 7
	case c == 0x29 || c == 0x2A:
		n = 6
	case c == 0x2E || c == 0x2F:
	case c >= 0x40 && c <= 0x7F:
		// Start line.
	case c == 0x81:
		p.contrast = arg(1)
		n = 2
	case c == 0x8D:
		p.chargePump = arg(1)&0x04 != 0
		n = 2
	case c == 0xA0 || c == 0xA1 || c == 0xA4 || c == 0xA5:
	case c == 0xA6:
		p.inverted = false
	case c == 0xA7:
		p.inverted = true
	case c == 0xA8:
		p.multiplex = arg(1) & 0x3F
		n = 2
	case c == 0xAE:
		p.on = false
	case c == 0xAF:
		p.on = true
	case c >= 0xB0 && c <= 0xB7:
		p.page = int(c & 7)
	case c == 0xC0 || c == 0xC8:
	case c == 0xE3:
		// NOP.
	case c == 0xD3 || c == 0xD5 || c == 0xD9 || c == 0xDA || c == 0xDB:
		n = 2
	default:
		p.unknown = append(p.unknown, c)
	}
	if n > len(b) {
		n = len(b)
	}
	return n
}

// State is a snapshot of the controller state outside GDDRAM.
type State struct {
	On         bool
	Inverted   bool
	Contrast   byte
	Multiplex  byte
	ChargePump bool
	AddrMode   byte
	Col, Page  int
	// Unknown lists the command bytes that were not recognized.
	Unknown []byte
	// Transactions is the number of non empty transactions decoded.
	Transactions int
}

// State returns the controller state.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{
		On:           p.on,
		Inverted:     p.inverted,
		Contrast:     p.contrast,
		Multiplex:    p.multiplex,
		ChargePump:   p.chargePump,
		AddrMode:     p.addrMode,
		Col:          p.col,
		Page:         p.page,
		Unknown:      append([]byte(nil), p.unknown...),
		Transactions: p.txs,
	}
}

// GDDRAM returns a copy of the display RAM, page after page.
func (p *Panel) GDDRAM() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.ram[:]...)
}

// Page returns a copy of one page of display RAM.
func (p *Panel) Page(page int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.ram[page*Columns:(page+1)*Columns]...)
}

// Pixel reports whether the pixel at x, y is lit, ignoring inversion and
// power state.
func (p *Panel) Pixel(x, y int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ram[(y/8)*Columns+x]&(1<<uint(y&7)) != 0
}

// Render prints the first rows pixel rows of the panel to w, as the
// display would show them.
func (p *Panel) Render(w io.Writer, rows int) error {
	if rows <= 0 || rows > Pages*8 {
		rows = Pages * 8
	}
	pal := p.Palette
	if pal == nil {
		pal = ansi256.Default
	}
	lit := color.NRGBA{0x40, 0xC0, 0xFF, 0xFF}
	dark := color.NRGBA{0, 0, 0, 0xFF}
	p.mu.Lock()
	on, inverted := p.on, p.inverted
	ram := p.ram
	p.mu.Unlock()
	var buf bytes.Buffer
	for y := 0; y < rows; y++ {
		_, _ = buf.WriteString("\r\033[0m")
		for x := 0; x < Columns; x++ {
			v := ram[(y/8)*Columns+x]&(1<<uint(y&7)) != 0
			if inverted {
				v = !v
			}
			c := dark
			if on && v {
				c = lit
			}
			_, _ = io.WriteString(&buf, pal.Block(c))
		}
		_, _ = buf.WriteString("\033[0m\n")
	}
	_, err := buf.WriteTo(w)
	return err
}

// RenderStdout prints the panel on the console.
func (p *Panel) RenderStdout(rows int) error {
	return p.Render(colorable.NewColorableStdout(), rows)
}

var _ conn.Conn = &Panel{}
