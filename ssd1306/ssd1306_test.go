// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/GermanBionicSystems/oledi2c/busywait"
	"github.com/GermanBionicSystems/oledi2c/dwi2c"
	"github.com/GermanBionicSystems/oledi2c/mmio/mmiotest"
	"github.com/GermanBionicSystems/oledi2c/ssd1306/ssd1306test"
)

const addr = 0x3c

func newPlayback(t *testing.T, ops []i2ctest.IO) (*Dev, *i2ctest.Playback) {
	b := &i2ctest.Playback{Ops: ops, DontPanic: true}
	d, err := NewI2C(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	return d, b
}

func frameOps(control byte, payload ...byte) []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: addr, W: []byte{addr}},
		{Addr: addr, W: []byte{control}},
		{Addr: addr, W: payload},
	}
}

func TestNew(t *testing.T) {
	for _, opts := range []Opts{
		{W: 7},
		{W: 136},
		{H: 72},
		{H: 12},
		{ClearColumns: 200},
		{Addr: 0x80},
	} {
		if _, err := New(ssd1306test.NewPanel(addr), &opts); err == nil {
			t.Errorf("%+v: expected error", opts)
		}
	}
	d, err := New(ssd1306test.NewPanel(addr), &Opts{W: 64, H: 32})
	if err != nil {
		t.Fatal(err)
	}
	if got := d.Bounds(); got != image.Rect(0, 0, 64, 32) {
		t.Fatal(got)
	}
	if x, y := d.Size(); x != 64 || y != 32 {
		t.Fatal(x, y)
	}
	if s := d.String(); s != "ssd1306.Dev{ssd1306test.Panel, (64,32)}" {
		t.Fatal(s)
	}
}

func TestInitDisplay(t *testing.T) {
	want := []byte{
		0x00,
		0xAE, 0x40, 0xB0, 0xC8, 0x81, 0xFF, 0xA1, 0xA6, 0xA8, 0x1F, 0xD3, 0x00,
		0xD5, 0xF0, 0xD9, 0x22, 0xDA, 0x02, 0xDB, 0x49, 0x8D, 0x14, 0xAF,
	}
	d, b := newPlayback(t, []i2ctest.IO{{Addr: addr, W: want}})
	if err := d.InitDisplay(); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSendCommand(t *testing.T) {
	ops := append(frameOps(i2cCmd, 0x81, 0x10), frameOps(i2cData, 0x01, 0x02, 0x03)...)
	d, b := newPlayback(t, ops)
	if err := d.SendCommand([]byte{0x81, 0x10}); err != nil {
		t.Fatal(err)
	}
	if err := d.SendData([]byte{0x01, 0x02, 0x03}); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDisplayText(t *testing.T) {
	d, b := newPlayback(t, []i2ctest.IO{{Addr: addr, W: []byte{0x40, 0x48, 0x69}}})
	if err := d.DisplayText("Hi"); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDisplayText_Bounds(t *testing.T) {
	long := strings.Repeat("x", MaxText)
	d, b := newPlayback(t, []i2ctest.IO{{Addr: addr, W: append([]byte{0x40}, long...)}})
	if err := d.DisplayText(long); err != nil {
		t.Fatal(err)
	}
	if err := d.DisplayText(long + "x"); !errors.Is(err, ErrTextTooLong) {
		t.Fatalf("got %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func clearOps() []i2ctest.IO {
	ops := []i2ctest.IO{
		{Addr: addr, W: []byte{0x00, 0x20, 0x00, 0x21, 0x00, 0x7F, 0x22, 0x00, 0x07}},
		{Addr: addr, W: []byte{0x40}},
	}
	for i := 0; i < 8*64; i++ {
		ops = append(ops, i2ctest.IO{Addr: addr, W: []byte{0xFF}})
	}
	return ops
}

func TestClear(t *testing.T) {
	d, b := newPlayback(t, clearOps())
	if err := d.Clear(); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestClear_StopsOnError(t *testing.T) {
	p := ssd1306test.NewPanel(addr)
	s := mmiotest.Sim{Transaction: p.Transaction, Abort: mmiotest.AbortAt(20, 21, 22)}
	bus, err := dwi2c.New(&s, &dwi2c.Opts{Delay: busywait.None})
	if err != nil {
		t.Fatal(err)
	}
	bus.Init()
	d, err := NewI2C(bus, nil)
	if err != nil {
		t.Fatal(err)
	}
	// Words 0-8 are the window, 9 selects data, 10-19 are blanks.
	err = d.Clear()
	if !errors.Is(err, dwi2c.RetriesExhausted) {
		t.Fatalf("got %v", err)
	}
	if got := len(s.Words()); got != 23 {
		t.Fatalf("%d words", got)
	}
	if got := p.Page(0)[:12]; !bytes.Equal(got, append(bytes.Repeat([]byte{0xFF}, 10), 0, 0)) {
		t.Fatalf("got %v", got)
	}
}

func TestHalt(t *testing.T) {
	ops := frameOps(i2cCmd, 0xAE)
	ops = append(ops, frameOps(i2cCmd, 0xAF)...)
	ops = append(ops, frameOps(i2cData, 0x55)...)
	ops = append(ops, frameOps(i2cCmd, 0xA7)...)
	ops = append(ops, frameOps(i2cCmd, 0x81, 0x20)...)
	d, b := newPlayback(t, ops)
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if err := d.SendData([]byte{0x55}); err != nil {
		t.Fatal(err)
	}
	if err := d.Invert(true); err != nil {
		t.Fatal(err)
	}
	if err := d.SetContrast(0x20); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestHalt_Clear(t *testing.T) {
	ops := frameOps(i2cCmd, 0xAE)
	ops = append(ops, i2ctest.IO{Addr: addr, W: []byte{0x00, 0xAF, 0x20, 0x00, 0x21, 0x00, 0x7F, 0x22, 0x00, 0x07}})
	ops = append(ops, clearOps()[1:]...)
	ops = append(ops, frameOps(i2cCmd, 0xA6)...)
	d, b := newPlayback(t, ops)
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if err := d.Clear(); err != nil {
		t.Fatal(err)
	}
	// The display is on again, no 0xAF prefix.
	if err := d.Invert(false); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestHalt_DisplayText(t *testing.T) {
	ops := frameOps(i2cCmd, 0xAE)
	ops = append(ops, frameOps(i2cCmd, 0xAF)...)
	ops = append(ops, i2ctest.IO{Addr: addr, W: []byte{0x40, 0x48, 0x69}})
	d, b := newPlayback(t, ops)
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if err := d.DisplayText("Hi"); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestHalt_Panel(t *testing.T) {
	p := ssd1306test.NewPanel(addr)
	d, err := New(p, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.InitDisplay(); err != nil {
		t.Fatal(err)
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if p.State().On {
		t.Fatal("display still on after Halt")
	}
	if err := d.Clear(); err != nil {
		t.Fatal(err)
	}
	if !p.State().On {
		t.Fatal("Clear did not turn the display back on")
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if err := d.DisplayText("Hi"); err != nil {
		t.Fatal(err)
	}
	if !p.State().On || d.halted {
		t.Fatal("DisplayText did not turn the display back on")
	}
}

func TestDraw(t *testing.T) {
	p := ssd1306test.NewPanel(addr)
	d, err := New(p, nil)
	if err != nil {
		t.Fatal(err)
	}
	img := image1bit.NewVerticalLSB(d.Bounds())
	img.SetBit(3, 9, image1bit.On)
	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	// Full redraw: one command and one data frame per page.
	if got := p.State().Transactions; got != 8*6 {
		t.Fatalf("%d transactions", got)
	}
	if !p.Pixel(3, 9) || p.Pixel(3, 8) {
		t.Fatal("pixel not drawn")
	}

	// Same image: nothing sent.
	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	if got := p.State().Transactions; got != 8*6 {
		t.Fatalf("%d transactions", got)
	}

	// One pixel on page 5.
	img.SetBit(100, 42, image1bit.On)
	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	if got := p.State().Transactions; got != 8*6+6 {
		t.Fatalf("%d transactions", got)
	}
	if !p.Pixel(100, 42) {
		t.Fatal("pixel not drawn")
	}
	if diff := cmp.Diff(img.Pix, p.GDDRAM()); diff != "" {
		t.Fatalf("GDDRAM (-want +got):\n%s", diff)
	}
}

func TestWrite(t *testing.T) {
	p := ssd1306test.NewPanel(addr)
	d, _ := New(p, &Opts{W: 128, H: 32})
	if _, err := d.Write(make([]byte, 10)); err == nil {
		t.Fatal("expected error")
	}
	pix := bytes.Repeat([]byte{0xA5}, 128*4)
	n, err := d.Write(pix)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(pix) {
		t.Fatal(n)
	}
	if !bytes.Equal(p.Page(3), pix[:128]) {
		t.Fatal("page 3 not written")
	}
}

func TestDisplayer(t *testing.T) {
	p := ssd1306test.NewPanel(addr)
	d, _ := New(p, nil)
	d.SetPixel(10, 20, color.RGBA{255, 255, 255, 255})
	d.SetPixel(11, 20, color.RGBA{0, 0, 0, 255})
	if err := d.Display(); err != nil {
		t.Fatal(err)
	}
	if !p.Pixel(10, 20) || p.Pixel(11, 20) {
		t.Fatal("unexpected pixels")
	}
}

func TestDrawString(t *testing.T) {
	p := ssd1306test.NewPanel(addr)
	d, _ := New(p, nil)
	if err := d.DrawString("Hi\nHi"); err != nil {
		t.Fatal(err)
	}
	lit := func(y0, y1 int) bool {
		for y := y0; y < y1; y++ {
			for x := 0; x < 14; x++ {
				if p.Pixel(x, y) {
					return true
				}
			}
		}
		return false
	}
	if !lit(0, 13) || !lit(13, 26) {
		t.Fatal("text not rendered")
	}
	if lit(26, 64) {
		t.Fatal("unexpected pixels below the text")
	}
}

func TestEndToEnd(t *testing.T) {
	panel := ssd1306test.NewPanel(addr)
	s := mmiotest.Sim{Transaction: panel.Transaction}
	bus, err := dwi2c.New(&s, &dwi2c.Opts{Delay: busywait.None})
	if err != nil {
		t.Fatal(err)
	}
	bus.Init()
	d, err := NewI2C(bus, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.InitDisplay(); err != nil {
		t.Fatal(err)
	}
	st := panel.State()
	if !st.On || st.Contrast != 0xFF || st.Multiplex != 0x1F || !st.ChargePump || len(st.Unknown) != 0 {
		t.Fatalf("%+v", st)
	}

	s.Reset()
	if err := d.Clear(); err != nil {
		t.Fatal(err)
	}
	blanks := 0
	for _, w := range s.Words() {
		if w == 0x2FF {
			blanks++
		}
	}
	if blanks != 8*64 {
		t.Fatalf("%d blank bytes", blanks)
	}
	for page := 0; page < 4; page++ {
		if !bytes.Equal(panel.Page(page), bytes.Repeat([]byte{0xFF}, 128)) {
			t.Fatalf("page %d not blanked", page)
		}
	}

	if err := d.DisplayText("Hi"); err != nil {
		t.Fatal(err)
	}
	if got := panel.Page(4)[:2]; !bytes.Equal(got, []byte("Hi")) {
		t.Fatalf("got %v", got)
	}
}
