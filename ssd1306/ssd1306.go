// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1306

// https://learn.adafruit.com/ssd1306-oled-displays-with-raspberry-pi-and-beaglebone-black?view=all

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"tinygo.org/x/drivers"
)

const (
	_CHARGEPUMP         = 0x8D
	_COLUMNADDR         = 0x21
	_COMSCANDEC         = 0xC8
	_DISPLAYOFF         = 0xAE
	_DISPLAYON          = 0xAF
	_INVERTDISPLAY      = 0xA7
	_MEMORYMODE         = 0x20
	_NORMALDISPLAY      = 0xA6
	_PAGEADDR           = 0x22
	_PAGESTARTADDRESS   = 0xB0
	_SETCOMPINS         = 0xDA
	_SETCONTRAST        = 0x81
	_SETDISPLAYCLOCKDIV = 0xD5
	_SETDISPLAYOFFSET   = 0xD3
	_SETHIGHCOLUMN      = 0x10
	_SETLOWCOLUMN       = 0x00
	_SETMULTIPLEX       = 0xA8
	_SETPRECHARGE       = 0xD9
	_SETSEGMENTREMAP    = 0xA1
	_SETSTARTLINE       = 0x40
	_SETVCOMDETECT      = 0xDB
)

const (
	i2cCmd  = 0x00 // I²C transaction has stream of command bytes
	i2cData = 0x40 // I²C transaction has stream of data bytes
)

// blank is the value written to every GDDRAM cell by Clear.
const blank = 0xFF

// MaxText is the longest text accepted by DisplayText.
const MaxText = 1024

// ErrTextTooLong is returned by DisplayText for text longer than MaxText.
var ErrTextTooLong = errors.New("ssd1306: text too long")

// initScript is the power-on sequence of the 0.91" 128x32 module.
var initScript = []byte{
	// Display off.
	_DISPLAYOFF,
	// Start line 0.
	_SETSTARTLINE,
	// Page 0.
	_PAGESTARTADDRESS,
	// COM scan remapped.
	_COMSCANDEC,
	// Max contrast.
	_SETCONTRAST, 0xFF,
	// Column 127 mapped to SEG0.
	_SETSEGMENTREMAP,
	// 1 is lit.
	_NORMALDISPLAY,
	// 32 lines.
	_SETMULTIPLEX, 0x1F,
	// No vertical shift.
	_SETDISPLAYOFFSET, 0x00,
	// Max oscillator frequency, divide ratio 1.
	_SETDISPLAYCLOCKDIV, 0xF0,
	// Reset value.
	_SETPRECHARGE, 0x22,
	// Sequential COM pins.
	_SETCOMPINS, 0x02,
	// Vcomh deselect level.
	_SETVCOMDETECT, 0x49,
	// Enable charge pump regulator; page 62.
	_CHARGEPUMP, 0x14,
	// Display on.
	_DISPLAYON,
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	W:            128,
	H:            64,
	ClearColumns: 64,
	Addr:         0x3c,
}

// Opts defines the options for the device.
type Opts struct {
	// W and H are the addressable GDDRAM area. Clear sets the column and page
	// window to it.
	W int
	H int
	// ClearColumns is the number of columns blanked on each page by Clear.
	ClearColumns int
	// The I2C address of the display. It is also the first byte of every
	// command and data frame.
	Addr uint16
	// Logger receives diagnostics. Defaults to logrus.StandardLogger().
	Logger logrus.FieldLogger
}

// NewI2C returns a Dev object that communicates over I²C to a SSD1306 display
// controller.
//
// It doesn't talk to the display; call InitDisplay first.
func NewI2C(b i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	addr := opts.Addr
	if addr == 0x00 {
		addr = DefaultOpts.Addr
	}
	return New(&i2c.Dev{Bus: b, Addr: addr}, opts)
}

// New returns a Dev object that sends every frame as one transaction on c.
func New(c conn.Conn, opts *Opts) (*Dev, error) {
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	if o.W == 0 {
		o.W = DefaultOpts.W
	}
	if o.H == 0 {
		o.H = DefaultOpts.H
	}
	if o.ClearColumns == 0 {
		o.ClearColumns = DefaultOpts.ClearColumns
	}
	if o.Addr == 0 {
		o.Addr = DefaultOpts.Addr
	}
	if o.Addr > 0x7F {
		return nil, fmt.Errorf("ssd1306: invalid 7 bit address 0x%X", o.Addr)
	}
	if o.W < 8 || o.W > 128 || o.W&7 != 0 {
		return nil, fmt.Errorf("ssd1306: invalid width %d", o.W)
	}
	if o.H < 8 || o.H > 64 || o.H&7 != 0 {
		return nil, fmt.Errorf("ssd1306: invalid height %d", o.H)
	}
	if o.ClearColumns < 0 || o.ClearColumns > o.W {
		return nil, fmt.Errorf("ssd1306: invalid clear width %d", o.ClearColumns)
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	nbPages := o.H / 8
	return &Dev{
		c:      c,
		opts:   o,
		log:    o.Logger.WithField("dev", "ssd1306"),
		rect:   image.Rect(0, 0, o.W, o.H),
		buffer: make([]byte, nbPages*o.W),
		// Signal that the screen must be redrawn on first draw().
		dirty: true,
	}, nil
}

// Dev is an open handle to the display controller.
type Dev struct {
	c    conn.Conn
	opts Opts
	log  logrus.FieldLogger

	rect image.Rectangle

	// Mutable
	// There is one page per 8 pixels high band, each W bytes wide.
	buffer []byte
	// next is lazy initialized on first Draw() or SetPixel().
	next *image1bit.VerticalLSB
	// dirty forces a full redraw, after anything but Draw() wrote GDDRAM.
	dirty  bool
	halted bool
}

func (d *Dev) String() string {
	return fmt.Sprintf("ssd1306.Dev{%s, %s}", d.c, d.rect.Max)
}

// ColorModel implements display.Drawer.
//
// It is a one bit color model, as implemented by image1bit.Bit.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer. Min is guaranteed to be {0, 0}.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// InitDisplay sends the power-on script as a single command transaction.
func (d *Dev) InitDisplay() error {
	if err := d.c.Tx(append([]byte{i2cCmd}, initScript...), nil); err != nil {
		return err
	}
	d.halted = false
	d.dirty = true
	d.log.Debug("SSD1306 initialization commands sent")
	return nil
}

// Clear sets the addressing window to the whole display and blanks
// ClearColumns bytes of every page, one transaction per byte.
//
// It stops at the first failed transaction.
func (d *Dev) Clear() error {
	pages := d.rect.Dy() / 8
	window := []byte{i2cCmd}
	if d.halted {
		window = append(window, _DISPLAYON)
	}
	window = append(window,
		_MEMORYMODE, 0x00, // Horizontal addressing
		_COLUMNADDR, 0, byte(d.rect.Dx()-1),
		_PAGEADDR, 0, byte(pages-1),
	)
	if err := d.c.Tx(window, nil); err != nil {
		return err
	}
	d.halted = false
	if err := d.c.Tx([]byte{i2cData}, nil); err != nil {
		return err
	}
	b := []byte{blank}
	for page := 0; page < pages; page++ {
		for col := 0; col < d.opts.ClearColumns; col++ {
			if err := d.c.Tx(b, nil); err != nil {
				return fmt.Errorf("ssd1306: clear stopped at page %d column %d: %w", page, col, err)
			}
		}
	}
	d.dirty = true
	d.log.Debug("SSD1306 clear oled")
	return nil
}

// DisplayText sends the raw bytes of text as one data transaction, at the
// current GDDRAM position.
func (d *Dev) DisplayText(text string) error {
	if len(text) > MaxText {
		return fmt.Errorf("%w: %d bytes, max %d", ErrTextTooLong, len(text), MaxText)
	}
	if d.halted {
		if err := d.SendCommand(nil); err != nil {
			return err
		}
	}
	buf := make([]byte, 0, len(text)+1)
	buf = append(buf, i2cData)
	buf = append(buf, text...)
	if err := d.c.Tx(buf, nil); err != nil {
		return err
	}
	d.dirty = true
	return nil
}

// SendCommand sends cmd as a command frame.
func (d *Dev) SendCommand(cmd []byte) error {
	if d.halted {
		// Transparently enable the display.
		cmd = append([]byte{_DISPLAYON}, cmd...)
		d.halted = false
	}
	return d.frame(i2cCmd, cmd)
}

// SendData sends data as a data frame.
func (d *Dev) SendData(data []byte) error {
	if d.halted {
		// Transparently enable the display.
		if err := d.SendCommand(nil); err != nil {
			return err
		}
	}
	return d.frame(i2cData, data)
}

// frame writes the address byte, the control byte and the payload as three
// transactions.
func (d *Dev) frame(control byte, payload []byte) error {
	if err := d.c.Tx([]byte{byte(d.opts.Addr)}, nil); err != nil {
		return err
	}
	if err := d.c.Tx([]byte{control}, nil); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	return d.c.Tx(payload, nil)
}

// Draw implements display.Drawer.
//
// It draws synchronously, once this function returns, the display is updated.
// It means that on slow bus (I²C), it may be preferable to defer Draw() calls
// to a background goroutine.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	var next []byte
	if img, ok := src.(*image1bit.VerticalLSB); ok && r == d.rect && img.Rect == d.rect && sp.X == 0 && sp.Y == 0 {
		// Exact size, full frame, image1bit encoding: fast path!
		next = img.Pix
	} else {
		// Double buffering.
		if d.next == nil {
			d.next = image1bit.NewVerticalLSB(d.rect)
		}
		next = d.next.Pix
		draw.Src.Draw(d.next, r, src, sp)
	}
	return d.drawInternal(next)
}

// Write writes a buffer of pixels to the display.
//
// The format is unsual as each byte represent 8 vertical pixels at a time. The
// format is horizontal bands of 8 pixels high.
//
// This function accepts the content of image1bit.VerticalLSB.Pix.
func (d *Dev) Write(pixels []byte) (int, error) {
	if len(pixels) != len(d.buffer) {
		return 0, fmt.Errorf("ssd1306: invalid pixel stream length; expected %d bytes, got %d bytes", len(d.buffer), len(pixels))
	}
	if err := d.drawInternal(pixels); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// DrawString renders text with a 7x13 font, one line per '\n', and draws it
// over the whole display.
func (d *Dev) DrawString(text string) error {
	img := image1bit.NewVerticalLSB(d.rect)
	f := basicfont.Face7x13
	drawer := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: image1bit.On},
		Face: f,
	}
	for i, line := range strings.Split(text, "\n") {
		drawer.Dot = fixed.P(0, (i+1)*f.Height-f.Descent)
		drawer.DrawString(line)
	}
	return d.Draw(d.rect, img, image.Point{})
}

// Size implements drivers.Displayer.
func (d *Dev) Size() (int16, int16) {
	return int16(d.rect.Dx()), int16(d.rect.Dy())
}

// SetPixel implements drivers.Displayer. The pixel is sent on the next
// Display().
func (d *Dev) SetPixel(x, y int16, c color.RGBA) {
	if d.next == nil {
		d.next = image1bit.NewVerticalLSB(d.rect)
	}
	d.next.SetBit(int(x), int(y), image1bit.BitModel.Convert(c).(image1bit.Bit))
}

// Display implements drivers.Displayer.
func (d *Dev) Display() error {
	if d.next == nil {
		d.next = image1bit.NewVerticalLSB(d.rect)
	}
	return d.drawInternal(d.next.Pix)
}

// SetContrast changes the screen contrast.
func (d *Dev) SetContrast(level byte) error {
	return d.SendCommand([]byte{_SETCONTRAST, level})
}

// Halt turns off the display.
//
// Sending any other command or data afterward, including Clear and
// DisplayText, reenables the display.
func (d *Dev) Halt() error {
	d.halted = false
	err := d.SendCommand([]byte{_DISPLAYOFF})
	if err == nil {
		d.halted = true
	}
	return err
}

// Invert the display (black on white vs white on black).
func (d *Dev) Invert(blackOnWhite bool) error {
	b := []byte{_NORMALDISPLAY}
	if blackOnWhite {
		b[0] = _INVERTDISPLAY
	}
	return d.SendCommand(b)
}

func (d *Dev) calculateSubset(next []byte) (int, int, int, int, bool) {
	w := d.rect.Dx()
	h := d.rect.Dy()
	startPage := 0
	endPage := h / 8
	startCol := 0
	endCol := w
	if d.dirty {
		d.dirty = false
		return startPage, endPage, startCol, endCol, false
	}
	// Calculate the smallest square that need to be sent.
	pageSize := w

	// Top.
	for ; startPage < endPage; startPage++ {
		x := pageSize * startPage
		y := pageSize * (startPage + 1)
		if !bytes.Equal(d.buffer[x:y], next[x:y]) {
			break
		}
	}
	// Bottom.
	for ; endPage > startPage; endPage-- {
		x := pageSize * (endPage - 1)
		y := pageSize * endPage
		if !bytes.Equal(d.buffer[x:y], next[x:y]) {
			break
		}
	}
	if startPage == endPage {
		// Early exit, the image is exactly the same.
		return 0, 0, 0, 0, true
	}

	// Left.
	for ; startCol < endCol; startCol++ {
		for i := startPage; i < endPage; i++ {
			x := i*pageSize + startCol
			if d.buffer[x] != next[x] {
				goto breakLeft
			}
		}
	}
breakLeft:

	// Right.
	for ; endCol > startCol; endCol-- {
		for i := startPage; i < endPage; i++ {
			x := i*pageSize + endCol - 1
			if d.buffer[x] != next[x] {
				goto breakRight
			}
		}
	}
breakRight:
	return startPage, endPage, startCol, endCol, false
}

// drawInternal sends image data to the controller.
func (d *Dev) drawInternal(next []byte) error {
	startPage, endPage, startCol, endCol, skip := d.calculateSubset(next)
	if skip {
		return nil
	}
	copy(d.buffer, next)

	pageSize := d.rect.Dx()
	for page := startPage; page < endPage; page++ {
		err := d.SendCommand([]byte{
			_PAGESTARTADDRESS | byte(page),
			_SETLOWCOLUMN | (byte(startCol) & 0x0F),
			_SETHIGHCOLUMN | (byte(startCol) >> 4),
		})
		if err != nil {
			// GDDRAM no longer matches buffer.
			d.dirty = true
			return err
		}
		pageStart := page * pageSize
		if err = d.SendData(d.buffer[pageStart+startCol : pageStart+endCol]); err != nil {
			d.dirty = true
			return err
		}
	}
	return nil
}

var (
	_ display.Drawer    = &Dev{}
	_ drivers.Displayer = &Dev{}
)
