// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dwi2c

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/oledi2c/busywait"
	"github.com/GermanBionicSystems/oledi2c/mmio"
)

// IC_CON bits.
const (
	conMasterMode    = 1 << 0
	conSpeedStandard = 1 << 1
	conSpeedFast     = 2 << 1
	conRestartEn     = 1 << 5
	conSlaveDisable  = 1 << 6
)

const (
	dataCmdStop   = 1 << 9 // IC_DATA_CMD: issue STOP after this byte.
	rawIntrTxAbrt = 1 << 9 // IC_RAW_INTR_STAT: TX_ABRT.
	statusTFNF    = 1 << 1 // IC_STATUS: transmit FIFO not full.

	funcSelI2C = 0x00 // CREG_MIO_FUNC_SEL value routing the pins to I²C.
)

// DefaultOpts is the configuration of the reference board.
var DefaultOpts = Opts{
	Addr:      0x3C,
	Speed:     400 * physic.KiloHertz,
	Retries:   3,
	FIFOPolls: 10,
	PaceUnits: 3,
	Delay:     busywait.DefaultSpin,
}

// Opts defines the options for the controller.
//
// Zero values are replaced with the matching field of DefaultOpts.
type Opts struct {
	// Addr is the 7 bit address of the only target.
	Addr uint16
	// Speed is either 100kHz (standard) or 400kHz (fast).
	Speed physic.Frequency
	// Retries is the number of failed attempts allowed per byte.
	Retries int
	// FIFOPolls is the number of IC_STATUS polls to wait for room in the
	// transmit FIFO.
	FIFOPolls int
	// PaceUnits is passed to Delay after every byte queued.
	PaceUnits int
	// Delay paces register writes. Use busywait.None in tests.
	Delay busywait.Delayer
	// Logger receives diagnostics. Defaults to logrus.StandardLogger().
	Logger logrus.FieldLogger
}

// Dev is an open handle to the controller.
type Dev struct {
	mu   sync.Mutex
	r    mmio.Registers
	opts Opts
	log  logrus.FieldLogger
	name string
	con  uint32
	init bool
}

// New returns a handle on the controller behind r. It does not touch the
// hardware; call Init before the first Write.
//
// opts can be nil.
func New(r mmio.Registers, opts *Opts) (*Dev, error) {
	o := DefaultOpts
	if opts != nil {
		o = *opts
		if o.Addr == 0 {
			o.Addr = DefaultOpts.Addr
		}
		if o.Speed == 0 {
			o.Speed = DefaultOpts.Speed
		}
		if o.Retries <= 0 {
			o.Retries = DefaultOpts.Retries
		}
		if o.FIFOPolls <= 0 {
			o.FIFOPolls = DefaultOpts.FIFOPolls
		}
		if o.PaceUnits < 0 {
			o.PaceUnits = 0
		}
		if o.Delay == nil {
			o.Delay = DefaultOpts.Delay
		}
	}
	if o.Addr > 0x7F {
		return nil, fmt.Errorf("dwi2c: invalid 7 bit address 0x%X", o.Addr)
	}
	con, err := conFor(o.Speed)
	if err != nil {
		return nil, err
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return &Dev{
		r:    r,
		opts: o,
		log:  o.Logger.WithField("dev", "dwi2c"),
		name: "dwi2c",
		con:  con,
	}, nil
}

func (d *Dev) String() string {
	return d.name
}

// Init configures the controller as a 7 bit master targeting Opts.Addr.
//
// The controller is disabled while it is reconfigured. Calling Init again
// leaves the registers in the same state.
func (d *Dev) Init() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initLocked()
}

func (d *Dev) initLocked() {
	d.r.Write(mmio.FuncSel, funcSelI2C)
	d.r.Write(mmio.Enable, 0)
	d.r.Write(mmio.Con, d.con)
	d.r.Write(mmio.Tar, tarFor(d.opts.Addr))
	d.r.Write(mmio.Enable, 1)
	d.init = true
	d.log.WithFields(logrus.Fields{"con": fmt.Sprintf("0x%02X", d.con), "addr": fmt.Sprintf("0x%02X", d.opts.Addr)}).Debug("i2c init success")
}

// Write sends b as one transfer, with STOP after the last byte.
//
// It returns the number of bytes sent. On failure the remaining bytes are
// not attempted and the error is an *Error.
func (d *Dev) Write(b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.init {
		return 0, ErrNotInitialized
	}
	return d.write(b)
}

func (d *Dev) write(b []byte) (int, error) {
	for i, v := range b {
		word := uint32(v)
		if i == len(b)-1 {
			word |= dataCmdStop
		}
		sent, err := d.send(i, v, word)
		if err != nil {
			d.log.WithFields(logrus.Fields{"index": i, "byte": fmt.Sprintf("0x%02X", v)}).Error(err)
			if sent {
				return i + 1, err
			}
			return i, err
		}
	}
	return len(b), nil
}

// send queues one byte until it goes through or its retry budget is spent.
//
// A budget spent by a FIFO timeout ends the transfer even when the byte that
// follows goes through; sent then reports that the byte was queued.
func (d *Dev) send(i int, v byte, word uint32) (sent bool, err error) {
	retries := d.opts.Retries
	timeouts := 0
	aborts := 0
	l := d.log.WithField("byte", fmt.Sprintf("0x%02X", v))
	for {
		if !d.waitTFNF() {
			timeouts++
			if retries > 0 {
				retries--
			}
			l.WithField("retries", retries).Warn("FIFO still full, retrying...")
		}
		d.r.Write(mmio.DataCmd, word)
		d.opts.Delay.Delay(d.opts.PaceUnits)
		if d.r.Read(mmio.RawIntrStat)&rawIntrTxAbrt == 0 {
			l.Debug("sent")
			if retries == 0 {
				return true, &Error{
					Kind:     RetriesExhausted,
					Cause:    FIFOTimeout,
					Index:    i,
					Value:    v,
					Timeouts: timeouts,
					Aborts:   aborts,
				}
			}
			return true, nil
		}
		aborts++
		if retries > 0 {
			retries--
		}
		if retries == 0 {
			return false, &Error{
				Kind:     RetriesExhausted,
				Cause:    TransmissionAborted,
				Index:    i,
				Value:    v,
				Timeouts: timeouts,
				Aborts:   aborts,
			}
		}
		l.WithField("retries", retries).Warn("transmission aborted, retrying")
	}
}

// waitTFNF polls IC_STATUS until the transmit FIFO has room. It returns
// false after Opts.FIFOPolls polls without room.
func (d *Dev) waitTFNF() bool {
	for n := d.opts.FIFOPolls; d.r.Read(mmio.Status)&statusTFNF == 0; {
		if n--; n == 0 {
			return false
		}
	}
	return true
}

// Tx implements i2c.Bus.
//
// Only writes to Opts.Addr are supported.
func (d *Dev) Tx(addr uint16, w, r []byte) error {
	if len(r) != 0 {
		return ErrReadUnsupported
	}
	if addr != d.opts.Addr {
		return fmt.Errorf("%w: 0x%02X", ErrAddress, addr)
	}
	if len(w) == 0 {
		return nil
	}
	_, err := d.Write(w)
	return err
}

// SetSpeed implements i2c.Bus.
//
// Only 100kHz and 400kHz are supported. An initialized controller is
// reprogrammed immediately.
func (d *Dev) SetSpeed(f physic.Frequency) error {
	con, err := conFor(f)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opts.Speed = f
	d.con = con
	if d.init {
		d.initLocked()
	}
	return nil
}

// Close implements i2c.BusCloser.
//
// It disables the controller and closes the register file if it is an
// io.Closer.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.r.Write(mmio.Enable, 0)
	d.init = false
	if c, ok := d.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func conFor(f physic.Frequency) (uint32, error) {
	var speed uint32
	switch f {
	case 100 * physic.KiloHertz:
		speed = conSpeedStandard
	case 400 * physic.KiloHertz:
		speed = conSpeedFast
	default:
		return 0, fmt.Errorf("dwi2c: unsupported speed %s", f)
	}
	return conMasterMode | speed | conRestartEn | conSlaveDisable, nil
}

// tarFor returns the IC_TAR value for addr. The controller on the reference
// board latches the 8 bit write address.
func tarFor(addr uint16) uint32 {
	return uint32(addr) << 1
}

var _ i2c.BusCloser = &Dev{}
var _ io.Writer = &Dev{}
