// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dwi2c

import (
	"errors"
	"fmt"
)

// Kind classifies a transmission failure.
//
// A Kind is itself an error so it can be matched with errors.Is.
type Kind int

// Failure kinds.
const (
	// FIFOTimeout means the transmit FIFO stayed full for Opts.FIFOPolls
	// polls.
	FIFOTimeout Kind = iota + 1
	// TransmissionAborted means the controller raised TX_ABRT after the byte
	// was queued.
	TransmissionAborted
	// RetriesExhausted means a byte used its whole retry budget and the
	// transfer was abandoned.
	RetriesExhausted
)

func (k Kind) String() string {
	switch k {
	case FIFOTimeout:
		return "fifo-timeout"
	case TransmissionAborted:
		return "transmission-aborted"
	case RetriesExhausted:
		return "retries-exhausted"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) Error() string {
	return "dwi2c: " + k.String()
}

// Error is returned by Write when a transfer is abandoned.
//
// Bytes before Index were sent and everything after Index was not. The byte
// at Index was sent only when Cause is FIFOTimeout: a FIFO timeout spent the
// last retry and the transfer stopped after that byte.
type Error struct {
	Kind  Kind
	Cause Kind // Failure of the last attempt.
	Index int  // Offset of the failing byte in the buffer.
	Value byte
	// Number of FIFO timeouts and aborts seen for the failing byte.
	Timeouts int
	Aborts   int
}

func (e *Error) Error() string {
	return fmt.Sprintf("dwi2c: %s sending 0x%02X at offset %d (%s; %d fifo timeouts, %d aborts)", e.Kind.String(), e.Value, e.Index, e.Cause.String(), e.Timeouts, e.Aborts)
}

// Is matches the Kind, the Cause, and FIFOTimeout if any FIFO timeout
// happened.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	if !ok {
		return false
	}
	return k == e.Kind || k == e.Cause || (k == FIFOTimeout && e.Timeouts != 0)
}

var (
	// ErrNotInitialized is returned by Write before Init.
	ErrNotInitialized = errors.New("dwi2c: controller is not initialized")
	// ErrReadUnsupported is returned by Tx when a read is requested.
	ErrReadUnsupported = errors.New("dwi2c: read transactions are not supported")
	// ErrAddress is returned by Tx for any address but the configured target.
	ErrAddress = errors.New("dwi2c: address is not the configured target")
)
