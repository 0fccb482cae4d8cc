// Copyright IBM Corp. 2014, 2025
// SPDX-License-Identifier: MPL-2.0

package keygen

import (
	"errors"
	"fmt"
	"io"
)

// ErrShortRead is returned by CheckBackend when the random source returns
// fewer bytes than requested without an error.
var ErrShortRead = errors.New("short read from random source")

// BackendError means the cryptographic capability the generator relies on is
// not usable in this environment.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("crypto backend unavailable (%s): %s", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// backendProbeSize is the number of bytes CheckBackend reads.
const backendProbeSize = 32

// CheckBackend makes sure the secure random source can be read before any
// work is done.
func CheckBackend(random io.Reader) error {
	if random == nil {
		return &BackendError{Op: "check", Err: errors.New("no secure random source configured")}
	}

	buf := make([]byte, backendProbeSize)
	if _, err := io.ReadFull(random, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			err = ErrShortRead
		}
		return &BackendError{Op: "check",
			Err: fmt.Errorf("secure random source unavailable: %w", err)}
	}
	return nil
}
