// Copyright IBM Corp. 2014, 2025
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"

	"github.com/updater-keygen/updater-keygen/keygen"
	"github.com/updater-keygen/updater-keygen/renderer"
)

// ErrExitable is an error that carries its own exit status.
type ErrExitable interface {
	ExitStatus() int
}

var _ error = new(ErrConfig)
var _ ErrExitable = new(ErrConfig)

// ErrConfig wraps any problem loading, merging or validating configuration.
type ErrConfig struct {
	err error
}

func NewErrConfig(err error) *ErrConfig {
	return &ErrConfig{err: err}
}

func (e *ErrConfig) Error() string {
	return "config: " + e.err.Error()
}

func (e *ErrConfig) Unwrap() error {
	return e.err
}

func (e *ErrConfig) ExitStatus() int {
	return ExitCodeConfigError
}

// exitStatus maps an error returned by the runner onto an exit code.
func exitStatus(err error) int {
	var exitable ErrExitable
	if errors.As(err, &exitable) {
		return exitable.ExitStatus()
	}

	var berr *keygen.BackendError
	if errors.As(err, &berr) {
		return ExitCodeBackendError
	}

	var werr *renderer.WriteError
	if errors.As(err, &werr) || errors.Is(err, renderer.ErrNoParentDir) {
		return ExitCodeWriteError
	}

	return ExitCodeError
}
