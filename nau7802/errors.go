package nau7802

import (
	"errors"
	"fmt"
)

var (
	// ErrPowerUpTimeout means the power-up ready bit never appeared within
	// the configured poll budget.
	ErrPowerUpTimeout = errors.New("nau7802: power-up ready bit not set in time")
	// ErrCalibrationFailed means the device reported an internal calibration
	// error for the current gain/channel/LDO combination.
	ErrCalibrationFailed = errors.New("nau7802: device reported calibration failure")
	// ErrCalibrationTimeout means the calibration-done bit never cleared
	// within the configured poll budget. The device may still be calibrating;
	// Reset is the recovery path.
	ErrCalibrationTimeout = errors.New("nau7802: calibration did not complete in time")
	// ErrCalibrationInProgress rejects configuration changes issued while a
	// calibration is pending.
	ErrCalibrationInProgress = errors.New("nau7802: calibration in progress")
	// ErrReadTimeout means no conversion became ready within the configured
	// poll budget.
	ErrReadTimeout = errors.New("nau7802: conversion not ready in time")
	// ErrInvalidConfiguration rejects out-of-range gain/channel/LDO/rate
	// values before they reach the transport.
	ErrInvalidConfiguration = errors.New("nau7802: invalid configuration")
)

// BusError wraps a transport failure together with the register transaction
// that produced it. The underlying transport error stays reachable through
// errors.Is / errors.As.
type BusError struct {
	Op  string
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("nau7802: %s: %v", e.Op, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

func busErr(op string, err error) error {
	return &BusError{Op: op, Err: err}
}
