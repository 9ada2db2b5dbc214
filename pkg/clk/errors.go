package clk

import (
	"errors"

	"github.com/s32-bsp/s32clk/pkg/partition"
	"github.com/s32-bsp/s32clk/pkg/regs"
)

var (
	ErrUnknownClock       = errors.New("unknown clock")
	ErrInvalidParent      = errors.New("invalid parent")
	ErrAlreadyInitialized = errors.New("already initialized")
	// ErrRange is returned for frequencies outside the declared bounds and
	// for frequencies the dividers cannot produce exactly
	ErrRange            = errors.New("frequency out of range")
	ErrHardwareSequence = errors.New("hardware sequence failed")
	ErrNotSupported     = errors.New("operation not supported")
	// ErrNotConfigured is returned when a clock is enabled before its
	// frequency was requested or without the hardware module it needs
	ErrNotConfigured = errors.New("not configured")

	ErrPartitionAlreadyEnabled = partition.ErrAlreadyEnabled
	ErrHardwareTimeout         = regs.ErrHardwareTimeout
)
