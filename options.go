// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package dof

import "log/slog"

// Option configures a DepthOfField during creation.
//
// Example:
//
//	// CPU pipeline on four workers
//	d, err := dof.New(1920, 1080, dof.NullDeviceHandle{}, dof.WithWorkers(4))
//
//	// Start from a saved lens preset
//	d, err := dof.New(1920, 1080, host, dof.WithInitialParams(preset))
type Option func(*options)

// options holds optional configuration for New.
type options struct {
	workers        int
	framesInFlight int
	programs       *Programs
	logger         *slog.Logger
	params         *OpticalParams
}

// defaultOptions returns the default options.
func defaultOptions() options {
	return options{
		workers:        0, // GOMAXPROCS
		framesInFlight: 1,
	}
}

// WithWorkers sets the number of goroutines that execute a stage.
// 1 runs every stage on the calling goroutine; 0 or less uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithFramesInFlight sets how many render target sets are rotated.
// Values below 1 are treated as 1.
func WithFramesInFlight(n int) Option {
	return func(o *options) {
		o.framesInFlight = max(n, 1)
	}
}

// WithPrograms replaces the pass programs, for example with tuned WGSL
// sources from Programs.WithSource.
func WithPrograms(p *Programs) Option {
	return func(o *options) {
		o.programs = p
	}
}

// WithLogger sets the logger of this pipeline instead of the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithInitialParams sets the starting lens parameters. They are validated by New.
func WithInitialParams(p OpticalParams) Option {
	return func(o *options) {
		o.params = &p
	}
}
