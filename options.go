// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package evcore

// loopOptions holds configuration resolved from LoopOption values passed
// to New.
type loopOptions struct {
	priorities int
	logger     *Logger
	sigCB      func() error
	clock      Clock
	backend    string
}

// LoopOption configures a Loop at construction time.
type LoopOption interface {
	applyLoop(*loopOptions) error
}

type loopOptionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (l *loopOptionImpl) applyLoop(opts *loopOptions) error {
	return l.applyLoopFunc(opts)
}

// WithPriorities sets the number of priority run-queue levels. Must be
// >= 1. Defaults to 1 (a single FIFO level, equivalent to no priority
// distinction) when not supplied.
func WithPriorities(n int) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if n < 1 {
			return ErrInvalidState
		}
		opts.priorities = n
		return nil
	}}
}

// WithLogger sets the structured logger used for loop diagnostics
// (construction failures, and the selected backend when
// EVENT_SHOW_METHOD is set). A nil Logger disables
// logging, same as omitting this option.
func WithLogger(l *Logger) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.logger = l
		return nil
	}}
}

// WithSignalCallback installs a hook invoked once per dispatch cycle,
// between backend calls, regardless of whether a signal was actually
// delivered that cycle. Returning a non-nil error aborts the
// in-progress Dispatch, which returns ErrInterrupted (EINTR-equivalent);
// the callback's own error is not included in it.
func WithSignalCallback(cb func() error) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.sigCB = cb
		return nil
	}}
}

// WithClock overrides the time source used for deadlines and now()
// sampling. Intended for deterministic tests; production callers should
// omit this and get the monotonic-preferred system clock.
func WithClock(c Clock) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.clock = c
		return nil
	}}
}

// WithBackend forces selection of a specific named Multiplexer
// ("epoll", "kqueue", "poll", "iocp") instead of the platform's
// preferred mechanism. (EVENT_SHOW_METHOD only reports the chosen
// backend and selects nothing.) Mainly useful for using the poll(2)
// backend on a system that also has a native backend.
func WithBackend(name string) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.backend = name
		return nil
	}}
}

func resolveLoopOptions(opts []LoopOption) (*loopOptions, error) {
	cfg := &loopOptions{
		priorities: 1,
		clock:      systemClock{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
