// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package evcore

import "time"

// Once allocates, binds, and arms an Event that fires at most once:
// PERSIST is stripped from mask unconditionally, so the ordinary
// non-persist teardown-before-callback rule removes it from every set
// before its callback runs, and the caller need not call Del.
//
// A signal-mask Event is rejected with ErrUnsupported: a one-shot that
// deletes itself mid-callback is unsafe to mix with the signal bridge's
// coalesced-count delivery, so callers needing a one-shot signal handler
// must manage a regular Event's lifetime explicitly (NewEvent/Bind/Add/Del).
func Once(loop *Loop, ident int, mask Mask, cb Callback, data any, timeout time.Duration) (*Event, error) {
	if mask&Signal != 0 {
		return nil, ErrUnsupported
	}
	ev := NewEvent(ident, mask&^Persist, cb, data)
	if err := ev.Bind(loop); err != nil {
		return nil, err
	}
	if err := ev.Add(timeout); err != nil {
		return nil, err
	}
	return ev, nil
}

// OnceTimeout is Once specialized for a pure one-shot timer: no fd or
// signal interest, firing once after d elapses.
func OnceTimeout(loop *Loop, d time.Duration, cb Callback, data any) (*Event, error) {
	return Once(loop, -1, Timeout, cb, data, d)
}
