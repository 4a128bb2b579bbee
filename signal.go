// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package evcore

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// sigBridge turns OS signal delivery into Event activations.
// Delivery plumbing is an external collaborator: os/signal relays signals
// to a channel from a Go runtime goroutine, not true async-signal
// context, so only the got_signal-equivalent flag and per-signal counts
// need a mutex here, not a fully lock-free handler.
//
// Created lazily by Loop.add on the first signal-mask Event, so a loop
// that never uses signals pays no cost and can still report NO_EVENTS
// once its fd/timer registry empties.
type sigBridge struct {
	loop *Loop

	mu     sync.Mutex
	counts map[int]int // signal number -> deliveries seen since last drain
	raised bool        // got_signal

	events map[int]*Event // signal number -> registered Event
	notify chan os.Signal
	wake   func() error
	pipeEv *Event // internal wake Event; nil on backends that wake via the Multiplexer itself
}

func newSigBridge(loop *Loop) *sigBridge {
	return &sigBridge{
		loop:   loop,
		counts: make(map[int]int),
		events: make(map[int]*Event),
	}
}

func (b *sigBridge) ensureWake() error {
	if b.wake != nil {
		return nil
	}
	ev, wake, err := newSignalWake(b.loop)
	if err != nil {
		return err
	}
	b.pipeEv = ev
	b.wake = wake
	return nil
}

// register subscribes ev (mask&Signal != 0, ident == signal number).
func (b *sigBridge) register(ev *Event) error {
	if err := b.ensureWake(); err != nil {
		return err
	}
	b.events[ev.ident] = ev
	if b.notify == nil {
		b.notify = make(chan os.Signal, 64)
		go b.watch()
	}
	b.applyWatchSet()
	return nil
}

func (b *sigBridge) unregister(ev *Event) {
	delete(b.events, ev.ident)
	b.applyWatchSet()
}

// applyWatchSet re-derives the os/signal subscription from b.events.
// signal.Stop(ch) clears every signal previously Notify'd on ch, so the
// simplest correct way to drop a single signal is to stop everything and
// re-Notify the survivors.
func (b *sigBridge) applyWatchSet() {
	if b.notify == nil {
		return
	}
	signal.Stop(b.notify)
	for signum := range b.events {
		signal.Notify(b.notify, syscall.Signal(signum))
	}
}

func (b *sigBridge) watch() {
	for sig := range b.notify {
		signum, ok := sig.(syscall.Signal)
		if !ok {
			continue
		}
		b.mu.Lock()
		b.counts[int(signum)]++
		b.raised = true
		b.mu.Unlock()
		if b.wake != nil {
			_ = b.wake()
		}
	}
}

func (b *sigBridge) peekRaised() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.raised
}

// drain activates every signal Event that fired since the last drain,
// coalescing repeat deliveries of the same signal into ncalls, then
// invokes the optional user sig-callback. A sig-callback error aborts
// dispatch with ErrInterrupted.
func (b *sigBridge) drain(sigCB func() error) error {
	b.mu.Lock()
	raised := b.raised
	b.raised = false
	var counts map[int]int
	if raised {
		counts = b.counts
		b.counts = make(map[int]int)
	}
	b.mu.Unlock()

	if raised {
		for signum, n := range counts {
			if n <= 0 {
				continue
			}
			if ev, ok := b.events[signum]; ok {
				ev.activate(b.loop, Signal, n)
			}
		}
	}
	if sigCB != nil {
		if err := sigCB(); err != nil {
			return ErrInterrupted
		}
	}
	return nil
}

func (b *sigBridge) shutdown() {
	if b.notify != nil {
		signal.Stop(b.notify)
		close(b.notify)
	}
}
