// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package evcore

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logging facade used throughout this package,
// built on logiface's generic event model and wired by default to
// stumpy's JSON writer. A nil *Logger is valid and logs nothing, mirroring
// logiface's own zero-value behavior.
type Logger = logiface.Logger[*stumpy.Event]

// DefaultLogger returns a Logger writing newline-delimited JSON to
// os.Stderr via stumpy, for callers that want construction diagnostics
// and EVENT_SHOW_METHOD reporting without wiring their own logiface
// backend: evcore.New(evcore.WithLogger(evcore.DefaultLogger())).
func DefaultLogger() *Logger {
	return stumpy.L.New(stumpy.L.WithStumpy())
}

// logInfo emits an informational event tagged with category, guarded by
// a nil check so Loop can be constructed with logging disabled: a nil
// *Logger (the default when WithLogger is not supplied) simply skips
// every call here.
func logInfo(l *Logger, category, message string, fields map[string]any) {
	if l == nil {
		return
	}
	b := l.Info()
	if b == nil {
		return
	}
	b = b.Str("category", category)
	for k, v := range fields {
		b = logField(b, k, v)
	}
	b.Log(message)
}

// logErr emits an error event tagged with category.
func logErr(l *Logger, category, message string, err error, fields map[string]any) {
	if l == nil {
		return
	}
	b := l.Err()
	if b == nil {
		return
	}
	b = b.Str("category", category).Err(err)
	for k, v := range fields {
		b = logField(b, k, v)
	}
	b.Log(message)
}

func logField(b *logiface.Builder[*stumpy.Event], key string, val any) *logiface.Builder[*stumpy.Event] {
	switch v := val.(type) {
	case string:
		return b.Str(key, v)
	case int:
		return b.Int(key, v)
	case int64:
		return b.Int64(key, v)
	case bool:
		return b.Bool(key, v)
	default:
		return b.Interface(key, v)
	}
}
