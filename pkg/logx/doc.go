// Package logx wraps zerolog behind a small Field/Logger API.
//
// The Service owns the configured sinks (console, file, and an optional
// rate-limited message-bus sink) and can swap them atomically; Loggers
// created from it stay live across Apply() calls. The zero Logger is a
// safe no-op, which lets components take a Logger by value without nil
// checks.
package logx
