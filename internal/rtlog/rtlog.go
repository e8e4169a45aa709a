// Package rtlog centralizes the zerolog logger used for internal diagnostics
// across the runner, search engine and trial driver, all tracing through a
// single github.com/rs/zerolog/log instance.
//
// None of this is part of the reporter protocol (report.Reporter): it is
// low-level tracing for whoever runs with a raised log level, never
// user-facing test output.
package rtlog

import "github.com/rs/zerolog/log"

// Log is the package-level logger every worldline package traces through.
// Tests and the CLI may raise/lower its level via zerolog.SetGlobalLevel;
// worldline itself never changes the global level.
var Log = log.Logger
