// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

// Package supervisor builds the suture process tree. Supervisor events are
// logged through sutureslog, which writes to zerolog via
// logging.NewSlogLogger.
package supervisor
