// Copyright (c) 2017-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/decred/curate/curated/backend/curatebe"
	"github.com/decred/curate/curated/backend/curatebe/ledger"
	"github.com/decred/curate/curated/backend/curatebe/outbox"
	"github.com/decred/curate/curated/backend/curatebe/roles"
	"github.com/decred/curate/curated/backend/curatebe/settlement"
	"github.com/decred/curate/curated/backend/curatebe/voting"
	"github.com/decred/curate/curated/relay"
	"github.com/decred/curate/curated/store/localdb"
	"github.com/decred/curate/curated/store/mysql"
	"github.com/decred/curate/curated/websockets"
	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// logWriter implements an io.Writer that outputs to both standard output and
// the write-end pipe of an initialized log rotator. Only standard output is
// written until initLogRotator has been called.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if logRotator == nil {
		return len(p), nil
	}
	return logRotator.Write(p)
}

// Loggers per subsystem.  A single backend logger is created and all subsytem
// loggers created from it will write to the backend.  When adding new
// subsystems, add the subsystem logger variable here and to the
// subsystemLoggers map.
//
// Loggers can not be used before the log rotator has been initialized with a
// log file.  This must be performed early during application startup by calling
// initLogRotator.
var (
	// backendLog is the logging backend used to create all subsystem loggers.
	// The backend must not be used before the log rotator has been initialized,
	// or data races and/or nil pointer dereferences will occur.
	backendLog = slog.NewBackend(logWriter{})

	// logRotator is one of the logging outputs.  It should be closed on
	// application shutdown.
	logRotator *rotator.Rotator

	log           = backendLog.Logger("CURD")
	curatebeLog   = backendLog.Logger("BACK")
	rolesLog      = backendLog.Logger("ROLE")
	ledgerLog     = backendLog.Logger("LEDG")
	votingLog     = backendLog.Logger("VOTE")
	settlementLog = backendLog.Logger("SETL")
	outboxLog     = backendLog.Logger("OUTB")
	storeLog      = backendLog.Logger("STOR")
	relayLog      = backendLog.Logger("RLAY")
	wsLog         = backendLog.Logger("WSKT")
)

// Initialize package-global logger variables.
func init() {
	curatebe.UseLogger(curatebeLog)
	roles.UseLogger(rolesLog)
	ledger.UseLogger(ledgerLog)
	voting.UseLogger(votingLog)
	settlement.UseLogger(settlementLog)
	outbox.UseLogger(outboxLog)
	localdb.UseLogger(storeLog)
	mysql.UseLogger(storeLog)
	relay.UseLogger(relayLog)
	websockets.UseLogger(wsLog)
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]slog.Logger{
	"CURD": log,
	"BACK": curatebeLog,
	"ROLE": rolesLog,
	"LEDG": ledgerLog,
	"VOTE": votingLog,
	"SETL": settlementLog,
	"OUTB": outboxLog,
	"STOR": storeLog,
	"RLAY": relayLog,
	"WSKT": wsLog,
}

// initLogRotator initializes the logging rotater to write logs to logFile and
// create roll files in the same directory.  It must be called before the
// package-global log rotater variables are used.
func initLogRotator(logFile string) {
	logDir, _ := filepath.Split(logFile)
	err := os.MkdirAll(logDir, 0700)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %v\n", err)
		os.Exit(1)
	}

	logRotator = r
}

// setLogLevel sets the logging level for provided subsystem.  Invalid
// subsystems are ignored.  Uninitialized subsystems are dynamically created as
// needed.
func setLogLevel(subsystemID string, logLevel string) {
	// Ignore invalid subsystems.
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}

	// Defaults to info if the log level is invalid.
	level, _ := slog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// setLogLevels sets the log level for all subsystem loggers to the passed
// level.  It also dynamically creates the subsystem loggers as needed, so it
// can be used to initialize the logging system.
func setLogLevels(logLevel string) {
	// Configure all sub-systems with the new logging level.  Dynamically
	// create loggers as needed.
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, logLevel)
	}
}

// logClosure is used to provide a closure over expensive logging operations
// so don't have to be performed when the logging level doesn't warrant it.
type logClosure func() string

// String invokes the underlying function and returns the result.
func (c logClosure) String() string {
	return c()
}

// newLogClosure returns a new closure over a function that returns a string
// which itself provides a Stringer interface so that it can be used with the
// logging system.
func newLogClosure(c func() string) logClosure {
	return logClosure(c)
}
