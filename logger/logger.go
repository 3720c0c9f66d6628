// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package logger adapts the teacher tree's subsystem-tagged logging
// backend (github.com/daglabs/btcd/logger) to the KHU engine: a single
// backend writes to stdout and to a pair of jrick/logrotate rotators,
// and each package of the engine pulls its own tagged Logger from it.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AdonisPhusis/khu-core/internal/logs"
	"github.com/jrick/logrotate/rotator"
)

// logWriter implements an io.Writer that outputs to both standard output
// and the write-end pipe of an initialized log rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	if initiated {
		os.Stdout.Write(p)
		LogRotator.Write(p)
	}
	return len(p), nil
}

// errLogWriter mirrors logWriter for the error-only rotator.
type errLogWriter struct{}

func (errLogWriter) Write(p []byte) (n int, err error) {
	if initiated {
		os.Stdout.Write(p)
		ErrLogRotator.Write(p)
	}
	return len(p), nil
}

var (
	backendLog = logs.NewBackend([]*logs.BackendWriter{
		logs.NewAllLevelsBackendWriter(logWriter{}),
		logs.NewErrorBackendWriter(errLogWriter{}),
	})

	// LogRotator and ErrLogRotator are the logging outputs; both should
	// be closed on application shutdown.
	LogRotator    *rotator.Rotator
	ErrLogRotator *rotator.Rotator

	subsystemLoggers = map[string]*logs.Logger{}

	initiated = false
)

// SubsystemTags enumerates every tagged subsystem the engine logs under.
// KHU, PIPE, DOMC and BCDB replace the teacher's network/mining tags
// (ADXR, AMGR, PEER, SYNC, ...), which have no home in a core that
// performs no network or wallet I/O (§1 Non-goals).
var SubsystemTags = struct {
	KHU, PIPE, DOMC, YLD, BCDB, CNFG string
}{
	KHU:  "KHU",
	PIPE: "PIPE",
	DOMC: "DOMC",
	YLD:  "YLD",
	BCDB: "BCDB",
	CNFG: "CNFG",
}

// Subsystem returns the Logger for the given tag, creating it on first
// use. Unlike the teacher's fixed package-level var block, subsystems
// here are created lazily so new ones don't require touching this file.
func Subsystem(tag string) *logs.Logger {
	if l, ok := subsystemLoggers[tag]; ok {
		return l
	}
	l := backendLog.Logger(tag)
	subsystemLoggers[tag] = l
	return l
}

// InitLogRotators initializes the logging rotators to write logs to
// logFile and errLogFile, creating roll files alongside them. It must be
// called before any Logger obtained from Subsystem is used for output to
// reach disk.
func InitLogRotators(logFile, errLogFile string) error {
	var err error
	LogRotator, err = initLogRotator(logFile)
	if err != nil {
		return err
	}
	ErrLogRotator, err = initLogRotator(errLogFile)
	if err != nil {
		return err
	}
	initiated = true
	return nil
}

func initLogRotator(logFile string) (*rotator.Rotator, error) {
	logDir, _ := filepath.Split(logFile)
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return nil, fmt.Errorf("failed to create file rotator: %w", err)
	}
	return r, nil
}

// SetLogLevel sets the logging level for the provided subsystem tag.
// Unknown tags are ignored.
func SetLogLevel(subsystemTag string, logLevel string) {
	l, ok := subsystemLoggers[subsystemTag]
	if !ok {
		return
	}
	level, _ := logs.LevelFromString(logLevel)
	l.SetLevel(level)
}

// SetLogLevels sets the log level for every subsystem logger created so
// far via Subsystem.
func SetLogLevels(logLevel string) {
	for tag := range subsystemLoggers {
		SetLogLevel(tag, logLevel)
	}
}
