package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// Loggers per subsystem. A single backend logger is created and every
// subsystem logger is derived from it. Until initLogRotator has set up
// the log file, log output goes to stdout only.
var (
	logWriter = &logWriterWrapper{}

	backendLog = btclog.NewBackend(logWriter)

	logRotator *rotator.Rotator

	log = backendLog.Logger("CVAL")
)

// logWriterWrapper writes every Write call to stdout, so early startup
// errors aren't silently dropped, and also forwards it to the rotator
// once that has been initialized.
type logWriterWrapper struct {
	rotatorPipe io.WriteCloser
}

func (w *logWriterWrapper) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if w.rotatorPipe != nil {
		return w.rotatorPipe.Write(p)
	}
	return len(p), nil
}

// initLogRotator initializes the logging rotator to write logs to
// logFile and create roll files alongside it.
func initLogRotator(logFile string) error {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("create file rotator: %w", err)
	}

	pr, pw := io.Pipe()
	go r.Run(pr)

	logWriter.rotatorPipe = pw
	logRotator = r
	return nil
}

func setLogLevel(logLevel string) {
	level, ok := btclog.LevelFromString(logLevel)
	if !ok {
		level = btclog.LevelInfo
	}
	log.SetLevel(level)
}
