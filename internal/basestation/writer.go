// Package basestation archives the SBS-1 StateUpdate stream to rotated,
// gzip-compressed daily log files, alongside the live TCP broadcast
// internal/sinks.SBS1Sink provides. It shares the teacher's
// internal/logging.LogRotator rather than reimplementing file rotation.
package basestation

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"go1090/internal/logging"
	"go1090/internal/sinks"
	"go1090/internal/tracker"
)

// Writer appends BaseStation-format CSV lines to the current rotated
// log file for every StateUpdate it is given.
type Writer struct {
	logRotator *logging.LogRotator
	logger     *logrus.Logger
}

// NewWriter creates a Writer backed by an already-initialized
// LogRotator.
func NewWriter(logRotator *logging.LogRotator, logger *logrus.Logger) *Writer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Writer{logRotator: logRotator, logger: logger}
}

// Write formats u as a BaseStation CSV line (the same encoding
// internal/sinks.SBS1Sink broadcasts live) and appends it to today's log
// file.
func (w *Writer) Write(u tracker.StateUpdate) error {
	line := sinks.BuildSBS1(u, time.Now())

	writer, err := w.logRotator.GetWriter()
	if err != nil {
		return fmt.Errorf("failed to get log writer: %w", err)
	}

	if _, err := writer.Write([]byte(line)); err != nil {
		return fmt.Errorf("failed to write to log: %w", err)
	}
	return nil
}
