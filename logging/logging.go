// Copyright IBM Corp. 2014, 2025
// SPDX-License-Identifier: MPL-2.0

package logging

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	gsyslog "github.com/hashicorp/go-syslog"
	"github.com/hashicorp/logutils"
)

// Levels are the log levels we respond to=o.
var Levels = []logutils.LogLevel{"TRACE", "DEBUG", "INFO", "WARN", "ERR"}

const timeFmt = "2006-01-02T15:04:05.000Z0700"

// now is swapped out in tests.
var now = func() string { return time.Now().Format(timeFmt) }

// Config is the configuration for this log setup.
type Config struct {
	// Level is the log level to use.
	Level string `json:"level"`

	// Syslog and SyslogFacility are the syslog configuration options.
	Syslog         bool   `json:"syslog"`
	SyslogFacility string `json:"syslog_facility"`

	// SyslogName is the progname as it will appear in syslog output (if enabled).
	SyslogName string `json:"name"`

	// Writer is the output where logs should go. If syslog is enabled, data will
	// be written to writer in addition to syslog.
	Writer io.Writer
}

// Setup points the standard logger at a level filtered, timestamped writer.
func Setup(config *Config) error {
	logOutput, err := newWriter(config)
	if err != nil {
		return err
	}

	log.SetFlags(0)
	log.SetOutput(logOutput)
	return nil
}

func newWriter(config *Config) (io.Writer, error) {
	logFilter, err := newLogFilter(&timestampWriter{out: config.Writer},
		logutils.LogLevel(strings.ToUpper(config.Level)))
	if err != nil {
		return nil, err
	}
	logOutput := io.Writer(logFilter)

	// Check if syslog is enabled
	if config.Syslog {
		log.Printf("[DEBUG] (logging) enabling syslog on %s", config.SyslogFacility)

		l, err := gsyslog.NewLogger(gsyslog.LOG_NOTICE, config.SyslogFacility, config.SyslogName)
		if err != nil {
			return nil, fmt.Errorf("error setting up syslog logger: %s", err)
		}
		syslog := &SyslogWrapper{l, logFilter}
		logOutput = io.MultiWriter(logOutput, syslog)
	}

	return logOutput, nil
}

// newLogFilter returns a LevelFilter that is configured with the log levels that
// we use.
func newLogFilter(out io.Writer, logLevel logutils.LogLevel) (*logutils.LevelFilter, error) {
	logFilter := &logutils.LevelFilter{
		Levels:   Levels,
		MinLevel: logLevel,
		Writer:   out,
	}
	if !ValidateLevelFilter(logLevel, logFilter) {
		levels := make([]string, 0, len(logFilter.Levels))
		for _, level := range logFilter.Levels {
			levels = append(levels, string(level))
		}
		return nil, fmt.Errorf("invalid log level %q, valid log levels are %s",
			logLevel, strings.Join(levels, ", "))
	}
	return logFilter, nil
}

// ValidateLevelFilter verifies that the log levels within the filter are valid.
func ValidateLevelFilter(min logutils.LogLevel, filter *logutils.LevelFilter) bool {
	for _, level := range filter.Levels {
		if level == min {
			return true
		}
	}
	return false
}

// timestampWriter prefixes every line with the current time.
type timestampWriter struct {
	out io.Writer
}

func (w *timestampWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	line := make([]byte, 0, len(p)+len(timeFmt)+1)
	line = append(line, now()...)
	line = append(line, ' ')
	line = append(line, p...)
	if _, err := w.out.Write(line); err != nil {
		return 0, err
	}
	return len(p), nil
}
