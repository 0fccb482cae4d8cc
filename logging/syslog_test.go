// Copyright IBM Corp. 2014, 2025
// SPDX-License-Identifier: MPL-2.0

package logging

import (
	"io"
	"testing"

	gsyslog "github.com/hashicorp/go-syslog"
	"github.com/hashicorp/logutils"
)

type fakeSyslogger struct {
	priority gsyslog.Priority
	lines    []string
}

func (f *fakeSyslogger) WriteLevel(p gsyslog.Priority, b []byte) error {
	f.priority = p
	f.lines = append(f.lines, string(b))
	return nil
}

func (f *fakeSyslogger) Write(b []byte) (int, error) {
	return len(b), f.WriteLevel(gsyslog.LOG_NOTICE, b)
}

func (f *fakeSyslogger) Close() error {
	return nil
}

func TestSyslogFilter(t *testing.T) {
	l := &fakeSyslogger{}

	filt, err := newLogFilter(io.Discard, logutils.LogLevel("INFO"))
	if err != nil {
		t.Fatal(err)
	}

	s := &SyslogWrapper{l, filt}
	n, err := s.Write([]byte("[INFO] test"))
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	if n == 0 {
		t.Fatalf("should have logged")
	}
	if l.priority != gsyslog.LOG_NOTICE {
		t.Errorf("expected %v to be %v", l.priority, gsyslog.LOG_NOTICE)
	}
	if l.lines[0] != "test" {
		t.Errorf("expected %q to be %q", l.lines[0], "test")
	}

	n, err = s.Write([]byte("[DEBUG] test"))
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	if n != 0 {
		t.Fatalf("should not have logged")
	}

	if _, err := s.Write([]byte("[ERR] boom")); err != nil {
		t.Fatalf("err: %s", err)
	}
	if l.priority != gsyslog.LOG_ERR {
		t.Errorf("expected %v to be %v", l.priority, gsyslog.LOG_ERR)
	}

	// level without a message must not panic
	if _, err := s.Write([]byte("[WARN]")); err != nil {
		t.Fatalf("err: %s", err)
	}
}
