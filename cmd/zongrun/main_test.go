package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/zong-runtime/internal/guesttest"
)

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no args", nil},
		{"two args", []string{"a.wasm", "b.wasm"}},
		{"flags only", []string{"-v"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, strings.NewReader(""), &stdout, &stderr)
			if code != 1 {
				t.Fatalf("exit code = %d, want 1", code)
			}
			if !strings.Contains(stderr.String(), "Usage: zongrun") {
				t.Errorf("stderr = %q, want usage", stderr.String())
			}
			if stdout.Len() != 0 {
				t.Errorf("stdout = %q, want empty", stdout.String())
			}
		})
	}
}

func TestRun_Print(t *testing.T) {
	path := guesttest.WriteFile(t, guesttest.PrintGuest(42, -1).Build())

	var stdout, stderr bytes.Buffer
	code := run([]string{path}, strings.NewReader(""), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	if got := stdout.String(); got != "42\n-1\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestRun_Echo(t *testing.T) {
	path := guesttest.WriteFile(t, guesttest.EchoGuest(true).Build())

	var stdout, stderr bytes.Buffer
	code := run([]string{"-engine", "interpreter", path}, strings.NewReader("one\ntwo"), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	if got := stdout.String(); got != "one\ntwo" {
		t.Errorf("stdout = %q", got)
	}
}

func TestRun_Failures(t *testing.T) {
	printGuest := guesttest.WriteFile(t, guesttest.PrintGuest(1).Build())
	trapGuest := guesttest.WriteFile(t, guesttest.PrintBytesAtGuest(65535).Build())

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file", []string{filepath.Join(t.TempDir(), "missing.wasm")}, "not found"},
		{"bad protocol flag", []string{"-protocol", "v9", printGuest}, "unknown protocol"},
		{"bad engine flag", []string{"-engine", "jit", printGuest}, "unknown engine mode"},
		{"bad log format", []string{"-log-format", "xml", printGuest}, "unknown log format"},
		{"forced protocol mismatch", []string{"-protocol", "v3", printGuest}, "print_bytes"},
		{"missing entry", []string{"-entry", "start", printGuest}, "start"},
		{"out of bounds", []string{trapGuest}, "out_of_bounds"},
		{"interactive without terminal", []string{"-i", printGuest}, "needs a terminal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, strings.NewReader(""), &stdout, &stderr)
			if code != 1 {
				t.Fatalf("exit code = %d, want 1", code)
			}
			if !strings.Contains(stderr.String(), "Error: ") {
				t.Errorf("stderr = %q, want Error prefix", stderr.String())
			}
			if !strings.Contains(stderr.String(), tt.want) {
				t.Errorf("stderr = %q, want to contain %q", stderr.String(), tt.want)
			}
		})
	}
}

func TestRun_VerboseLogsToStderr(t *testing.T) {
	path := guesttest.WriteFile(t, guesttest.PrintGuest(7).Build())

	var stdout, stderr bytes.Buffer
	code := run([]string{"-v", "-log-format", "json", path}, strings.NewReader(""), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	if stdout.String() != "7\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), `"msg":"guest finished"`) {
		t.Errorf("stderr = %q, want guest finished log", stderr.String())
	}
}
