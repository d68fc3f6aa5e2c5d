// Tests that build the gdao binary and check exit codes and output streams.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// gdaoBin is the binary built by TestMain; empty in short mode.
var gdaoBin string

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	tmpDir, err := os.MkdirTemp("", "gdao-test-*")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	gdaoBin = filepath.Join(tmpDir, "gdao")
	build := exec.Command("go", "build", "-o", gdaoBin, ".")
	if out, err := build.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "building gdao: %v\n%s", err, out)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

type result struct {
	stdout   string
	stderr   string
	exitCode int
}

// testEnv isolates the configuration and data directories of one test.
type testEnv struct {
	t         *testing.T
	configDir string
	dataDir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if gdaoBin == "" {
		t.Skip("binary tests are skipped in short mode")
	}
	dir := t.TempDir()
	return &testEnv{t: t, configDir: filepath.Join(dir, "config"), dataDir: filepath.Join(dir, "data")}
}

func (e *testEnv) run(args ...string) result {
	e.t.Helper()
	cmd := exec.Command(gdaoBin, append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...)...)
	cmd.Env = append(os.Environ(), "GDAO_CONNECT_TO=", "DATABASE_URL=", "GDAO_TABLE=", "GDAO_FIELDS=")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	code := 0
	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			e.t.Fatalf("running gdao: %v", err)
		}
		code = exitErr.ExitCode()
	}
	return result{stdout: stdout.String(), stderr: stderr.String(), exitCode: code}
}

func (e *testEnv) mustRun(args ...string) result {
	e.t.Helper()
	r := e.run(args...)
	if r.exitCode != 0 {
		e.t.Fatalf("gdao %v exited %d:\nstdout: %s\nstderr: %s", args, r.exitCode, r.stdout, r.stderr)
	}
	return r
}

func TestBinaryRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun("exec", "CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT, body TEXT)")

	table := []string{"--table", "notes", "--fields", "title,body"}
	r := e.mustRun(append([]string{"save", `{"title":"t","body":"b"}`}, table...)...)

	var saved map[string]any
	if err := json.Unmarshal([]byte(r.stdout), &saved); err != nil {
		t.Fatalf("parsing save output %q: %v", r.stdout, err)
	}
	if saved["id"] != float64(1) {
		t.Errorf("id = %v, want 1", saved["id"])
	}

	r = e.mustRun(append([]string{"count"}, table...)...)
	if strings.TrimSpace(r.stdout) != "1" {
		t.Errorf("count = %q, want 1", r.stdout)
	}
}

func TestBinaryExitCodes(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun("exec", "CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT)")

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"version", []string{"version"}, 0},
		{"no table", []string{"list"}, 1},
		{"bad filter", []string{"list", "--table", "notes", "--fields", "title", "--filter", `["secret", "=", 1]`}, 1},
		{"not found", []string{"find", "42", "--table", "notes", "--fields", "title"}, 1},
		{"database error", []string{"exec", "SELECT * FROM nowhere"}, 2},
		{"unknown command", []string{"frobnicate"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := e.run(tt.args...)
			if r.exitCode != tt.code {
				t.Errorf("exit code = %d, want %d (stderr: %s)", r.exitCode, tt.code, r.stderr)
			}
			if tt.code != 0 && !strings.Contains(r.stderr, "Error:") {
				t.Errorf("stderr %q does not report the error", r.stderr)
			}
		})
	}
}
