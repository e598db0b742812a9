package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanema/loxvm/src/runtime"
)

func newSession(t *testing.T, stdout, stderr *bytes.Buffer) *session {
	t.Helper()
	vm := runtime.New(runtime.WithStdout(stdout), runtime.WithStderr(stderr))
	t.Cleanup(func() { _ = vm.Close() })
	return &session{vm: vm, stderr: stderr}
}

func TestSessionLoad(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer
	s := newSession(t, &stdout, &stderr)
	require.NoError(t, s.load("test", strings.NewReader(`print("hello" + " world");`)))
	assert.Equal(t, "hello world\n", stdout.String())
	assert.Empty(t, stderr.String())
}

func TestSessionListParseOnly(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer
	s := newSession(t, &stdout, &stderr)
	s.list = true
	s.parseOnly = true
	require.NoError(t, s.load("test", strings.NewReader(`print(1);`)))
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "== <script> ==")
	assert.Contains(t, stderr.String(), "CALL1")
}

func TestSessionLoadFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.lox")
	require.NoError(t, os.WriteFile(path, []byte("var a = 2;\nprint(a * 21);\n"), 0o600))

	var stdout, stderr bytes.Buffer
	s := newSession(t, &stdout, &stderr)
	require.NoError(t, s.loadFile(path))
	assert.Equal(t, "42\n", stdout.String())

	assert.Error(t, s.loadFile(dir))
	assert.Error(t, s.loadFile(filepath.Join(dir, "missing.lox")))
}

func TestExitCode(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer
	s := newSession(t, &stdout, &stderr)

	testcases := []struct {
		desc string
		src  string
		code int
	}{
		{"compile error", `var = 1;`, exitDataErr},
		{"runtime error", `print(1 + null);`, exitSoftwareErr},
	}
	for _, tc := range testcases {
		err := s.load("test", strings.NewReader(tc.src))
		require.Error(t, err, tc.desc)
		assert.Equal(t, tc.code, exitCode(err), tc.desc)
	}
	assert.Equal(t, 1, exitCode(errors.New("plain")))
}

func TestNewLogger(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	logger, err := newLogger(&out, "info", "[%Y]")
	require.NoError(t, err)
	logger.Info().Msg("booted")
	logger.Debug().Msg("hidden")
	assert.Contains(t, out.String(), "booted")
	assert.NotContains(t, out.String(), "hidden")
	assert.Regexp(t, `\[\d{4}\]`, out.String())

	_, err = newLogger(&out, "loud", "%H")
	assert.Error(t, err)
}
