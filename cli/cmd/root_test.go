package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fastly/js-compute-runtime-sub002/core/compile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetOut(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "js-compute-runtime dev\n", buf.String())
}

func TestTooManyArguments(t *testing.T) {
	rootCmd.SetArgs([]string{"a.js", "b.wasm", "c"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Equal(t, 1, compile.ExitCode(err))
}

func TestMissingInputIsAConfigError(t *testing.T) {
	dir := t.TempDir()
	engine := filepath.Join(dir, "engine.wasm")
	require.NoError(t, os.WriteFile(engine, []byte("engine"), 0o644))

	rootCmd.SetArgs([]string{
		filepath.Join(dir, "missing.js"),
		filepath.Join(dir, "out.wasm"),
		"--engine-wasm", engine,
		"--log-format", "json",
		"--log-level", "error",
	})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.True(t, compile.IsConfigError(err))
	assert.Equal(t, 1, compile.ExitCode(err))
	assert.NoFileExists(t, filepath.Join(dir, "out.wasm"))
}
