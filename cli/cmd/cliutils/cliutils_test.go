package cliutils

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fastly/js-compute-runtime-sub002/core/compile"
	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func TestSelectEngine(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{name: "default", opts: Options{}, want: "/opt/js/starling.wasm"},
		{name: "debug", opts: Options{DebugBuild: true}, want: "/opt/js/starling-debug.wasm"},
		{name: "aot", opts: Options{EnableAOT: true}, want: "/opt/js/starling-ics.wevalforms.wasm"},
		{name: "aot wins over debug", opts: Options{EnableAOT: true, DebugBuild: true}, want: "/opt/js/starling-ics.wevalforms.wasm"},
		{name: "explicit engine", opts: Options{EnableAOT: true, EngineWasm: []string{"custom.wasm"}}, want: "custom.wasm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectEngine(tt.opts, "/opt/js")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := SelectEngine(tt.opts, "/opt/js")
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}

	t.Run("engine given twice", func(t *testing.T) {
		_, err := SelectEngine(Options{EngineWasm: []string{"a.wasm", "b.wasm"}}, "/opt/js")
		require.Error(t, err)
		assert.True(t, compile.IsConfigError(err))
	})
}

func TestDecodeOptions(t *testing.T) {
	opts, err := DecodeOptions(map[string]interface{}{
		"enable-aot":      "true",
		"aot-cache":       "cache.bin",
		"engine-wasm":     "engine.wasm",
		"env":             []string{"A=1,B=2", "C"},
		"module-mode":     true,
		"unrelated-value": 3,
	})
	require.NoError(t, err)
	assert.True(t, opts.EnableAOT)
	assert.Equal(t, "cache.bin", opts.AOTCache)
	assert.Equal(t, []string{"engine.wasm"}, opts.EngineWasm)
	assert.Equal(t, []string{"A=1,B=2", "C"}, opts.Env)
	assert.True(t, opts.ModuleMode)
	assert.True(t, opts.Bundle)

	opts, err = DecodeOptions(map[string]interface{}{"bundle": "false"})
	require.NoError(t, err)
	assert.False(t, opts.Bundle)

	_, err = DecodeOptions(map[string]interface{}{"enable-aot": "maybe"})
	assert.True(t, compile.IsConfigError(err))
}

func TestDecodeOptionsKeepsEnvironmentStringsWhole(t *testing.T) {
	opts, err := DecodeOptions(map[string]interface{}{
		"env":         `A=1\,2,B=3`,
		"env-file":    "",
		"engine-wasm": "engines/a,b.wasm",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{`A=1\,2,B=3`}, opts.Env)
	assert.Empty(t, opts.EnvFile)
	assert.Equal(t, []string{"engines/a,b.wasm"}, opts.EngineWasm)

	req, err := BuildRequest(context.Background(), opts, "/opt/js", noEnv)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1,2", "B": "3"}, req.Env.Map())
}

func TestBuildRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		req, err := BuildRequest(ctx, Options{Bundle: true}, "/opt/js", noEnv)
		require.NoError(t, err)
		assert.Equal(t, DefaultInput, req.Input)
		assert.Equal(t, DefaultOutput, req.Output)
		assert.Equal(t, "/opt/js/starling.wasm", req.Engine)
		assert.Equal(t, compile.ModeSnapshot, req.Mode)
		assert.True(t, req.Features.Bundle)
		assert.Equal(t, 0, req.Env.Len())
	})

	t.Run("aot", func(t *testing.T) {
		req, err := BuildRequest(ctx, Options{EnableAOT: true, AOTCache: "cache.bin", WevalBin: "/bin/weval"}, "/opt/js", noEnv)
		require.NoError(t, err)
		assert.Equal(t, compile.ModeAheadOfTime, req.Mode)
		assert.Equal(t, "cache.bin", req.AOTCache)
		assert.Equal(t, "/bin/weval", req.Compilers.Weval)
		assert.Equal(t, "/opt/js/starling-ics.wevalforms.wasm", req.Engine)
	})

	t.Run("cache ignored without aot", func(t *testing.T) {
		req, err := BuildRequest(ctx, Options{AOTCache: "cache.bin"}, "/opt/js", noEnv)
		require.NoError(t, err)
		assert.Empty(t, req.AOTCache)
	})

	t.Run("home expansion", func(t *testing.T) {
		home, err := homedir.Dir()
		require.NoError(t, err)
		req, err := BuildRequest(ctx, Options{Input: "~/app/index.js"}, "/opt/js", noEnv)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "app", "index.js"), req.Input)
	})

	t.Run("env flags override env files", func(t *testing.T) {
		envFile := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(envFile, []byte("A=file\nB=file\n"), 0o644))
		lookup := func(k string) (string, bool) {
			if k == "TOKEN" {
				return "secret", true
			}
			return "", false
		}
		req, err := BuildRequest(ctx, Options{
			EnvFile: []string{envFile},
			Env:     []string{"A=flag,TOKEN", `C=x\,y`},
		}, "/opt/js", lookup)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "TOKEN", "C"}, req.Env.Keys())
		assert.Equal(t, map[string]string{"A": "flag", "B": "file", "TOKEN": "secret", "C": "x,y"}, req.Env.Map())
	})

	t.Run("missing inherited variable", func(t *testing.T) {
		_, err := BuildRequest(ctx, Options{Env: []string{"MISSING_VAR"}}, "/opt/js", noEnv)
		require.Error(t, err)
		assert.Equal(t, 1, compile.ExitCode(err))
	})

	t.Run("engine twice", func(t *testing.T) {
		_, err := BuildRequest(ctx, Options{EngineWasm: []string{"a", "b"}}, "/opt/js", noEnv)
		assert.True(t, compile.IsConfigError(err))
	})
}
