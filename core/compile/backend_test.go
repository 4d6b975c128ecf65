package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBackendFor(t *testing.T) {
	t.Run("snapshot", func(t *testing.T) {
		backend := BackendFor(CompilationRequest{
			Mode:   ModeSnapshot,
			Engine: "/opt/starling.wasm",
			Output: "/out/main.wasm",
		})
		assert.Equal(t, "Wizer", backend.Name())
		assert.Equal(t, ModeSnapshot, backend.Mode())
		assert.Equal(t, Invocation{
			Binary: "wizer",
			Args: []string{
				"--inherit-env=true", "--allow-wasi", "--wasm-bulk-memory=true", "--dir=.",
				"--dir=/src",
				"-r", "_start=wizer.resume",
				"-o", "/out/main.wasm",
				"/opt/starling.wasm",
			},
		}, backend.Invocation("/src"))
	})

	t.Run("ahead of time with cache", func(t *testing.T) {
		backend := BackendFor(CompilationRequest{
			Mode:      ModeAheadOfTime,
			Engine:    "/opt/starling-ics.wevalforms.wasm",
			Output:    "/out/main.wasm",
			AOTCache:  "/opt/cache",
			Compilers: Compilers{Weval: "/usr/local/bin/weval"},
		})
		assert.Equal(t, "Weval", backend.Name())
		assert.Equal(t, ModeAheadOfTime, backend.Mode())
		assert.Equal(t, Invocation{
			Binary: "/usr/local/bin/weval",
			Args: []string{
				"weval", "-v",
				"--cache-ro", "/opt/cache",
				"--dir", ".",
				"--dir", "/tmp/ws",
				"-w",
				"-i", "/opt/starling-ics.wevalforms.wasm",
				"-o", "/out/main.wasm",
			},
		}, backend.Invocation("/tmp/ws"))
	})

	t.Run("ahead of time without cache or extra dir", func(t *testing.T) {
		inv := BackendFor(CompilationRequest{Mode: ModeAheadOfTime, Engine: "e", Output: "o"}).Invocation("")
		assert.Equal(t, "weval", inv.Binary)
		assert.NotContains(t, inv.Args, "--cache-ro")
		assert.Equal(t, []string{"weval", "-v", "--dir", ".", "-w", "-i", "e", "-o", "o"}, inv.Args)
	})
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(ConfigErrorf("bad")))
	assert.Equal(t, 3, ExitCode(&SubprocessError{Backend: "Wizer", ExitCode: 3}))
	assert.Equal(t, 1, ExitCode(&SubprocessError{Backend: "Wizer", ExitCode: -1}))
}

func TestSubprocessErrorMessage(t *testing.T) {
	err := &SubprocessError{Backend: "Weval", Binary: "weval", ExitCode: 2}
	assert.Equal(t, "Weval initialization failure: weval exited with code 2", err.Error())
}
