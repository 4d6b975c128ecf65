package wasm

import (
	"context"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tetratelabs/wazero"
)

const entryExport = "_start"

type ModuleInfo struct {
	Exports       []string
	ImportModules []string
	Memories      int
}

func (m ModuleInfo) HasExport(name string) bool {
	i := sort.SearchStrings(m.Exports, name)
	return i < len(m.Exports) && m.Exports[i] == name
}

type Verifier struct {
	wasmRuntime wazero.Runtime
}

func NewVerifier(ctx context.Context) *Verifier {
	return &Verifier{
		wasmRuntime: wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter()),
	}
}

// Inspect compiles the module without instantiating it and lists what it exports and imports.
func (v *Verifier) Inspect(ctx context.Context, wasmContent []byte) (ModuleInfo, error) {
	compiled, err := v.wasmRuntime.CompileModule(ctx, wasmContent)
	if err != nil {
		return ModuleInfo{}, errors.Wrap(err, "error compiling wasm module")
	}
	defer compiled.Close(ctx)

	info := ModuleInfo{Memories: len(compiled.ExportedMemories())}
	for name := range compiled.ExportedFunctions() {
		info.Exports = append(info.Exports, name)
	}
	sort.Strings(info.Exports)

	seen := map[string]struct{}{}
	for _, f := range compiled.ImportedFunctions() {
		moduleName, _, _ := f.Import()
		if _, ok := seen[moduleName]; ok {
			continue
		}
		seen[moduleName] = struct{}{}
		info.ImportModules = append(info.ImportModules, moduleName)
	}
	sort.Strings(info.ImportModules)
	return info, nil
}

func (v *Verifier) Close(ctx context.Context) error {
	return v.wasmRuntime.Close(ctx)
}

// Verify checks that the file at path is a valid module with a _start entry point.
func Verify(ctx context.Context, path string) error {
	wasmContent, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "error reading %s", path)
	}
	v := NewVerifier(ctx)
	defer v.Close(ctx)

	info, err := v.Inspect(ctx, wasmContent)
	if err != nil {
		return errors.Wrapf(err, "%s is not a valid wasm module", path)
	}
	log.Ctx(ctx).Debug().
		Strs("imports", info.ImportModules).
		Int("exports", len(info.Exports)).
		Msgf("verified %s", path)
	if !info.HasExport(entryExport) {
		return errors.Errorf("%s does not export %s", path, entryExport)
	}
	return nil
}
