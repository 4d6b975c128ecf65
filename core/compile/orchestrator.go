package compile

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fastly/js-compute-runtime-sub002/core/bundler"
	"github.com/fastly/js-compute-runtime-sub002/core/chown_util"
	"github.com/fastly/js-compute-runtime-sub002/core/precompile"
	"github.com/fastly/js-compute-runtime-sub002/core/state_display"
	"github.com/fastly/js-compute-runtime-sub002/core/virtual_modules"
	"github.com/fastly/js-compute-runtime-sub002/core/wasm"
	"github.com/imdario/mergo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Stage string

const (
	StageValidating   Stage = "Validating"
	StageBundling     Stage = "Bundling"
	StagePrecompiling Stage = "Precompiling"
	StageSpawning     Stage = "Spawning"
	StageFinalizing   Stage = "Finalizing"
	StageSucceeded    Stage = "Succeeded"
	StageFailed       Stage = "Failed"
)

const (
	workspaceScript  = "input.js"
	debugBundle      = "fastly_bundle.js"
	debugPrecompiled = "fastly_precompiled.js"
	debugBundleMap   = "fastly_bundle.js.map"

	minorWriteScript    = "write workspace script"
	minorDebugFiles     = "write intermediate files"
	minorWriteSourcemap = "write source map"
	minorVerifyOutput   = "verify output"
)

type Orchestrator struct {
	Runner  ProcessRunner
	Stdout  io.Writer
	Stderr  io.Writer
	Tracker *state_display.Tracker

	// Environ returns the ambient environment handed to the compiler, os.Environ by default.
	Environ func() []string
	Bundler *bundler.Bundler
	Verify  func(ctx context.Context, path string) error
	// Rectify hands the produced files back to the sudo user, if any.
	Rectify func(ctx context.Context, paths []string)
}

func NewOrchestrator(tracker *state_display.Tracker) *Orchestrator {
	return &Orchestrator{
		Runner:  ExecRunner{},
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Tracker: tracker,
		Environ: os.Environ,
		Bundler: bundler.New(),
		Verify:  wasm.Verify,
		Rectify: chown_util.TryRectifyRootFiles,
	}
}

// Run compiles req from start to finish. The returned error is nil only when
// the compiler exited with 0, and ExitCode(err) is the status to exit with.
func (o *Orchestrator) Run(ctx context.Context, req CompilationRequest) (SubprocessResult, error) {
	logger := log.Ctx(ctx)
	result := SubprocessResult{Mode: req.Mode}

	err := o.stage(ctx, StageValidating, func() error {
		var err error
		req, err = validate(req)
		return err
	})
	if err != nil {
		return o.fail(ctx, result, err)
	}

	backend := BackendFor(req)
	result.Backend = backend.Name()
	result.Binary = backend.Invocation("").Binary
	logger.Debug().
		Str("backend", backend.Name()).
		Str("mode", req.Mode.String()).
		Str("engine", req.Engine).
		Msg("compiling " + req.Input)

	var exitCode int
	if req.Features.Bundle {
		err = WithTempWorkspace(func(dir string) error {
			script, err := o.prepare(ctx, req, dir)
			if err != nil {
				return err
			}
			exitCode, err = o.spawn(ctx, req, backend, script, dir)
			return err
		})
	} else {
		exitCode, err = o.spawn(ctx, req, backend, req.Input, filepath.Dir(req.Input))
	}
	if err != nil {
		return o.fail(ctx, result, err)
	}
	result.ExitCode = exitCode

	err = o.stage(ctx, StageFinalizing, func() error {
		if exitCode != 0 {
			return &SubprocessError{Backend: backend.Name(), Binary: backend.Invocation("").Binary, ExitCode: exitCode}
		}
		if o.Rectify != nil {
			o.Rectify(ctx, producedFiles(req))
		}
		if req.Features.VerifyOutput && o.Verify != nil {
			o.Tracker.StartMinorStep(string(StageFinalizing), minorVerifyOutput)
			defer o.Tracker.EndMinorStep(string(StageFinalizing), minorVerifyOutput)
			return o.Verify(ctx, req.Output)
		}
		return nil
	})
	if err != nil {
		return o.fail(ctx, result, err)
	}
	logger.Debug().Str("stage", string(StageSucceeded)).Msgf("wrote %s", req.Output)
	return result, nil
}

func producedFiles(req CompilationRequest) []string {
	files := []string{req.Output}
	if req.Features.Bundle && req.Features.StackTraces {
		files = append(files, req.Output+".map")
	}
	if dir := req.Features.DebugIntermediateFilesDir; req.Features.Bundle && dir != "" {
		files = append(files,
			dir,
			filepath.Join(dir, debugBundle),
			filepath.Join(dir, debugPrecompiled),
			filepath.Join(dir, debugBundleMap),
		)
	}
	return files
}

func (o *Orchestrator) fail(ctx context.Context, result SubprocessResult, err error) (SubprocessResult, error) {
	if result.ExitCode == 0 {
		result.ExitCode = ExitCode(err)
	}
	log.Ctx(ctx).Debug().Str("stage", string(StageFailed)).Err(err).Msg("compilation failed")
	return result, err
}

func (o *Orchestrator) stage(ctx context.Context, stage Stage, f func() error) error {
	o.Tracker.StartMajorStep(string(stage))
	log.Ctx(ctx).Debug().Str("stage", string(stage)).Msg("entering stage")
	err := f()
	o.Tracker.EndMajorStep(string(stage), err)
	return err
}

func validate(req CompilationRequest) (CompilationRequest, error) {
	if req.Mode != ModeSnapshot && req.Mode != ModeAheadOfTime {
		return req, ConfigErrorf("unknown compilation mode %d", req.Mode)
	}
	var err error
	for _, p := range []*string{&req.Input, &req.Output, &req.Engine, &req.AOTCache} {
		if *p == "" {
			continue
		}
		*p, err = filepath.Abs(*p)
		if err != nil {
			return req, wrapConfigError(err, "failed to resolve path %s", *p)
		}
	}
	if req.Output == "" {
		return req, ConfigErrorf("no output path given")
	}

	if err := requireFile(req.Input, "input"); err != nil {
		return req, err
	}
	f, err := os.Open(req.Input)
	if err != nil {
		return req, wrapConfigError(err, "the input path %s is not readable", req.Input)
	}
	f.Close()

	if err := requireFile(req.Engine, "engine wasm"); err != nil {
		return req, err
	}
	if req.AOTCache != "" {
		if err := requireFile(req.AOTCache, "aot cache"); err != nil {
			return req, err
		}
	}

	outputDir := filepath.Dir(req.Output)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return req, wrapConfigError(err, "failed to create the directory %s for the output", outputDir)
	}
	info, err := os.Stat(req.Output)
	if err == nil && !info.Mode().IsRegular() {
		return req, ConfigErrorf("the output path %s is not a file", req.Output)
	}
	if err != nil && !os.IsNotExist(err) {
		return req, wrapConfigError(err, "failed to stat the output path %s", req.Output)
	}

	if req.Env == nil {
		req.Env = NewEnvOverrides()
	}
	return req, nil
}

func requireFile(path string, what string) error {
	if path == "" {
		return ConfigErrorf("no %s path given", what)
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ConfigErrorf("the %s path %s does not exist", what, path)
		}
		return wrapConfigError(err, "failed to stat the %s path %s", what, path)
	}
	if !info.Mode().IsRegular() {
		return ConfigErrorf("the %s path %s is not a file", what, path)
	}
	return nil
}

// prepare bundles and precompiles the input, and returns the script path inside dir.
func (o *Orchestrator) prepare(ctx context.Context, req CompilationRequest, dir string) (string, error) {
	b := o.Bundler
	if b == nil {
		b = bundler.New()
	}
	var artifact *bundler.Artifact
	err := o.stage(ctx, StageBundling, func() error {
		var err error
		artifact, err = b.Bundle(ctx, req.Input, bundler.Options{
			ModuleMode:     req.Features.ModuleMode,
			SourceMap:      req.Features.StackTraces || req.Features.DebugIntermediateFilesDir != "",
			ExcludeSources: req.Features.ExcludeSources,
		})
		var buildErr *bundler.BuildError
		if errors.As(err, &buildErr) && buildErr.Unresolved() {
			log.Ctx(ctx).Info().Msg("platform modules are imported as " + virtual_modules.Prefix + "<name>, known names: " + strings.Join(virtual_modules.Namespaces(), ", "))
		}
		return err
	})
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, workspaceScript)
	err = o.stage(ctx, StagePrecompiling, func() error {
		script, err := precompile.Rewrite(artifact.Script, precompile.Options{Filename: debugBundle})
		if err != nil {
			return err
		}

		if debugDir := req.Features.DebugIntermediateFilesDir; debugDir != "" {
			o.Tracker.StartMinorStep(string(StagePrecompiling), minorDebugFiles)
			err = writeDebugFiles(debugDir, artifact, script)
			o.Tracker.EndMinorStep(string(StagePrecompiling), minorDebugFiles)
			if err != nil {
				return err
			}
			log.Ctx(ctx).Debug().Msgf("wrote intermediate files to %s", debugDir)
		}
		if req.Features.StackTraces && artifact.SourceMap != "" {
			o.Tracker.StartMinorStep(string(StagePrecompiling), minorWriteSourcemap)
			err = os.WriteFile(req.Output+".map", []byte(artifact.SourceMap), 0o644)
			o.Tracker.EndMinorStep(string(StagePrecompiling), minorWriteSourcemap)
			if err != nil {
				return errors.Wrapf(err, "failed to write source map %s.map", req.Output)
			}
		}

		o.Tracker.StartMinorStep(string(StagePrecompiling), minorWriteScript)
		defer o.Tracker.EndMinorStep(string(StagePrecompiling), minorWriteScript)
		if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
			return errors.Wrapf(err, "failed to write %s", path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func writeDebugFiles(dir string, artifact *bundler.Artifact, precompiled string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create intermediate files directory %s", dir)
	}
	files := map[string]string{
		debugBundle:      artifact.Script,
		debugPrecompiled: precompiled,
	}
	if artifact.SourceMap != "" {
		files[debugBundleMap] = artifact.SourceMap
	}
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return errors.Wrapf(err, "failed to write %s", p)
		}
	}
	return nil
}

func (o *Orchestrator) spawn(ctx context.Context, req CompilationRequest, backend BuildBackend, script string, dir string) (int, error) {
	var exitCode int
	err := o.stage(ctx, StageSpawning, func() error {
		env, err := o.environment(req)
		if err != nil {
			return err
		}
		invocation := backend.Invocation(dir)
		runner := o.Runner
		if runner == nil {
			runner = ExecRunner{}
		}
		exitCode, err = runner.Run(ctx, ProcessSpec{
			Binary: invocation.Binary,
			Args:   invocation.Args,
			Stdin:  strings.NewReader(script),
			Env:    env,
			Stdout: o.Stdout,
			Stderr: o.Stderr,
		})
		if err != nil {
			return errors.Wrapf(err, "%s initialization failure", backend.Name())
		}
		return nil
	})
	return exitCode, err
}

// environment overlays the request overrides and the feature flags on the ambient environment.
func (o *Orchestrator) environment(req CompilationRequest) ([]string, error) {
	environ := o.Environ
	if environ == nil {
		environ = os.Environ
	}
	merged := map[string]string{}
	for _, kv := range environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		merged[k] = v
	}
	overrides := req.Env.Map()
	overrides[envHighResolutionTime] = featureFlag(req.Features.HighResolutionTimers)
	overrides[envHTTPCache] = featureFlag(req.Features.HTTPCache)
	if err := mergo.Merge(&merged, overrides, mergo.WithOverride); err != nil {
		return nil, errors.Wrap(err, "failed to merge environment")
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env, nil
}
