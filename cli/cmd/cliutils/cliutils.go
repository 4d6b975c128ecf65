package cliutils

import (
	"context"
	"os"
	"path/filepath"
	"reflect"

	"github.com/fastly/js-compute-runtime-sub002/core/compile"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	DefaultInput  = "bin/index.js"
	DefaultOutput = "bin/main.wasm"

	engineDefault = "starling.wasm"
	engineDebug   = "starling-debug.wasm"
	engineWeval   = "starling-ics.wevalforms.wasm"
)

type Options struct {
	Input  string `mapstructure:"input"`
	Output string `mapstructure:"output"`

	EngineWasm []string `mapstructure:"engine-wasm"`
	DebugBuild bool     `mapstructure:"debug-build"`
	EnableAOT  bool     `mapstructure:"enable-aot"`
	AOTCache   string   `mapstructure:"aot-cache"`

	EnableHTTPCache          bool   `mapstructure:"enable-http-cache"`
	EnableHighResolutionTime bool   `mapstructure:"enable-experimental-high-resolution-time-methods"`
	EnableStackTraces        bool   `mapstructure:"enable-stack-traces"`
	ExcludeSources           bool   `mapstructure:"exclude-sources"`
	DebugIntermediateFiles   string `mapstructure:"debug-intermediate-files"`
	ModuleMode               bool   `mapstructure:"module-mode"`
	Bundle                   bool   `mapstructure:"bundle"`
	VerifyOutput             bool   `mapstructure:"verify-output"`

	Env     []string `mapstructure:"env"`
	EnvFile []string `mapstructure:"env-file"`

	WizerBin string `mapstructure:"wizer-bin"`
	WevalBin string `mapstructure:"weval-bin"`
}

// DecodeOptions reads the options out of loosely typed settings, as returned by viper.AllSettings.
func DecodeOptions(settings map[string]interface{}) (Options, error) {
	opts := Options{Bundle: true}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(stringToArgsHook),
	})
	if err != nil {
		return opts, errors.Wrap(err, "failed to create options decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return opts, compile.ConfigErrorf("invalid options: %s", err)
	}
	return opts, nil
}

var argsType = reflect.TypeOf([]string{})

// stringToArgsHook keeps a string read from the environment as one argument.
// --env carries its own comma syntax with \, escapes, splitting it here would break them.
func stringToArgsHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != argsType {
		return data, nil
	}
	s := reflect.ValueOf(data).String()
	if s == "" {
		return []string{}, nil
	}
	return []string{s}, nil
}

func OptionsFromViper(v *viper.Viper, args []string) (Options, error) {
	opts, err := DecodeOptions(v.AllSettings())
	if err != nil {
		return opts, err
	}
	if len(args) > 0 {
		opts.Input = args[0]
	}
	if len(args) > 1 {
		opts.Output = args[1]
	}
	return opts, nil
}

// SelectEngine picks the engine image. An explicit --engine-wasm always wins,
// otherwise the image next to the executable that matches the mode is used.
func SelectEngine(opts Options, exeDir string) (string, error) {
	switch len(opts.EngineWasm) {
	case 0:
	case 1:
		return opts.EngineWasm[0], nil
	default:
		return "", compile.ConfigErrorf("--engine-wasm was given %d times, it can only be given once", len(opts.EngineWasm))
	}
	switch {
	case opts.EnableAOT:
		return filepath.Join(exeDir, engineWeval), nil
	case opts.DebugBuild:
		return filepath.Join(exeDir, engineDebug), nil
	default:
		return filepath.Join(exeDir, engineDefault), nil
	}
}

func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", errors.Wrap(err, "failed to locate the executable")
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve the executable path")
	}
	return filepath.Dir(exe), nil
}

// BuildRequest turns the options into a compilation request. Env files are
// loaded first so --env values take precedence over them.
func BuildRequest(ctx context.Context, opts Options, exeDir string, lookup func(string) (string, bool)) (compile.CompilationRequest, error) {
	req := compile.CompilationRequest{
		Input:  opts.Input,
		Output: opts.Output,
		Mode:   compile.ModeSnapshot,
		Features: compile.Features{
			HTTPCache:                 opts.EnableHTTPCache,
			HighResolutionTimers:      opts.EnableHighResolutionTime,
			StackTraces:               opts.EnableStackTraces,
			ExcludeSources:            opts.ExcludeSources,
			ModuleMode:                opts.ModuleMode,
			Bundle:                    opts.Bundle,
			DebugIntermediateFilesDir: opts.DebugIntermediateFiles,
			VerifyOutput:              opts.VerifyOutput,
		},
		Env: compile.NewEnvOverrides(),
		Compilers: compile.Compilers{
			Wizer: opts.WizerBin,
			Weval: opts.WevalBin,
		},
	}
	if req.Input == "" {
		req.Input = DefaultInput
	}
	if req.Output == "" {
		req.Output = DefaultOutput
	}
	if opts.EnableAOT {
		req.Mode = compile.ModeAheadOfTime
		req.AOTCache = opts.AOTCache
	} else if opts.AOTCache != "" {
		log.Ctx(ctx).Warn().Msg("--aot-cache is ignored without --enable-aot")
	}
	if opts.ModuleMode && !opts.Bundle {
		log.Ctx(ctx).Warn().Msg("--module-mode has no effect with --bundle=false")
	}

	engine, err := SelectEngine(opts, exeDir)
	if err != nil {
		return req, err
	}
	req.Engine = engine

	for _, p := range []*string{&req.Input, &req.Output, &req.Engine, &req.AOTCache, &req.Features.DebugIntermediateFilesDir} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return req, compile.ConfigErrorf("invalid path %s: %s", *p, err)
		}
		*p = expanded
	}

	for _, envFile := range opts.EnvFile {
		expanded, err := homedir.Expand(envFile)
		if err != nil {
			return req, compile.ConfigErrorf("invalid path %s: %s", envFile, err)
		}
		if err := compile.LoadEnvFile(expanded, req.Env); err != nil {
			return req, err
		}
	}
	for _, envArg := range opts.Env {
		if err := compile.ParseEnvFlag(envArg, lookup, req.Env); err != nil {
			return req, err
		}
	}
	log.Ctx(ctx).Debug().Strs("env", req.Env.Keys()).Str("engine", req.Engine).Msg("built compilation request")
	return req, nil
}
