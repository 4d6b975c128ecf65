package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fastly/js-compute-runtime-sub002/cli/cmd/cliutils"
	"github.com/fastly/js-compute-runtime-sub002/cli/logger"
	"github.com/fastly/js-compute-runtime-sub002/core/compile"
	"github.com/fastly/js-compute-runtime-sub002/core/state_display"
	"github.com/google/uuid"
	"github.com/mitchellh/colorstring"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:           "js-compute-runtime [input] [output]",
	Short:         "Compile a JavaScript application into a WebAssembly module",
	Args:          cobra.MaximumNArgs(2),
	Example:       "js-compute-runtime bin/index.js bin/main.wasm\njs-compute-runtime --enable-aot src/index.js out/main.wasm",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCompile,
}

func init() {
	rootCmd.PersistentFlags().String("log-format", "auto", "Log format (auto, plain, json)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "Log level")

	addCompileFlags(rootCmd.Flags())

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	if err := viper.BindPFlags(rootCmd.Flags()); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		versionCmd,
	)
	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	viper.SetEnvPrefix("js_compute")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addCompileFlags(flags *pflag.FlagSet) {
	flags.StringArray("engine-wasm", nil, "Engine wasm image to snapshot or compile, defaults to the image shipped next to this binary")
	flags.Bool("debug-build", false, "Use the debug engine image")
	flags.Bool("enable-aot", false, "Compile ahead of time with weval instead of snapshotting with wizer")
	flags.String("aot-cache", "", "Read-only weval cache, only used with --enable-aot")
	flags.Bool("enable-http-cache", false, "Enable the HTTP cache API in the engine")
	flags.Bool("enable-experimental-high-resolution-time-methods", false, "Enable high resolution timers in the engine")
	flags.Bool("enable-stack-traces", false, "Write a source map next to the output for mapped stack traces")
	flags.Bool("exclude-sources", false, "Do not embed the original sources in the source map")
	flags.String("debug-intermediate-files", "", "Directory receiving the bundle, the precompiled script and the source map")
	flags.Bool("module-mode", false, "Keep ES module syntax and allow top-level await")
	flags.Bool("bundle", true, "Bundle and precompile the input before compiling it")
	flags.StringArray("env", nil, "Environment variables for the compiler, KEY=VALUE or KEY to inherit, comma separated, \\, for a literal comma")
	flags.StringArray("env-file", nil, "Dotenv file with environment variables for the compiler")
	flags.String("wizer-bin", compile.DefaultWizer, "Wizer binary")
	flags.String("weval-bin", compile.DefaultWeval, "Weval binary")
	flags.Bool("verify-output", false, "Check that the produced module compiles and exports _start")
}

func runCompile(cmd *cobra.Command, args []string) error {
	lg, err := logger.New()
	if err != nil {
		return compile.ConfigErrorf("%s", err)
	}
	lg = lg.With().Str("build", uuid.NewString()).Logger()
	ctx := lg.WithContext(cmd.Context())

	opts, err := cliutils.OptionsFromViper(viper.GetViper(), args)
	if err != nil {
		return err
	}
	exeDir, err := cliutils.ExecutableDir()
	if err != nil {
		return err
	}
	req, err := cliutils.BuildRequest(ctx, opts, exeDir, os.LookupEnv)
	if err != nil {
		return err
	}

	tracker := state_display.NewTracker()
	if jsonLogs, _ := logger.JSONLogs(viper.GetString("log-format")); !jsonLogs && lg.GetLevel() <= zerolog.InfoLevel {
		logger.NewStageDisplay(os.Stderr).Attach(tracker)
	}

	result, err := compile.NewOrchestrator(tracker).Run(ctx, req)
	if err != nil {
		return err
	}
	log.Ctx(ctx).Info().
		Str("backend", result.Backend).
		Str("binary", result.Binary).
		Str("mode", result.Mode.String()).
		Msgf("wrote %s", req.Output)
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorstring.Color("[red][bold]Error:[reset] ")+err.Error())
		os.Exit(compile.ExitCode(err))
	}
}
