package compile

type Mode int

const (
	ModeSnapshot Mode = iota
	ModeAheadOfTime
)

func (m Mode) String() string {
	switch m {
	case ModeSnapshot:
		return "snapshot"
	case ModeAheadOfTime:
		return "aheadOfTime"
	default:
		return "unknown"
	}
}

type Features struct {
	HTTPCache            bool
	HighResolutionTimers bool
	StackTraces          bool
	ExcludeSources       bool
	ModuleMode           bool
	// Bundle runs the bundler and the regex precompile step before the compiler.
	Bundle bool
	// DebugIntermediateFilesDir receives the bundle, the precompiled script and the source map.
	DebugIntermediateFilesDir string
	VerifyOutput              bool
}

type Compilers struct {
	Wizer string
	Weval string
}

const (
	DefaultWizer = "wizer"
	DefaultWeval = "weval"
)

type CompilationRequest struct {
	Input    string
	Output   string
	Engine   string
	Mode     Mode
	AOTCache string
	Features Features
	Env      *EnvOverrides

	Compilers Compilers
}

type SubprocessResult struct {
	ExitCode int
	// Binary is the compiler executable that was run, Backend its display name.
	Binary  string
	Backend string
	Mode    Mode
}
