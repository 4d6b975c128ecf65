package compile

// Invocation is a resolved external compiler command line.
type Invocation struct {
	Binary string
	Args   []string
}

// BuildBackend is one of the two external compilers.
type BuildBackend interface {
	Name() string
	Mode() Mode
	// Invocation builds the command line. extraDir is granted to the compiler
	// next to the working directory, empty for none.
	Invocation(extraDir string) Invocation
}

// SnapshotBackend runs the engine under Wizer and snapshots its heap after the script ran.
type SnapshotBackend struct {
	Binary string
	Engine string
	Output string
}

func (SnapshotBackend) Name() string { return "Wizer" }
func (SnapshotBackend) Mode() Mode   { return ModeSnapshot }

func (b SnapshotBackend) Invocation(extraDir string) Invocation {
	args := []string{
		"--inherit-env=true",
		"--allow-wasi",
		"--wasm-bulk-memory=true",
		"--dir=.",
	}
	if extraDir != "" {
		args = append(args, "--dir="+extraDir)
	}
	args = append(args,
		"-r", "_start=wizer.resume",
		"-o", b.Output,
		b.Engine,
	)
	return Invocation{Binary: b.Binary, Args: args}
}

// AheadOfTimeBackend compiles the engine and script with Weval, optionally reading a prior cache.
type AheadOfTimeBackend struct {
	Binary string
	Engine string
	Output string
	Cache  string
}

func (AheadOfTimeBackend) Name() string { return "Weval" }
func (AheadOfTimeBackend) Mode() Mode   { return ModeAheadOfTime }

func (b AheadOfTimeBackend) Invocation(extraDir string) Invocation {
	args := []string{"weval", "-v"}
	if b.Cache != "" {
		args = append(args, "--cache-ro", b.Cache)
	}
	args = append(args, "--dir", ".")
	if extraDir != "" {
		args = append(args, "--dir", extraDir)
	}
	args = append(args,
		"-w",
		"-i", b.Engine,
		"-o", b.Output,
	)
	return Invocation{Binary: b.Binary, Args: args}
}

// BackendFor selects the backend from the request mode. It has no side effects.
func BackendFor(req CompilationRequest) BuildBackend {
	if req.Mode == ModeAheadOfTime {
		binary := req.Compilers.Weval
		if binary == "" {
			binary = DefaultWeval
		}
		return AheadOfTimeBackend{
			Binary: binary,
			Engine: req.Engine,
			Output: req.Output,
			Cache:  req.AOTCache,
		}
	}
	binary := req.Compilers.Wizer
	if binary == "" {
		binary = DefaultWizer
	}
	return SnapshotBackend{
		Binary: binary,
		Engine: req.Engine,
		Output: req.Output,
	}
}
