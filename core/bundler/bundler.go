package bundler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	pluginName = "fastly"
	outfile    = "fastly_bundle.js"
)

type Format int

const (
	FormatScript Format = iota
	FormatModule
)

func (f Format) String() string {
	if f == FormatModule {
		return "module"
	}
	return "script"
}

type Options struct {
	// ModuleMode keeps import/export syntax and allows top-level await.
	// Otherwise the bundle is a single self-executing script.
	ModuleMode     bool
	SourceMap      bool
	ExcludeSources bool
	// WorkingDir defaults to the process working directory.
	WorkingDir string
}

type Artifact struct {
	Script    string
	SourceMap string
	Format    Format
}

type Message struct {
	Text   string
	File   string
	Line   int
	Column int
	Plugin string
}

func (m Message) String() string {
	if m.File == "" {
		return m.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.File, m.Line, m.Column, m.Text)
}

// BuildError carries every error the bundler reported for one entry point.
type BuildError struct {
	Entry    string
	Messages []Message
}

func (e *BuildError) Error() string {
	lines := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		lines = append(lines, m.String())
	}
	return fmt.Sprintf("failed to bundle %s:\n%s", e.Entry, strings.Join(lines, "\n"))
}

// Unresolved reports whether at least one message is an import that could not be resolved.
func (e *BuildError) Unresolved() bool {
	for _, m := range e.Messages {
		if m.Plugin == pluginName || strings.HasPrefix(m.Text, "Could not resolve") {
			return true
		}
	}
	return false
}

type Bundler struct {
	Virtual    VirtualResolver
	Filesystem FilesystemResolver
}

func New() *Bundler {
	return &Bundler{
		Virtual:    NewVirtualResolver(),
		Filesystem: NewFilesystemResolver(),
	}
}

func (b *Bundler) Bundle(ctx context.Context, entryPath string, opts Options) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry, err := filepath.Abs(entryPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve entry point '%s'", entryPath)
	}
	wd := opts.WorkingDir
	if wd == "" {
		wd, err = os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get working directory")
		}
	}

	buildOpts := api.BuildOptions{
		Bundle:        true,
		Write:         false,
		Conditions:    []string{"fastly"},
		AbsWorkingDir: wd,
		Outfile:       filepath.Join(wd, outfile),
		LogLevel:      api.LogLevelSilent,
		Target:        api.ESNext,
		Plugins:       []api.Plugin{b.plugin()},
		Sourcemap:     api.SourceMapNone,
	}
	if opts.SourceMap {
		buildOpts.Sourcemap = api.SourceMapExternal
		buildOpts.SourcesContent = api.SourcesContentInclude
		if opts.ExcludeSources {
			buildOpts.SourcesContent = api.SourcesContentExclude
		}
	}

	format := FormatScript
	if opts.ModuleMode {
		format = FormatModule
		buildOpts.Format = api.FormatESModule
		buildOpts.Supported = map[string]bool{"top-level-await": true}
		buildOpts.EntryPoints = []string{entry}
	} else {
		// importing the entry for its side effects drops its top-level exports
		// instead of turning them into a build error
		buildOpts.Format = api.FormatIIFE
		buildOpts.Stdin = &api.StdinOptions{
			Contents:   "import " + jsString(entry) + ";",
			ResolveDir: filepath.Dir(entry),
			Sourcefile: filepath.Base(entry) + "?entry",
			Loader:     api.LoaderJS,
		}
	}

	log.Ctx(ctx).Debug().Str("entry", entry).Str("format", format.String()).Msg("bundling")
	result := api.Build(buildOpts)
	for _, w := range result.Warnings {
		log.Ctx(ctx).Warn().Msg(toMessage(w).String())
	}
	if len(result.Errors) > 0 {
		buildErr := &BuildError{Entry: entry}
		for _, m := range result.Errors {
			buildErr.Messages = append(buildErr.Messages, toMessage(m))
		}
		return nil, buildErr
	}

	artifact := &Artifact{Format: format}
	for _, file := range result.OutputFiles {
		if strings.HasSuffix(file.Path, ".map") {
			artifact.SourceMap = string(file.Contents)
			continue
		}
		artifact.Script = string(file.Contents)
	}
	return artifact, nil
}

func (b *Bundler) plugin() api.Plugin {
	chain := Chain{b.Virtual, b.Filesystem}
	return api.Plugin{
		Name: pluginName,
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `.*`}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				res, err := chain.Resolve(ResolveRequest{
					Specifier:  args.Path,
					Importer:   args.Importer,
					ResolveDir: args.ResolveDir,
				})
				if err != nil {
					return api.OnResolveResult{}, err
				}
				if !res.Handled {
					return api.OnResolveResult{}, nil
				}
				return api.OnResolveResult{Path: res.Path, Namespace: res.Namespace}, nil
			})
			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: namespaceVirtual}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				src, ok := b.Virtual.Load(args.Path)
				if !ok {
					return api.OnLoadResult{}, &ResolutionError{Specifier: "fastly:" + args.Path}
				}
				return api.OnLoadResult{Contents: &src, Loader: api.LoaderJS}, nil
			})
		},
	}
}

func toMessage(m api.Message) Message {
	out := Message{Text: m.Text, Plugin: m.PluginName}
	if m.Location != nil {
		out.File = m.Location.File
		out.Line = m.Location.Line
		out.Column = m.Location.Column
	}
	return out
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
