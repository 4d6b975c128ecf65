package bundler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fastly/js-compute-runtime-sub002/core/virtual_modules"
)

const (
	namespaceFile    = "file"
	namespaceVirtual = "fastly"
)

var defaultExtensions = []string{".js", ".mjs", ".cjs", ".ts", ".mts", ".cts", ".jsx", ".tsx", ".json"}

type ResolveRequest struct {
	Specifier  string
	Importer   string
	ResolveDir string
}

// ResolveResult with Handled == false means the resolver has no opinion and the
// next resolver in the chain (ultimately esbuild itself) should try.
type ResolveResult struct {
	Handled   bool
	Path      string
	Namespace string
}

type ModuleResolver interface {
	Resolve(req ResolveRequest) (ResolveResult, error)
}

// Chain asks each resolver in order and stops at the first one that handles the request.
type Chain []ModuleResolver

func (c Chain) Resolve(req ResolveRequest) (ResolveResult, error) {
	for _, r := range c {
		res, err := r.Resolve(req)
		if err != nil {
			return ResolveResult{}, err
		}
		if res.Handled {
			return res, nil
		}
	}
	return ResolveResult{}, nil
}

type ResolutionError struct {
	Specifier string
	Importer  string
}

func (e *ResolutionError) Error() string {
	if e.Importer == "" {
		return fmt.Sprintf("could not resolve %q", e.Specifier)
	}
	return fmt.Sprintf("could not resolve %q imported from %s", e.Specifier, e.Importer)
}

// VirtualResolver redirects "fastly:*" specifiers to the virtual module table.
// Unknown names are left unhandled so the bundler reports them like any other
// unresolvable import.
type VirtualResolver struct {
	Lookup func(namespace string) (string, bool)
}

func NewVirtualResolver() VirtualResolver {
	return VirtualResolver{Lookup: virtual_modules.Resolve}
}

func (v VirtualResolver) Resolve(req ResolveRequest) (ResolveResult, error) {
	if !strings.HasPrefix(req.Specifier, virtual_modules.Prefix) {
		return ResolveResult{}, nil
	}
	name := strings.TrimPrefix(req.Specifier, virtual_modules.Prefix)
	if _, ok := v.Lookup(name); !ok {
		return ResolveResult{}, nil
	}
	return ResolveResult{Handled: true, Path: name, Namespace: namespaceVirtual}, nil
}

func (v VirtualResolver) Load(name string) (string, bool) {
	return v.Lookup(name)
}

// FilesystemResolver resolves relative and absolute specifiers against the
// importing file's directory. Bare package names are left to the bundler's
// node_modules lookup.
type FilesystemResolver struct {
	Extensions []string
}

func NewFilesystemResolver() FilesystemResolver {
	return FilesystemResolver{Extensions: defaultExtensions}
}

func isPathSpecifier(specifier string) bool {
	return strings.HasPrefix(specifier, "./") ||
		strings.HasPrefix(specifier, "../") ||
		specifier == "." || specifier == ".." ||
		filepath.IsAbs(specifier)
}

func (f FilesystemResolver) Resolve(req ResolveRequest) (ResolveResult, error) {
	if !isPathSpecifier(req.Specifier) {
		return ResolveResult{}, nil
	}
	base := req.Specifier
	if !filepath.IsAbs(base) {
		base = filepath.Join(req.ResolveDir, filepath.FromSlash(base))
	}
	for _, candidate := range f.candidates(base) {
		info, err := os.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		return ResolveResult{Handled: true, Path: candidate, Namespace: namespaceFile}, nil
	}
	return ResolveResult{}, &ResolutionError{Specifier: req.Specifier, Importer: req.Importer}
}

func (f FilesystemResolver) candidates(base string) []string {
	out := make([]string, 0, 1+2*len(f.Extensions))
	out = append(out, base)
	for _, ext := range f.Extensions {
		out = append(out, base+ext)
	}
	for _, ext := range f.Extensions {
		out = append(out, filepath.Join(base, "index"+ext))
	}
	return out
}
