package precompile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
)

// The preamble stays on a single line so every line of the original program
// keeps its line number in the bundler's source map.
const (
	preamble  = `;{const precompile = (r) => { r.exec('a'); r.exec('\u1000'); };`
	postamble = `}`
)

type Options struct {
	Filename string
}

type RegexLiteral struct {
	Pattern string
	Flags   string
	Start   int
	End     int
}

func (r RegexLiteral) String() string {
	return "/" + r.Pattern + "/" + r.Flags
}

type ParseError struct {
	Filename string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s for regex precompilation: %s", e.Filename, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Rewrite transpiles every regex literal of source for the engine and prepends
// a preamble that runs each of them once. Source without regex literals is
// returned unchanged.
func Rewrite(source string, opts Options) (string, error) {
	literals, err := Find(source, opts)
	if err != nil {
		return "", err
	}
	if len(literals) == 0 {
		return source, nil
	}

	rewritten := make([]string, len(literals))
	for i, lit := range literals {
		pattern, err := TranspilePattern(lit.Pattern, lit.Flags)
		if err != nil {
			// a malformed pattern is reported by the engine when it runs, not here
			pattern = lit.Pattern
		}
		rewritten[i] = "/" + pattern + "/" + lit.Flags
	}

	var body strings.Builder
	body.Grow(len(source))
	last := 0
	for i, lit := range literals {
		body.WriteString(source[last:lit.Start])
		body.WriteString(rewritten[i])
		last = lit.End
	}
	body.WriteString(source[last:])

	var out strings.Builder
	out.Grow(len(preamble) + len(postamble) + body.Len() + 16*len(literals))
	out.WriteString(preamble)
	for _, re := range rewritten {
		out.WriteString("precompile(")
		out.WriteString(re)
		out.WriteString(");")
	}
	out.WriteString(postamble)
	out.WriteString(body.String())
	return out.String(), nil
}

// Find parses source and returns its regex literals ordered by position.
// Scripts and modules go through the same parser: import and export
// declarations, import.meta and top-level await are all accepted.
func Find(source string, opts Options) ([]RegexLiteral, error) {
	filename := opts.Filename
	if filename == "" {
		filename = "<input>"
	}

	// the lexer hands out sub-slices of buf, the spare byte keeps the input
	// from reallocating it to append its terminating NUL
	buf := make([]byte, len(source), len(source)+1)
	copy(buf, source)
	tree, err := js.Parse(parse.NewInputBytes(buf), js.Options{})
	if err != nil {
		return nil, &ParseError{Filename: filename, Err: err}
	}

	collector := &regExpCollector{seen: map[int]bool{}}
	js.Walk(collector, &tree.BlockStmt)

	out := make([]RegexLiteral, 0, len(collector.literals))
	for _, data := range collector.literals {
		start := cap(buf) - cap(data)
		end := start + len(data)
		if start < 0 || end > len(source) || source[start:end] != string(data) {
			return nil, &ParseError{Filename: filename, Err: fmt.Errorf("regex literal %s is not at offset %d", data, start)}
		}
		if collector.seen[start] {
			continue
		}
		collector.seen[start] = true
		literal := string(data)
		slash := strings.LastIndexByte(literal, '/')
		out = append(out, RegexLiteral{
			Pattern: literal[1:slash],
			Flags:   literal[slash+1:],
			Start:   start,
			End:     end,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

type regExpCollector struct {
	literals [][]byte
	seen     map[int]bool
}

func (c *regExpCollector) Enter(n js.INode) js.IVisitor {
	if lit, ok := n.(*js.LiteralExpr); ok && lit.TokenType == js.RegExpToken {
		c.literals = append(c.literals, lit.Data)
	}
	return c
}

func (c *regExpCollector) Exit(js.INode) {}
