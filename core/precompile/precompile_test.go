package precompile

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteWithoutRegexIsNoop(t *testing.T) {
	sources := []string{
		``,
		`console.log("no regex here");`,
		"const x = a / b / c;\nconst y = (a) / 2;",
		`const s = "/not a regex/g"; // /nor this/`,
	}
	for _, src := range sources {
		got, err := Rewrite(src, Options{})
		require.NoError(t, err)
		assert.Equal(t, src, got)
	}
}

func TestRewrite(t *testing.T) {
	src := `(() => {
  const words = /\w+/g;
  function check(s) {
    var hoisted = /^a(b|c)$/i;
    return hoisted.test(s) && ` + "`${/x/.test(s)}`" + `;
  }
  addEventListener("fetch", (e) => e.respondWith(check(e.request.url.replace(words, ""))));
})();
`
	got, err := Rewrite(src, Options{Filename: "bundle.js"})
	require.NoError(t, err)

	require.True(t, strings.HasSuffix(got, src), "regexes without property escapes are left as written")
	header := strings.TrimSuffix(got, src)
	assert.NotContains(t, header, "\n", "preamble must stay on one line")
	assert.True(t, strings.HasPrefix(header, preamble))
	assert.True(t, strings.HasSuffix(header, postamble))
	assert.Equal(t, 3, strings.Count(header, "precompile(/"))
	assert.Contains(t, header, `precompile(/\w+/g);precompile(/^a(b|c)$/i);precompile(/x/);`)

	literals, err := Find(got, Options{})
	require.NoError(t, err, "rewritten output must parse")
	assert.Len(t, literals, 6)
}

func TestRewriteTranspilesPropertyEscapes(t *testing.T) {
	src := `const re = /\p{ASCII}+/u; re.test("x");`
	got, err := Rewrite(src, Options{})
	require.NoError(t, err)

	want := `const re = /[\u{0}-\u{7F}]+/u; re.test("x");`
	assert.True(t, strings.HasSuffix(got, want), got)
	assert.Contains(t, got, `precompile(/[\u{0}-\u{7F}]+/u);`)
}

func TestRewriteKeepsInvalidPatterns(t *testing.T) {
	src := `const bad = /\p{NotAProperty}/u; const good = /\p{ASCII}/u;`
	got, err := Rewrite(src, Options{})
	require.NoError(t, err)
	assert.Contains(t, got, `const bad = /\p{NotAProperty}/u;`)
	assert.Contains(t, got, `precompile(/\p{NotAProperty}/u);`)
	assert.Contains(t, got, `const good = /[\u{0}-\u{7F}]/u;`)
}

func TestRewriteParseFailure(t *testing.T) {
	_, err := Rewrite(`function (`, Options{Filename: "broken.js"})
	require.Error(t, err)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "broken.js", parseErr.Filename)
}

func TestRewriteModuleSyntax(t *testing.T) {
	src := `var re = /a+/g;
var isMeta = /import.meta/.test(code);
var v = await Promise.resolve(re.test("aa"));
console.log(import.meta.url);
export {
  v,
  isMeta
};
`
	got, err := Rewrite(src, Options{})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, src))
	assert.Contains(t, got, "precompile(/a+/g);precompile(/import.meta/);")

	literals, err := Find(src, Options{})
	require.NoError(t, err)
	require.Len(t, literals, 2)
	assert.Equal(t, "/a+/g", src[literals[0].Start:literals[0].End])
	assert.Equal(t, "a+", literals[0].Pattern)
	assert.Equal(t, "g", literals[0].Flags)
	assert.Equal(t, "/import.meta/", src[literals[1].Start:literals[1].End])
}

func TestRewriteRecentSyntax(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "bigint",
			src:  "const limit = 2n ** 64n;\nconsole.log(/ok/.test(String(limit)));\n",
			want: "precompile(/ok/);",
		},
		{
			name: "for await",
			src:  "async function drain(stream) {\n  for await (const chunk of stream) {\n    if (/^data:/m.test(chunk)) return chunk;\n  }\n}\n",
			want: "precompile(/^data:/m);",
		},
		{
			name: "class fields",
			src:  "class Router {\n  #routes = [/^\\/api\\//];\n  static prefix = /x/y;\n  match(p) { return this.#routes.some((r) => r.test(p)); }\n}\n",
			want: "precompile(/^\\/api\\//);precompile(/x/y);",
		},
		{
			name: "indices flag",
			src:  "const m = /(?<word>b)/d.exec('abc');\n",
			want: "precompile(/(?<word>b)/d);",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Rewrite(tt.src, Options{})
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(got, tt.src))
			assert.Contains(t, got, tt.want)
		})
	}

	t.Run("sets flag", func(t *testing.T) {
		src := "const upper = /[\\p{ASCII}--[a-z]]/v;\n"
		got, err := Rewrite(src, Options{})
		require.NoError(t, err)
		assert.NotContains(t, got, `\p{ASCII}`)
		literals, err := Find(src, Options{})
		require.NoError(t, err)
		require.Len(t, literals, 1)
		assert.Equal(t, "v", literals[0].Flags)
	})
}

func TestFindOrdersByPosition(t *testing.T) {
	src := `var a = [/one/, /two/m]; function f() { return /three/y; }`
	literals, err := Find(src, Options{})
	require.NoError(t, err)
	require.Len(t, literals, 3)
	got := make([]string, 0, 3)
	for _, l := range literals {
		got = append(got, l.String())
	}
	assert.Equal(t, []string{"/one/", "/two/m", "/three/y"}, got)
}
