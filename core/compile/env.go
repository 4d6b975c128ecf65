package compile

import (
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/go-envparse"
	"github.com/pkg/errors"
)

const (
	envHighResolutionTime = "ENABLE_EXPERIMENTAL_HIGH_RESOLUTION_TIME_METHODS"
	envHTTPCache          = "ENABLE_EXPERIMENTAL_HTTP_CACHE"
)

// EnvOverrides is an ordered set of variables. Setting a key again replaces
// its value and keeps its original position.
type EnvOverrides struct {
	keys   []string
	values map[string]string
}

func NewEnvOverrides() *EnvOverrides {
	return &EnvOverrides{values: map[string]string{}}
}

func (e *EnvOverrides) Set(key, value string) {
	if e.values == nil {
		e.values = map[string]string{}
	}
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
}

func (e *EnvOverrides) Get(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	v, ok := e.values[key]
	return v, ok
}

func (e *EnvOverrides) Keys() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.keys...)
}

func (e *EnvOverrides) Len() int {
	if e == nil {
		return 0
	}
	return len(e.keys)
}

func (e *EnvOverrides) Map() map[string]string {
	out := make(map[string]string, e.Len())
	if e == nil {
		return out
	}
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// ParseEnvFlag reads one --env value into the overrides.
// Tokens are comma separated, `\,` is a literal comma inside a value,
// and a bare KEY takes its value from lookup.
func ParseEnvFlag(value string, lookup func(string) (string, bool), into *EnvOverrides) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, token := range splitUnescaped(value) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		key, val, hasValue := strings.Cut(token, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return ConfigErrorf("invalid --env entry %q: empty variable name", token)
		}
		if !hasValue {
			inherited, ok := lookup(key)
			if !ok {
				return ConfigErrorf("--env %s: no such variable in the current environment", key)
			}
			into.Set(key, inherited)
			continue
		}
		into.Set(key, strings.ReplaceAll(val, `\,`, ","))
	}
	return nil
}

func splitUnescaped(s string) []string {
	parts := make([]string, 0)
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] != ',' || (i > 0 && s[i-1] == '\\') {
			continue
		}
		parts = append(parts, s[start:i])
		start = i + 1
	}
	return append(parts, s[start:])
}

// LoadEnvFile adds every variable of a dotenv file, in key order.
func LoadEnvFile(path string, into *EnvOverrides) error {
	file, err := os.Open(path)
	if err != nil {
		return wrapConfigError(err, "couldnt read env file at '%s'", path)
	}
	defer file.Close()
	m, err := envparse.Parse(file)
	if err != nil {
		return wrapConfigError(errors.Wrap(err, "envparse"), "couldnt parse env file at '%s'", path)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		into.Set(k, m[k])
	}
	return nil
}

func featureFlag(enabled bool) string {
	if enabled {
		return "1"
	}
	return "0"
}
