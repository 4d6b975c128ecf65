package compile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestParseEnvFlag(t *testing.T) {
	ambient := lookupFrom(map[string]string{"HOME_DIR": "/home/me"})

	tests := []struct {
		name     string
		flags    []string
		wantKeys []string
		want     map[string]string
	}{
		{
			name:     "pairs",
			flags:    []string{"A=1,B=2"},
			wantKeys: []string{"A", "B"},
			want:     map[string]string{"A": "1", "B": "2"},
		},
		{
			name:     "escaped comma",
			flags:    []string{`A=1\,2`},
			wantKeys: []string{"A"},
			want:     map[string]string{"A": "1,2"},
		},
		{
			name:     "later flag overwrites",
			flags:    []string{"K=first", "K=second"},
			wantKeys: []string{"K"},
			want:     map[string]string{"K": "second"},
		},
		{
			name:     "overwrite keeps position",
			flags:    []string{"A=1,B=2,A=3"},
			wantKeys: []string{"A", "B"},
			want:     map[string]string{"A": "3", "B": "2"},
		},
		{
			name:     "bare key inherits",
			flags:    []string{"HOME_DIR"},
			wantKeys: []string{"HOME_DIR"},
			want:     map[string]string{"HOME_DIR": "/home/me"},
		},
		{
			name:     "whitespace and empty tokens",
			flags:    []string{" A=1 , ,B=x=y,"},
			wantKeys: []string{"A", "B"},
			want:     map[string]string{"A": "1", "B": "x=y"},
		},
		{
			name:     "empty value",
			flags:    []string{"A="},
			wantKeys: []string{"A"},
			want:     map[string]string{"A": ""},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := NewEnvOverrides()
			for _, f := range tt.flags {
				require.NoError(t, ParseEnvFlag(f, ambient, env))
			}
			assert.Equal(t, tt.wantKeys, env.Keys())
			assert.Equal(t, tt.want, env.Map())
		})
	}
}

func TestParseEnvFlagErrors(t *testing.T) {
	ambient := lookupFrom(map[string]string{})

	t.Run("missing variable", func(t *testing.T) {
		err := ParseEnvFlag("MISSING_VAR", ambient, NewEnvOverrides())
		require.Error(t, err)
		assert.True(t, IsConfigError(err))
		assert.Contains(t, err.Error(), "MISSING_VAR")
		assert.Equal(t, 1, ExitCode(err))
	})

	t.Run("empty key", func(t *testing.T) {
		err := ParseEnvFlag("=value", ambient, NewEnvOverrides())
		require.Error(t, err)
		assert.True(t, IsConfigError(err))
	})
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ZED=last\n# comment\nAPI_URL=\"https://example.com\"\n"), 0o644))

	env := NewEnvOverrides()
	env.Set("ZED", "flag")
	require.NoError(t, LoadEnvFile(path, env))
	assert.Equal(t, []string{"ZED", "API_URL"}, env.Keys())
	assert.Equal(t, map[string]string{"ZED": "last", "API_URL": "https://example.com"}, env.Map())

	err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"), env)
	assert.True(t, IsConfigError(err))
}

func TestNilEnvOverrides(t *testing.T) {
	var env *EnvOverrides
	assert.Equal(t, 0, env.Len())
	assert.Empty(t, env.Keys())
	assert.Equal(t, map[string]string{}, env.Map())
	_, ok := env.Get("A")
	assert.False(t, ok)
}
