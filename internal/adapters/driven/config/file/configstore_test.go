package file

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".sercha-music", "config.toml"), store.Path())
}

func TestNewConfigStore_NestedDirectoryPermissions(t *testing.T) {
	nestedPath := filepath.Join(t.TempDir(), "nested", "deep")

	_, err := NewConfigStore(nestedPath)
	require.NoError(t, err)

	info, err := os.Stat(nestedPath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestNewConfigStore_Errors(t *testing.T) {
	t.Run("directory cannot be created", func(t *testing.T) {
		store, err := NewConfigStore("/dev/null/cannot/create")
		assert.Error(t, err)
		assert.Nil(t, store)
	})

	t.Run("corrupted file", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("not toml {{[["), 0600))

		store, err := NewConfigStore(tmpDir)
		assert.Error(t, err)
		assert.Nil(t, store)
	})
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.model", "gpt-4o-mini"))
	require.NoError(t, store.Set("search.result_count", 25))
	require.NoError(t, store.Set("search.use_reasoning", true))
	require.NoError(t, store.Set("search.similarity_threshold", 0.35))
	require.NoError(t, store.Set("catalog.playlists", []string{"a", "b"}))

	tests := []struct {
		name string
		got  any
		want any
	}{
		{name: "string", got: store.GetString("llm.model"), want: "gpt-4o-mini"},
		{name: "int", got: store.GetInt("search.result_count"), want: 25},
		{name: "bool", got: store.GetBool("search.use_reasoning"), want: true},
		{name: "slice", got: store.GetStringSlice("catalog.playlists"), want: []string{"a", "b"}},
		{name: "missing string", got: store.GetString("nope"), want: ""},
		{name: "missing int", got: store.GetInt("nope"), want: 0},
		{name: "wrong type", got: store.GetBool("llm.model"), want: false},
		{name: "fractional float is not an int", got: store.GetInt("search.similarity_threshold"), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestConfigStore_PersistsAsTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.provider", "anthropic"))
	require.NoError(t, store.Set("search.result_count", int64(12)))
	require.NoError(t, store.Set("search.similarity_threshold", 0.5))
	require.NoError(t, store.Set("top_level", true))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[llm]")
	assert.Contains(t, string(raw), "[search]")
	assert.False(t, strings.Contains(string(raw), "'llm.provider'"))

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", reloaded.GetString("llm.provider"))
	assert.Equal(t, 12, reloaded.GetInt("search.result_count"))
	assert.True(t, reloaded.GetBool("top_level"))
	threshold, ok := reloaded.Get("search.similarity_threshold")
	require.True(t, ok)
	assert.InDelta(t, 0.5, threshold, 1e-9)
}

func TestConfigStore_LoadsHandWrittenFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[llm]
provider = "ollama"
model = "llama3.2"

[search]
result_count = 5
use_reasoning = false
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "ollama", store.GetString("llm.provider"))
	assert.Equal(t, "llama3.2", store.GetString("llm.model"))
	assert.Equal(t, 5, store.GetInt("search.result_count"))
	_, ok := store.Get("search.use_reasoning")
	assert.True(t, ok)
	assert.False(t, store.GetBool("search.use_reasoning"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.api_key", "secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_SetFailureKeepsPreviousValue(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.model", "old"))

	// Channels cannot be marshalled to TOML
	err = store.Set("llm.model", make(chan int))
	require.Error(t, err)
	assert.Equal(t, "old", store.GetString("llm.model"))

	err = store.Set("llm.other", make(chan int))
	require.Error(t, err)
	_, ok := store.Get("llm.other")
	assert.False(t, ok)
}

func TestConfigStore_Load_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("# comment\n"), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	_, ok := store.Get("any")
	assert.False(t, ok)
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Set("search.result_count", i+1))
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("search.result_count")
		}()
	}
	wg.Wait()

	assert.Positive(t, store.GetInt("search.result_count"))
}

func TestNestKeys(t *testing.T) {
	tests := []struct {
		name string
		flat map[string]any
		want map[string]any
	}{
		{
			name: "groups by prefix",
			flat: map[string]any{"llm.provider": "openai", "llm.model": "gpt", "debug": true},
			want: map[string]any{
				"llm":   map[string]any{"provider": "openai", "model": "gpt"},
				"debug": true,
			},
		},
		{
			name: "collision keeps dotted key",
			flat: map[string]any{"llm": "plain", "llm.model": "gpt"},
			want: map[string]any{"llm": "plain", "llm.model": "gpt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nestKeys(tt.flat))
		})
	}
}
