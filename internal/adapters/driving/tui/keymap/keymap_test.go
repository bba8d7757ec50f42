package keymap

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap_Bindings(t *testing.T) {
	km := DefaultKeyMap()
	require.NotNil(t, km)

	tests := []struct {
		name    string
		binding key.Binding
		keys    []string
	}{
		{name: "quit", binding: km.Quit, keys: []string{"ctrl+c"}},
		{name: "back", binding: km.Back, keys: []string{"esc"}},
		{name: "search", binding: km.Search, keys: []string{"enter"}},
		{name: "up", binding: km.Up, keys: []string{"up", "k"}},
		{name: "down", binding: km.Down, keys: []string{"down", "j"}},
		{name: "open", binding: km.Open, keys: []string{"enter"}},
		{name: "new search", binding: km.NewSearch, keys: []string{"n", "/"}},
		{name: "top", binding: km.Top, keys: []string{"home", "g"}},
		{name: "bottom", binding: km.Bottom, keys: []string{"end", "G"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.keys, tt.binding.Keys())
			assert.NotEmpty(t, tt.binding.Help().Desc)
		})
	}
}

func TestKeyMap_MatchesKeyMessages(t *testing.T) {
	km := DefaultKeyMap()

	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}, km.Down))
	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyUp}, km.Up))
	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyEsc}, km.Back))
	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlC}, km.Quit))
	assert.False(t, key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}, km.Quit))
}

func TestKeyMap_HelpSets(t *testing.T) {
	km := DefaultKeyMap()

	assert.Len(t, km.InputHelp(), 2)
	assert.Len(t, km.ResultsHelp(), 5)
	assert.Len(t, km.SongHelp(), 5)
	assert.Equal(t, "open", km.ResultsHelp()[2].Help().Desc)
}
