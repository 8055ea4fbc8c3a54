package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeKeys(t *testing.T, m Model, keys string) Model {
	t.Helper()
	for _, r := range keys {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	return m
}

func TestModel_TypeAndReduce(t *testing.T) {
	m := typeKeys(t, New(), "2+3*4=")
	assert.Equal(t, "14", m.Expression)
	assert.NoError(t, m.Err)
	assert.NotEmpty(t, m.Steps)
	assert.Contains(t, m.View(), "14")
}

func TestModel_ErrorKeepsExpression(t *testing.T) {
	m := typeKeys(t, New(), "1/0=")
	require.Error(t, m.Err)
	assert.Equal(t, "1/0", m.Expression)
	assert.Contains(t, m.View(), "ERROR")

	m = typeKeys(t, m, "c")
	assert.Empty(t, m.Expression)
	assert.NoError(t, m.Err)
}

func TestModel_KeypadNavigation(t *testing.T) {
	m := New()
	// 1, then + three keys right, then 6 one row down and one left
	steps := []tea.KeyMsg{
		{Type: tea.KeyEnter},
		{Type: tea.KeyRight}, {Type: tea.KeyRight}, {Type: tea.KeyRight},
		{Type: tea.KeyEnter},
		{Type: tea.KeyDown}, {Type: tea.KeyLeft},
		{Type: tea.KeyEnter},
	}
	for _, k := range steps {
		next, _ := m.Update(k)
		m = next.(Model)
	}
	assert.Equal(t, "1+6", m.Expression)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "1+", next.(Model).Expression)
}

func TestModel_IgnoresLettersAndBoundsLength(t *testing.T) {
	m := typeKeys(t, New(), "abz")
	assert.Empty(t, m.Expression)

	m = typeKeys(t, New(), strings.Repeat("9", displayWidth+5))
	assert.Len(t, m.Expression, displayWidth)
}

func TestModel_Quit(t *testing.T) {
	_, cmd := New().Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = New().Press("q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_Help(t *testing.T) {
	m := typeKeys(t, New(), "?")
	assert.True(t, m.Help)
	assert.Contains(t, m.View(), "tier by tier")
}
