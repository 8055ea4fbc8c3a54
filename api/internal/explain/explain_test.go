package explain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"math-bot/api/internal/equation"
)

func solved(t *testing.T) equation.Solution {
	t.Helper()
	sol, err := equation.Solve(equation.Linear2, "", equation.Variables{"y": 10, "m": 2, "b": 4})
	require.NoError(t, err)
	return sol
}

func TestExplain_Disabled(t *testing.T) {
	e := New("  ", "gemini-2.5-flash", nil)
	assert.False(t, e.Enabled())

	_, err := e.Explain(context.Background(), solved(t))
	assert.ErrorIs(t, err, ErrDisabled)

	var nilExplainer *Explainer
	assert.False(t, nilExplainer.Enabled())
}

func TestPrompt(t *testing.T) {
	p := Prompt(solved(t))
	assert.Contains(t, p, "Shape: 2 Step Linear (y = mx + b)")
	assert.Contains(t, p, "Values: b = 4, m = 2, y = 10")
	assert.Contains(t, p, "1. 10 = 2𝑥 + 4")
	assert.Contains(t, p, "Answer: 𝑥 = 3")
}

func TestExplain_UsesModelAnswer(t *testing.T) {
	e := New("key", "model", nil)
	var gotSystem, gotUser string
	e.gen = func(_ context.Context, system, user string) (string, error) {
		gotSystem, gotUser = system, user
		return "```\n1. Subtract 4 from both sides.\n```", nil
	}

	txt, err := e.Explain(context.Background(), solved(t))
	require.NoError(t, err)
	assert.Equal(t, "1. Subtract 4 from both sides.", txt)
	assert.Equal(t, systemPrompt, gotSystem)
	assert.Contains(t, gotUser, "Answer: 𝑥 = 3")
}

func TestExplain_RetriesThenFails(t *testing.T) {
	e := New("key", "model", nil)
	calls := 0
	e.gen = func(context.Context, string, string) (string, error) {
		calls++
		return "", errors.New("503")
	}

	e.Backoff = 100 * time.Millisecond

	start := time.Now()
	_, err := e.Explain(context.Background(), solved(t))
	elapsed := time.Since(start)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, 3, calls)
	// паузы 100ms и 200ms; после последней попытки не ждём
	assert.Less(t, elapsed, 600*time.Millisecond)
}

func TestExplain_RecoversOnRetry(t *testing.T) {
	e := New("key", "model", nil)
	e.Backoff = time.Millisecond
	calls := 0
	e.gen = func(context.Context, string, string) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("429")
		}
		return "Divide both sides by 2.", nil
	}

	txt, err := e.Explain(context.Background(), solved(t))
	require.NoError(t, err)
	assert.Equal(t, "Divide both sides by 2.", txt)
	assert.Equal(t, 2, calls)
}

func TestExplain_CanceledContext(t *testing.T) {
	e := New("key", "model", nil)
	e.gen = func(context.Context, string, string) (string, error) { return "", errors.New("boom") }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Explain(ctx, solved(t))
	assert.ErrorIs(t, err, context.Canceled)
}
