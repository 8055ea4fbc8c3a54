// Package explain asks Gemini for a short, plain-language walkthrough of a solved equation.
package explain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"math-bot/api/internal/equation"
	"math-bot/api/internal/util"
)

var ErrDisabled = errors.New("explanations are disabled: gemini_api_key is empty")

const maxExplanationRunes = 3500

const systemPrompt = `You are a patient maths tutor for school students.
You get an equation and the exact steps a calculator used to solve it.
Explain in plain language, in at most 6 short numbered sentences, why each step is allowed.
Do not change the numbers, do not re-solve the equation differently, do not use LaTeX or Markdown headings.
Reply with the explanation text only.`

// generate: один запрос к модели; подменяется в тестах.
type generate func(ctx context.Context, system, user string) (string, error)

type Explainer struct {
	APIKey  string
	Model   string
	Retries uint64 // повторы после первой попытки
	Backoff time.Duration
	Log     *zap.Logger

	gen generate
}

func New(apiKey, model string, log *zap.Logger) *Explainer {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Explainer{
		APIKey:  strings.TrimSpace(apiKey),
		Model:   strings.TrimSpace(model),
		Retries: 2,
		Backoff: 300 * time.Millisecond,
		Log:     log,
	}
	e.gen = e.gemini
	return e
}

func (e *Explainer) Enabled() bool { return e != nil && e.APIKey != "" }

// Explain returns the walkthrough text for sol.
func (e *Explainer) Explain(ctx context.Context, sol equation.Solution) (string, error) {
	if !e.Enabled() {
		return "", ErrDisabled
	}
	if len(sol.Steps) == 0 {
		return "", errors.New("explain: solution has no steps")
	}

	user := Prompt(sol)
	b := retry.WithMaxRetries(e.Retries, retry.NewExponential(e.Backoff))

	attempt := 0
	txt, err := retry.DoValue(ctx, b, func(ctx context.Context) (string, error) {
		attempt++
		txt, err := e.gen(ctx, systemPrompt, user)
		if err != nil {
			e.Log.Warn("gemini explain failed", zap.Int("attempt", attempt), zap.Error(err))
			return "", retry.RetryableError(err)
		}
		return txt, nil
	})
	if err != nil {
		return "", fmt.Errorf("explain: %w", err)
	}
	txt = util.StripCodeFences(txt)
	if txt == "" {
		return "", errors.New("explain: empty response")
	}
	return util.Truncate(txt, maxExplanationRunes), nil
}

// Prompt is the user message sent for sol.
func Prompt(sol equation.Solution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shape: %s (%s)\n", sol.Shape.Title(), sol.Shape.Format())
	if len(sol.Variables) > 0 {
		parts := make([]string, 0, len(sol.Variables))
		for _, k := range sol.Variables.Names() {
			parts = append(parts, k+" = "+sol.Variables[k].String())
		}
		fmt.Fprintf(&b, "Values: %s\n", strings.Join(parts, ", "))
	}
	b.WriteString("Steps:\n")
	for i, s := range sol.Steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	fmt.Fprintf(&b, "Answer: %s", sol.Answer())
	return b.String()
}

func (e *Explainer) gemini(ctx context.Context, system, user string) (string, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0.2),
	}
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}

	resp, err := m.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", err
	}
	return firstText(resp), nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
