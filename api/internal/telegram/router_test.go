package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"math-bot/api/internal/equation"
	"math-bot/api/internal/store"
)

const (
	chatID  = int64(100)
	ownerID = int64(7)
)

type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	nextID   int
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID, Chat: &tgbotapi.Chat{ID: chatID}}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) last() tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

func (f *fakeBot) lastText(t *testing.T) string {
	t.Helper()
	switch m := f.last().(type) {
	case tgbotapi.MessageConfig:
		return m.Text
	case tgbotapi.EditMessageTextConfig:
		return m.Text
	case tgbotapi.PhotoConfig:
		return m.Caption
	case tgbotapi.EditMessageMediaConfig:
		return m.Media.(tgbotapi.InputMediaPhoto).Caption
	}
	t.Fatalf("unexpected chattable %T", f.last())
	return ""
}

// callbackTexts collects the non-empty callback answers.
func (f *fakeBot) callbackTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.requests {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok && cb.Text != "" {
			out = append(out, cb.Text)
		}
	}
	return out
}

func (f *fakeBot) deleted() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for _, c := range f.requests {
		if d, ok := c.(tgbotapi.DeleteMessageConfig); ok {
			out = append(out, d.MessageID)
		}
	}
	return out
}

type fakeRenderer struct {
	formulas []string
	err      error
}

func (f *fakeRenderer) Render(_ context.Context, formula string) ([]byte, error) {
	f.formulas = append(f.formulas, formula)
	return []byte("png"), f.err
}

type fakeHistory struct {
	entries []store.Entry
}

func (f *fakeHistory) Record(_ context.Context, e *store.Entry) error {
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeHistory) Recent(_ context.Context, _ int64, limit int) ([]store.Entry, error) {
	if len(f.entries) > limit {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func (f *fakeHistory) Last(_ context.Context, chatID int64, kind store.Kind) (*store.Entry, error) {
	for i := len(f.entries) - 1; i >= 0; i-- {
		if e := f.entries[i]; e.ChatID == chatID && e.Kind == kind {
			return &e, nil
		}
	}
	return nil, store.ErrNotFound
}

type fakeExplainer struct{ err error }

func (fakeExplainer) Enabled() bool { return true }
func (f fakeExplainer) Explain(_ context.Context, sol equation.Solution) (string, error) {
	return "because " + sol.Answer(), f.err
}

func newTestRouter() (*Router, *fakeBot, *fakeRenderer, *fakeHistory) {
	bot := &fakeBot{}
	rnd := &fakeRenderer{}
	hist := &fakeHistory{}
	r := NewRouter(bot, nil, Options{Cooldown: 10 * time.Second, SessionTTL: time.Minute, HistoryLimit: 5})
	r.LaTeX = rnd
	r.History = hist
	return r, bot, rnd, hist
}

func command(text string, from int64) tgbotapi.Update {
	word := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: from},
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(word)}},
	}}
}

func text(s string, from int64) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: from},
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: s,
	}}
}

func press(msgID int, data string, from int64) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{MessageID: msgID, Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}}
}

func TestCalculatorFlow(t *testing.T) {
	r, bot, _, _ := newTestRouter()
	ctx := context.Background()

	r.HandleUpdate(ctx, command("/calc", ownerID))
	require.Len(t, bot.sent, 1)
	msgID := bot.nextID

	for _, k := range []string{"2", "+", "3", "×", "4"} {
		r.HandleUpdate(ctx, press(msgID, cbCalc+k, ownerID))
	}
	assert.Contains(t, bot.lastText(t), "2+3*4")

	r.HandleUpdate(ctx, press(msgID, cbCalc+"=", ownerID))
	assert.Contains(t, bot.lastText(t), "14 ")

	r.HandleUpdate(ctx, press(msgID, cbCalc+"÷", ownerID))
	r.HandleUpdate(ctx, press(msgID, cbCalc+"0", ownerID))
	r.HandleUpdate(ctx, press(msgID, cbCalc+"=", ownerID))
	assert.Contains(t, bot.lastText(t), "ERROR")

	r.HandleUpdate(ctx, press(msgID, cbCalc+"1", 999))
	assert.Contains(t, bot.callbackTexts(), notYours)

	r.HandleUpdate(ctx, press(msgID, cbCalc+"Close", ownerID))
	assert.Equal(t, []int{msgID}, bot.deleted())

	r.HandleUpdate(ctx, press(msgID, cbCalc+"1", ownerID))
	assert.Contains(t, bot.callbackTexts(), expired)
}

func TestCooldownOnCommands(t *testing.T) {
	r, bot, _, _ := newTestRouter()
	ctx := context.Background()

	r.HandleUpdate(ctx, command("/calc", ownerID))
	r.HandleUpdate(ctx, command("/eq", ownerID))
	assert.Contains(t, bot.lastText(t), "cooldown")

	r.HandleUpdate(ctx, command("/calc", 8))
	assert.Contains(t, bot.lastText(t), "```")
}

func TestEquationWizard(t *testing.T) {
	r, bot, rnd, hist := newTestRouter()
	ctx := context.Background()

	r.HandleUpdate(ctx, command("/eq", ownerID))
	selectID := bot.nextID

	r.HandleUpdate(ctx, press(selectID, cbShape+"linear2", ownerID))
	require.IsType(t, tgbotapi.PhotoConfig{}, bot.last())
	assert.Contains(t, bot.lastText(t), "2 Step Linear Equation Solver")
	assert.Equal(t, []string{"y=mx+b"}, rnd.formulas)
	wizardID := bot.nextID
	assert.Contains(t, bot.deleted(), selectID)

	r.HandleUpdate(ctx, press(wizardID, cbEnter, ownerID))
	assert.Contains(t, bot.callbackTexts(), "Set y, m, b first")

	r.HandleUpdate(ctx, press(wizardID, cbVar+"y", ownerID))
	assert.Contains(t, bot.lastText(t), "value of y")

	r.HandleUpdate(ctx, text("ten", ownerID))
	assert.Equal(t, "Value must be a number!, try again", bot.lastText(t))

	r.HandleUpdate(ctx, text("10", ownerID))
	require.IsType(t, tgbotapi.EditMessageMediaConfig{}, bot.last())
	assert.Equal(t, "10=mx+b", rnd.formulas[len(rnd.formulas)-1])

	for _, kv := range [][2]string{{"m", "2"}, {"b", "-4"}} {
		r.HandleUpdate(ctx, press(wizardID, cbVar+kv[0], ownerID))
		r.HandleUpdate(ctx, text(kv[1], ownerID))
	}
	assert.Equal(t, "10=2x+(-4)", rnd.formulas[len(rnd.formulas)-1])

	edit := bot.last().(tgbotapi.EditMessageMediaConfig)
	require.NotNil(t, edit.ReplyMarkup)
	assert.Equal(t, "Enter", edit.ReplyMarkup.InlineKeyboard[1][1].Text)

	r.HandleUpdate(ctx, press(wizardID, cbEnter, ownerID))
	require.IsType(t, tgbotapi.PhotoConfig{}, bot.last(), "linear solutions come with a graph")
	assert.Contains(t, bot.lastText(t), "𝑥 = 7")
	assert.Contains(t, bot.deleted(), wizardID)

	require.Len(t, hist.entries, 1)
	assert.Equal(t, store.KindSolve, hist.entries[0].Kind)
	assert.Equal(t, "linear2", hist.entries[0].Shape)
	assert.Equal(t, "𝑥 = 7", hist.entries[0].Result)
}

func TestEquationWizard_ManualMode(t *testing.T) {
	r, bot, _, hist := newTestRouter()
	ctx := context.Background()

	r.HandleUpdate(ctx, command("/eq", ownerID))
	r.HandleUpdate(ctx, press(bot.nextID, cbShape+"quadratic", ownerID))
	r.HandleUpdate(ctx, press(bot.nextID, cbManual, ownerID))
	manualID := bot.nextID
	assert.Contains(t, bot.lastText(t), "```")

	for _, k := range []string{"1", "0", "=", "𝑥"} {
		r.HandleUpdate(ctx, press(manualID, cbKey+k, ownerID))
	}
	assert.Contains(t, bot.lastText(t), "10=x")

	r.HandleUpdate(ctx, press(manualID, cbKey+"Enter", ownerID))
	assert.Contains(t, bot.lastText(t), "Invalid Equation")

	r.HandleUpdate(ctx, press(manualID, cbKey+"ⓘ", ownerID))
	assert.Contains(t, strings.Join(bot.callbackTexts(), "\n"), "Manual Mode")

	// typed equations are accepted too
	r.HandleUpdate(ctx, text("0 = 1x^2 - 3x + 2", ownerID))
	require.IsType(t, tgbotapi.MessageConfig{}, bot.last(), "quadratics have no graph")
	assert.Contains(t, bot.lastText(t), "𝑥₁ = 1")
	require.Len(t, hist.entries, 1)
	assert.Equal(t, "0 = 1x^2 - 3x + 2", hist.entries[0].Input)
}

func TestEquationWizard_RendererDown(t *testing.T) {
	r, bot, rnd, _ := newTestRouter()
	rnd.err = errors.New("down")
	ctx := context.Background()

	r.HandleUpdate(ctx, command("/eq", ownerID))
	selectID := bot.nextID
	r.HandleUpdate(ctx, press(selectID, cbShape+"abcd", ownerID))
	require.IsType(t, tgbotapi.EditMessageTextConfig{}, bot.last())
	assert.Contains(t, bot.lastText(t), "(a + b * c) / d")

	for _, kv := range [][2]string{{"a", "1"}, {"b", "2"}, {"c", "3"}, {"d", "7"}} {
		r.HandleUpdate(ctx, press(selectID, cbVar+kv[0], ownerID))
		r.HandleUpdate(ctx, text(kv[1], ownerID))
	}
	r.HandleUpdate(ctx, press(selectID, cbEnter, ownerID))
	assert.Contains(t, bot.lastText(t), "= 1")
}

func TestCommands(t *testing.T) {
	r, bot, _, hist := newTestRouter()
	ctx := context.Background()

	r.HandleUpdate(ctx, command("/reduce 2+3*4", ownerID))
	assert.Contains(t, bot.lastText(t), "= 14")
	require.Len(t, hist.entries, 1)
	assert.Equal(t, store.KindReduce, hist.entries[0].Kind)

	r.HandleUpdate(ctx, command("/reduce 2+", ownerID))
	assert.Contains(t, bot.lastText(t), "ERROR")

	r.HandleUpdate(ctx, command("/solve linear2 10 = 2x + 4", ownerID))
	assert.Contains(t, bot.lastText(t), "𝑥 = 3")

	r.HandleUpdate(ctx, command("/solve linear2 hello", ownerID))
	assert.Contains(t, bot.lastText(t), "Invalid Equation")

	r.HandleUpdate(ctx, command("/solve", ownerID))
	assert.Contains(t, bot.lastText(t), "Usage")

	r.HandleUpdate(ctx, command("/history", ownerID))
	assert.Contains(t, bot.lastText(t), "2+3*4")
	assert.Contains(t, bot.lastText(t), "linear2")

	r.HandleUpdate(ctx, command("/explain", ownerID))
	assert.Equal(t, "Explanations are not configured", bot.lastText(t))

	r.Explainer = fakeExplainer{}
	r.HandleUpdate(ctx, command("/explain", ownerID))
	assert.Equal(t, "because 𝑥 = 3", bot.lastText(t))

	r.HandleUpdate(ctx, command("/nope", ownerID))
	assert.Contains(t, bot.lastText(t), "Unknown command")
}

func TestHistoryDisabled(t *testing.T) {
	r, bot, _, _ := newTestRouter()
	r.History = nil
	r.HandleUpdate(context.Background(), command("/history", ownerID))
	assert.Contains(t, bot.lastText(t), "disabled")
}

func TestExplain_NothingSolved(t *testing.T) {
	r, bot, _, _ := newTestRouter()
	r.Explainer = fakeExplainer{}
	r.HandleUpdate(context.Background(), command("/explain", ownerID))
	assert.Contains(t, bot.lastText(t), "Solve an equation first")
}

func TestExplain_FromHistoryAfterRestart(t *testing.T) {
	ctx := context.Background()
	r, _, _, hist := newTestRouter()
	r.HandleUpdate(ctx, command("/solve linear2 10 = 2x + 4", ownerID))
	require.Len(t, hist.entries, 1)
	assert.Equal(t, map[string]float64{"y": 10, "m": 2, "b": 4}, hist.entries[0].Variables)

	// новый роутер: память пуста, история та же
	fresh, bot, _, _ := newTestRouter()
	fresh.History = hist
	fresh.Explainer = fakeExplainer{}
	fresh.HandleUpdate(ctx, command("/explain", ownerID))
	assert.Equal(t, "because 𝑥 = 3", bot.lastText(t))
}
