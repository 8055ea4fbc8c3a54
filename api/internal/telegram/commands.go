package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"math-bot/api/internal/calc"
	"math-bot/api/internal/equation"
	"math-bot/api/internal/num"
	"math-bot/api/internal/store"
)

const explainTimeout = 60 * time.Second

func (r *Router) cmdReduce(ctx context.Context, msg *tgbotapi.Message, args string) {
	cid := msg.Chat.ID
	if args == "" {
		r.sendMarkdown(cid, "Usage: /reduce `2+3*4`")
		return
	}
	red, err := calc.Evaluate(args)
	if err != nil {
		r.sendMarkdown(cid, display("ERROR")+"\n"+esc(err.Error()))
		return
	}

	var b strings.Builder
	b.WriteString("```\n")
	b.WriteString(calc.Normalize(args))
	for _, s := range red.Steps {
		b.WriteString("\n= ")
		b.WriteString(s)
	}
	b.WriteString("\n```")
	r.sendMarkdown(cid, b.String())

	r.record(ctx, &store.Entry{
		ChatID: cid,
		UserID: userID(msg.From),
		Kind:   store.KindReduce,
		Input:  args,
		Result: red.String(),
		Steps:  red.Steps,
	})
}

func (r *Router) cmdSolve(ctx context.Context, msg *tgbotapi.Message, args string) {
	cid := msg.Chat.ID
	shape, eq, bag, err := parseSolveArgs(args)
	if err != nil {
		r.sendMarkdown(cid, solveUsage)
		return
	}
	sol, err := equation.SolveBag(shape, eq, bag)
	switch {
	case errors.Is(err, equation.ErrInvalidEquation):
		r.sendMarkdown(cid, "Invalid Equation\nFormat: `"+shape.Format()+"`")
		return
	case errors.Is(err, equation.ErrInvalidArgument):
		r.send(cid, err.Error())
		return
	case err != nil:
		r.SendError(cid, err)
		return
	}
	r.deliverSolution(ctx, cid, userID(msg.From), sol)
}

var assignment = regexp.MustCompile(`^([a-zA-Z])=(.+)$`)

// parseSolveArgs разбирает "<shape> [equation] [k=v ...]". Токен k=v с однобуквенным
// именем переменной формы считается значением, остальное: текстом уравнения.
func parseSolveArgs(args string) (equation.Shape, string, map[string]any, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, "", nil, errors.New("shape is required")
	}
	shape, err := equation.ParseShape(fields[0])
	if err != nil {
		return 0, "", nil, err
	}
	var (
		eq  []string
		bag map[string]any
	)
	for _, f := range fields[1:] {
		if m := assignment.FindStringSubmatch(f); m != nil && shape.HasVariable(strings.ToLower(m[1])) {
			if bag == nil {
				bag = map[string]any{}
			}
			bag[strings.ToLower(m[1])] = m[2]
			continue
		}
		eq = append(eq, f)
	}
	return shape, strings.Join(eq, " "), bag, nil
}

func (r *Router) cmdHistory(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	if r.History == nil {
		r.send(cid, "History is disabled: no database configured")
		return
	}
	entries, err := r.History.Recent(ctx, cid, r.HistoryLimit)
	if err != nil {
		r.Log.Error("history read failed", zap.Int64("chat_id", cid), zap.Error(err))
		r.SendError(cid, errors.New("could not read history"))
		return
	}
	if len(entries) == 0 {
		r.send(cid, "No history yet. Try /reduce or /solve")
		return
	}
	r.sendMarkdown(cid, formatHistory(entries))
}

func formatHistory(entries []store.Entry) string {
	var b strings.Builder
	b.WriteString("*Recent results*\n```\n")
	for i, e := range entries {
		label := string(e.Kind)
		if e.Shape != "" {
			label = e.Shape
		}
		fmt.Fprintf(&b, "%2d. %-9s %s  →  %s\n", i+1, label, e.Input, e.Result)
	}
	b.WriteString("```")
	return b.String()
}

func (r *Router) cmdExplain(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	if r.Explainer == nil || !r.Explainer.Enabled() {
		r.send(cid, "Explanations are not configured")
		return
	}
	sol, ok := r.lastSolution(ctx, cid)
	if !ok {
		r.send(cid, "Solve an equation first: /eq or /solve")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, explainTimeout)
	defer cancel()

	_, _ = r.Bot.Request(tgbotapi.NewChatAction(cid, tgbotapi.ChatTyping))
	txt, err := r.Explainer.Explain(ctx, sol)
	if err != nil {
		r.Log.Warn("explain failed", zap.Int64("chat_id", cid), zap.Error(err))
		r.SendError(cid, errors.New("could not get an explanation, try again later"))
		return
	}
	r.send(cid, txt)
}

// lastSolution: сначала память, после рестарта последняя запись истории, решённая заново.
func (r *Router) lastSolution(ctx context.Context, chatID int64) (equation.Solution, bool) {
	if v, ok := r.solved.Load(chatID); ok {
		return v.(equation.Solution), true
	}
	if r.History == nil {
		return equation.Solution{}, false
	}
	e, err := r.History.Last(ctx, chatID, store.KindSolve)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.Log.Warn("history last failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		return equation.Solution{}, false
	}
	shape, err := equation.ParseShape(e.Shape)
	if err != nil {
		return equation.Solution{}, false
	}
	vars := make(equation.Variables, len(e.Variables))
	for k, v := range e.Variables {
		vars[k] = num.Number(v)
	}
	sol, err := equation.Solve(shape, "", vars)
	if err != nil {
		r.Log.Debug("stored solution does not solve", zap.String("id", e.ID.String()), zap.Error(err))
		return equation.Solution{}, false
	}
	r.solved.Store(chatID, sol)
	return sol, true
}

const solveUsage = "Usage:\n" +
	"/solve `linear2 10 = 2x + 4`\n" +
	"/solve `linear3 y=6 a=1 b=2 c=0 d=1`\n" +
	"/solve `quadratic 0 = 1x^2 - 3x + 2`\n" +
	"/solve `abcd a=1 b=2 c=3 d=7`\n" +
	"Shapes: linear2, linear3, quadratic, abcd"
