package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"math-bot/api/internal/equation"
	"math-bot/api/internal/num"
	"math-bot/api/internal/store"
)

const renderTimeout = 30 * time.Second

func (r *Router) openEquationSelect(chatID, ownerID int64) {
	msg := tgbotapi.NewMessage(chatID, "*Equation Solver*\nSelect a type of equation to solve")
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = shapeKeyboard()
	sent, err := r.Bot.Send(msg)
	if err != nil {
		r.Log.Warn("equation select send failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	r.sessions.put(sessionKey{ChatID: chatID, MessageID: sent.MessageID}, &session{OwnerID: ownerID, Kind: kindEquation})
}

func (r *Router) onShapeSelected(ctx context.Context, cb *tgbotapi.CallbackQuery, key sessionKey, sess *session, name string) {
	shape, err := equation.ParseShape(name)
	if err != nil {
		r.answer(cb, "Unknown equation type")
		return
	}
	r.answer(cb, "")
	sess.Shape = shape
	sess.Vars = equation.Variables{}
	sess.Manual = false

	caption := wizardCaption(shape)
	kb := variableKeyboard(shape, sess.Vars)

	img, err := r.renderLaTeX(ctx, shape.LaTeX(sess.Vars))
	if err != nil {
		sess.Photo = false
		r.editText(key, caption+"\n`"+shape.Format()+"`", kb)
		return
	}
	sent, err := r.sendPhoto(key.ChatID, "equation.png", img, caption, &kb)
	if err != nil {
		r.Log.Warn("equation photo send failed", zap.Int64("chat_id", key.ChatID), zap.Error(err))
		return
	}
	sess.Photo = true
	newKey := sessionKey{ChatID: key.ChatID, MessageID: sent.MessageID}
	r.sessions.move(key, newKey)
	_, _ = r.Bot.Request(tgbotapi.NewDeleteMessage(key.ChatID, key.MessageID))
}

func (r *Router) onVariable(cb *tgbotapi.CallbackQuery, key sessionKey, sess *session, name string) {
	if !sess.Shape.HasVariable(name) {
		r.answer(cb, "")
		return
	}
	if _, set := sess.Vars[name]; set {
		r.answer(cb, name+" is already set")
		return
	}
	r.answer(cb, "")
	r.awaiting.Store(inputKey{ChatID: key.ChatID, UserID: sess.OwnerID}, pendingInput{Session: key, Var: name})
	r.send(key.ChatID, "What do you want the value of "+name+" to be?")
}

func (r *Router) acceptInput(ctx context.Context, msg *tgbotapi.Message, p pendingInput) {
	ik := inputKey{ChatID: msg.Chat.ID, UserID: userID(msg.From)}
	sess, ok := r.sessions.touch(p.Session)
	if !ok {
		r.awaiting.Delete(ik)
		r.send(msg.Chat.ID, expired)
		return
	}
	text := strings.TrimSpace(msg.Text)

	// ручной режим: уравнение набрано текстом
	if p.Var == "" {
		sess.Expression = text
		r.submitManual(ctx, p.Session, sess)
		return
	}

	v, err := num.Parse(text)
	if err != nil {
		r.send(msg.Chat.ID, "Value must be a number!, try again")
		return
	}
	r.awaiting.Delete(ik)
	sess.Vars[p.Var] = v
	r.refreshWizard(ctx, p.Session, sess)
}

// refreshWizard перерисовывает формулу с подставленными значениями.
func (r *Router) refreshWizard(ctx context.Context, key sessionKey, sess *session) {
	kb := variableKeyboard(sess.Shape, sess.Vars)
	caption := wizardCaption(sess.Shape)
	if !sess.Photo {
		r.editText(key, caption+"\n`"+sess.Shape.LaTeX(sess.Vars)+"`", kb)
		return
	}
	img, err := r.renderLaTeX(ctx, sess.Shape.LaTeX(sess.Vars))
	if err != nil {
		// картинку оставляем старой, но кнопки обновляем
		_, _ = r.Bot.Send(tgbotapi.NewEditMessageReplyMarkup(key.ChatID, key.MessageID, kb))
		return
	}
	r.editPhoto(key, "equation.png", img, caption, kb)
}

func (r *Router) onManualMode(cb *tgbotapi.CallbackQuery, key sessionKey, sess *session) {
	r.answer(cb, "")
	msg := tgbotapi.NewMessage(key.ChatID, display(""))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = manualKeyboard()
	sent, err := r.Bot.Send(msg)
	if err != nil {
		r.Log.Warn("manual mode send failed", zap.Int64("chat_id", key.ChatID), zap.Error(err))
		return
	}
	sess.Manual = true
	sess.Photo = false
	sess.Expression = ""
	newKey := sessionKey{ChatID: key.ChatID, MessageID: sent.MessageID}
	r.sessions.move(key, newKey)
	r.awaiting.Store(inputKey{ChatID: key.ChatID, UserID: sess.OwnerID}, pendingInput{Session: newKey})
	_, _ = r.Bot.Request(tgbotapi.NewDeleteMessage(key.ChatID, key.MessageID))
}

func (r *Router) onManualKey(ctx context.Context, cb *tgbotapi.CallbackQuery, key sessionKey, sess *session, k string) {
	if !sess.Manual {
		r.answer(cb, "")
		return
	}
	next, act := pressManual(sess.Expression, k)
	switch act {
	case actHelp:
		r.alert(cb, manualHelp(sess.Shape))
		return
	case actClose:
		r.answer(cb, "")
		r.awaiting.Delete(inputKey{ChatID: key.ChatID, UserID: sess.OwnerID})
		r.close(key)
		return
	case actEnter:
		r.answer(cb, "")
		r.submitManual(ctx, key, sess)
		return
	}
	r.answer(cb, "")
	sess.Expression = next
	r.editText(key, display(next), manualKeyboard())
}

func (r *Router) submitManual(ctx context.Context, key sessionKey, sess *session) {
	sol, err := equation.Solve(sess.Shape, sess.Expression, nil)
	if errors.Is(err, equation.ErrInvalidEquation) {
		r.editText(key, display("Invalid Equation"), manualKeyboard())
		return
	}
	r.finish(ctx, key, sess, sol, err)
}

func (r *Router) onEnter(ctx context.Context, cb *tgbotapi.CallbackQuery, key sessionKey, sess *session) {
	if missing := equation.Missing(sess.Shape, sess.Vars); len(missing) > 0 {
		r.answer(cb, "Set "+strings.Join(missing, ", ")+" first")
		return
	}
	r.answer(cb, "")
	sol, err := equation.Solve(sess.Shape, "", sess.Vars)
	r.finish(ctx, key, sess, sol, err)
}

// finish заменяет клавиатуру решением.
func (r *Router) finish(ctx context.Context, key sessionKey, sess *session, sol equation.Solution, err error) {
	if err != nil {
		r.SendError(key.ChatID, err)
		return
	}
	r.awaiting.Delete(inputKey{ChatID: key.ChatID, UserID: sess.OwnerID})
	r.close(key)
	r.deliverSolution(ctx, key.ChatID, sess.OwnerID, sol)
}

// deliverSolution отправляет шаги (с графиком для линейных) и запоминает решение.
func (r *Router) deliverSolution(ctx context.Context, chatID, userID int64, sol equation.Solution) {
	r.sendSolution(chatID, sol)
	r.solved.Store(chatID, sol)

	input := sol.Equation
	if input == "" && len(sol.Steps) > 0 {
		input = sol.Steps[0]
	}
	r.record(ctx, &store.Entry{
		ChatID: chatID,
		UserID: userID,
		Kind:   store.KindSolve,
		Shape:  sol.Shape.String(),
		Input:  input,
		Result: sol.Answer(),
		Steps:  sol.Steps,

		Variables: plainValues(sol.Variables),
	})
}

func plainValues(v equation.Variables) map[string]float64 {
	out := make(map[string]float64, len(v))
	for k, n := range v {
		out[k] = n.Float64()
	}
	return out
}

func (r *Router) renderLaTeX(ctx context.Context, formula string) ([]byte, error) {
	if r.LaTeX == nil {
		return nil, errors.New("latex renderer is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()
	img, err := r.LaTeX.Render(ctx, formula)
	if err != nil {
		r.Log.Warn("latex render failed", zap.String("formula", formula), zap.Error(err))
	}
	return img, err
}
