package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"math-bot/api/internal/equation"
	"math-bot/api/internal/store"
	"math-bot/api/internal/util"
)

// Sender: часть *tgbotapi.BotAPI, которой пользуется роутер.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type History interface {
	Record(ctx context.Context, e *store.Entry) error
	Recent(ctx context.Context, chatID int64, limit int) ([]store.Entry, error)
	Last(ctx context.Context, chatID int64, kind store.Kind) (*store.Entry, error)
}

type Renderer interface {
	Render(ctx context.Context, formula string) ([]byte, error)
}

type Explainer interface {
	Enabled() bool
	Explain(ctx context.Context, sol equation.Solution) (string, error)
}

type Router struct {
	Bot Sender
	Log *zap.Logger

	History   History   // nil: история выключена
	LaTeX     Renderer  // nil: вместо картинки шаблон текстом
	Explainer Explainer // nil: /explain недоступен

	HistoryLimit int

	sessions  *sessions
	cooldowns *cooldowns
	awaiting  sync.Map  // inputKey -> pendingInput
	solved    sync.Map  // chatID -> equation.Solution, последнее решение для /explain
	initOnce  sync.Once // ленивая инициализация для роутеров, собранных литералом
}

type Options struct {
	Cooldown     time.Duration
	SessionTTL   time.Duration
	HistoryLimit int
}

func NewRouter(bot Sender, log *zap.Logger, opt Options) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{
		Bot:          bot,
		Log:          log,
		HistoryLimit: opt.HistoryLimit,
		sessions:     newSessions(opt.SessionTTL),
		cooldowns:    newCooldowns(opt.Cooldown),
	}
	return r
}

func (r *Router) init() {
	r.initOnce.Do(func() {
		if r.Log == nil {
			r.Log = zap.NewNop()
		}
		if r.sessions == nil {
			r.sessions = newSessions(0)
		}
		if r.cooldowns == nil {
			r.cooldowns = newCooldowns(0)
		}
		if r.HistoryLimit <= 0 {
			r.HistoryLimit = 10
		}
	})
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	r.init()

	// callback-кнопки
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, upd.CallbackQuery)
		return
	}
	msg := upd.Message
	if msg == nil {
		return
	}
	if msg.IsCommand() {
		r.HandleCommand(ctx, msg)
		return
	}
	// ждём значение переменной или уравнение, набранное текстом
	if msg.Text != "" && msg.From != nil {
		if p, ok := r.awaiting.Load(inputKey{ChatID: msg.Chat.ID, UserID: msg.From.ID}); ok {
			r.acceptInput(ctx, msg, p.(pendingInput))
		}
	}
}

func (r *Router) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		r.sendMarkdown(cid, helpText)
	case "calc", "calculator":
		if r.onCooldown(msg) {
			return
		}
		r.openCalculator(cid, userID(msg.From))
	case "eq", "equation":
		if r.onCooldown(msg) {
			return
		}
		r.openEquationSelect(cid, userID(msg.From))
	case "reduce":
		r.cmdReduce(ctx, msg, args)
	case "solve":
		r.cmdSolve(ctx, msg, args)
	case "history":
		r.cmdHistory(ctx, msg)
	case "explain":
		r.cmdExplain(ctx, msg)
	default:
		r.send(cid, "Unknown command. Try /help")
	}
}

func (r *Router) onCooldown(msg *tgbotapi.Message) bool {
	wait := r.cooldowns.take(userID(msg.From), time.Now())
	if wait <= 0 {
		return false
	}
	r.send(msg.Chat.ID, fmt.Sprintf("You are on cooldown. Try again in %.1fs", wait.Seconds()))
	return true
}

// Janitor periodically drops expired keypads and idle cooldown buckets.
func (r *Router) Janitor(ctx context.Context, every time.Duration) {
	r.init()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := r.sessions.sweep(now); n > 0 {
				r.Log.Debug("expired sessions dropped", zap.Int("count", n))
			}
			r.cooldowns.sweep(now)
			r.awaiting.Range(func(k, v any) bool {
				if _, ok := r.sessions.peek(v.(pendingInput).Session); !ok {
					r.awaiting.Delete(k)
				}
				return true
			})
		}
	}
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, util.Truncate(text, maxMessageRunes))
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("Oops! An error occurred: %v", err))
}

// record пишет в историю; ошибки БД не мешают ответу пользователю.
func (r *Router) record(ctx context.Context, e *store.Entry) {
	if r.History == nil {
		return
	}
	if err := r.History.Record(ctx, e); err != nil {
		r.Log.Warn("history record failed", zap.Int64("chat_id", e.ChatID), zap.Error(err))
	}
}

func userID(u *tgbotapi.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}

const maxMessageRunes = 3900

const helpText = "*Math Bot*\n" +
	"/calc - keypad calculator\n" +
	"/eq - equation solver (pick a shape, fill in the values)\n" +
	"/reduce `2+3*4` - evaluate an expression\n" +
	"/solve `linear2 10 = 2x + 4` - solve an equation\n" +
	"/solve `quadratic y=0 a=1 b=-3 c=2` - solve from values\n" +
	"/history - your recent results\n" +
	"/explain - explain the last solved equation"
