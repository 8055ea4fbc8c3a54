package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"math-bot/api/internal/equation"
	"math-bot/api/internal/graph"
)

func (r *Router) sendPhoto(chatID int64, name string, png []byte, caption string, kb *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	ph := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: png})
	ph.Caption = caption
	ph.ParseMode = tgbotapi.ModeMarkdown
	if kb != nil {
		ph.ReplyMarkup = *kb
	}
	return r.Bot.Send(ph)
}

func (r *Router) editPhoto(key sessionKey, name string, png []byte, caption string, kb tgbotapi.InlineKeyboardMarkup) {
	media := tgbotapi.NewInputMediaPhoto(tgbotapi.FileBytes{Name: name, Bytes: png})
	media.Caption = caption
	media.ParseMode = tgbotapi.ModeMarkdown
	edit := tgbotapi.EditMessageMediaConfig{
		BaseEdit: tgbotapi.BaseEdit{
			ChatID:      key.ChatID,
			MessageID:   key.MessageID,
			ReplyMarkup: &kb,
		},
		Media: media,
	}
	if _, err := r.Bot.Send(edit); err != nil && !strings.Contains(err.Error(), "not modified") {
		r.Log.Warn("edit media failed", zap.Int64("chat_id", key.ChatID), zap.Error(err))
	}
}

// sendSolution: для линейных уравнений шаги идут подписью к графику.
func (r *Router) sendSolution(chatID int64, sol equation.Solution) {
	text := solutionText(sol)
	if p, ok := graph.ForSolution(sol); ok {
		img, err := p.PNG()
		if err == nil {
			if _, err = r.sendPhoto(chatID, "graph.png", img, text, nil); err == nil {
				return
			}
		}
		r.Log.Warn("graph send failed, falling back to text", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	r.sendMarkdown(chatID, text)
}
