package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		r.answer(cb, "")
		return
	}
	key := sessionKey{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.MessageID}
	data := cb.Data

	if data == cbNoop {
		r.answer(cb, "")
		return
	}

	sess, ok := r.sessions.touch(key)
	if !ok {
		r.answer(cb, expired)
		return
	}
	if sess.OwnerID != userID(cb.From) {
		r.alert(cb, notYours)
		return
	}

	switch {
	case strings.HasPrefix(data, cbCalc):
		r.onCalcKey(cb, key, sess, strings.TrimPrefix(data, cbCalc))
	case strings.HasPrefix(data, cbShape):
		r.onShapeSelected(ctx, cb, key, sess, strings.TrimPrefix(data, cbShape))
	case strings.HasPrefix(data, cbVar):
		r.onVariable(cb, key, sess, strings.TrimPrefix(data, cbVar))
	case data == cbManual:
		r.onManualMode(cb, key, sess)
	case data == cbEnter:
		r.onEnter(ctx, cb, key, sess)
	case strings.HasPrefix(data, cbKey):
		r.onManualKey(ctx, cb, key, sess, strings.TrimPrefix(data, cbKey))
	default:
		r.Log.Debug("unknown callback", zap.String("data", data))
		r.answer(cb, "")
	}
}

func (r *Router) onCalcKey(cb *tgbotapi.CallbackQuery, key sessionKey, sess *session, k string) {
	next, act := pressCalc(sess.Expression, k)
	switch act {
	case actHelp:
		r.alert(cb, calcHelp)
		return
	case actClose:
		r.answer(cb, "")
		r.close(key)
		return
	case actError:
		r.answer(cb, "")
		r.editText(key, display("ERROR"), calcKeyboard())
		return
	}
	r.answer(cb, "")
	sess.Expression = next
	r.editText(key, display(next), calcKeyboard())
}

func (r *Router) openCalculator(chatID, ownerID int64) {
	msg := tgbotapi.NewMessage(chatID, display(""))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = calcKeyboard()
	sent, err := r.Bot.Send(msg)
	if err != nil {
		r.Log.Warn("calculator send failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	r.sessions.put(sessionKey{ChatID: chatID, MessageID: sent.MessageID}, &session{OwnerID: ownerID, Kind: kindCalc})
}

func (r *Router) answer(cb *tgbotapi.CallbackQuery, text string) {
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, text))
}

func (r *Router) alert(cb *tgbotapi.CallbackQuery, text string) {
	_, _ = r.Bot.Request(tgbotapi.NewCallbackWithAlert(cb.ID, text))
}

// editText меняет экран; "message is not modified" от телеграма не ошибка.
func (r *Router) editText(key sessionKey, text string, kb tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(key.ChatID, key.MessageID, text, kb)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := r.Bot.Send(edit); err != nil && !strings.Contains(err.Error(), "not modified") {
		r.Log.Warn("edit failed", zap.Int64("chat_id", key.ChatID), zap.Error(err))
	}
}

func (r *Router) close(key sessionKey) {
	r.sessions.delete(key)
	if _, err := r.Bot.Request(tgbotapi.NewDeleteMessage(key.ChatID, key.MessageID)); err != nil {
		r.Log.Warn("delete failed", zap.Int64("chat_id", key.ChatID), zap.Error(err))
	}
}
