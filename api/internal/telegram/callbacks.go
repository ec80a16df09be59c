package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	cid := cb.Message.Chat.ID

	// убрать клавиатуру
	edit := tgbotapi.NewEditMessageReplyMarkup(cid, cb.Message.MessageID, tgbotapi.InlineKeyboardMarkup{})
	_, _ = r.Bot.Send(edit)

	switch {
	case strings.HasPrefix(cb.Data, cbModePrefix):
		r.setMode(cid, strings.TrimPrefix(cb.Data, cbModePrefix))
	case strings.HasPrefix(cb.Data, cbEnginePrefix):
		r.setEngine(cid, strings.TrimPrefix(cb.Data, cbEnginePrefix))
	}
}
