package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mistral-ocr/api/internal/ocr"
)

const (
	cbModePrefix   = "mode:"
	cbEnginePrefix = "engine:"
)

// Кнопки выбора режима картинок
func makeModeKeyboard() tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, 4)
	for _, m := range []ocr.ImageMode{ocr.ModeDiscard, ocr.ModeSeparate, ocr.ModeInline, ocr.ModeArchive} {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(m.String(), cbModePrefix+m.String()))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func makeEngineKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("mistral", cbEnginePrefix+"mistral"),
		tgbotapi.NewInlineKeyboardButtonData("gemini", cbEnginePrefix+"gemini"),
	))
}

func helpText(s chatSettings) string {
	var b strings.Builder
	b.WriteString("Send a PDF, an image (")
	b.WriteString(strings.Join(ocr.ImageExtensions, ", "))
	b.WriteString(") or an office document (")
	b.WriteString(strings.Join(ocr.ConvertibleExtensions, ", "))
	b.WriteString(") and I will return the recognized markdown.\n\n")
	b.WriteString("Commands:\n")
	b.WriteString("/images none|separate|inline|zip: how to return embedded images\n")
	b.WriteString("/engine mistral|gemini: OCR engine\n")
	b.WriteString("/health: liveness check\n\n")
	b.WriteString("Current: images=" + s.Mode.String() + ", engine=" + s.Engine)
	return b.String()
}
