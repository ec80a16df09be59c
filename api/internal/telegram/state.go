package telegram

import "mistral-ocr/api/internal/ocr"

// chatSettings: выбор пользователя в конкретном чате. Живёт только в памяти процесса.
type chatSettings struct {
	Mode   ocr.ImageMode
	Engine string
}

func (r *Router) chat(chatID int64) chatSettings {
	if v, ok := r.settings.Load(chatID); ok {
		if s, ok := v.(chatSettings); ok {
			return s
		}
	}
	engine := r.DefaultEngine
	if engine == "" {
		engine = "mistral"
	}
	return chatSettings{Mode: r.DefaultMode, Engine: engine}
}

func (r *Router) store(chatID int64, s chatSettings) { r.settings.Store(chatID, s) }
