package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"mistral-ocr/api/internal/ocr"
	"mistral-ocr/api/internal/ocr/gemini"
	"mistral-ocr/api/internal/ocr/mistral"
)

var ErrMissingKey = errors.New("missing required env")

type Config struct {
	Port string

	MistralAPIKey   string
	MistralModel    string
	MistralEndpoint string
	Timeout         time.Duration

	GeminiAPIKey string
	GeminiModel  string

	TelegramBotToken string
	BotImageMode     ocr.ImageMode
}

// Load читает конфигурацию только из окружения (файлов конфигурации нет).
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("MISTRAL_OCR_MODEL", mistral.DefaultModel)
	v.SetDefault("MISTRAL_OCR_URL", mistral.DefaultEndpoint)
	v.SetDefault("OCR_TIMEOUT", mistral.DefaultTimeout.String())
	v.SetDefault("GEMINI_MODEL", gemini.DefaultModel)
	v.SetDefault("OCR_BOT_IMAGES", ocr.ModeArchive.String())

	mode, err := ocr.ParseImageMode(v.GetString("OCR_BOT_IMAGES"))
	if err != nil {
		return nil, fmt.Errorf("OCR_BOT_IMAGES: %w", err)
	}
	timeout := v.GetDuration("OCR_TIMEOUT")
	if timeout <= 0 {
		return nil, fmt.Errorf("OCR_TIMEOUT: invalid duration %q", v.GetString("OCR_TIMEOUT"))
	}

	return &Config{
		Port: strings.TrimSpace(v.GetString("PORT")),

		MistralAPIKey:   strings.TrimSpace(v.GetString("MISTRAL_API_KEY")),
		MistralModel:    strings.TrimSpace(v.GetString("MISTRAL_OCR_MODEL")),
		MistralEndpoint: strings.TrimSpace(v.GetString("MISTRAL_OCR_URL")),
		Timeout:         timeout,

		GeminiAPIKey: strings.TrimSpace(v.GetString("GEMINI_API_KEY")),
		GeminiModel:  strings.TrimSpace(v.GetString("GEMINI_MODEL")),

		TelegramBotToken: strings.TrimSpace(v.GetString("TELEGRAM_BOT_TOKEN")),
		BotImageMode:     mode,
	}, nil
}

// RequireEngine проверяет, что для выбранного движка задан ключ.
func (c *Config) RequireEngine(name string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mistral":
		if c.MistralAPIKey == "" {
			return fmt.Errorf("%w MISTRAL_API_KEY", ErrMissingKey)
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w GEMINI_API_KEY", ErrMissingKey)
		}
	default:
		return fmt.Errorf("unknown engine %q; use 'mistral' or 'gemini'", name)
	}
	return nil
}

// Engines собирает движки по конфигурации; движок без ключа остаётся nil.
// modelOverride, если задан, заменяет модель выбранного по умолчанию движка engine.
func (c *Config) Engines(engine, modelOverride string) *ocr.Engines {
	mistralModel, geminiModel := c.MistralModel, c.GeminiModel
	if m := strings.TrimSpace(modelOverride); m != "" {
		if strings.EqualFold(strings.TrimSpace(engine), "gemini") {
			geminiModel = m
		} else {
			mistralModel = m
		}
	}

	e := &ocr.Engines{}
	if c.MistralAPIKey != "" {
		e.Mistral = mistral.New(c.MistralAPIKey, mistralModel).
			WithEndpoint(c.MistralEndpoint).
			WithTimeout(c.Timeout)
	}
	if c.GeminiAPIKey != "" {
		e.Gemini = gemini.New(c.GeminiAPIKey, geminiModel)
	}
	return e
}
