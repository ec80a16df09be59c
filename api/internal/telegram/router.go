package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mistral-ocr/api/internal/ocr"
	"mistral-ocr/api/internal/pipeline"
)

// BotAPI: часть *tgbotapi.BotAPI, которой пользуется роутер.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot     BotAPI
	Engines *ocr.Engines

	// Defaults for chats that have not picked anything yet
	DefaultMode   ocr.ImageMode
	DefaultEngine string

	// Converter для офисных документов; nil: искать LibreOffice при каждом запуске.
	Converter  pipeline.PDFConverter
	HTTPClient *http.Client

	settings sync.Map // chatID -> chatSettings
	jobs     sync.WaitGroup
}

// HandleUpdate разбирает одно обновление. Распознавание идёт в отдельной горутине,
// так что вызывающий цикл поллинга не блокируется.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	if msg.IsCommand() {
		r.HandleCommand(cid, msg.Command(), msg.CommandArguments())
		return
	}
	if msg.Document != nil {
		r.acceptDocument(ctx, cid, *msg.Document)
		return
	}
	if len(msg.Photo) > 0 {
		r.acceptPhoto(ctx, cid, msg.Photo)
		return
	}
	if strings.TrimSpace(msg.Text) != "" {
		r.send(cid, "Send a PDF, an image, or an office document. /help lists the commands.")
	}
}

func (r *Router) HandleCommand(cid int64, cmd, args string) {
	args = strings.TrimSpace(args)
	switch cmd {
	case "start", "help":
		r.send(cid, helpText(r.chat(cid)))
	case "health":
		r.send(cid, "✅ OK")
	case "images":
		if args == "" {
			r.sendWithKeyboard(cid, "Image mode: "+r.chat(cid).Mode.String()+"\nPick one:", makeModeKeyboard())
			return
		}
		r.setMode(cid, args)
	case "engine":
		if args == "" {
			r.sendWithKeyboard(cid, "Engine: "+r.chat(cid).Engine+"\nPick one:", makeEngineKeyboard())
			return
		}
		r.setEngine(cid, args)
	default:
		r.send(cid, "Unknown command. /help lists the commands.")
	}
}

func (r *Router) setMode(cid int64, arg string) {
	mode, err := ocr.ParseImageMode(arg)
	if err != nil {
		r.send(cid, "❌ "+err.Error())
		return
	}
	s := r.chat(cid)
	s.Mode = mode
	r.store(cid, s)
	r.send(cid, "✅ Image mode: "+mode.String())
}

func (r *Router) setEngine(cid int64, arg string) {
	name := strings.ToLower(strings.TrimSpace(arg))
	eng, err := r.engines().GetEngine(name)
	if err != nil {
		r.send(cid, "❌ "+err.Error())
		return
	}
	s := r.chat(cid)
	s.Engine = name
	r.store(cid, s)
	r.send(cid, fmt.Sprintf("✅ Engine: %s (%s)", eng.Name(), eng.GetModel()))
}

// Wait блокируется, пока не закончатся все запущенные распознавания.
func (r *Router) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		r.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		log.Printf("telegram: %v elapsed, jobs still running", timeout)
		return false
	}
}

func (r *Router) engines() *ocr.Engines {
	if r.Engines == nil {
		return &ocr.Engines{}
	}
	return r.Engines
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	_, _ = r.Bot.Send(msg)
}

func (r *Router) sendWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	_, _ = r.Bot.Send(msg)
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("Ошибка OCR: %v", err))
}
