package main

import (
	"context"
	"errors"
	"log"
	"net"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"mistral-ocr/api/internal/config"
	"mistral-ocr/api/internal/convert"
	"mistral-ocr/api/internal/httpserver"
	"mistral-ocr/api/internal/pipeline"
	"mistral-ocr/api/internal/telegram"
)

const shutdownGrace = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.TelegramBotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is empty")
	}

	engines := cfg.Engines("", "")
	defaultEngine := "mistral"
	switch {
	case engines.Mistral != nil:
	case engines.Gemini != nil:
		defaultEngine = "gemini"
	default:
		log.Fatal("no OCR engine configured: set MISTRAL_API_KEY or GEMINI_API_KEY")
	}

	// LibreOffice необязателен: без него не работают только офисные документы
	var conv pipeline.PDFConverter
	if c, err := convert.Find(); err == nil {
		conv = c
		log.Printf("libreoffice: %s", c.Binary)
	} else {
		log.Printf("libreoffice not found; office documents will be rejected")
	}

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal(err)
	}
	bot.Debug = false
	log.Printf("authorized as @%s", bot.Self.UserName)

	r := &telegram.Router{
		Bot:           bot,
		Engines:       engines,
		DefaultMode:   cfg.BotImageMode,
		DefaultEngine: defaultEngine,
		Converter:     conv,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// сигнал останавливает приём обновлений, но не уже начатые распознавания
	jobCtx, cancelJobs := newJobContext(ctx)
	defer cancelJobs()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.StartHTTP(gctx, "0.0.0.0:"+cfg.Port, "ok")
	})
	g.Go(func() error {
		runPolling(gctx, bot, func(upd tgbotapi.Update) {
			r.HandleUpdate(jobCtx, upd)
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if !r.Wait(shutdownGrace) {
		cancelJobs()
		r.Wait(5 * time.Second)
	}
	log.Printf("bye")
}

// newJobContext keeps parent's values but not its cancellation.
func newJobContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(context.WithoutCancel(parent))
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 от Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return 2 * time.Second
		}
	}
	return 1 * time.Second
}

func clampDelay(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		if ctx.Err() != nil {
			log.Printf("polling: context cancelled")
			return
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := awaitUpdates(ctx, func() ([]tgbotapi.Update, error) {
			return bot.GetUpdates(u)
		})
		if ctx.Err() != nil {
			log.Printf("polling: context cancelled")
			return
		}
		if err != nil {
			d := clampDelay(retryDelayFromError(err), baseDelay, maxDelay)
			log.Printf("polling error: %v; retry in %v", err, d)
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

// awaitUpdates returns as soon as ctx is done. The long poll itself cannot be
// cancelled; its result is dropped and the unconfirmed offset is redelivered
// on the next start.
func awaitUpdates(ctx context.Context, fetch func() ([]tgbotapi.Update, error)) ([]tgbotapi.Update, error) {
	type result struct {
		updates []tgbotapi.Update
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		updates, err := fetch()
		ch <- result{updates, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.updates, res.err
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
