package telegram

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mistral-ocr/api/internal/ocr"
	"mistral-ocr/api/internal/pipeline"
	"mistral-ocr/api/internal/progress"
	"mistral-ocr/api/internal/util"
)

const (
	maxStatusRunes  = 4000
	maxPreviewRunes = 3900
)

func (r *Router) acceptDocument(ctx context.Context, cid int64, doc tgbotapi.Document) {
	name := safeFileName(doc.FileName, "document")
	if _, err := ocr.Classify(name); err != nil {
		r.SendError(cid, err)
		return
	}
	r.startJob(ctx, cid, doc.FileID, name)
}

// acceptPhoto берёт самое большое разрешение; у фото нет имени, поэтому .jpg.
func (r *Router) acceptPhoto(ctx context.Context, cid int64, sizes []tgbotapi.PhotoSize) {
	ph := sizes[len(sizes)-1]
	name := safeFileName("photo_"+ph.FileUniqueID+".jpg", "photo.jpg")
	r.startJob(ctx, cid, ph.FileID, name)
}

func (r *Router) startJob(ctx context.Context, cid int64, fileID, name string) {
	r.jobs.Add(1)
	go func() {
		defer r.jobs.Done()
		r.runJob(ctx, cid, fileID, name)
	}()
}

func (r *Router) runJob(ctx context.Context, cid int64, fileID, name string) {
	s := r.chat(cid)
	started := time.Now()

	status, err := r.Bot.Send(tgbotapi.NewMessage(cid, "Processing "+name+"..."))
	if err != nil {
		log.Printf("telegram: chat %d: status message: %v", cid, err)
		return
	}
	buf := progress.NewBuffer(func(snapshot string) {
		r.editStatus(cid, status.MessageID, snapshot)
	})
	logger := log.New(buf, "", 0)
	fail := func(err error) {
		buf.Error(err)
		log.Printf("telegram: chat %d: %s failed after %v:\n%s", cid, name, time.Since(started), buf.String())
	}

	dir, err := os.MkdirTemp("", "ocr-bot-")
	if err != nil {
		fail(err)
		return
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, name)
	logger.Printf("Downloading %s...", name)
	if err := r.download(ctx, fileID, input); err != nil {
		fail(err)
		return
	}

	eng, err := r.engines().GetEngine(s.Engine)
	if err != nil {
		fail(err)
		return
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	art, err := pipeline.Run(ctx, eng, pipeline.Options{
		Input:     input,
		Output:    filepath.Join(dir, "out", stem+".md"),
		Mode:      s.Mode,
		Converter: r.Converter,
	}, logger)
	if err != nil {
		fail(err)
		return
	}

	r.sendArtifact(cid, art.Path, art.ImagesDir, s.Mode)
	log.Printf("telegram: chat %d: %s done in %v (%s, %s)", cid, name, time.Since(started), eng.Name(), s.Mode)
}

func (r *Router) sendArtifact(cid int64, path, imagesDir string, mode ocr.ImageMode) {
	if mode == ocr.ModeDiscard {
		if b, err := os.ReadFile(path); err == nil {
			if text := strings.TrimSpace(string(b)); text != "" {
				r.send(cid, "📝 "+util.Truncate(text, maxPreviewRunes))
			}
		}
	}
	if _, err := r.Bot.Send(tgbotapi.NewDocument(cid, tgbotapi.FilePath(path))); err != nil {
		r.SendError(cid, fmt.Errorf("send %s: %w", filepath.Base(path), err))
		return
	}
	if imagesDir == "" {
		return
	}
	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		r.SendError(cid, err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(imagesDir, e.Name())
		if _, err := r.Bot.Send(tgbotapi.NewDocument(cid, tgbotapi.FilePath(p))); err != nil {
			r.SendError(cid, fmt.Errorf("send %s: %w", e.Name(), err))
			return
		}
	}
}

// editStatus перерисовывает статусное сообщение текущим журналом.
func (r *Router) editStatus(cid int64, msgID int, text string) {
	edit := tgbotapi.NewEditMessageText(cid, msgID, util.Truncate(text, maxStatusRunes))
	_, _ = r.Bot.Send(edit) // "message is not modified" не важно
}

func (r *Router) download(ctx context.Context, fileID, dst string) error {
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return fmt.Errorf("telegram getFile: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := r.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("download: status %d: %s", resp.StatusCode, string(b))
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return f.Close()
}

func (r *Router) httpClient() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}

// safeFileName оставляет только базовое имя, без разделителей путей.
func safeFileName(name, fallback string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = filepath.Base(name)
	if name == "" || name == "." || name == "/" || name == ".." {
		return fallback
	}
	return name
}
