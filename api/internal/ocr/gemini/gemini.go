package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"mistral-ocr/api/internal/ocr"
	"mistral-ocr/api/internal/util"
)

const DefaultModel = "gemini-2.5-flash"

const systemPrompt = `You are an OCR engine. Transcribe the attached document into GitHub-flavoured markdown.
Keep headings, lists, tables and reading order. Do not summarise, translate or comment.
Return STRICT JSON:
{
  "pages": [
    {"index": number,    // zero-based page number
     "markdown": string} // transcription of that page
  ]
}
For a single image return exactly one page with index 0.`

type Engine struct {
	APIKey string
	Model  string
	opts   []option.ClientOption
}

func New(apiKey, model string) *Engine {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

// WithClientOptions добавляет опции клиента (endpoint, http-клиент и т.п.).
func (e *Engine) WithClientOptions(opts ...option.ClientOption) *Engine {
	e.opts = append(e.opts, opts...)
	return e
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// Process распознаёт документ из data:URI запроса. Встроенных картинок Gemini не возвращает,
// поэтому include_image_base64 игнорируется.
func (e *Engine) Process(ctx context.Context, in ocr.Request) (ocr.Response, error) {
	if e.APIKey == "" {
		return ocr.Response{}, errors.New("GEMINI_API_KEY is empty")
	}
	if in.Document == nil {
		return ocr.Response{}, errors.New("gemini OCR: request has no document")
	}
	data, hintMIME, err := util.DecodeBase64MaybeDataURL(in.Document.DataURL())
	if err != nil {
		return ocr.Response{}, fmt.Errorf("gemini OCR: bad base64: %w", err)
	}
	mime := util.PickMIME("", hintMIME, data)

	opts := append([]option.ClientOption{option.WithAPIKey(e.APIKey)}, e.opts...)
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return ocr.Response{}, err
	}
	defer cl.Close()

	model := e.Model
	if m := strings.TrimSpace(in.Model); m != "" {
		model = m
	}
	m := cl.GenerativeModel(model)
	if m == nil {
		return ocr.Response{}, fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	user := "Transcribe every page. Answer with JSON only."
	if d, ok := in.Document.(ocr.DocumentURL); ok && d.Name != "" {
		user += " Document name: " + d.Name + "."
	}
	resp, err := m.GenerateContent(ctx,
		genai.Text(user),
		genai.Blob{MIMEType: mime, Data: data},
	)
	if err != nil {
		return ocr.Response{}, fmt.Errorf("gemini OCR: %w", err)
	}
	txt := firstText(resp)
	if txt == "" {
		return ocr.Response{}, errors.New("gemini OCR: empty response")
	}
	return decodePages(txt)
}

// decodePages разбирает JSON модели; если пришёл не JSON, считаем весь текст одной страницей.
func decodePages(txt string) (ocr.Response, error) {
	txt = util.StripCodeFences(strings.TrimSpace(txt))
	var out ocr.Response
	if err := json.Unmarshal([]byte(txt), &out); err != nil || len(out.Pages) == 0 {
		if strings.HasPrefix(txt, "{") {
			if err == nil {
				err = errors.New("no pages")
			}
			return ocr.Response{}, fmt.Errorf("gemini OCR: bad JSON: %v", err)
		}
		return ocr.Response{Pages: []ocr.Page{{Index: 0, Markdown: txt}}}, nil
	}
	for i := range out.Pages {
		out.Pages[i].Images = nil
	}
	return out, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
