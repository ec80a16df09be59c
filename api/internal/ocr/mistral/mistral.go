package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"mistral-ocr/api/internal/ocr"
)

const (
	DefaultEndpoint = "https://api.mistral.ai/v1/ocr"
	DefaultModel    = "mistral-ocr-latest"
	DefaultTimeout  = 300 * time.Second
)

type Engine struct {
	APIKey   string
	Model    string
	Endpoint string
	httpc    *http.Client
}

func New(key, model string) *Engine {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		// большие PDF распознаются долго, заголовки ответа могут прийти через минуты
		ResponseHeaderTimeout: DefaultTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
	}
	return &Engine{
		APIKey:   strings.TrimSpace(key),
		Model:    strings.TrimSpace(model),
		Endpoint: DefaultEndpoint,
		httpc: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: tr,
		},
	}
}

// WithHTTPClient overrides the internal HTTP client (e.g., for custom timeouts or tests).
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.httpc = c
	}
	return e
}

// WithEndpoint overrides the OCR endpoint URL.
func (e *Engine) WithEndpoint(url string) *Engine {
	if u := strings.TrimSpace(url); u != "" {
		e.Endpoint = u
	}
	return e
}

// WithTimeout sets the overall request timeout. The response-header wait of
// the engine's own transport follows it.
func (e *Engine) WithTimeout(d time.Duration) *Engine {
	if d <= 0 {
		return e
	}
	e.httpc.Timeout = d
	if tr, ok := e.httpc.Transport.(*http.Transport); ok {
		tr.ResponseHeaderTimeout = d
	}
	return e
}

func (e *Engine) Name() string     { return "mistral" }
func (e *Engine) GetModel() string { return e.Model }

// Process отправляет один синхронный POST без ретраев.
func (e *Engine) Process(ctx context.Context, in ocr.Request) (ocr.Response, error) {
	if e.APIKey == "" {
		return ocr.Response{}, errors.New("MISTRAL_API_KEY is empty")
	}
	if in.Model == "" {
		in.Model = e.Model
	}
	if in.Document == nil {
		return ocr.Response{}, errors.New("mistral OCR: request has no document")
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return ocr.Response{}, fmt.Errorf("mistral OCR: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return ocr.Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return ocr.Response{}, fmt.Errorf("OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		x, _ := io.ReadAll(resp.Body)
		return ocr.Response{}, fmt.Errorf("OCR request failed (HTTP %d): %s", resp.StatusCode, strings.TrimSpace(string(x)))
	}

	var out ocr.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ocr.Response{}, fmt.Errorf("failed to parse OCR response: %w", err)
	}
	return out, nil
}
