package ocr

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ImageMode: как материализовать встроенные картинки из ответа OCR.
type ImageMode int

const (
	ModeDiscard  ImageMode = iota // "none": картинки не запрашиваются и не пишутся
	ModeSeparate                  // "separate": файлы рядом с markdown, в <stem>_images/
	ModeInline                    // "inline": data:URI прямо в markdown
	ModeArchive                   // "zip": markdown + images/ в одном архиве
)

var modeNames = map[ImageMode]string{
	ModeDiscard:  "none",
	ModeSeparate: "separate",
	ModeInline:   "inline",
	ModeArchive:  "zip",
}

func (m ImageMode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("ImageMode(%d)", int(m))
}

// ParseImageMode принимает литералы CLI: none | separate | inline | zip.
func ParseImageMode(s string) (ImageMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "discard":
		return ModeDiscard, nil
	case "separate":
		return ModeSeparate, nil
	case "inline":
		return ModeInline, nil
	case "zip", "archive":
		return ModeArchive, nil
	}
	return ModeDiscard, fmt.Errorf("unknown image mode %q (use none, separate, inline or zip)", s)
}

// Request: тело POST /v1/ocr.
type Request struct {
	Model    string   `json:"model"`
	Document Document `json:"document"`
	// nil => поле не отправляется вовсе (не false)
	IncludeImageBase64 *bool `json:"include_image_base64,omitempty"`
}

// Document: tagged union: DocumentURL | ImageURL.
type Document interface {
	Type() string
	// DataURL возвращает data:URI с содержимым документа.
	DataURL() string
}

// DocumentURL: PDF, переданный как data:application/pdf;base64,...
type DocumentURL struct {
	URL  string
	Name string
}

func (d DocumentURL) Type() string    { return "document_url" }
func (d DocumentURL) DataURL() string { return d.URL }

func (d DocumentURL) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        string `json:"type"`
		DocumentURL string `json:"document_url"`
		Name        string `json:"document_name"`
	}{d.Type(), d.URL, d.Name})
}

// ImageURL: растровая картинка, переданная как data:<mime>;base64,...
type ImageURL struct {
	URL string
}

func (i ImageURL) Type() string    { return "image_url" }
func (i ImageURL) DataURL() string { return i.URL }

func (i ImageURL) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		ImageURL string `json:"image_url"`
	}{i.Type(), i.URL})
}

// Response: ответ OCR. Порядок страниц значим.
type Response struct {
	Pages     []Page     `json:"pages"`
	Model     string     `json:"model,omitempty"`
	UsageInfo *UsageInfo `json:"usage_info,omitempty"`
}

type UsageInfo struct {
	PagesProcessed int  `json:"pages_processed"`
	DocSizeBytes   *int `json:"doc_size_bytes,omitempty"`
}

type Page struct {
	Index    int     `json:"index"`
	Markdown string  `json:"markdown"`
	Images   []Image `json:"images,omitempty"`
}

// Image: встроенная картинка. ID одновременно является целью ссылки в markdown: ](id).
type Image struct {
	ID          *string `json:"id,omitempty"`
	ImageBase64 *string `json:"image_base64,omitempty"`
}

// Usable возвращает id и payload, если оба заданы.
func (im Image) Usable() (id, payload string, ok bool) {
	if im.ID == nil || im.ImageBase64 == nil {
		return "", "", false
	}
	return *im.ID, *im.ImageBase64, true
}
