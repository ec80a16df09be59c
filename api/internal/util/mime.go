package util

import (
	"encoding/base64"
	"net/http"
	"strings"
)

const DefaultMIME = "application/octet-stream"

var mimeByExt = map[string]string{
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"tif":  "image/tiff",
	"webp": "image/webp",
}

// MimeForExt возвращает MIME по расширению (без точки, регистр не важен).
// Второе значение false, если расширение неизвестно; тогда MIME = DefaultMIME.
func MimeForExt(ext string) (string, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if m, ok := mimeByExt[ext]; ok {
		return m, true
	}
	return DefaultMIME, false
}

func MakeDataURL(mime, b64 string) string {
	return "data:" + mime + ";base64," + b64
}

// IsDataURL сообщает, начинается ли s с "data:".
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// splitDataURL отделяет MIME и payload у data:<mime>;base64,<payload>. Не data:URI отдаёт как есть.
func splitDataURL(s string) (payload, hintMIME string) {
	s = strings.TrimSpace(s)
	if !IsDataURL(s) {
		return s, ""
	}
	idx := strings.IndexByte(s, ',')
	if idx <= 0 {
		return s, ""
	}
	meta := s[len("data:"):idx] // "<mime>;base64"
	if semi := strings.IndexByte(meta, ';'); semi >= 0 {
		hintMIME = meta[:semi]
	} else {
		hintMIME = meta
	}
	return s[idx+1:], hintMIME
}

// DecodeBase64MaybeDataURL декодирует base64. Если это data:URI, вернёт MIME из префикса.
func DecodeBase64MaybeDataURL(s string) ([]byte, string, error) {
	s, hintMIME := splitDataURL(s)
	// Стандартная база64, затем URL-safe на случай вариаций
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, hintMIME, nil
	} else if b2, err2 := base64.URLEncoding.DecodeString(s); err2 == nil {
		return b2, hintMIME, nil
	} else {
		return nil, "", err
	}
}

// DecodeBase64Strict принимает только стандартный алфавит (с необязательным data:-префиксом).
func DecodeBase64Strict(s string) ([]byte, error) {
	s, _ = splitDataURL(s)
	return base64.StdEncoding.DecodeString(s)
}

// PickMIME берём явный MIME, затем из data:URI, иначе детектим по байтам.
func PickMIME(explicit, hint string, data []byte) string {
	if exp := strings.TrimSpace(explicit); exp != "" {
		return exp
	}
	if h := strings.TrimSpace(hint); h != "" {
		return h
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return DefaultMIME
}
