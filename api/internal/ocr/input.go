package ocr

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrUnsupported = errors.New("unsupported file type")

type Kind int

const (
	KindPDF Kind = iota
	KindImage
	KindConvertible
)

var ImageExtensions = []string{"jpg", "jpeg", "png", "gif", "bmp", "tiff", "tif", "webp"}

var ConvertibleExtensions = []string{
	"doc", "docx", "odt", "rtf", "txt", "html", "htm", "pptx", "ppt", "odp",
	"xlsx", "xls", "ods", "csv", "epub",
}

// Ext возвращает расширение без точки в нижнем регистре.
func Ext(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Classify решает, что делать с входным файлом. Ничего не читает с диска.
func Classify(path string) (Kind, error) {
	ext := Ext(path)
	switch {
	case ext == "pdf":
		return KindPDF, nil
	case contains(ImageExtensions, ext):
		return KindImage, nil
	case contains(ConvertibleExtensions, ext):
		return KindConvertible, nil
	}
	return 0, fmt.Errorf("%w: .%s (expected pdf, image, or document: docx, odt, pptx, xlsx, etc.)", ErrUnsupported, ext)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
