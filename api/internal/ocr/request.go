package ocr

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"mistral-ocr/api/internal/util"
)

// BuildRequest читает effectivePath целиком и собирает запрос.
// Для PDF имя документа берётся из originalPath (а не из временного файла конвертации).
func BuildRequest(originalPath, effectivePath string, mode ImageMode, model string) (Request, error) {
	kind, err := Classify(effectivePath)
	if err != nil {
		return Request{}, err
	}
	if kind == KindConvertible {
		return Request{}, fmt.Errorf("%s must be converted to PDF first", filepath.Base(effectivePath))
	}

	data, err := os.ReadFile(effectivePath)
	if err != nil {
		return Request{}, fmt.Errorf("file not found: %s: %w", effectivePath, err)
	}
	b64 := base64.StdEncoding.EncodeToString(data)

	var doc Document
	if kind == KindPDF {
		doc = DocumentURL{
			URL:  util.MakeDataURL("application/pdf", b64),
			Name: filepath.Base(originalPath),
		}
	} else {
		mime, _ := util.MimeForExt(Ext(effectivePath))
		doc = ImageURL{URL: util.MakeDataURL(mime, b64)}
	}

	req := Request{Model: model, Document: doc}
	if mode != ModeDiscard {
		on := true
		req.IncludeImageBase64 = &on
	}
	return req, nil
}
