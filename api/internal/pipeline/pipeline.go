// Package pipeline runs one OCR job: classify, convert, encode, call the engine, render.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log"

	"mistral-ocr/api/internal/convert"
	"mistral-ocr/api/internal/ocr"
	"mistral-ocr/api/internal/render"
)

const DefaultOutput = "ocr_output.md"

// PDFConverter converts office documents; *convert.Converter implements it.
type PDFConverter interface {
	ToPDF(ctx context.Context, input string) (pdfPath string, cleanup func(), err error)
}

type Options struct {
	Input  string
	Output string
	Mode   ocr.ImageMode
	// Converter is used for office documents. Nil means convert.Find on demand.
	Converter PDFConverter
}

// Run executes a whole job. Unsupported inputs fail before conversion or any network call.
func Run(ctx context.Context, eng ocr.Engine, opts Options, logger *log.Logger) (render.Artifact, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if eng == nil {
		return render.Artifact{}, errors.New("no OCR engine configured")
	}
	if opts.Output == "" {
		opts.Output = DefaultOutput
	}

	kind, err := ocr.Classify(opts.Input)
	if err != nil {
		return render.Artifact{}, err
	}

	effective := opts.Input
	if kind == ocr.KindConvertible {
		logger.Printf("Converting .%s to PDF via LibreOffice...", ocr.Ext(opts.Input))
		conv := opts.Converter
		if conv == nil {
			c, err := convert.Find()
			if err != nil {
				return render.Artifact{}, err
			}
			conv = c
		}
		pdf, cleanup, err := conv.ToPDF(ctx, opts.Input)
		defer cleanup()
		if err != nil {
			return render.Artifact{}, err
		}
		effective = pdf
	}

	logger.Printf("Encoding file...")
	req, err := ocr.BuildRequest(opts.Input, effective, opts.Mode, eng.GetModel())
	if err != nil {
		return render.Artifact{}, err
	}

	logger.Printf("Sending OCR request to %s (%s)...", eng.Name(), eng.GetModel())
	resp, err := eng.Process(ctx, req)
	if err != nil {
		return render.Artifact{}, err
	}

	logger.Printf("Processing response...")
	if resp.UsageInfo != nil {
		logger.Printf("Pages processed: %d", resp.UsageInfo.PagesProcessed)
	}
	art, err := render.Write(opts.Output, resp, opts.Mode, logger)
	if err != nil {
		return render.Artifact{}, err
	}
	logger.Printf("Done! Output written to %s", art.Path)
	return art, nil
}
