package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"mistral-ocr/api/internal/config"
	"mistral-ocr/api/internal/ocr"
	"mistral-ocr/api/internal/pipeline"
)

type options struct {
	input  string
	output string
	mode   ocr.ImageMode
	model  string
	engine string
}

var errUsage = errors.New("usage")

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) && !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	// ключ проверяем до любой работы
	cfg, err := config.Load()
	if err == nil {
		err = cfg.RequireEngine(opts.engine)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := log.New(os.Stderr, "", 0)
	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Printf("Error: %v", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *log.Logger) error {
	eng, err := cfg.Engines(opts.engine, opts.model).GetEngine(opts.engine)
	if err != nil {
		return err
	}
	_, err = pipeline.Run(ctx, eng, pipeline.Options{
		Input:  opts.input,
		Output: opts.output,
		Mode:   opts.mode,
	}, logger)
	return err
}

// parseFlags допускает флаги и до, и после позиционного аргумента.
func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("mistral-ocr", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Run Mistral OCR on a PDF, image, or document file.\n\n")
		fmt.Fprintf(fs.Output(), "Usage: mistral-ocr [flags] <input>\n\n")
		fmt.Fprintf(fs.Output(), "  <input>  PDF, image, or document: docx, odt, pptx, xlsx, etc.\n\n")
		fs.PrintDefaults()
		fmt.Fprintf(fs.Output(), "\nEnvironment: MISTRAL_API_KEY (required for the mistral engine), GEMINI_API_KEY (gemini engine).\n")
	}
	images := fs.String("images", "none", "How to handle images: none, separate (save to <stem>_images/ dir), inline (embed base64 in markdown), zip (bundle md + images into a .zip)")
	output := fs.String("output", pipeline.DefaultOutput, "Where to write the output (.md file, or .zip when --images zip)")
	model := fs.String("model", "", "OCR model name override (default from MISTRAL_OCR_MODEL / GEMINI_MODEL)")
	engine := fs.String("engine", "mistral", "OCR engine: mistral or gemini")

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return options{}, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
	if len(positional) != 1 {
		fs.Usage()
		if len(positional) == 0 {
			fmt.Fprintln(stderr, "\nmissing input path")
		} else {
			fmt.Fprintf(stderr, "\nexpected one input path, got %d\n", len(positional))
		}
		return options{}, errUsage
	}

	mode, err := ocr.ParseImageMode(*images)
	if err != nil {
		return options{}, err
	}
	return options{
		input:  positional[0],
		output: *output,
		mode:   mode,
		model:  *model,
		engine: *engine,
	}, nil
}
