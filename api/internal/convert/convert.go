// Package convert turns office documents into PDF with a local LibreOffice.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

var ErrNotInstalled = errors.New("LibreOffice not found. Install it from https://www.libreoffice.org/\n" +
	"LibreOffice is only needed for office document conversion (docx, odt, pptx, etc.).\n" +
	"PDF and image files work without it")

var binaryNames = []string{"libreoffice", "soffice"}

// wellKnownPaths: стандартные места установки, если бинарника нет в PATH.
func wellKnownPaths(goos string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/Applications/LibreOffice.app/Contents/MacOS/soffice",
			"/opt/homebrew/bin/soffice",
		}
	case "windows":
		return []string{
			`C:\Program Files\LibreOffice\program\soffice.exe`,
			`C:\Program Files (x86)\LibreOffice\program\soffice.exe`,
		}
	default:
		return []string{"/usr/bin/libreoffice", "/usr/bin/soffice"}
	}
}

type Converter struct {
	Binary string
}

// Find ищет LibreOffice в PATH, затем в стандартных путях установки.
func Find() (*Converter, error) {
	for _, name := range binaryNames {
		if p, err := exec.LookPath(name); err == nil {
			return &Converter{Binary: p}, nil
		}
	}
	for _, p := range wellKnownPaths(runtime.GOOS) {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return &Converter{Binary: p}, nil
		}
	}
	return nil, ErrNotInstalled
}

// ToPDF конвертирует input в PDF во временном каталоге.
// cleanup удаляет каталог целиком; его можно вызывать всегда, даже при ошибке.
func (c *Converter) ToPDF(ctx context.Context, input string) (pdfPath string, cleanup func(), err error) {
	cleanup = func() {}
	if c == nil || c.Binary == "" {
		return "", cleanup, ErrNotInstalled
	}

	outDir, err := os.MkdirTemp("", "mistral-ocr-")
	if err != nil {
		return "", cleanup, fmt.Errorf("create scratch directory: %w", err)
	}
	cleanup = func() { _ = os.RemoveAll(outDir) }

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Binary, "--headless", "--convert-to", "pdf", "--outdir", outDir, input)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", cleanup, fmt.Errorf("libreoffice conversion failed: %s", strings.TrimSpace(stderr.String()))
		}
		return "", cleanup, fmt.Errorf("failed to run LibreOffice at %s: %w (%w)", c.Binary, err, ErrNotInstalled)
	}

	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	pdfPath = filepath.Join(outDir, stem+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return "", cleanup, fmt.Errorf("libreoffice did not produce expected PDF at %s", pdfPath)
	}
	return pdfPath, cleanup, nil
}
