// Package render turns an OCR response into a markdown artifact.
package render

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"mistral-ocr/api/internal/markdown"
	"mistral-ocr/api/internal/ocr"
	"mistral-ocr/api/internal/util"
)

// archiveImagesDir: подкаталог картинок внутри zip.
const archiveImagesDir = "images"

// Artifact describes what was written.
type Artifact struct {
	Path      string // markdown file, or the zip in archive mode
	ImagesDir string // set only when separate mode wrote at least one image
}

type stagedImage struct {
	name string
	data []byte
}

type renderer struct {
	mode      ocr.ImageMode
	stem      string
	imagesDir string // <dir>/<stem>_images, separate mode only
	created   bool
	staged    []stagedImage
	logger    *log.Logger
}

// Write renders resp according to mode and writes the result next to outputPath.
// In archive mode the artifact is outputPath with its extension replaced by .zip.
func Write(outputPath string, resp ocr.Response, mode ocr.ImageMode, logger *log.Logger) (Artifact, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create output directory %s: %w", dir, err)
	}

	r := &renderer{
		mode:   mode,
		stem:   Stem(outputPath),
		logger: logger,
	}
	if mode == ocr.ModeSeparate {
		r.imagesDir = filepath.Join(dir, r.stem+"_images")
	}

	text, err := r.markdown(resp.Pages)
	if err != nil {
		return Artifact{}, err
	}

	if mode == ocr.ModeArchive {
		zipPath := ZipPath(outputPath)
		if err := writeArchive(zipPath, r.stem+".md", text, r.staged); err != nil {
			return Artifact{}, err
		}
		return Artifact{Path: zipPath}, nil
	}

	if err := os.WriteFile(outputPath, []byte(text), 0o644); err != nil {
		return Artifact{}, fmt.Errorf("failed to write markdown output %s: %w", outputPath, err)
	}
	a := Artifact{Path: outputPath}
	if r.created {
		a.ImagesDir = r.imagesDir
	}
	return a, nil
}

// Markdown renders resp in memory. Only inline and discard modes are meaningful here:
// the other modes need a filesystem location for images.
func Markdown(resp ocr.Response, mode ocr.ImageMode) (string, error) {
	if mode == ocr.ModeSeparate || mode == ocr.ModeArchive {
		return "", fmt.Errorf("mode %s needs an output path", mode)
	}
	r := &renderer{mode: mode, logger: log.New(io.Discard, "", 0)}
	return r.markdown(resp.Pages)
}

func (r *renderer) markdown(pages []ocr.Page) (string, error) {
	var out strings.Builder
	multiPage := len(pages) > 1

	for _, page := range pages {
		md := strings.TrimRightFunc(page.Markdown, unicode.IsSpace)

		if r.mode != ocr.ModeDiscard {
			var missing []string
			for _, img := range page.Images {
				id, payload, ok := img.Usable()
				if !ok {
					if img.ID != nil {
						missing = append(missing, *img.ID)
					}
					continue
				}
				target, err := r.target(id, payload)
				if err != nil {
					return "", err
				}
				md = strings.ReplaceAll(md, "]("+id+")", "]("+target+")")
			}
			for _, ref := range markdown.Unresolved(md, missing) {
				r.logger.Printf("page %d: image %s has no payload, reference left as-is", page.Index+1, ref)
			}
		}

		if multiPage {
			fmt.Fprintf(&out, "# Page %d\n\n", page.Index+1)
		}
		out.WriteString(md)
		out.WriteString("\n\n")
	}
	return out.String(), nil
}

// target materialises one image and returns the new link destination.
func (r *renderer) target(id, payload string) (string, error) {
	switch r.mode {
	case ocr.ModeSeparate:
		if err := checkID(id); err != nil {
			return "", err
		}
		data, err := decodeImage(id, payload)
		if err != nil {
			return "", err
		}
		if !r.created {
			if err := os.MkdirAll(r.imagesDir, 0o755); err != nil {
				return "", fmt.Errorf("create images directory %s: %w", r.imagesDir, err)
			}
			r.created = true
		}
		p := filepath.Join(r.imagesDir, id)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write image %s: %w", p, err)
		}
		return filepath.Base(r.imagesDir) + "/" + id, nil

	case ocr.ModeInline:
		if util.IsDataURL(payload) {
			return payload, nil
		}
		mime, ok := util.MimeForExt(ocr.Ext(id))
		if !ok {
			mime = "image/jpeg"
		}
		return util.MakeDataURL(mime, payload), nil

	case ocr.ModeArchive:
		if err := checkID(id); err != nil {
			return "", err
		}
		data, err := decodeImage(id, payload)
		if err != nil {
			return "", err
		}
		r.staged = append(r.staged, stagedImage{name: id, data: data})
		return archiveImagesDir + "/" + id, nil
	}
	return "", fmt.Errorf("unexpected image mode %s", r.mode)
}

func decodeImage(id, payload string) ([]byte, error) {
	data, err := util.DecodeBase64Strict(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 for image %s: %w", id, err)
	}
	return data, nil
}

// checkID отсекает id, которые вывели бы файл за пределы каталога картинок.
func checkID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("unsafe image id %q", id)
	}
	return nil
}

func writeArchive(zipPath, mdName, text string, images []stagedImage) (err error) {
	f, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("failed to create zip file %s: %w", zipPath, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", zipPath, cerr)
		}
	}()

	zw := zip.NewWriter(f)
	add := func(name string, data []byte) error {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("zip %s: add %s: %w", zipPath, name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("zip %s: write %s: %w", zipPath, name, err)
		}
		return nil
	}

	if err := add(mdName, []byte(text)); err != nil {
		return err
	}
	for _, img := range images {
		if err := add(path.Join(archiveImagesDir, img.name), img.data); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize zip %s: %w", zipPath, err)
	}
	return nil
}

// Stem returns the output file name without extension ("output" if empty).
func Stem(outputPath string) string {
	base := filepath.Base(outputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return "output"
	}
	return stem
}

// ZipPath replaces the extension of outputPath with .zip.
func ZipPath(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".zip"
}
