package render

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mistral-ocr/api/internal/ocr"
)

var (
	pngBytes  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 1, 2, 3}
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 9, 8, 7}
)

func str(s string) *string { return &s }

func twoPageResponse() ocr.Response {
	return ocr.Response{Pages: []ocr.Page{
		{
			Index:    0,
			Markdown: "Intro\n\n![img-0.png](img-0.png)\n\n   \n",
			Images: []ocr.Image{{
				ID:          str("img-0.png"),
				ImageBase64: str(base64.StdEncoding.EncodeToString(pngBytes)),
			}},
		},
		{
			Index:    1,
			Markdown: "![img-1.jpeg](img-1.jpeg)\nOutro",
			Images: []ocr.Image{{
				ID:          str("img-1.jpeg"),
				ImageBase64: str("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegBytes)),
			}},
		},
	}}
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return string(b)
}

func TestAnchorsReplacedInAllModes(t *testing.T) {
	for _, mode := range []ocr.ImageMode{ocr.ModeSeparate, ocr.ModeInline, ocr.ModeArchive} {
		t.Run(mode.String(), func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "doc.md")
			a, err := Write(out, twoPageResponse(), mode, nil)
			if err != nil {
				t.Fatalf("write: %v", err)
			}
			var text string
			if mode == ocr.ModeArchive {
				text = string(zipEntries(t, a.Path)["doc.md"])
			} else {
				text = readFile(t, a.Path)
			}
			for _, anchor := range []string{"](img-0.png)", "](img-1.jpeg)"} {
				if strings.Contains(text, anchor) {
					t.Fatalf("anchor %s survived in %s mode:\n%s", anchor, mode, text)
				}
			}
		})
	}
}

func TestDiscardLeavesAnchors(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "doc.md")
	a, err := Write(out, twoPageResponse(), ocr.ModeDiscard, nil)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if a.Path != out || a.ImagesDir != "" {
		t.Fatalf("unexpected artifact: %+v", a)
	}
	text := readFile(t, out)
	if !strings.Contains(text, "](img-0.png)") || !strings.Contains(text, "](img-1.jpeg)") {
		t.Fatalf("discard mode must not touch anchors:\n%s", text)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("discard mode must write only the markdown, got %d entries", len(entries))
	}
}

func TestPageHeadings(t *testing.T) {
	text, err := Markdown(twoPageResponse(), ocr.ModeDiscard)
	if err != nil {
		t.Fatal(err)
	}
	want := "# Page 1\n\nIntro\n\n![img-0.png](img-0.png)\n\n# Page 2\n\n![img-1.jpeg](img-1.jpeg)\nOutro\n\n"
	if text != want {
		t.Fatalf("markdown =\n%q\nwant\n%q", text, want)
	}
	if i1, i2 := strings.Index(text, "# Page 1"), strings.Index(text, "# Page 2"); i1 < 0 || i2 < i1 {
		t.Fatalf("headings out of order")
	}

	single := ocr.Response{Pages: []ocr.Page{{Index: 0, Markdown: "only page  \n"}}}
	text, err = Markdown(single, ocr.ModeDiscard)
	if err != nil {
		t.Fatal(err)
	}
	if text != "only page\n\n" {
		t.Fatalf("single page = %q", text)
	}
}

func TestHeadingsFollowIndex(t *testing.T) {
	resp := ocr.Response{Pages: []ocr.Page{
		{Index: 4, Markdown: "e"},
		{Index: 5, Markdown: "f"},
	}}
	text, err := Markdown(resp, ocr.ModeInline)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(text, "# Page 5\n\ne\n\n# Page 6\n\nf") {
		t.Fatalf("unexpected headings: %q", text)
	}
}

func TestInline(t *testing.T) {
	bare := base64.StdEncoding.EncodeToString(pngBytes)
	prefixed := "data:image/webp;base64,UklGRg=="
	resp := ocr.Response{Pages: []ocr.Page{{
		Markdown: "![a](a.png) ![b](b.jpeg) ![c](c)",
		Images: []ocr.Image{
			{ID: str("a.png"), ImageBase64: str(bare)},
			{ID: str("b.jpeg"), ImageBase64: str(prefixed)},
			{ID: str("c"), ImageBase64: str(bare)},
		},
	}}}
	text, err := Markdown(resp, ocr.ModeInline)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "](data:image/png;base64,"+bare+")") {
		t.Fatalf("bare payload not wrapped with png mime: %s", text)
	}
	if !strings.Contains(text, "]("+prefixed+")") {
		t.Fatalf("data: payload must be reused verbatim: %s", text)
	}
	if strings.Contains(text, "data:image/jpeg;base64,data:") {
		t.Fatalf("double encoded: %s", text)
	}
	if !strings.Contains(text, "![c](data:image/jpeg;base64,"+bare+")") {
		t.Fatalf("id without extension must default to jpeg: %s", text)
	}
}

func TestSeparate(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "nested", "report.md")
	a, err := Write(out, twoPageResponse(), ocr.ModeSeparate, nil)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	wantDir := filepath.Join(dir, "nested", "report_images")
	if a.ImagesDir != wantDir {
		t.Fatalf("images dir = %q; want %q", a.ImagesDir, wantDir)
	}
	if got := readFile(t, filepath.Join(wantDir, "img-0.png")); got != string(pngBytes) {
		t.Fatalf("img-0 bytes mismatch")
	}
	if got := readFile(t, filepath.Join(wantDir, "img-1.jpeg")); got != string(jpegBytes) {
		t.Fatalf("img-1 bytes mismatch (data: header must be stripped)")
	}
	text := readFile(t, out)
	if !strings.Contains(text, "](report_images/img-0.png)") || !strings.Contains(text, "](report_images/img-1.jpeg)") {
		t.Fatalf("anchors not rewritten:\n%s", text)
	}
}

func TestSeparateNoImagesNoDir(t *testing.T) {
	dir := t.TempDir()
	resp := ocr.Response{Pages: []ocr.Page{{Markdown: "text only"}}}
	a, err := Write(filepath.Join(dir, "x.md"), resp, ocr.ModeSeparate, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.ImagesDir != "" {
		t.Fatalf("images dir reported without images: %q", a.ImagesDir)
	}
	if _, err := os.Stat(filepath.Join(dir, "x_images")); !os.IsNotExist(err) {
		t.Fatalf("images dir must be created lazily, stat err = %v", err)
	}
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "result.md")
	a, err := Write(out, twoPageResponse(), ocr.ModeArchive, nil)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if a.Path != filepath.Join(dir, "result.zip") {
		t.Fatalf("zip path = %q", a.Path)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("archive mode must not write %s", out)
	}

	entries := zipEntries(t, a.Path)
	if len(entries) != 3 {
		t.Fatalf("want 3 entries, got %d: %v", len(entries), keys(entries))
	}
	mdCount := 0
	for name := range entries {
		if strings.HasSuffix(name, ".md") {
			mdCount++
		}
	}
	if mdCount != 1 {
		t.Fatalf("want exactly one .md entry, got %d", mdCount)
	}
	if !bytes.Equal(entries["images/img-0.png"], pngBytes) || !bytes.Equal(entries["images/img-1.jpeg"], jpegBytes) {
		t.Fatal("image bytes do not round-trip")
	}
	text := string(entries["result.md"])
	if !strings.Contains(text, "](images/img-0.png)") || !strings.Contains(text, "](images/img-1.jpeg)") {
		t.Fatalf("anchors not rewritten:\n%s", text)
	}
}

func TestArchiveEntryOrderAndMethod(t *testing.T) {
	out := filepath.Join(t.TempDir(), "o.md")
	a, err := Write(out, twoPageResponse(), ocr.ModeArchive, nil)
	if err != nil {
		t.Fatal(err)
	}
	zr, err := zip.OpenReader(a.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		if f.Method != zip.Deflate {
			t.Errorf("%s: method %d; want deflate", f.Name, f.Method)
		}
	}
	want := "o.md,images/img-0.png,images/img-1.jpeg"
	if strings.Join(names, ",") != want {
		t.Fatalf("entries = %v; want %s", names, want)
	}
}

func TestMissingFieldsSkipped(t *testing.T) {
	resp := ocr.Response{Pages: []ocr.Page{{
		Markdown: "![a](a.png) ![b](b.png)",
		Images: []ocr.Image{
			{ID: str("a.png")},
			{ImageBase64: str("AQID")},
		},
	}}}
	var logs bytes.Buffer
	logger := log.New(&logs, "", 0)
	for _, mode := range []ocr.ImageMode{ocr.ModeSeparate, ocr.ModeInline, ocr.ModeArchive} {
		dir := t.TempDir()
		a, err := Write(filepath.Join(dir, "m.md"), resp, mode, logger)
		if err != nil {
			t.Fatalf("%s: %v", mode, err)
		}
		var text string
		if mode == ocr.ModeArchive {
			entries := zipEntries(t, a.Path)
			if len(entries) != 1 {
				t.Fatalf("no images must be staged, got %v", keys(entries))
			}
			text = string(entries["m.md"])
		} else {
			text = readFile(t, a.Path)
		}
		if !strings.Contains(text, "](a.png)") || !strings.Contains(text, "](b.png)") {
			t.Fatalf("%s: anchors of incomplete images must stay:\n%s", mode, text)
		}
		if _, err := os.Stat(filepath.Join(dir, "m_images")); !os.IsNotExist(err) {
			t.Fatalf("%s: no images dir expected", mode)
		}
	}
	if !strings.Contains(logs.String(), "image a.png has no payload") {
		t.Fatalf("missing payload should be logged, got %q", logs.String())
	}
}

func TestBadBase64(t *testing.T) {
	for _, payload := range []string{"@@@not-base64@@@", "-_-_", "data:image/png;base64,-_-_"} {
		resp := ocr.Response{Pages: []ocr.Page{{
			Markdown: "![x](broken.png)",
			Images:   []ocr.Image{{ID: str("broken.png"), ImageBase64: str(payload)}},
		}}}
		for _, mode := range []ocr.ImageMode{ocr.ModeSeparate, ocr.ModeArchive} {
			dir := t.TempDir()
			_, err := Write(filepath.Join(dir, "o.md"), resp, mode, nil)
			if err == nil || !strings.Contains(err.Error(), "failed to decode base64 for image broken.png") {
				t.Fatalf("%s %q: want decode error naming the image, got %v", mode, payload, err)
			}
			if _, err := os.Stat(filepath.Join(dir, "o_images", "broken.png")); !os.IsNotExist(err) {
				t.Fatalf("%s %q: image must not be written", mode, payload)
			}
		}
	}
}

func TestUnsafeID(t *testing.T) {
	resp := ocr.Response{Pages: []ocr.Page{{
		Markdown: "![x](../evil.png)",
		Images:   []ocr.Image{{ID: str("../evil.png"), ImageBase64: str("AQID")}},
	}}}
	dir := t.TempDir()
	if _, err := Write(filepath.Join(dir, "o.md"), resp, ocr.ModeSeparate, nil); err == nil {
		t.Fatal("expected unsafe id error")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "evil.png")); !os.IsNotExist(err) {
		t.Fatal("file escaped the images directory")
	}
}

func TestUnwritableOutput(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(blocker, "sub", "o.md")
	_, err := Write(out, ocr.Response{Pages: []ocr.Page{{Markdown: "x"}}}, ocr.ModeDiscard, nil)
	if err == nil || !strings.Contains(err.Error(), blocker) {
		t.Fatalf("want error naming the path, got %v", err)
	}
}

func TestStemAndZipPath(t *testing.T) {
	if got := Stem("/a/b/ocr_output.md"); got != "ocr_output" {
		t.Fatalf("Stem = %q", got)
	}
	if got := ZipPath("/a/b/ocr_output.md"); got != "/a/b/ocr_output.zip" {
		t.Fatalf("ZipPath = %q", got)
	}
	if got := ZipPath("out"); got != "out.zip" {
		t.Fatalf("ZipPath = %q", got)
	}
}

func zipEntries(t *testing.T, p string) map[string][]byte {
	t.Helper()
	zr, err := zip.OpenReader(p)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer zr.Close()
	out := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		out[f.Name] = b
	}
	return out
}

func keys(m map[string][]byte) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}
