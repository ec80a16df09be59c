package ocr

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		path string
		want Kind
	}{
		{"scan.pdf", KindPDF},
		{"Scan.PDF", KindPDF},
		{"photo.JPG", KindImage},
		{"/tmp/x.webp", KindImage},
		{"report.docx", KindConvertible},
		{"book.epub", KindConvertible},
		{"data.csv", KindConvertible},
	}
	for _, c := range cases {
		got, err := Classify(c.path)
		if err != nil || got != c.want {
			t.Errorf("Classify(%q) = %v, %v; want %v", c.path, got, err, c.want)
		}
	}

	for _, p := range []string{"archive.zip", "noext", "movie.mp4"} {
		if _, err := Classify(p); !errors.Is(err, ErrUnsupported) {
			t.Errorf("Classify(%q) err = %v; want ErrUnsupported", p, err)
		}
	}
}
