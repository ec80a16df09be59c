// Package markdown inspects OCR markdown with goldmark.
package markdown

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New()

// ImageDestinations returns the destinations of all image nodes in src,
// in document order.
func ImageDestinations(src string) []string {
	source := []byte(src)
	doc := md.Parser().Parse(text.NewReader(source))

	var out []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := n.(*ast.Image); ok {
			out = append(out, string(img.Destination))
		}
		return ast.WalkContinue, nil
	})
	return out
}

// Unresolved returns the image destinations in src that are equal to one of ids,
// i.e. references still pointing at a bare OCR image id.
func Unresolved(src string, ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	var out []string
	for _, dst := range ImageDestinations(src) {
		if _, ok := set[dst]; ok {
			out = append(out, dst)
		}
	}
	return out
}
