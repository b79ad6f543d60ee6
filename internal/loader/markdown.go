package loader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type MarkdownLoader struct {
	md goldmark.Markdown
}

func NewMarkdownLoader() *MarkdownLoader {
	return &MarkdownLoader{md: goldmark.New()}
}

func (l *MarkdownLoader) Extensions() []string {
	return []string{"md", "markdown"}
}

func (l *MarkdownLoader) Load(ctx context.Context, path string) (*RawDocument, error) {
	info, err := validatePath(path, l.Extensions())
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return newDocument(path, info, "md", string(data), l.headings(data)), nil
}

// headings walks the parsed tree so that "#" lines inside code blocks are
// not mistaken for headings.
func (l *MarkdownLoader) headings(source []byte) []Section {
	doc := l.md.Parser().Parse(text.NewReader(source))
	var sections []Section
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		lines := h.Lines()
		if lines.Len() == 0 {
			return ast.WalkSkipChildren, nil
		}
		var title bytes.Buffer
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			if i > 0 {
				title.WriteByte(' ')
			}
			title.Write(bytes.TrimSpace(seg.Value(source)))
		}
		start := lines.At(0).Start
		lineStart := bytes.LastIndexByte(source[:start], '\n') + 1
		sections = append(sections, Section{
			Title:    strings.TrimSpace(title.String()),
			Position: utf8.RuneCount(source[:lineStart]),
			Level:    h.Level,
		})
		return ast.WalkSkipChildren, nil
	})
	return sections
}
