package loader

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	appErr "github.com/chnghia/atomic-inference-boilerplate/internal/pkg/errors"
)

type DOCXLoader struct{}

func NewDOCXLoader() *DOCXLoader {
	return &DOCXLoader{}
}

func (l *DOCXLoader) Extensions() []string {
	return []string{"docx"}
}

type docxDocument struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Props struct {
		Style struct {
			Val string `xml:"val,attr"`
		} `xml:"pStyle"`
	} `xml:"pPr"`
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []struct {
		Content string `xml:",chardata"`
	} `xml:"t"`
	Tabs []struct{} `xml:"tab"`
}

func (p docxParagraph) text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		for range r.Tabs {
			sb.WriteByte('\t')
		}
		for _, t := range r.Text {
			sb.WriteString(t.Content)
		}
	}
	return strings.TrimSpace(sb.String())
}

func (l *DOCXLoader) Load(ctx context.Context, path string) (*RawDocument, error) {
	info, err := validatePath(path, l.Extensions())
	if err != nil {
		return nil, err
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open docx %s: %v", appErr.ErrInvalid, path, err)
	}
	defer zr.Close()
	var body []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s in %s: %w", f.Name, path, err)
		}
		body, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s in %s: %w", f.Name, path, err)
		}
		break
	}
	if body == nil {
		return nil, fmt.Errorf("%w: %s has no word/document.xml", appErr.ErrInvalid, path)
	}
	var doc docxDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse docx %s: %v", appErr.ErrInvalid, path, err)
	}
	var paragraphs []string
	var sections []Section
	position := 0
	for _, p := range doc.Body.Paragraphs {
		text := p.text()
		if text == "" {
			continue
		}
		paragraphs = append(paragraphs, text)
		if level, ok := headingLevel(p.Props.Style.Val); ok {
			sections = append(sections, Section{Title: text, Position: position, Level: level})
		}
		position += utf8.RuneCountInString(text) + 2
	}
	return newDocument(path, info, "docx", strings.Join(paragraphs, "\n\n"), sections), nil
}

// headingLevel maps a paragraph style id such as "Heading2", "Heading 2"
// or "Title" to a heading level.
func headingLevel(style string) (int, bool) {
	style = strings.TrimSpace(style)
	if strings.EqualFold(style, "Title") {
		return 1, true
	}
	if len(style) < len("Heading") || !strings.EqualFold(style[:len("Heading")], "Heading") {
		return 0, false
	}
	rest := strings.TrimSpace(style[len("Heading"):])
	level, err := strconv.Atoi(rest)
	if err != nil || level < 1 {
		return 1, true
	}
	if level > 6 {
		level = 6
	}
	return level, true
}
