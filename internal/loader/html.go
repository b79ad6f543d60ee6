package loader

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var droppedElements = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Nav:    true,
	atom.Footer: true,
	atom.Header: true,
}

var headingLevels = map[atom.Atom]int{
	atom.H1: 1,
	atom.H2: 2,
	atom.H3: 3,
	atom.H4: 4,
	atom.H5: 5,
	atom.H6: 6,
}

type HTMLLoader struct{}

func NewHTMLLoader() *HTMLLoader {
	return &HTMLLoader{}
}

func (l *HTMLLoader) Extensions() []string {
	return []string{"html", "htm"}
}

func (l *HTMLLoader) Load(ctx context.Context, path string) (*RawDocument, error) {
	info, err := validatePath(path, l.Extensions())
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	root, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse html %s: %w", path, err)
	}
	w := &htmlWalker{}
	w.walk(root)
	content := strings.Join(w.lines, "\n")
	sections := w.sections
	if len(sections) == 0 && w.title != "" {
		sections = []Section{{Title: w.title, Position: 0, Level: 1}}
	}
	return newDocument(path, info, "html", content, sections), nil
}

type htmlWalker struct {
	lines    []string
	runes    int
	sections []Section
	title    string
}

// offset is where the next line starts once lines are joined with "\n".
func (w *htmlWalker) offset() int {
	if len(w.lines) == 0 {
		return 0
	}
	return w.runes + len(w.lines)
}

func (w *htmlWalker) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		if droppedElements[n.DataAtom] {
			return
		}
		if n.DataAtom == atom.Title {
			w.title = collapse(textOf(n))
		}
		if level, ok := headingLevels[n.DataAtom]; ok {
			if title := collapse(textOf(n)); title != "" {
				w.sections = append(w.sections, Section{Title: title, Position: w.offset(), Level: level})
			}
		}
	}
	if n.Type == html.TextNode {
		if s := strings.TrimSpace(n.Data); s != "" {
			w.lines = append(w.lines, s)
			w.runes += utf8.RuneCountInString(s)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && droppedElements[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
