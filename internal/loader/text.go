package loader

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type TextLoader struct{}

func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

func (l *TextLoader) Extensions() []string {
	return []string{"txt", "text"}
}

func (l *TextLoader) Load(ctx context.Context, path string) (*RawDocument, error) {
	info, err := validatePath(path, l.Extensions())
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	content := string(data)
	return newDocument(path, info, "txt", content, detectHeadings(content)), nil
}

var (
	numberedHeading = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+(\p{Lu}.*)$`)
	underline       = regexp.MustCompile(`^(={3,}|-{3,})\s*$`)
)

const maxHeadingRunes = 80

// detectHeadings finds headings in plain text: numbered lines ("2.1
// Scope"), short ALL-CAPS lines and lines underlined with === or ---.
func detectHeadings(content string) []Section {
	lines := strings.Split(content, "\n")
	var sections []Section
	position := 0
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		offset := position
		position += utf8.RuneCountInString(raw) + 1
		if line == "" || utf8.RuneCountInString(line) > maxHeadingRunes {
			continue
		}
		if i+1 < len(lines) {
			if m := underline.FindStringSubmatch(strings.TrimSpace(lines[i+1])); m != nil && !underline.MatchString(line) {
				level := 1
				if m[1][0] == '-' {
					level = 2
				}
				sections = append(sections, Section{Title: line, Position: offset, Level: level})
				continue
			}
		}
		if m := numberedHeading.FindStringSubmatch(line); m != nil {
			sections = append(sections, Section{Title: line, Position: offset, Level: strings.Count(m[1], ".") + 1})
			continue
		}
		if isAllCaps(line) {
			sections = append(sections, Section{Title: line, Position: offset, Level: 1})
		}
	}
	return sections
}

func isAllCaps(line string) bool {
	letters := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 3
}
