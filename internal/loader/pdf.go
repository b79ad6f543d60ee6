package loader

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH; install poppler (brew install poppler / apt install poppler-utils)")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPDFToolNotFound
	}
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

type PDFLoader struct {
	runner CommandRunner
}

func NewPDFLoader() *PDFLoader {
	return &PDFLoader{runner: execRunner{}}
}

func NewPDFLoaderWithRunner(runner CommandRunner) *PDFLoader {
	return &PDFLoader{runner: runner}
}

func (l *PDFLoader) Extensions() []string {
	return []string{"pdf"}
}

func (l *PDFLoader) Load(ctx context.Context, path string) (*RawDocument, error) {
	info, err := validatePath(path, l.Extensions())
	if err != nil {
		return nil, err
	}
	out, err := l.runner.Run(ctx, "pdftotext", "-layout", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed for %s: %w", path, err)
	}
	pages := strings.Split(string(out), "\f")
	// pdftotext terminates every page with a form feed
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	trimmed := make([]string, 0, len(pages))
	for _, p := range pages {
		trimmed = append(trimmed, strings.TrimRight(p, " \t\r\n"))
	}
	content := strings.TrimSpace(strings.Join(trimmed, "\n\n"))
	doc := newDocument(path, info, "pdf", content, detectHeadings(content))
	count := len(pages)
	doc.PageCount = &count
	return doc, nil
}
