package render

import "fmt"

type TemplateNotFoundError struct {
	Name string
	Root string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template %q not found under %s", e.Name, e.Root)
}

type TemplateSyntaxError struct {
	Name string
	Err  error
}

func (e *TemplateSyntaxError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("template syntax error: %v", e.Err)
	}
	return fmt.Sprintf("template %q syntax error: %v", e.Name, e.Err)
}

func (e *TemplateSyntaxError) Unwrap() error {
	return e.Err
}
