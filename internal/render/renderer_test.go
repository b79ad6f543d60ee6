package render

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T, files map[string]string) *Renderer {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	r, err := New(root)
	require.NoError(t, err)
	return r
}

func TestRenderStringSubstitutes(t *testing.T) {
	r := newTestRenderer(t, nil)
	out, err := r.RenderString("Hello, {{ name }}!", map[string]interface{}{"name": "World"})
	require.NoError(t, err)
	require.Equal(t, "Hello, World!", out)
}

func TestRenderStringConditional(t *testing.T) {
	r := newTestRenderer(t, nil)
	tpl := "{% if show %}X{% endif %}Y"

	out, err := r.RenderString(tpl, map[string]interface{}{"show": false})
	require.NoError(t, err)
	require.Equal(t, "Y", out)

	out, err = r.RenderString(tpl, map[string]interface{}{"show": true})
	require.NoError(t, err)
	require.Equal(t, "XY", out)
}

func TestRenderStringDeterministic(t *testing.T) {
	r := newTestRenderer(t, nil)
	vars := map[string]interface{}{"a": "1", "b": []string{"x", "y"}}
	first, err := r.RenderString("{{ a }}-{{ b|join:\",\" }}", vars)
	require.NoError(t, err)
	second, err := r.RenderString("{{ a }}-{{ b|join:\",\" }}", vars)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, "1-x,y", first)
}

func TestRenderFromFile(t *testing.T) {
	r := newTestRenderer(t, map[string]string{
		"tasks/greet.j2": "Hi {{ who }}",
	})
	out, err := r.Render("tasks/greet.j2", map[string]interface{}{"who": "there"})
	require.NoError(t, err)
	require.Equal(t, "Hi there", out)
}

func TestRenderLoopOverMemories(t *testing.T) {
	r := newTestRenderer(t, map[string]string{
		"mem.j2": "{% for m in memories %}\n[{{ m.content }}]\n{% endfor %}\n",
	})
	out, err := r.Render("mem.j2", map[string]interface{}{
		"memories": []map[string]interface{}{{"content": "a"}, {"content": "b"}},
	})
	require.NoError(t, err)
	require.Contains(t, out, "[a]")
	require.Contains(t, out, "[b]")
}

func TestRenderTemplateNotFound(t *testing.T) {
	r := newTestRenderer(t, map[string]string{"a.j2": "x"})
	for _, name := range []string{"missing.j2", "../a.j2", ""} {
		_, err := r.Render(name, nil)
		var nf *TemplateNotFoundError
		require.True(t, errors.As(err, &nf), "name=%q err=%v", name, err)
	}
}

func TestRenderDirectoryIsNotFound(t *testing.T) {
	r := newTestRenderer(t, map[string]string{"sub/a.j2": "x"})
	_, err := r.Render("sub", nil)
	var nf *TemplateNotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestRenderSyntaxError(t *testing.T) {
	r := newTestRenderer(t, map[string]string{"broken.j2": "{% if %}oops"})
	_, err := r.Render("broken.j2", nil)
	var se *TemplateSyntaxError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "broken.j2", se.Name)

	_, err = r.RenderString("{% for %}", nil)
	require.ErrorAs(t, err, &se)
}

func TestRenderCachesUntilInvalidated(t *testing.T) {
	r := newTestRenderer(t, map[string]string{"v.j2": "v1"})
	out, err := r.Render("v.j2", nil)
	require.NoError(t, err)
	require.Equal(t, "v1", out)

	path := filepath.Join(r.Root(), "v.j2")
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	out, err = r.Render("v.j2", nil)
	require.NoError(t, err)
	require.Equal(t, "v1", out)

	r.onEvent(nil, fsnotify.Event{Name: path, Op: fsnotify.Write})
	out, err = r.Render("v.j2", nil)
	require.NoError(t, err)
	require.Equal(t, "v2", out)
}

func TestRenderInvalidatesIncludingParent(t *testing.T) {
	r := newTestRenderer(t, map[string]string{
		"parent.j2":        `[{% include "partials/child.j2" %}]`,
		"partials/child.j2": "old",
	})
	out, err := r.Render("parent.j2", nil)
	require.NoError(t, err)
	require.Equal(t, "[old]", out)

	child := filepath.Join(r.Root(), "partials", "child.j2")
	require.NoError(t, os.WriteFile(child, []byte("new"), 0o644))
	r.onEvent(nil, fsnotify.Event{Name: child, Op: fsnotify.Write})

	out, err = r.Render("parent.j2", nil)
	require.NoError(t, err)
	require.Equal(t, "[new]", out)
}

func TestNewRejectsMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
