package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/ncruces/go-strftime"

	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/textutil"
)

const (
	DefaultDatetimeFormat = "%Y-%m-%d %H:%M"
	DefaultTruncateLength = 100
	DefaultTruncateSuffix = "..."
	DefaultBulletPrefix   = "- "
)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func init() {
	pongo2.SetAutoescape(false)
	registerFilter("datetime", filterDatetime)
	registerFilter("json", filterJSON)
	registerFilter("truncate", filterTruncate)
	registerFilter("bullet", filterBullet)
}

func registerFilter(name string, fn pongo2.FilterFunction) {
	if pongo2.FilterExists(name) {
		_ = pongo2.ReplaceFilter(name, fn)
		return
	}
	_ = pongo2.RegisterFilter(name, fn)
}

func filterDatetime(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	format := DefaultDatetimeFormat
	if !param.IsNil() && param.String() != "" {
		format = param.String()
	}
	return pongo2.AsValue(FormatDatetime(in.Interface(), format)), nil
}

func filterJSON(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	indent := 0
	if !param.IsNil() {
		indent = param.Integer()
	}
	return pongo2.AsValue(ToJSON(in.Interface(), indent)), nil
}

// filterTruncate takes a length, or "length,suffix" to replace the
// default suffix: {{ t|truncate:"40, [more]" }}.
func filterTruncate(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	length := DefaultTruncateLength
	suffix := DefaultTruncateSuffix
	switch {
	case param.IsNil():
	case param.IsString():
		raw, rest, hasSuffix := strings.Cut(param.String(), ",")
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, &pongo2.Error{OrigError: fmt.Errorf("truncate: invalid length %q", raw)}
		}
		length = n
		if hasSuffix {
			suffix = strings.TrimPrefix(rest, " ")
		}
	default:
		length = param.Integer()
	}
	return pongo2.AsValue(textutil.Truncate(in.String(), length, suffix)), nil
}

func filterBullet(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	prefix := DefaultBulletPrefix
	if !param.IsNil() {
		prefix = param.String()
	}
	if in.IsNil() {
		return pongo2.AsValue(""), nil
	}
	var items []string
	if in.IsString() || !in.CanSlice() {
		items = []string{in.String()}
	} else {
		for i := 0; i < in.Len(); i++ {
			items = append(items, in.Index(i).String())
		}
	}
	return pongo2.AsValue(Bullet(items, prefix)), nil
}

// FormatDatetime formats time values with a strftime pattern. Strings are
// parsed as ISO-8601 first and returned untouched when that fails.
func FormatDatetime(value interface{}, format string) interface{} {
	switch v := value.(type) {
	case time.Time:
		return strftime.Format(format, v)
	case *time.Time:
		if v == nil {
			return ""
		}
		return strftime.Format(format, *v)
	case string:
		t, ok := parseISO(v)
		if !ok {
			return v
		}
		return strftime.Format(format, t)
	default:
		return value
	}
}

func parseISO(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ToJSON serializes value keeping non-ASCII text as is. Values that cannot
// be encoded fall back to their %v form.
func ToJSON(value interface{}, indent int) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}
	if err := enc.Encode(value); err != nil {
		return fmt.Sprintf("%v", value)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func Bullet(items []string, prefix string) string {
	if len(items) == 0 {
		return ""
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, prefix+item)
	}
	return strings.Join(lines, "\n")
}
