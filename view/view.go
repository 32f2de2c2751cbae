// Package view renders a handler's payload into an HTML fragment from
// a declarative entity list. Fragments are meant to be swapped into a
// page by htmx, so forms carry hx-* attributes rather than action.
package view

import (
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strings"
)

// View is an ordered list of entities rendered top to bottom against
// the same payload.
type View struct {
	Entities []Entity
}

// Entity is one renderable block of a view.
type Entity interface {
	render(b *strings.Builder, payload any)
}

// Render produces the HTML fragment for payload. All payload-derived
// text is escaped.
func (v *View) Render(payload any) string {
	var b strings.Builder
	for _, e := range v.Entities {
		e.render(&b, payload)
	}
	return b.String()
}

// Data renders the payload itself: an object becomes a definition
// list, an array becomes one definition list per element, scalars
// render as a paragraph.
type Data struct{}

func (Data) render(b *strings.Builder, payload any) {
	switch x := payload.(type) {
	case nil:
	case map[string]any:
		renderObject(b, x)
	case []any:
		for _, item := range x {
			if obj, ok := item.(map[string]any); ok {
				renderObject(b, obj)
				continue
			}
			fmt.Fprintf(b, "<p>%s</p>\n", escapeValue(item))
		}
	default:
		fmt.Fprintf(b, "<p>%s</p>\n", escapeValue(x))
	}
}

func renderObject(b *strings.Builder, obj map[string]any) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString("<dl>\n")
	for _, k := range keys {
		fmt.Fprintf(b, "<dt>%s</dt><dd>%s</dd>\n",
			html.EscapeString(k), escapeValue(obj[k]))
	}
	b.WriteString("</dl>\n")
}

// Links renders a list of site-relative anchors.
type Links struct {
	Items []string
}

func (l Links) render(b *strings.Builder, _ any) {
	for _, item := range l.Items {
		target := "/" + strings.TrimPrefix(item, "/")
		fmt.Fprintf(b, "<a href=\"%s\">%s</a>\n",
			html.EscapeString(target), html.EscapeString(item))
	}
}

// Form renders an htmx form posting back to Target with the handler
// method carried in the hx-<method> attribute.
type Form struct {
	Target string
	Method string
	Title  string
	Fields []Field
}

// Field is one input of a Form. ID doubles as the input name, so it
// should match a server-function parameter.
type Field struct {
	ID    string
	Type  string
	Label string
	Value string
}

func (f Form) render(b *strings.Builder, _ any) {
	fmt.Fprintf(b, "<form hx-%s=\"%s\">\n",
		strings.ToLower(f.Method), html.EscapeString(f.Target))
	if f.Title != "" {
		fmt.Fprintf(b, "<legend>%s</legend>\n", html.EscapeString(f.Title))
	}
	for _, field := range f.Fields {
		if field.Label != "" {
			fmt.Fprintf(b, "<label for=\"%s\">%s</label>\n",
				html.EscapeString(field.ID), html.EscapeString(field.Label))
		}
		fmt.Fprintf(b, "<input type=\"%s\" id=\"%s\" name=\"%s\" value=\"%s\">\n",
			html.EscapeString(field.Type), html.EscapeString(field.ID),
			html.EscapeString(field.ID), html.EscapeString(field.Value))
	}
	b.WriteString("<button type=\"submit\">Submit</button>\n</form>\n")
}

// Table renders the payload's rows under declared columns. An object
// payload is treated as a single row.
type Table struct {
	Columns []Column
}

// Column maps a header name onto a payload field. An empty Accessor
// falls back to the lowercased name.
type Column struct {
	Name     string
	Accessor string
}

func (t Table) render(b *strings.Builder, payload any) {
	var rows []map[string]any
	switch x := payload.(type) {
	case map[string]any:
		rows = []map[string]any{x}
	case []any:
		for _, item := range x {
			if obj, ok := item.(map[string]any); ok {
				rows = append(rows, obj)
			}
		}
	}

	b.WriteString("<table>\n<thead>\n<tr>")
	for _, col := range t.Columns {
		fmt.Fprintf(b, "<th>%s</th>", html.EscapeString(col.Name))
	}
	b.WriteString("</tr>\n</thead>\n<tbody>\n")
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, col := range t.Columns {
			fmt.Fprintf(b, "<td>%s</td>", escapeValue(row[col.key()]))
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody>\n</table>\n")
}

func (c Column) key() string {
	if c.Accessor != "" {
		return c.Accessor
	}
	return strings.ToLower(c.Name)
}

// escapeValue formats a payload value for embedding in markup. Nested
// structures fall back to their JSON form.
func escapeValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return html.EscapeString(x)
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	case bool:
		return fmt.Sprintf("%t", x)
	default:
		raw, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return html.EscapeString(string(raw))
	}
}
