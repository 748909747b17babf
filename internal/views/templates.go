package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(
	template.New("views").Funcs(template.FuncMap{
		"price":    formatPrice,
		"itemPath": ItemPath,
	}).ParseFS(templateFS, "templates/*.html"),
)

func formatPrice(p float64) string {
	return fmt.Sprintf("$%.2f", p)
}

// ItemPath is the detail page path of item id.
func ItemPath(id string) string {
	return "/item/" + url.PathEscape(id)
}

// render executes the named template into a safe HTML fragment.
func render(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

// Page is the data for the full-page layout.
type Page struct {
	Title     string
	StoreName string
	CartInfo  template.HTML
	Flash     string
	Main      template.HTML
}

// WritePage renders the full-page layout to w.
func WritePage(w io.Writer, p Page) error {
	if err := templates.ExecuteTemplate(w, "layout", p); err != nil {
		return fmt.Errorf("rendering layout: %w", err)
	}
	return nil
}
