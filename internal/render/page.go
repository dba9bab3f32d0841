package render

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/page.html
var templateFS embed.FS

// Static holds the page's stylesheet and script, rooted at "static".
//
//go:embed static
var Static embed.FS

var pageTemplate = template.Must(
	template.New("page.html").
		Funcs(template.FuncMap{
			// Theme backgrounds come from the fixed table in theme.go.
			"safeCSS": func(s string) template.CSS { return template.CSS(s) },
		}).
		ParseFS(templateFS, "templates/page.html"),
)

// PageData is everything the page shows: the visibility of each region, the
// error text and the display content.
type PageData struct {
	Title          string
	City           string // search box prefill
	LoadingVisible bool
	ErrorVisible   bool
	ErrorMessage   string
	ContentVisible bool
	Display        *Display
}

// WritePage renders the full HTML page.
func WritePage(w io.Writer, data PageData) error {
	if data.Title == "" {
		data.Title = "Weather"
	}
	if data.Display == nil {
		data.Display = NewDisplay()
	}
	return pageTemplate.Execute(w, data)
}
