package handler

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/leikapui/sales-dashboard/internal/model"
	"github.com/leikapui/sales-dashboard/internal/sales"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page is the data every template receives.
type Page struct {
	Title string
	User  *model.User
	Flash string
	Error string
	Data  any
}

// Renderer renders the embedded page templates. Each page is parsed
// together with the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page. Dates are shown in loc.
func NewRenderer(loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.Local
	}
	funcs := template.FuncMap{
		"inr":      sales.FormatINR,
		"ts":       func(t time.Time) string { return sales.FormatTimestamp(t, loc) },
		"bar":      sales.BarHeight,
		"maxSales": sales.MaxSales,
		"inc":      func(i int) int { return i + 1 },
		"deref": func(d *decimal.Decimal) decimal.Decimal {
			if d == nil {
				return decimal.Zero
			}
			return *d
		},
	}
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, name := range []string{"login", "dashboard", "error", "admin"} {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
