package webapp

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"time"

	"github.com/gin-gonic/gin/render"
	"golang.org/x/text/message"
)

//go:embed templates/*.html
var templateFS embed.FS

const layout = "base.html"

var pageNames = []string{
	"index.html",
	"view.html",
	"form.html",
	"delete.html",
	"login.html",
	"register.html",
	"error.html",
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Local().Format("02.01.2006 15:04")
	},
}

// parsePages builds one template set per page, each sharing the layout
func parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(layout).Funcs(templateFuncs).ParseFS(fsys, "templates/"+layout, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// localizer exposes message formatting to templates as {{$.L.T "key"}}
type localizer struct {
	p *message.Printer
}

// T formats a message in the request language
func (l localizer) T(key string, args ...interface{}) string {
	return l.p.Sprintf(key, args...)
}

func (h *Handler) renderer(name string, data interface{}) render.Render {
	return render.HTML{Template: h.pages[name], Name: layout, Data: data}
}
