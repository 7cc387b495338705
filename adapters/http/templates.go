package http

import (
	"embed"
	"html/template"
	"strings"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"githubLabel": githubLabel,
}

// githubLabel is the link text for a GitHub URL: the URL without its scheme,
// or a generic label when there is none.
func githubLabel(url string) string {
	if url == "" {
		return "GitHub profile"
	}
	return strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
}

// LoadTemplates installs the embedded page templates on router.
func LoadTemplates(router *gin.Engine) {
	tmpl := template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html"))
	router.SetHTMLTemplate(tmpl)
}
