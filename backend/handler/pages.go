package handler

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/faawibowo/pakta/backend/middleware"
	"github.com/gin-gonic/gin"
)

const pageTemplateName = "page"

// pageTemplate is the shell every page is served in; the client application
// mounts on #app and reads the data attributes.
const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} | PAKTA</title>
</head>
<body>
<div id="app" data-page="{{.Page}}" data-role="{{.Role}}" data-user="{{.Username}}">
<h1>{{.Title}}</h1>
{{if .Message}}<p>{{.Message}}</p>{{end}}
</div>
</body>
</html>
`

// Page describes one browser route
type Page struct {
	Path    string
	Name    string
	Title   string
	Message string
}

// Pages lists the browser routes. The access gate decides who reaches them.
var Pages = []Page{
	{Path: "/", Name: "home", Title: "PAKTA"},
	{Path: "/login", Name: "login", Title: "Sign in"},
	{Path: "/register", Name: "register", Title: "Register", Message: "Accounts are provisioned by an administrator."},
	{Path: "/unauthorized", Name: "unauthorized", Title: "Unauthorized", Message: "Your role does not have access to this page."},
	{Path: "/not-found", Name: "not-found", Title: "Not found", Message: "The page you requested does not exist."},
	{Path: "/dashboard", Name: "dashboard", Title: "Dashboard"},
	{Path: "/contracts", Name: "contracts", Title: "Contracts"},
	{Path: "/upload", Name: "upload", Title: "Upload contract"},
	{Path: "/drafting", Name: "drafting", Title: "Contract drafting"},
	{Path: "/validation", Name: "validation", Title: "Contract validation"},
	{Path: "/users", Name: "users", Title: "User management"},
}

// PageTemplate parses the page shell for gin's HTML renderer
func PageTemplate() *template.Template {
	return template.Must(template.New(pageTemplateName).Parse(pageTemplate))
}

// RenderPage serves the shell for p
func RenderPage(p Page) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, pageTemplateName, gin.H{
			"Page":     p.Name,
			"Title":    p.Title,
			"Message":  p.Message,
			"Role":     middleware.GetRole(c).String(),
			"Username": middleware.GetUsername(c),
		})
	}
}

// RegisterPages mounts every page and the not-found fallback on router
func RegisterPages(router *gin.Engine) {
	router.SetHTMLTemplate(PageTemplate())
	for _, p := range Pages {
		router.GET(p.Path, RenderPage(p))
	}
	router.NoRoute(NotFound)
}

// NotFound answers JSON for API paths and redirects browsers to /not-found
func NotFound(c *gin.Context) {
	p := c.Request.URL.Path
	if p == "/api" || strings.HasPrefix(p, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.Redirect(http.StatusFound, "/not-found")
}
