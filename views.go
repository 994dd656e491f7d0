package portal

import (
	"bytes"
	"embed"
	"io/fs"
	"maps"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-router"
)

//go:embed views/*.html
var viewsFS embed.FS

var TemplateUserKey = "current_user"

// NewViewEngine returns the django engine over the embedded page templates
func NewViewEngine() *django.Engine {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err)
	}
	return django.NewFileSystem(http.FS(sub), ".html")
}

// TemplateHelpers returns data shared by every page template.
//
// In templates, you can then use:
//
//	{% if is_authenticated %}
//	<a href="{{ routes.logout }}">
//	{{ current_user.Name }}
func TemplateHelpers(routes *PortalRoutes) map[string]any {
	if routes == nil {
		routes = DefaultPortalRoutes()
	}
	return map[string]any{
		"app_name": "Login Register Portal",
		"routes": map[string]string{
			"home":      routes.Home,
			"login":     routes.Login,
			"register":  routes.Register,
			"dashboard": routes.Dashboard,
			"logout":    routes.Logout,
		},
	}
}

// TemplateHelpersWithSession adds the session snapshot to TemplateHelpers
func TemplateHelpersWithSession(routes *PortalRoutes, snap Snapshot) map[string]any {
	helpers := TemplateHelpers(routes)
	helpers["is_authenticated"] = snap.Authenticated()
	helpers["is_restoring"] = snap.Restoring()
	if snap.User != nil {
		helpers[TemplateUserKey] = snap.User
	}
	return helpers
}

func viewContext(helpers map[string]any, data fiber.Map) fiber.Map {
	out := make(fiber.Map, len(helpers)+len(data))
	maps.Copy(out, helpers)
	maps.Copy(out, data)
	return out
}

// renderView executes a template with engine and writes it as the
// HTML response body
func renderView(ctx router.Context, engine fiber.Views, status int, name string, data map[string]any) error {
	var buf bytes.Buffer
	if err := engine.Render(&buf, name, data); err != nil {
		return err
	}
	ctx.SetHeader(router.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return ctx.Status(status).Send(buf.Bytes())
}

func redirect(ctx router.Context, location string, status int) error {
	ctx.SetHeader(fiber.HeaderLocation, location)
	return ctx.NoContent(status)
}
