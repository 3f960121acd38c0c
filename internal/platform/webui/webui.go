// Package webui serves the embedded browser front end for the encounter API.
package webui

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Prefix is the URL path the static assets are served under.
const Prefix = "/ui"

//go:embed static
var assets embed.FS

func staticFS() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// RegisterRoutes mounts the index page at "/" and the assets under Prefix.
func RegisterRoutes(e *echo.Echo) {
	files := staticFS()
	index, err := fs.ReadFile(files, "index.html")
	if err != nil {
		panic(err)
	}

	e.GET("/", func(c echo.Context) error {
		return c.HTMLBlob(http.StatusOK, index)
	})
	e.StaticFS(Prefix, files)
}
