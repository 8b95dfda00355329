package ui

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed dist
var dist embed.FS

// GetFileSystem returns the embedded filesystem, rooted at "dist"
func GetFileSystem() (http.FileSystem, error) {
	fsys, err := fs.Sub(dist, "dist")
	if err != nil {
		return nil, err
	}
	return http.FS(fsys), nil
}

// SPAHandler returns a file server that falls back to index.html for unknown
// paths so client-side routing survives a page refresh.
func SPAHandler() http.Handler {
	fsys, _ := GetFileSystem()
	fileServer := http.FileServer(fsys)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api") {
			http.NotFound(w, r)
			return
		}

		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}

		f, err := fsys.Open(path)
		if err != nil {
			// Unknown path, serve the SPA shell instead
			r.URL.Path = "/"
		} else {
			f.Close()
		}

		fileServer.ServeHTTP(w, r)
	})
}
