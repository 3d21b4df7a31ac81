// Package web holds the static assets served under /static/: the default
// marker icons.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
)

//go:embed static
var files embed.FS

// Static returns the built-in static files, rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Handler serves dir's static/ directory when dir is set, falling back to
// the built-in files for anything it does not have.
func Handler(dir string) http.Handler {
	builtin := http.FileServer(http.FS(Static()))
	if dir == "" {
		return builtin
	}
	root := os.DirFS(filepath.Join(dir, "static"))
	disk := http.FileServer(http.FS(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path
		if len(name) > 0 && name[0] == '/' {
			name = name[1:]
		}
		if fs.ValidPath(name) && name != "" {
			if _, err := fs.Stat(root, name); err == nil {
				disk.ServeHTTP(w, r)
				return
			}
		}
		builtin.ServeHTTP(w, r)
	})
}
