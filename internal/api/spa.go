package api

import (
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

const (
	spaIndex      = "index.html"
	spaAssetsDir  = "assets/"
	noStore       = "no-store"
	immutableHint = "public, max-age=31536000, immutable"
)

// WithSPA wraps the API handler with static serving of the web client in
// webDir. Requests under /api/ always go to the API.
func WithSPA(apiHandler http.Handler, webDir string) http.Handler {
	return WithSPAFS(apiHandler, os.DirFS(webDir))
}

// WithSPAFS serves the web client from fsys. Unknown paths fall back to
// index.html so client-side routes survive a reload. Fingerprinted files
// under assets/ are cacheable; everything else is revalidated.
func WithSPAFS(apiHandler http.Handler, fsys fs.FS) http.Handler {
	fileServer := http.FileServerFS(fsys)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			apiHandler.ServeHTTP(w, r)
			return
		}

		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" || name == "." || name == spaIndex {
			serveIndex(w, r, fsys)
			return
		}

		if info, err := fs.Stat(fsys, name); err == nil && !info.IsDir() {
			if strings.HasPrefix(name, spaAssetsDir) {
				w.Header().Set("Cache-Control", immutableHint)
			} else {
				w.Header().Set("Cache-Control", noStore)
			}
			fileServer.ServeHTTP(w, r)
			return
		}

		serveIndex(w, r, fsys)
	})
}

func serveIndex(w http.ResponseWriter, r *http.Request, fsys fs.FS) {
	if _, err := fs.Stat(fsys, spaIndex); err != nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("index.html not found"))
		return
	}
	w.Header().Set("Cache-Control", noStore)
	http.ServeFileFS(w, r, fsys, spaIndex)
}
