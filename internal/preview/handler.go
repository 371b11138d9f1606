package preview

import (
	"fmt"
	"html"
	"net/http"
)

// Handler serves the build directory and, when configured, the metrics endpoint.
// Until a build succeeds, requests get a 503 page describing the last error.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.opts.Metrics != nil {
		mux.Handle(s.cfg.Metrics.Path, s.opts.Metrics)
	}
	files := http.FileServer(http.Dir(s.cfg.Paths().Build))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		good, err := s.status.get()
		if !good && err != nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, "<!DOCTYPE html><title>Build failed</title><h1>Build failed</h1><pre>%s</pre>",
				html.EscapeString(err.Error()))
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		files.ServeHTTP(w, r)
	})
	return mux
}
