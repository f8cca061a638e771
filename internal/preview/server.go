package preview

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Error page locations relative to the output directory, in lookup order.
var (
	NotFoundPages    = []string{"404/index.html", "404.html"}
	ServerErrorPages = []string{"500.html", "500/index.html"}
)

// NewHandler returns the preview server's router. metricsHandler may be nil.
func NewHandler(outputDir string, hub *LiveReloadHub, metricsHandler http.Handler) http.Handler {
	r := mux.NewRouter()
	r.Handle("/livereload", hub).Methods(http.MethodGet)
	r.HandleFunc("/livereload.js", serveScript).Methods(http.MethodGet, http.MethodHead)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	files := http.FileServer(http.Dir(outputDir))
	r.PathPrefix("/").Handler(handlers.CompressHandler(injectLiveReload(errorPages(outputDir, files))))

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(false),
	)
	return recovery(logRequests(r))
}

func serveScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(LiveReloadScript))
}

// errorPages replaces 404 and 5xx responses from next with the site's own error
// pages, and turns panics into the 500 page.
func errorPages(outputDir string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		iw := &statusInterceptor{ResponseWriter: w}
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel value compared by identity
				panic(rec)
			}
			slog.Error("Panic while serving preview", logfields.Path(r.URL.Path), slog.Any("panic", rec))
			if !iw.wroteHeader {
				serveErrorPage(w, outputDir, ServerErrorPages, http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(iw, r)

		switch {
		case iw.status == http.StatusNotFound:
			serveErrorPage(w, outputDir, NotFoundPages, http.StatusNotFound)
		case iw.status >= http.StatusInternalServerError:
			serveErrorPage(w, outputDir, ServerErrorPages, iw.status)
		}
	})
}

func serveErrorPage(w http.ResponseWriter, outputDir string, pages []string, status int) {
	var body []byte
	for _, page := range pages {
		b, err := os.ReadFile(filepath.Join(outputDir, filepath.FromSlash(page)))
		if err == nil {
			body = b
			break
		}
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Failed to read error page", logfields.Path(page), logfields.Error(err))
		}
	}

	h := w.Header()
	h.Del("Content-Length")
	h.Del("X-Content-Type-Options")
	if body == nil {
		h.Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(http.StatusText(status)))
		return
	}
	h.Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// statusInterceptor swallows error responses so errorPages can replace them.
type statusInterceptor struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	intercepted bool
}

func (s *statusInterceptor) WriteHeader(code int) {
	if s.status != 0 {
		return
	}
	s.status = code
	if code == http.StatusNotFound || code >= http.StatusInternalServerError {
		s.intercepted = true
		return
	}
	s.wroteHeader = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusInterceptor) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.WriteHeader(http.StatusOK)
	}
	if s.intercepted {
		return len(b), nil
	}
	return s.ResponseWriter.Write(b)
}
