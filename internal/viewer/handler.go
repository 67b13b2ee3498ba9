// Package viewer serves the read-only clip browsing page over the archive
// directory. It never writes; a clip appearing between page loads just
// shows up on the next one.
package viewer

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/ypk/ringwatch/internal/archive"
)

type Handler struct {
	store        *archive.Store
	passwordHash string // bcrypt; empty disables auth
	tmpl         *template.Template
}

func New(store *archive.Store, templateFS fs.FS, passwordHash string) *Handler {
	funcMap := template.FuncMap{
		"formatBytes": func(b int64) string {
			switch {
			case b >= 1<<30:
				return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
			case b >= 1<<20:
				return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
			case b >= 1<<10:
				return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
			default:
				return fmt.Sprintf("%d B", b)
			}
		},
	}

	tmpl := template.Must(
		template.New("index.html").Funcs(funcMap).ParseFS(templateFS, "index.html"),
	)

	return &Handler{
		store:        store,
		passwordHash: passwordHash,
		tmpl:         tmpl,
	}
}

func (h *Handler) Routes(rl *RateLimiter) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(rl.Middleware)
	if h.passwordHash != "" {
		r.Use(h.requirePassword)
	}

	r.Get("/", h.Index)
	r.Get("/clips/{name}", h.Clip)

	return r
}

type indexData struct {
	Clips      []archive.Clip
	Count      int
	TotalBytes int64
	Oldest     string
	Newest     string
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	clips, stats, err := h.store.List()
	if err != nil {
		slog.Error("list archive", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data := indexData{
		Clips:      clips,
		Count:      stats.Count,
		TotalBytes: stats.TotalBytes,
		Oldest:     formatDay(stats.Oldest),
		Newest:     formatDay(stats.Newest),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.Error("render index", "error", err)
	}
}

// Clip serves one archived file. The name must resolve inside the archive
// directory; anything else is a 404 so probes learn nothing.
func (h *Handler) Clip(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	path, err := h.store.Resolve(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

func (h *Handler) requirePassword(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pass, ok := r.BasicAuth()
		if !ok || bcrypt.CompareHashAndPassword([]byte(h.passwordHash), []byte(pass)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="ringwatch"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("01/02/2006")
}
