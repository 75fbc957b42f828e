package auth

import (
	"log/slog"
	"net/http"

	"github.com/quartermaster-am/quartermaster/internal/shared"
	"github.com/quartermaster-am/quartermaster/internal/view"
)

// Guard wraps handlers that require a signed-in session with an allowed
// role. The loading state renders an interstitial instead of a denial so
// that an in-flight sign-in never flashes "access denied".
type Guard struct {
	service   *Service
	templates *view.Engine
	logger    *slog.Logger
}

func NewGuard(service *Service, templates *view.Engine, logger *slog.Logger) *Guard {
	return &Guard{service: service, templates: templates, logger: logger}
}

// RequireAuthorized admits the request only for an authenticated session
// holding a required role.
func (g *Guard) RequireAuthorized(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil {
			http.Redirect(w, r, "/auth/sign-in", http.StatusSeeOther)
			return
		}
		switch g.service.StateOf(sess) {
		case StateUnauthenticated:
			http.Redirect(w, r, "/auth/sign-in", http.StatusSeeOther)
			return
		case StateLoading:
			g.renderLoading(w, r, sess)
			return
		}
		switch g.service.Authorize(sess) {
		case DecisionPending:
			g.renderLoading(w, r, sess)
		case DecisionDenied:
			g.renderDenied(w, r, sess)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (g *Guard) renderLoading(w http.ResponseWriter, r *http.Request, sess *shared.Session) {
	err := g.templates.Render(w, "pages/loading.html", view.TemplateData{
		Title:       "Signing in",
		CurrentPath: r.URL.Path,
		DarkMode:    DarkMode(sess),
	})
	if err != nil {
		g.logger.Error("render loading page", "error", err)
	}
}

func (g *Guard) renderDenied(w http.ResponseWriter, r *http.Request, sess *shared.Session) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	err := g.templates.Render(w, "pages/denied.html", view.TemplateData{
		Title:       "Access denied",
		CurrentPath: r.URL.Path,
		DarkMode:    DarkMode(sess),
		User:        g.service.SessionOf(sess),
	})
	if err != nil {
		g.logger.Error("render denied page", "error", err)
	}
}
