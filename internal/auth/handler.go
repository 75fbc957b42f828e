package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quartermaster-am/quartermaster/internal/shared"
	"github.com/quartermaster-am/quartermaster/internal/view"
)

// Handler serves the sign-in, callback and sign-out endpoints.
type Handler struct {
	service    *Service
	templates  *view.Engine
	csrf       *shared.CSRFManager
	postLogout string
	logger     *slog.Logger
}

func NewHandler(service *Service, templates *view.Engine, csrf *shared.CSRFManager, postLogoutRedirect string, logger *slog.Logger) *Handler {
	return &Handler{
		service:    service,
		templates:  templates,
		csrf:       csrf,
		postLogout: postLogoutRedirect,
		logger:     logger,
	}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sign-in", h.ShowSignIn)
	r.Get("/start", h.StartSignIn)
	r.Get("/callback", h.Callback)
	r.Post("/sign-out", h.SignOut)
}

// ShowSignIn renders the sign-in page, or redirects home when a session
// is already established.
func (h *Handler) ShowSignIn(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if h.service.StateOf(sess) == StateAuthenticated {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	err := h.templates.Render(w, "pages/signin.html", view.TemplateData{
		Title:       "Sign in",
		Flash:       sess.PopFlash(),
		CurrentPath: r.URL.Path,
		DarkMode:    DarkMode(sess),
	})
	if err != nil {
		h.logger.Error("render sign-in page", "error", err)
	}
}

// StartSignIn moves the session into the loading state and redirects to
// the identity provider.
func (h *Handler) StartSignIn(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	http.Redirect(w, r, h.service.BeginSignIn(sess), http.StatusSeeOther)
}

// Callback completes the sign-in from the authorization response.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	q := r.URL.Query()
	if errCode := q.Get("error"); errCode != "" {
		h.logger.Warn("authorization error", "code", errCode, "description", q.Get("error_description"))
		sess.Set(stateKey, string(StateUnauthenticated))
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: "Sign-in was cancelled or refused."})
		http.Redirect(w, r, "/auth/sign-in", http.StatusSeeOther)
		return
	}
	if err := h.service.CompleteSignIn(r.Context(), sess, q.Get("code"), q.Get("state")); err != nil {
		h.logger.Error("sign-in failed", "error", err)
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: "Sign-in failed. Please try again."})
		http.Redirect(w, r, "/auth/sign-in", http.StatusSeeOther)
		return
	}
	if auth := h.service.SessionOf(sess); auth != nil && auth.DisplayName != "" {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome, " + auth.DisplayName + "."})
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SignOut tears down the session and redirects to the provider's
// end-session endpoint.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	endSession := h.service.SignOut(r.Context(), sess, h.postLogout)
	sess.Set(stateKey, string(StateUnauthenticated))
	sess.Delete(sessionKey)
	sess.SetAccount("")
	http.Redirect(w, r, endSession, http.StatusSeeOther)
}
