package console

import (
	"net/http"

	"github.com/quartermaster-am/quartermaster/internal/auth"
	"github.com/quartermaster-am/quartermaster/internal/identity"
	"github.com/quartermaster-am/quartermaster/internal/shared"
)

type profileView struct {
	Nav         []NavItem
	DisplayName string
	Email       string
	Role        string
	Roles       []string
	Groups      []identity.Group
	HasPhoto    bool
	JobTitle    string
	Department  string
	DarkMode    bool
}

// Profile renders the signed-in account with its directory data.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	authSess := h.auth.SessionOf(sess)
	if authSess == nil {
		http.Redirect(w, r, "/auth/sign-in", http.StatusSeeOther)
		return
	}
	pv := profileView{
		Nav:         h.navFor(""),
		DisplayName: authSess.DisplayName,
		Email:       authSess.Email,
		Role:        authSess.DisplayRole(),
		Roles:       authSess.Roles,
		Groups:      authSess.Groups,
		HasPhoto:    authSess.HasPhoto,
		DarkMode:    auth.DarkMode(sess),
	}
	if bundle := h.directoryBundle(r, authSess.AccountID); bundle != nil && bundle.Profile != nil {
		pv.JobTitle = bundle.Profile.JobTitle
		pv.Department = bundle.Profile.Department
	}
	h.render(w, r, "pages/profile.html", "Profile", pv)
}

func (h *Handler) directoryBundle(r *http.Request, accountID string) *identity.Bundle {
	if h.dirCache == nil {
		return nil
	}
	bundle, err := h.dirCache.Get(r.Context(), accountID)
	if err != nil {
		h.logger.Warn("directory cache read failed", "account", accountID, "error", err)
		return nil
	}
	return bundle
}

// ToggleDarkMode flips the theme preference and returns to the referring
// page.
func (h *Handler) ToggleDarkMode(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	auth.ToggleDarkMode(sess)
	target := r.Referer()
	if target == "" {
		target = "/profile"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
