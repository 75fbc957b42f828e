package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"

	"github.com/quartermaster-am/quartermaster/internal/identity"
	"github.com/quartermaster-am/quartermaster/internal/shared"
)

// RefreshEnqueuer schedules a background refresh of cached directory data
// for an account. A nil enqueuer disables background refreshes.
type RefreshEnqueuer interface {
	EnqueueDirectoryRefresh(ctx context.Context, accountID string) error
}

// Service drives sign-in, sign-out and the per-request authorization
// decision.
type Service struct {
	provider      *identity.Client
	acquirer      *identity.Acquirer
	directory     *identity.Directory
	dirCache      *identity.DirectoryCache
	enqueuer      RefreshEnqueuer
	logger        *slog.Logger
	requiredRoles []string
	warnOnce      sync.Once
}

func NewService(provider *identity.Client, acquirer *identity.Acquirer, directory *identity.Directory, dirCache *identity.DirectoryCache, enqueuer RefreshEnqueuer, requiredRoles []string, logger *slog.Logger) *Service {
	return &Service{
		provider:      provider,
		acquirer:      acquirer,
		directory:     directory,
		dirCache:      dirCache,
		enqueuer:      enqueuer,
		logger:        logger,
		requiredRoles: requiredRoles,
	}
}

// StateOf reports the authentication state recorded on the session.
func (s *Service) StateOf(sess *shared.Session) State {
	switch State(sess.Get(stateKey)) {
	case StateLoading:
		return StateLoading
	case StateAuthenticated:
		if sess.Account() != "" {
			return StateAuthenticated
		}
	}
	return StateUnauthenticated
}

// SessionOf returns the signed-in identity, or nil when not authenticated.
func (s *Service) SessionOf(sess *shared.Session) *Session {
	if s.StateOf(sess) != StateAuthenticated {
		return nil
	}
	var out Session
	ok, err := sess.GetJSON(sessionKey, &out)
	if err != nil || !ok {
		return nil
	}
	return &out
}

// Authorize computes the tri-state access decision for the session.
func (s *Service) Authorize(sess *shared.Session) Decision {
	switch s.StateOf(sess) {
	case StateLoading:
		return DecisionPending
	case StateUnauthenticated:
		return DecisionDenied
	}
	if len(s.requiredRoles) == 0 {
		s.warnOnce.Do(func() {
			s.logger.Warn("no required roles configured, denying all access")
		})
		return DecisionDenied
	}
	auth := s.SessionOf(sess)
	if auth == nil {
		return DecisionPending
	}
	if HasRequiredRole(auth.Roles, s.requiredRoles) {
		return DecisionAllowed
	}
	return DecisionDenied
}

// BeginSignIn records the in-flight state plus the OAuth state and nonce
// on the session and returns the authorization URL to redirect to.
func (s *Service) BeginSignIn(sess *shared.Session) string {
	state := randomToken()
	nonce := randomToken()
	sess.Set(oauthStateKey, state)
	sess.Set(oauthNonceKey, nonce)
	sess.Set(stateKey, string(StateLoading))
	return s.provider.AuthCodeURL(state, nonce, s.acquirer.Scopes().Login(), "")
}

// CompleteSignIn exchanges the authorization code and populates the
// session: identity first, then roles, a forced-consent token attempt,
// and finally best-effort directory data. Only the exchange itself is
// fatal; every later step degrades to a partially populated session.
func (s *Service) CompleteSignIn(ctx context.Context, sess *shared.Session, code, state string) error {
	if state == "" || state != sess.Get(oauthStateKey) {
		sess.Set(stateKey, string(StateUnauthenticated))
		return fmt.Errorf("auth: state mismatch")
	}
	sess.Delete(oauthStateKey)
	sess.Delete(oauthNonceKey)

	res, accountID, err := s.provider.Exchange(ctx, code, s.acquirer.Scopes().Login())
	if err != nil {
		sess.Set(stateKey, string(StateUnauthenticated))
		return fmt.Errorf("auth: code exchange: %w", err)
	}

	auth := Session{AccountID: accountID}
	if claims, err := identity.ParseClaims(res.IDToken); err == nil {
		if auth.AccountID == "" {
			auth.AccountID = claims.ObjectID
		}
		auth.DisplayName = claims.Name
		auth.Email = claims.Email
		auth.Roles = claims.Roles
		if auth.DisplayName == "" {
			auth.DisplayName = claims.Email
		}
	}

	// Interactive acquisition during the callback is satisfied inline by
	// the freshly exchanged result instead of a second redirect.
	tctx := identity.ContextWithExchangedToken(ctx, res)

	if len(auth.Roles) == 0 {
		tok, err := s.acquirer.Acquire(tctx, auth.AccountID, false)
		if err != nil {
			s.logger.Warn("token acquisition after sign-in failed", "account", auth.AccountID, "error", err)
		} else if tok != nil {
			auth.Roles = identity.RolesFromToken(tok.AccessToken)
		}
	}

	if _, err := s.acquirer.Acquire(tctx, auth.AccountID, true); err != nil {
		s.logger.Warn("forced consent acquisition failed", "account", auth.AccountID, "error", err)
	}

	s.hydrateDirectory(ctx, &auth)

	sess.SetAccount(auth.AccountID)
	if err := sess.SetJSON(sessionKey, auth); err != nil {
		return fmt.Errorf("auth: persist session: %w", err)
	}
	sess.Set(stateKey, string(StateAuthenticated))

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueDirectoryRefresh(ctx, auth.AccountID); err != nil {
			s.logger.Warn("enqueue directory refresh failed", "account", auth.AccountID, "error", err)
		}
	}
	return nil
}

func (s *Service) hydrateDirectory(ctx context.Context, auth *Session) {
	if s.directory == nil {
		return
	}
	bundle := identity.Bundle{}
	if profile, err := s.directory.Profile(ctx, auth.AccountID); err != nil {
		s.logger.Warn("profile fetch failed", "account", auth.AccountID, "error", err)
	} else {
		bundle.Profile = profile
		if auth.DisplayName == "" {
			auth.DisplayName = profile.DisplayName
		}
		if auth.Email == "" {
			auth.Email = profile.Email
		}
	}
	if photo, err := s.directory.Photo(ctx, auth.AccountID); err != nil {
		s.logger.Warn("photo fetch failed", "account", auth.AccountID, "error", err)
	} else {
		bundle.HasPhoto = len(photo) > 0
		auth.HasPhoto = bundle.HasPhoto
	}
	if groups, err := s.directory.Groups(ctx, auth.AccountID); err != nil {
		s.logger.Warn("group fetch failed", "account", auth.AccountID, "error", err)
	} else {
		bundle.Groups = groups
		auth.Groups = groups
	}
	if s.dirCache != nil {
		if err := s.dirCache.Put(ctx, auth.AccountID, bundle); err != nil {
			s.logger.Warn("directory cache write failed", "account", auth.AccountID, "error", err)
		}
	}
}

// SignOut purges cached tokens and directory data for the account and
// returns the identity-provider end-session URL. The caller destroys the
// cookie session.
func (s *Service) SignOut(ctx context.Context, sess *shared.Session, postLogoutRedirect string) string {
	accountID := sess.Account()
	if accountID != "" {
		sc := s.acquirer.Scopes()
		s.provider.PurgeAccount(ctx, accountID, sc.Primary, sc.Secondary, identity.GraphScopes)
		if s.dirCache != nil {
			if err := s.dirCache.Forget(ctx, accountID); err != nil {
				s.logger.Warn("directory cache purge failed", "account", accountID, "error", err)
			}
		}
	}
	return s.provider.EndSessionURL(postLogoutRedirect)
}

// DarkMode reports the per-session dark mode preference.
func DarkMode(sess *shared.Session) bool {
	return sess.Get(darkModeKey) == "1"
}

// ToggleDarkMode flips the per-session dark mode preference.
func ToggleDarkMode(sess *shared.Session) bool {
	if DarkMode(sess) {
		sess.Delete(darkModeKey)
		return false
	}
	sess.Set(darkModeKey, "1")
	return true
}

func randomToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
