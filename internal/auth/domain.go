// Package auth holds the signed-in session state machine and the
// authorization predicates derived from identity-provider claims.
package auth

import "github.com/quartermaster-am/quartermaster/internal/identity"

// State is the observable authentication state of a browser session.
type State string

const (
	// StateUnauthenticated means no signed-in account.
	StateUnauthenticated State = "unauthenticated"
	// StateLoading means sign-in is in flight and claims are still being
	// resolved; it is distinct from a computed denial so the UI never
	// flashes a false "access denied".
	StateLoading State = "loading"
	// StateAuthenticated means a Session is available.
	StateAuthenticated State = "authenticated"
)

// Session is the signed-in identity, mutated as claims are (re)fetched and
// destroyed on sign-out.
type Session struct {
	AccountID   string           `json:"accountID"`
	DisplayName string           `json:"displayName"`
	Email       string           `json:"email"`
	Roles       []string         `json:"roles"`
	Groups      []identity.Group `json:"groups"`
	HasPhoto    bool             `json:"hasPhoto"`
}

// Decision is the tri-state authorization result. Pending distinguishes
// "claims still loading" from a computed denial.
type Decision int

const (
	// DecisionPending means roles are not resolved yet.
	DecisionPending Decision = iota
	// DecisionAllowed grants access.
	DecisionAllowed
	// DecisionDenied refuses access.
	DecisionDenied
)

// Session store keys.
const (
	stateKey      = "auth_state"
	sessionKey    = "auth_session"
	oauthStateKey = "oauth_state"
	oauthNonceKey = "oauth_nonce"
	darkModeKey   = "dark_mode"
)
