// Package identity integrates the enterprise identity provider: interactive
// and silent token acquisition, claim extraction, and the directory user-info
// endpoints.
package identity

import "strings"

// GraphScopes grant read access to the signed-in user's own directory
// profile.
var GraphScopes = []string{"user.read", "profile", "email"}

// Scopes holds the scope sets used for token requests against the asset API.
type Scopes struct {
	// Primary is the audience-qualified scope set (api://<app-id>/<scope>).
	Primary []string
	// Secondary is the "<app-id>/.default" fallback some registrations need.
	Secondary []string
}

// BuildScopes derives the scope sets from the API registration. Bare scope
// names are qualified against the app ID; without an app ID only already
// qualified api:// entries survive, so a half-configured environment never
// produces an "api://undefined" audience.
func BuildScopes(apiAppID string, configured []string) Scopes {
	var s Scopes
	if apiAppID != "" {
		for _, scope := range configured {
			if strings.HasPrefix(scope, "api://") {
				s.Primary = append(s.Primary, scope)
			} else {
				s.Primary = append(s.Primary, "api://"+apiAppID+"/"+scope)
			}
		}
		s.Secondary = []string{apiAppID + "/.default"}
		return s
	}
	for _, scope := range configured {
		if strings.HasPrefix(scope, "api://") {
			s.Primary = append(s.Primary, scope)
		}
	}
	return s
}

// HasAPIScopes reports whether any API scope set is configured at all.
func (s Scopes) HasAPIScopes() bool {
	return len(s.Primary) > 0 || len(s.Secondary) > 0
}

// Login returns the combined scope set requested at initial sign-in, so the
// user consents to both the directory read and the asset API in one prompt.
func (s Scopes) Login() []string {
	return append(append([]string(nil), GraphScopes...), s.Primary...)
}
