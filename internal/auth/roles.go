package auth

import "strings"

// HasRequiredRole reports whether any of the session roles matches one of
// the required roles, case-insensitively. An empty required list denies:
// a deployment that configures no roles must not accidentally grant
// everyone access.
func HasRequiredRole(roles, required []string) bool {
	if len(required) == 0 {
		return false
	}
	for _, have := range roles {
		for _, want := range required {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// InGroup reports whether the session belongs to a directory group whose
// display name or object ID equals nameOrID, case-insensitively.
func (s *Session) InGroup(nameOrID string) bool {
	if s == nil {
		return false
	}
	for _, g := range s.Groups {
		if strings.EqualFold(g.DisplayName, nameOrID) || strings.EqualFold(g.ID, nameOrID) {
			return true
		}
	}
	return false
}

// DisplayRole maps well-known directory groups onto a coarse role label
// for the profile screen.
func (s *Session) DisplayRole() string {
	switch {
	case s.InGroup("admins"):
		return "admin"
	case s.InGroup("teachers"):
		return "teacher"
	case s.InGroup("students"):
		return "student"
	default:
		return "user"
	}
}
