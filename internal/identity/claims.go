package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the identity attributes the console reads from a token payload.
type Claims struct {
	ObjectID string
	Name     string
	Email    string
	Roles    []string
}

// ParseClaims decodes a token payload without verifying its signature. The
// result drives UI gating only; every API call still carries the bearer
// token, and the remote API stays the sole authorization authority.
func ParseClaims(raw string) (*Claims, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("identity: parse token: %w", err)
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("identity: unexpected claims type %T", token.Claims)
	}

	claims := &Claims{
		ObjectID: stringClaim(mc, "oid"),
		Name:     stringClaim(mc, "name"),
		Email:    firstStringClaim(mc, "preferred_username", "upn", "email"),
	}
	if claims.ObjectID == "" {
		claims.ObjectID = stringClaim(mc, "sub")
	}
	claims.Roles = stringSliceClaim(mc, "roles")
	return claims, nil
}

// RolesFromToken extracts the roles claim from a token payload, empty when
// the token carries none or cannot be decoded.
func RolesFromToken(raw string) []string {
	claims, err := ParseClaims(raw)
	if err != nil {
		return nil
	}
	return claims.Roles
}

func stringClaim(mc jwt.MapClaims, key string) string {
	if v, ok := mc[key].(string); ok {
		return v
	}
	return ""
}

func firstStringClaim(mc jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if v := stringClaim(mc, key); v != "" {
			return v
		}
	}
	return ""
}

func stringSliceClaim(mc jwt.MapClaims, key string) []string {
	raw, ok := mc[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
