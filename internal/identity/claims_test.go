package identity_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/quartermaster-am/quartermaster/internal/identity"
	_ "github.com/quartermaster-am/quartermaster/testing"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return raw
}

func TestParseClaims(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{
		"oid":                "account-1",
		"name":               "Dana Reeve",
		"preferred_username": "dana@example.edu",
		"roles":              []any{"Asset.Manage", "Asset.Read"},
	})

	claims, err := identity.ParseClaims(raw)
	require.NoError(t, err)
	require.Equal(t, "account-1", claims.ObjectID)
	require.Equal(t, "Dana Reeve", claims.Name)
	require.Equal(t, "dana@example.edu", claims.Email)
	require.Equal(t, []string{"Asset.Manage", "Asset.Read"}, claims.Roles)
}

func TestParseClaimsSubFallback(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{
		"sub": "subject-9",
		"upn": "upn@example.edu",
	})

	claims, err := identity.ParseClaims(raw)
	require.NoError(t, err)
	require.Equal(t, "subject-9", claims.ObjectID)
	require.Equal(t, "upn@example.edu", claims.Email)
	require.Empty(t, claims.Roles)
}

func TestParseClaimsRejectsGarbage(t *testing.T) {
	_, err := identity.ParseClaims("not.a.token")
	require.Error(t, err)
}

func TestRolesFromToken(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{"roles": []any{"Admin"}})
	require.Equal(t, []string{"Admin"}, identity.RolesFromToken(raw))
	require.Nil(t, identity.RolesFromToken("garbage"))
}
