package identity_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quartermaster-am/quartermaster/internal/identity"
)

func TestBuildScopesQualifiesBareNames(t *testing.T) {
	s := identity.BuildScopes("app-123", []string{"Asset.Manage", "api://other/scope"})

	require.Equal(t, []string{"api://app-123/Asset.Manage", "api://other/scope"}, s.Primary)
	require.Equal(t, []string{"app-123/.default"}, s.Secondary)
	require.True(t, s.HasAPIScopes())
}

func TestBuildScopesWithoutAppID(t *testing.T) {
	s := identity.BuildScopes("", []string{"Asset.Manage", "api://other/scope"})

	// Bare names cannot be qualified, so only explicit api:// scopes
	// survive and no .default audience is invented.
	require.Equal(t, []string{"api://other/scope"}, s.Primary)
	require.Empty(t, s.Secondary)
}

func TestBuildScopesEmpty(t *testing.T) {
	s := identity.BuildScopes("", nil)
	require.False(t, s.HasAPIScopes())
}

func TestLoginScopesCombineGraphAndPrimary(t *testing.T) {
	s := identity.BuildScopes("app-123", []string{"Asset.Manage"})

	login := s.Login()
	require.Equal(t, append(append([]string(nil), identity.GraphScopes...), "api://app-123/Asset.Manage"), login)
}
