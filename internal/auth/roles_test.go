package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quartermaster-am/quartermaster/internal/auth"
	"github.com/quartermaster-am/quartermaster/internal/identity"
	_ "github.com/quartermaster-am/quartermaster/testing"
)

func TestHasRequiredRole(t *testing.T) {
	require.True(t, auth.HasRequiredRole([]string{"Asset.Manage"}, []string{"asset.manage"}))
	require.True(t, auth.HasRequiredRole([]string{"Other", "Admin"}, []string{"admin", "root"}))
	require.False(t, auth.HasRequiredRole([]string{"Viewer"}, []string{"Admin"}))
	require.False(t, auth.HasRequiredRole(nil, []string{"Admin"}))
}

func TestHasRequiredRoleFailsClosedOnEmptyRequirement(t *testing.T) {
	// A deployment with no configured roles denies everyone rather than
	// silently granting access.
	require.False(t, auth.HasRequiredRole([]string{"Admin"}, nil))
	require.False(t, auth.HasRequiredRole([]string{"Admin"}, []string{}))
}

func TestInGroupMatchesNameOrID(t *testing.T) {
	sess := &auth.Session{Groups: []identity.Group{
		{ID: "9f3c", DisplayName: "Admins"},
		{ID: "77aa", DisplayName: ""},
	}}

	require.True(t, sess.InGroup("admins"))
	require.True(t, sess.InGroup("9F3C"))
	require.True(t, sess.InGroup("77aa"))
	require.False(t, sess.InGroup("teachers"))

	var nilSess *auth.Session
	require.False(t, nilSess.InGroup("admins"))
}

func TestDisplayRole(t *testing.T) {
	admin := &auth.Session{Groups: []identity.Group{{ID: "1", DisplayName: "Admins"}}}
	require.Equal(t, "admin", admin.DisplayRole())

	teacher := &auth.Session{Groups: []identity.Group{{ID: "2", DisplayName: "Teachers"}}}
	require.Equal(t, "teacher", teacher.DisplayRole())

	student := &auth.Session{Groups: []identity.Group{{ID: "3", DisplayName: "Students"}}}
	require.Equal(t, "student", student.DisplayRole())

	nobody := &auth.Session{}
	require.Equal(t, "user", nobody.DisplayRole())
}
