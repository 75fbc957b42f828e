package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quartermaster-am/quartermaster/internal/identity"
)

// attempt records one provider call for chain-order assertions.
type attempt struct {
	mode   string
	scopes []string
}

type scriptedProvider struct {
	attempts    []attempt
	silent      map[string]error
	interactive map[string]error
	result      *identity.TokenResult
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{
		silent:      make(map[string]error),
		interactive: make(map[string]error),
		result:      &identity.TokenResult{AccessToken: "granted"},
	}
}

func scopeKey(scopes []string) string {
	if len(scopes) == 0 {
		return ""
	}
	return scopes[0]
}

func (p *scriptedProvider) AcquireSilent(ctx context.Context, accountID string, scopes []string) (*identity.TokenResult, error) {
	p.attempts = append(p.attempts, attempt{mode: "silent", scopes: scopes})
	if err := p.silent[scopeKey(scopes)]; err != nil {
		return nil, err
	}
	return p.result, nil
}

func (p *scriptedProvider) AcquireInteractive(ctx context.Context, accountID string, scopes []string) (*identity.TokenResult, error) {
	p.attempts = append(p.attempts, attempt{mode: "interactive", scopes: scopes})
	if err := p.interactive[scopeKey(scopes)]; err != nil {
		return nil, err
	}
	return p.result, nil
}

func testScopes() identity.Scopes {
	return identity.BuildScopes("app-1", []string{"Asset.Manage"})
}

const (
	primaryScope   = "api://app-1/Asset.Manage"
	secondaryScope = "app-1/.default"
)

func TestAcquireNoAccountShortCircuits(t *testing.T) {
	provider := newScriptedProvider()
	acq := identity.NewAcquirer(provider, testScopes(), nil)

	res, err := acq.Acquire(context.Background(), "", false)
	require.NoError(t, err)
	require.Nil(t, res)
	require.Empty(t, provider.attempts)
}

func TestAcquireNoScopesShortCircuitsBothModes(t *testing.T) {
	provider := newScriptedProvider()
	acq := identity.NewAcquirer(provider, identity.Scopes{}, nil)

	for _, force := range []bool{false, true} {
		res, err := acq.Acquire(context.Background(), "acct", force)
		require.NoError(t, err)
		require.Nil(t, res)
	}
	require.Empty(t, provider.attempts, "missing scope config must never reach the network")
}

func TestAcquireSilentSuccessStopsChain(t *testing.T) {
	provider := newScriptedProvider()
	acq := identity.NewAcquirer(provider, testScopes(), nil)

	res, err := acq.Acquire(context.Background(), "acct", false)
	require.NoError(t, err)
	require.Equal(t, "granted", res.AccessToken)
	require.Equal(t, []attempt{{mode: "silent", scopes: []string{primaryScope}}}, provider.attempts)
}

func TestAcquireInteractionRequiredGoesInteractive(t *testing.T) {
	provider := newScriptedProvider()
	provider.silent[primaryScope] = identity.ErrInteractionRequired
	acq := identity.NewAcquirer(provider, testScopes(), nil)

	res, err := acq.Acquire(context.Background(), "acct", false)
	require.NoError(t, err)
	require.Equal(t, "granted", res.AccessToken)
	require.Equal(t, []attempt{
		{mode: "silent", scopes: []string{primaryScope}},
		{mode: "interactive", scopes: []string{primaryScope}},
	}, provider.attempts)
}

func TestAcquireInteractiveFailureDoesNotFallThrough(t *testing.T) {
	provider := newScriptedProvider()
	provider.silent[primaryScope] = identity.ErrInteractionRequired
	provider.interactive[primaryScope] = errors.New("prompt dismissed")
	acq := identity.NewAcquirer(provider, testScopes(), nil)

	// An interaction-required silent failure escalates to interactive;
	// when that also fails, the secondary set is not tried.
	_, err := acq.Acquire(context.Background(), "acct", false)
	require.Error(t, err)
	require.Len(t, provider.attempts, 2)
}

func TestAcquireOtherFailureFallsBackToSecondary(t *testing.T) {
	provider := newScriptedProvider()
	provider.silent[primaryScope] = errors.New("scope rejected")
	acq := identity.NewAcquirer(provider, testScopes(), nil)

	res, err := acq.Acquire(context.Background(), "acct", false)
	require.NoError(t, err)
	require.Equal(t, "granted", res.AccessToken)
	require.Equal(t, []attempt{
		{mode: "silent", scopes: []string{primaryScope}},
		{mode: "silent", scopes: []string{secondaryScope}},
	}, provider.attempts)
}

func TestAcquireSecondaryInteractionRequired(t *testing.T) {
	provider := newScriptedProvider()
	provider.silent[primaryScope] = errors.New("scope rejected")
	provider.silent[secondaryScope] = identity.ErrConsentRequired
	acq := identity.NewAcquirer(provider, testScopes(), nil)

	res, err := acq.Acquire(context.Background(), "acct", false)
	require.NoError(t, err)
	require.Equal(t, "granted", res.AccessToken)
	require.Equal(t, []attempt{
		{mode: "silent", scopes: []string{primaryScope}},
		{mode: "silent", scopes: []string{secondaryScope}},
		{mode: "interactive", scopes: []string{secondaryScope}},
	}, provider.attempts)
}

func TestAcquireExhaustedChainJoinsErrors(t *testing.T) {
	provider := newScriptedProvider()
	provider.silent[primaryScope] = errors.New("primary down")
	provider.silent[secondaryScope] = identity.ErrInteractionRequired
	provider.interactive[secondaryScope] = errors.New("prompt dismissed")
	acq := identity.NewAcquirer(provider, testScopes(), nil)

	_, err := acq.Acquire(context.Background(), "acct", false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "primary down")
	require.Contains(t, err.Error(), "prompt dismissed")
}

func TestAcquireForceInteractiveSkipsSilent(t *testing.T) {
	provider := newScriptedProvider()
	acq := identity.NewAcquirer(provider, testScopes(), nil)

	res, err := acq.Acquire(context.Background(), "acct", true)
	require.NoError(t, err)
	require.Equal(t, "granted", res.AccessToken)
	require.Equal(t, []attempt{{mode: "interactive", scopes: []string{primaryScope}}}, provider.attempts)
}
