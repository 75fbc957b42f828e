package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// acquisitionMode selects between cached/refresh acquisition and a visible
// prompt.
type acquisitionMode int

const (
	modeSilent acquisitionMode = iota
	modeInteractive
)

func (m acquisitionMode) String() string {
	if m == modeInteractive {
		return "interactive"
	}
	return "silent"
}

// Acquirer resolves an access token for the API audience by walking an
// ordered list of (scope set, mode) attempts: silent with the primary set,
// interactive on consent failures, then the same pair with the secondary
// ".default" set. An exhausted chain reports the joined failures; callers
// treat any failure as "operate without a bearer token" rather than fatal.
type Acquirer struct {
	provider Provider
	scopes   Scopes
	logger   *slog.Logger
	warnOnce sync.Once
}

// NewAcquirer constructs an Acquirer.
func NewAcquirer(provider Provider, scopes Scopes, logger *slog.Logger) *Acquirer {
	return &Acquirer{provider: provider, scopes: scopes, logger: logger}
}

// Scopes exposes the configured scope sets.
func (a *Acquirer) Scopes() Scopes {
	return a.scopes
}

// Acquire walks the fallback chain for the account. With no signed-in
// account or no configured API scopes it short-circuits to (nil, nil)
// without touching the network; that is a configuration guard, not a retry.
func (a *Acquirer) Acquire(ctx context.Context, accountID string, forceInteractive bool) (*TokenResult, error) {
	if accountID == "" {
		return nil, nil
	}
	if !a.scopes.HasAPIScopes() {
		a.warnOnce.Do(func() {
			if a.logger != nil {
				a.logger.Warn("api scopes are not configured, operating without api tokens; set API_APP_ID and API_SCOPES")
			}
		})
		return nil, nil
	}

	primary := a.scopes.Primary
	if len(primary) == 0 {
		primary = a.scopes.Secondary
	}

	if forceInteractive {
		res, err := a.attempt(ctx, accountID, primary, modeInteractive)
		if err != nil {
			return nil, err
		}
		return res, nil
	}

	res, silentErr := a.attempt(ctx, accountID, primary, modeSilent)
	if silentErr == nil {
		return res, nil
	}

	if IsInteractionRequired(silentErr) {
		res, err := a.attempt(ctx, accountID, primary, modeInteractive)
		if err == nil {
			return res, nil
		}
		return nil, errors.Join(silentErr, err)
	}

	if len(a.scopes.Secondary) == 0 {
		return nil, silentErr
	}

	res, secondaryErr := a.attempt(ctx, accountID, a.scopes.Secondary, modeSilent)
	if secondaryErr == nil {
		return res, nil
	}

	if IsInteractionRequired(secondaryErr) {
		res, err := a.attempt(ctx, accountID, a.scopes.Secondary, modeInteractive)
		if err == nil {
			return res, nil
		}
		return nil, errors.Join(silentErr, secondaryErr, err)
	}

	return nil, errors.Join(silentErr, secondaryErr)
}

func (a *Acquirer) attempt(ctx context.Context, accountID string, scopes []string, mode acquisitionMode) (*TokenResult, error) {
	var (
		res *TokenResult
		err error
	)
	if mode == modeInteractive {
		res, err = a.provider.AcquireInteractive(ctx, accountID, scopes)
	} else {
		res, err = a.provider.AcquireSilent(ctx, accountID, scopes)
	}
	if a.logger != nil {
		if err != nil {
			a.logger.Warn("token acquisition attempt failed",
				slog.String("mode", mode.String()),
				slog.Any("scopes", scopes),
				slog.Any("error", err))
		} else {
			a.logger.Debug("token acquired",
				slog.String("mode", mode.String()),
				slog.Any("scopes", scopes))
		}
	}
	return res, err
}
