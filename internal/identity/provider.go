package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// TokenResult is a successfully acquired token for one scope set.
type TokenResult struct {
	AccessToken string
	IDToken     string
	ExpiresAt   time.Time
	Scopes      []string
}

var (
	// ErrInteractionRequired means the provider needs a visible prompt
	// before it will issue a token for the requested scopes.
	ErrInteractionRequired = errors.New("identity: interaction required")
	// ErrConsentRequired means the user has not granted the requested
	// scopes yet.
	ErrConsentRequired = errors.New("identity: consent required")
	// ErrNoAccount means no signed-in account is available.
	ErrNoAccount = errors.New("identity: no signed-in account")
)

// IsInteractionRequired reports whether the failure can be recovered by
// switching from silent to interactive acquisition.
func IsInteractionRequired(err error) bool {
	return errors.Is(err, ErrInteractionRequired) || errors.Is(err, ErrConsentRequired)
}

// Provider acquires tokens for an account and scope set.
type Provider interface {
	AcquireSilent(ctx context.Context, accountID string, scopes []string) (*TokenResult, error)
	AcquireInteractive(ctx context.Context, accountID string, scopes []string) (*TokenResult, error)
}

// Client talks to the provider's OAuth2 endpoints. Silent acquisition is a
// cache hit or refresh-token grant; interactive acquisition is a browser
// redirect, satisfied in-line only during the sign-in callback where the
// exchanged authorization code is attached to the request context.
type Client struct {
	http         *http.Client
	logger       *slog.Logger
	cache        *TokenCache
	clientID     string
	clientSecret string
	authority    string
	redirectURI  string
	refreshGroup singleflight.Group
}

// ClientConfig collects the registration settings for Client.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	Authority    string
	RedirectURI  string
}

// NewClient constructs a provider client.
func NewClient(cfg ClientConfig, cache *TokenCache, logger *slog.Logger) *Client {
	return &Client{
		http:         &http.Client{Timeout: 15 * time.Second},
		logger:       logger,
		cache:        cache,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		authority:    strings.TrimRight(cfg.Authority, "/"),
		redirectURI:  cfg.RedirectURI,
	}
}

// AuthCodeURL builds the authorize-endpoint redirect for the given scopes.
// prompt may be empty, "login", or "consent" (forced consent screen).
func (c *Client) AuthCodeURL(state, nonce string, scopes []string, prompt string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", c.redirectURI)
	q.Set("response_mode", "query")
	q.Set("scope", strings.Join(append([]string{"openid"}, scopes...), " "))
	q.Set("state", state)
	q.Set("nonce", nonce)
	if prompt != "" {
		q.Set("prompt", prompt)
	}
	return c.authority + "/oauth2/v2.0/authorize?" + q.Encode()
}

// EndSessionURL builds the provider sign-out redirect.
func (c *Client) EndSessionURL(postLogoutRedirect string) string {
	q := url.Values{}
	if postLogoutRedirect != "" {
		q.Set("post_logout_redirect_uri", postLogoutRedirect)
	}
	return c.authority + "/oauth2/v2.0/logout?" + q.Encode()
}

// Exchange redeems an authorization code and caches the result under the
// account's scope-set key.
func (c *Client) Exchange(ctx context.Context, code string, scopes []string) (*TokenResult, string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)
	form.Set("scope", strings.Join(scopes, " "))

	res, refresh, err := c.tokenGrant(ctx, form)
	if err != nil {
		return nil, "", err
	}

	accountID := ""
	if res.IDToken != "" {
		if claims, err := ParseClaims(res.IDToken); err == nil {
			accountID = claims.ObjectID
		}
	}
	if accountID != "" {
		c.store(ctx, accountID, res, refresh)
	}
	return res, accountID, nil
}

// AcquireSilent implements Provider using the cache and refresh grants.
// Concurrent refreshes for the same account and scope set collapse into one
// upstream call.
func (c *Client) AcquireSilent(ctx context.Context, accountID string, scopes []string) (*TokenResult, error) {
	if accountID == "" {
		return nil, ErrNoAccount
	}
	entry, err := c.cache.Get(ctx, accountID, scopes)
	if err != nil {
		return nil, fmt.Errorf("identity: token cache: %w", err)
	}
	if entry == nil {
		return nil, ErrInteractionRequired
	}
	if time.Until(entry.ExpiresAt) > time.Minute {
		return &TokenResult{AccessToken: entry.AccessToken, IDToken: entry.IDToken, ExpiresAt: entry.ExpiresAt, Scopes: entry.Scopes}, nil
	}
	if entry.RefreshToken == "" {
		return nil, ErrInteractionRequired
	}

	key := accountID + ":" + scopeKey(scopes)
	v, err, _ := c.refreshGroup.Do(key, func() (any, error) {
		form := url.Values{}
		form.Set("grant_type", "refresh_token")
		form.Set("refresh_token", entry.RefreshToken)
		form.Set("scope", strings.Join(scopes, " "))
		res, refresh, err := c.tokenGrant(ctx, form)
		if err != nil {
			return nil, err
		}
		if refresh == "" {
			refresh = entry.RefreshToken
		}
		c.store(ctx, accountID, res, refresh)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TokenResult), nil
}

// AcquireInteractive implements Provider. Outside a sign-in callback there is
// no browser prompt to run, so the attempt fails with ErrInteractionRequired
// and the caller falls back per the acquisition chain.
func (c *Client) AcquireInteractive(ctx context.Context, accountID string, scopes []string) (*TokenResult, error) {
	if accountID == "" {
		return nil, ErrNoAccount
	}
	if res := exchangedTokenFromContext(ctx); res != nil && scopesCovered(res.Scopes, scopes) {
		return res, nil
	}
	return nil, ErrInteractionRequired
}

// PurgeAccount drops every cached token for the account.
func (c *Client) PurgeAccount(ctx context.Context, accountID string, scopeSets ...[]string) {
	if err := c.cache.Purge(ctx, accountID, scopeSets...); err != nil && c.logger != nil {
		c.logger.Warn("purge token cache", slog.String("account", accountID), slog.Any("error", err))
	}
}

func (c *Client) store(ctx context.Context, accountID string, res *TokenResult, refresh string) {
	entry := cacheEntry{
		AccessToken:  res.AccessToken,
		RefreshToken: refresh,
		IDToken:      res.IDToken,
		ExpiresAt:    res.ExpiresAt,
		Scopes:       res.Scopes,
	}
	// One grant can satisfy several scope sets (sign-in requests the
	// combined set), so index the entry under each granted audience.
	for _, scopes := range scopeSetsOf(res.Scopes) {
		if err := c.cache.Put(ctx, accountID, scopes, entry); err != nil && c.logger != nil {
			c.logger.Warn("store token cache", slog.String("account", accountID), slog.Any("error", err))
		}
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

type tokenError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (c *Client) tokenGrant(ctx context.Context, form url.Values) (*TokenResult, string, error) {
	form.Set("client_id", c.clientID)
	if c.clientSecret != "" {
		form.Set("client_secret", c.clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authority+"/oauth2/v2.0/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", fmt.Errorf("identity: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("identity: token endpoint: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", fmt.Errorf("identity: read token response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		var te tokenError
		_ = json.Unmarshal(body, &te)
		return nil, "", classifyTokenError(res.StatusCode, te)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, "", fmt.Errorf("identity: decode token response: %w", err)
	}

	result := &TokenResult{
		AccessToken: tr.AccessToken,
		IDToken:     tr.IDToken,
		ExpiresAt:   time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
		Scopes:      strings.Fields(tr.Scope),
	}
	return result, tr.RefreshToken, nil
}

// classifyTokenError maps provider error codes onto the sentinel errors the
// acquisition chain branches on.
func classifyTokenError(status int, te tokenError) error {
	switch te.Code {
	case "interaction_required", "login_required":
		return fmt.Errorf("%w: %s", ErrInteractionRequired, te.Description)
	case "consent_required":
		return fmt.Errorf("%w: %s", ErrConsentRequired, te.Description)
	case "invalid_grant":
		if strings.Contains(te.Description, "AADSTS65001") {
			return fmt.Errorf("%w: %s", ErrConsentRequired, te.Description)
		}
	}
	if te.Code != "" {
		return fmt.Errorf("identity: token grant failed: %s: %s", te.Code, te.Description)
	}
	return fmt.Errorf("identity: token grant failed with status %d", status)
}

// scopeSetsOf splits a granted scope list into per-audience sets so a
// combined grant indexes under both the graph and API keys.
func scopeSetsOf(granted []string) [][]string {
	byAudience := map[string][]string{}
	order := []string{}
	for _, scope := range granted {
		if scope == "openid" || scope == "offline_access" {
			continue
		}
		aud := "graph"
		if strings.HasPrefix(scope, "api://") || strings.HasSuffix(scope, "/.default") {
			aud = scope[:strings.LastIndex(scope, "/")]
		}
		if _, ok := byAudience[aud]; !ok {
			order = append(order, aud)
		}
		byAudience[aud] = append(byAudience[aud], scope)
	}
	sets := make([][]string, 0, len(order)+1)
	for _, aud := range order {
		sets = append(sets, byAudience[aud])
	}
	if len(order) > 1 {
		sets = append(sets, granted)
	}
	return sets
}

func scopesCovered(granted, requested []string) bool {
	have := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		have[strings.ToLower(s)] = struct{}{}
	}
	for _, s := range requested {
		if _, ok := have[strings.ToLower(s)]; !ok {
			return false
		}
	}
	return true
}

type exchangedTokenKey struct{}

// ContextWithExchangedToken attaches a freshly exchanged token so interactive
// attempts inside the sign-in callback succeed without another prompt.
func ContextWithExchangedToken(ctx context.Context, res *TokenResult) context.Context {
	return context.WithValue(ctx, exchangedTokenKey{}, res)
}

func exchangedTokenFromContext(ctx context.Context) *TokenResult {
	res, _ := ctx.Value(exchangedTokenKey{}).(*TokenResult)
	return res
}
