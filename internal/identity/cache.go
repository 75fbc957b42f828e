package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// cacheEntry is the persisted form of an acquired token.
type cacheEntry struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scopes       []string  `json:"scopes"`
}

// TokenCache stores acquired tokens in Redis, keyed by account and scope set.
type TokenCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenCache constructs a TokenCache. Entries live for ttl regardless of
// token expiry so refresh tokens stay reachable between visits.
func NewTokenCache(client *redis.Client, ttl time.Duration) *TokenCache {
	return &TokenCache{client: client, ttl: ttl}
}

// Get loads the cache entry for an account and scope set, nil when absent.
func (c *TokenCache) Get(ctx context.Context, accountID string, scopes []string) (*cacheEntry, error) {
	data, err := c.client.Get(ctx, c.key(accountID, scopes)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Put stores a cache entry for an account and scope set.
func (c *TokenCache) Put(ctx context.Context, accountID string, scopes []string, entry cacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(accountID, scopes), data, c.ttl).Err()
}

// Purge removes every scope-set entry recorded for the account.
func (c *TokenCache) Purge(ctx context.Context, accountID string, scopeSets ...[]string) error {
	keys := make([]string, 0, len(scopeSets))
	for _, scopes := range scopeSets {
		keys = append(keys, c.key(accountID, scopes))
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *TokenCache) key(accountID string, scopes []string) string {
	return "token:" + accountID + ":" + scopeKey(scopes)
}

// scopeKey fingerprints a scope set independent of ordering.
func scopeKey(scopes []string) string {
	sorted := make([]string, len(scopes))
	for i, s := range scopes {
		sorted[i] = strings.ToLower(s)
	}
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, " ")))
	return hex.EncodeToString(sum[:8])
}
