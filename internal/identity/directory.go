package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Profile is the directory record of a signed-in user.
type Profile struct {
	ID             string   `json:"id"`
	DisplayName    string   `json:"displayName"`
	GivenName      string   `json:"givenName"`
	Surname        string   `json:"surname"`
	Email          string   `json:"email"`
	JobTitle       string   `json:"jobTitle"`
	Department     string   `json:"department"`
	OfficeLocation string   `json:"officeLocation"`
	MobilePhone    string   `json:"mobilePhone"`
	BusinessPhones []string `json:"businessPhones"`
}

// Group is a directory group membership. DisplayName falls back to the
// stable ID when the read permission does not cover names.
type Group struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Bundle is the cached snapshot of everything the console reads from the
// directory for one account.
type Bundle struct {
	Profile   *Profile  `json:"profile,omitempty"`
	Groups    []Group   `json:"groups"`
	HasPhoto  bool      `json:"has_photo"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Directory fetches user info from the graph-like directory API. Every call
// is best-effort from the caller's point of view: a missing photo or a
// permission gap degrades to empty rather than failing sign-in.
type Directory struct {
	base     string
	http     *http.Client
	provider Provider
	logger   *slog.Logger
}

// NewDirectory constructs a Directory over the given base URL.
func NewDirectory(base string, provider Provider, logger *slog.Logger) *Directory {
	return &Directory{
		base:     strings.TrimRight(base, "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
		provider: provider,
		logger:   logger,
	}
}

// Profile fetches /me for the account.
func (d *Directory) Profile(ctx context.Context, accountID string) (*Profile, error) {
	body, err := d.get(ctx, accountID, "/me")
	if err != nil {
		return nil, err
	}
	var raw struct {
		ID                string   `json:"id"`
		DisplayName       string   `json:"displayName"`
		GivenName         string   `json:"givenName"`
		Surname           string   `json:"surname"`
		UserPrincipalName string   `json:"userPrincipalName"`
		Mail              string   `json:"mail"`
		JobTitle          string   `json:"jobTitle"`
		Department        string   `json:"department"`
		OfficeLocation    string   `json:"officeLocation"`
		MobilePhone       string   `json:"mobilePhone"`
		BusinessPhones    []string `json:"businessPhones"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("identity: decode profile: %w", err)
	}
	email := raw.UserPrincipalName
	if email == "" {
		email = raw.Mail
	}
	return &Profile{
		ID:             raw.ID,
		DisplayName:    raw.DisplayName,
		GivenName:      raw.GivenName,
		Surname:        raw.Surname,
		Email:          email,
		JobTitle:       raw.JobTitle,
		Department:     raw.Department,
		OfficeLocation: raw.OfficeLocation,
		MobilePhone:    raw.MobilePhone,
		BusinessPhones: raw.BusinessPhones,
	}, nil
}

// Photo fetches /me/photo/$value. A missing photo yields (nil, nil).
func (d *Directory) Photo(ctx context.Context, accountID string) ([]byte, error) {
	body, err := d.get(ctx, accountID, "/me/photo/$value")
	if err != nil {
		if errors.Is(err, errDirectoryNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return body, nil
}

// Groups fetches /me/memberOf, selecting display name and id.
func (d *Directory) Groups(ctx context.Context, accountID string) ([]Group, error) {
	body, err := d.get(ctx, accountID, "/me/memberOf?$select=displayName,id")
	if err != nil {
		return nil, err
	}
	var raw struct {
		Value []Group `json:"value"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("identity: decode groups: %w", err)
	}
	groups := raw.Value
	for i := range groups {
		if groups[i].DisplayName == "" {
			groups[i].DisplayName = groups[i].ID
		}
	}
	return groups, nil
}

var errDirectoryNotFound = errors.New("identity: directory resource not found")

func (d *Directory) get(ctx context.Context, accountID, path string) ([]byte, error) {
	token, err := d.provider.AcquireSilent(ctx, accountID, GraphScopes)
	if err != nil {
		return nil, fmt.Errorf("identity: directory token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.base+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	res, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: directory request: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return nil, errDirectoryNotFound
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity: directory returned status %d for %s", res.StatusCode, path)
	}
	return io.ReadAll(res.Body)
}

// DirectoryCache stores directory bundles in Redis and tracks which accounts
// the background refresh job should keep warm.
type DirectoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDirectoryCache constructs a DirectoryCache.
func NewDirectoryCache(client *redis.Client, ttl time.Duration) *DirectoryCache {
	return &DirectoryCache{client: client, ttl: ttl}
}

const trackedAccountsKey = "directory:accounts"

// Get loads the cached bundle for an account, nil when absent.
func (c *DirectoryCache) Get(ctx context.Context, accountID string) (*Bundle, error) {
	data, err := c.client.Get(ctx, c.key(accountID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

// Put stores a bundle and tracks the account for background refresh.
func (c *DirectoryCache) Put(ctx context.Context, accountID string, bundle Bundle) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key(accountID), data, c.ttl).Err(); err != nil {
		return err
	}
	return c.client.SAdd(ctx, trackedAccountsKey, accountID).Err()
}

// Forget drops the cached bundle and stops tracking the account.
func (c *DirectoryCache) Forget(ctx context.Context, accountID string) error {
	if err := c.client.Del(ctx, c.key(accountID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return c.client.SRem(ctx, trackedAccountsKey, accountID).Err()
}

// TrackedAccounts lists the accounts with warm bundles.
func (c *DirectoryCache) TrackedAccounts(ctx context.Context) ([]string, error) {
	return c.client.SMembers(ctx, trackedAccountsKey).Result()
}

func (c *DirectoryCache) key(accountID string) string {
	return "directory:bundle:" + accountID
}
