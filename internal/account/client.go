package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/botlens/botlens/internal/auth"
	"github.com/botlens/botlens/internal/config"
	"github.com/botlens/botlens/internal/logger"
	"github.com/botlens/botlens/internal/models"
	"github.com/botlens/botlens/internal/shared"
)

// ErrUnauthorized indicates the account API rejected the credentials on
// file; callers should pause instead of retrying.
var ErrUnauthorized = errors.New("account API rejected credentials")

// CredentialsSource supplies fresh credentials for authed calls.
type CredentialsSource interface {
	Current(ctx context.Context) (*auth.Credentials, error)
}

// Client fetches the user's own tracked bots from the authenticated
// account API.
type Client struct {
	http  *resty.Client
	cfg   config.AccountConfig
	creds CredentialsSource
}

// New creates an account client.
func New(cfg config.AccountConfig, creds CredentialsSource) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout()).
		SetRetryCount(cfg.MaxRetries).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})

	return &Client{http: httpClient, cfg: cfg, creds: creds}
}

// TrackedBots returns the user's bots with their current message totals.
// The payload shape has changed several times upstream, so the response is
// flattened recursively and fields are extracted tolerantly; items without
// an id or a message count are skipped.
func (c *Client) TrackedBots(ctx context.Context) ([]models.TrackedBot, error) {
	creds, err := c.creds.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+creds.BearerToken).
		SetHeader("Accept", "application/json, text/plain, */*").
		SetHeader("x-guest-userid", creds.GuestUserID)
	if c.cfg.AppID != "" {
		req.SetHeader("x-app-id", c.cfg.AppID)
	}

	resp, err := req.Get("/v2/users/characters?switch=T1")
	if err != nil {
		return nil, fmt.Errorf("account API request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode())
	}
	if resp.IsError() {
		return nil, fmt.Errorf("account API returned status %d", resp.StatusCode())
	}

	var payload interface{}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("account API returned invalid JSON: %w", err)
	}

	var items []map[string]interface{}
	flattenItems(payload, &items)

	bots := make([]models.TrackedBot, 0, len(items))
	seen := make(map[string]bool, len(items))
	skipped := 0
	for _, item := range items {
		bot, ok := parseTracked(item)
		if !ok {
			skipped++
			continue
		}
		if seen[bot.ID] {
			continue
		}
		seen[bot.ID] = true
		bots = append(bots, bot)
	}

	if skipped > 0 {
		logger.Debug("Tracked bots: skipped %d items without id or message count", skipped)
	}
	logger.Info("Fetched %d tracked bots", len(bots))
	return bots, nil
}

// flattenItems collects every object that looks like a bot record from an
// arbitrarily nested payload.
func flattenItems(obj interface{}, out *[]map[string]interface{}) {
	switch v := obj.(type) {
	case map[string]interface{}:
		for _, key := range []string{"name", "title", "characterName", "displayName"} {
			if _, ok := v[key]; ok {
				*out = append(*out, v)
				break
			}
		}
		for _, child := range v {
			flattenItems(child, out)
		}
	case []interface{}:
		for _, child := range v {
			flattenItems(child, out)
		}
	}
}

func parseTracked(item map[string]interface{}) (models.TrackedBot, bool) {
	id := firstString(item, "id", "character_id", "characterId", "uuid", "slug", "_id")
	if id == "" {
		return models.TrackedBot{}, false
	}

	total, ok := messageCount(item)
	if !ok {
		return models.TrackedBot{}, false
	}

	return models.TrackedBot{
		ID:          id,
		Name:        firstString(item, "name", "characterName", "displayName"),
		Title:       firstString(item, "title", "botTitle", "description"),
		NumMessages: total,
		CreatorID:   firstString(item, "creator_user_id", "creatorUserId"),
		CreatedAt:   firstString(item, "createdAt", "created_at"),
		AvatarURL:   firstString(item, "avatarUrl", "avatar_url"),
	}, true
}

func firstString(item map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := item[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// messageCount digs the total out of the flat keys first, then the nested
// spots older payloads used.
func messageCount(item map[string]interface{}) (int64, bool) {
	for _, k := range []string{"num_messages", "messageCount", "message_count", "messages", "numMessages"} {
		if v, ok := item[k]; ok && v != nil {
			return shared.CoerceInt(v)
		}
	}
	for _, path := range [][]string{
		{"stats", "messageCount"},
		{"stats", "messages"},
		{"usage", "messages"},
		{"metrics", "messages"},
	} {
		cur := interface{}(item)
		ok := true
		for _, p := range path {
			m, isMap := cur.(map[string]interface{})
			if !isMap {
				ok = false
				break
			}
			cur, ok = m[p], m[p] != nil
			if !ok {
				break
			}
		}
		if ok {
			return shared.CoerceInt(cur)
		}
	}
	return 0, false
}
