package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"payuni-gateway/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

const resultTokenTTL = 300 * time.Second

// ResultTokenCache implements ports.ResultTokenCache (C5): a short-TTL,
// single-use mapping from an opaque token to a browser-return result
// snapshot. Grounded on IdempotencyCache's Get/Set-with-TTL shape and
// NonceStore's single-use idiom, generalized from SetNX to GETDEL so Take
// is a single atomic round trip instead of a read-then-delete race.
type ResultTokenCache struct {
	client *goredis.Client
	prefix string
}

// NewResultTokenCache creates a new Redis-backed result token cache.
func NewResultTokenCache(client *goredis.Client) *ResultTokenCache {
	return &ResultTokenCache{client: client, prefix: "result_token:"}
}

// Put stores a snapshot under a freshly generated token with a 300s TTL.
func (c *ResultTokenCache) Put(ctx context.Context, snapshot *domain.ResultSnapshot) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generate result token: %w", err)
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal result snapshot: %w", err)
	}

	if err := c.client.Set(ctx, c.prefix+token, payload, resultTokenTTL).Err(); err != nil {
		return "", fmt.Errorf("redis result token set: %w", err)
	}

	return token, nil
}

// Take atomically retrieves and deletes the snapshot for a token, so a
// second call for the same token always observes nil. Returns nil, nil if
// the token does not exist or was already consumed.
func (c *ResultTokenCache) Take(ctx context.Context, token string) (*domain.ResultSnapshot, error) {
	val, err := c.client.GetDel(ctx, c.prefix+token).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis result token take: %w", err)
	}

	var snapshot domain.ResultSnapshot
	if err := json.Unmarshal(val, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal result snapshot: %w", err)
	}
	return &snapshot, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
