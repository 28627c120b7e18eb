package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// RevokedTokens records logged-out session tokens until their natural
// expiry, so a stolen cookie stops working the moment its owner logs out.
type RevokedTokens struct {
	client *redisv9.Client
}

func NewRevokedTokens(client *redisv9.Client) *RevokedTokens {
	return &RevokedTokens{client: client}
}

func (c *RevokedTokens) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, c.key(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set revoked token failed: %w", err)
	}
	return nil
}

func (c *RevokedTokens) IsRevoked(ctx context.Context, token string) (bool, error) {
	_, err := c.client.Get(ctx, c.key(token)).Result()
	if err == redisv9.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get revoked token failed: %w", err)
	}
	return true, nil
}

func (c *RevokedTokens) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth:revoked:" + hex.EncodeToString(sum[:])
}
