package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coderoom/internal/model"

	"github.com/redis/go-redis/v9"
)

// UserCache handles Redis operations for display profiles
type UserCache interface {
	SetProfile(ctx context.Context, profile *model.UserProfile) error
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
}

type userCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewUserCache creates a new profile cache
func NewUserCache(client *redis.Client, ttl time.Duration) UserCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &userCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *userCache) key(userID string) string {
	return fmt.Sprintf("user:%s:profile", userID)
}

func (c *userCache) SetProfile(ctx context.Context, profile *model.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(profile.ID), data, c.ttl).Err()
}

// GetProfile returns nil, nil on a cache miss
func (c *userCache) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	data, err := c.client.Get(ctx, c.key(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var profile model.UserProfile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
