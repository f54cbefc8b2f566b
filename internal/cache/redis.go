// Package cache holds a passive redis mirror of the donations collection. It
// is a read replica only: the repository refreshes it after successful list
// reads and falls back to it when the backing store is unreachable. Nothing
// here is authoritative.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bintangula23/kindbox/pkg/models"
)

const (
	donationsKey = "kindbox:donations"
	mirrorTTL    = 24 * time.Hour
)

// Connect initializes and pings a redis client.
func Connect(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return rdb, nil
}

// Mirror stores donation snapshots in redis.
type Mirror struct {
	rdb *redis.Client
}

// NewMirror creates a mirror on an established client.
func NewMirror(rdb *redis.Client) *Mirror {
	return &Mirror{rdb: rdb}
}

// StoreAll replaces the mirrored snapshot. Failures are logged and swallowed;
// a stale or missing mirror must never fail a live read.
func (m *Mirror) StoreAll(ctx context.Context, donations []models.Donation) {
	data, err := json.Marshal(donations)
	if err != nil {
		log.Printf("mirror encode: %v", err)
		return
	}
	if err := m.rdb.Set(ctx, donationsKey, data, mirrorTTL).Err(); err != nil {
		log.Printf("mirror store: %v", err)
	}
}

// Fetch returns the last mirrored snapshot, if any.
func (m *Mirror) Fetch(ctx context.Context) ([]models.Donation, bool) {
	data, err := m.rdb.Get(ctx, donationsKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("mirror fetch: %v", err)
		}
		return nil, false
	}

	var donations []models.Donation
	if err := json.Unmarshal(data, &donations); err != nil {
		log.Printf("mirror decode: %v", err)
		return nil, false
	}
	return donations, true
}
