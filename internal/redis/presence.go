package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"github.com/redis/go-redis/v9"
)

// Store keeps connection and presence info in Redis so every instance sees it.
// Keys used:
// - <prefix>:conn:<userID>: set of connection ids
// - <prefix>:presence:<userID> -> json {status,last_seen}
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type presenceRecord struct {
	Status   string `json:"status"`
	LastSeen int64  `json:"last_seen"`
}

func NewStore(r *redis.Client, prefix string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Store{client: r, prefix: prefix, ttl: ttl}
}

func (s *Store) TTL() time.Duration { return s.ttl }

func (s *Store) connKey(userID string) string { return fmt.Sprintf("%s:conn:%s", s.prefix, userID) }
func (s *Store) presenceKey(userID string) string {
	return fmt.Sprintf("%s:presence:%s", s.prefix, userID)
}

// AddConnection records connID for userID and marks the user online.
func (s *Store) AddConnection(ctx context.Context, userID, connID string) error {
	pb, err := json.Marshal(presenceRecord{Status: models.PresenceOnline, LastSeen: time.Now().Unix()})
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, s.connKey(userID), connID)
		p.Expire(ctx, s.connKey(userID), s.ttl)
		p.Set(ctx, s.presenceKey(userID), pb, s.ttl)
		return nil
	})
	return err
}

// Refresh extends the TTL of a connected user's keys.
func (s *Store) Refresh(ctx context.Context, userID string) error {
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Expire(ctx, s.connKey(userID), s.ttl)
		p.Expire(ctx, s.presenceKey(userID), s.ttl)
		return nil
	})
	return err
}

// RemoveConnection forgets connID; the user goes offline with its last
// connection.
func (s *Store) RemoveConnection(ctx context.Context, userID, connID string) error {
	key := s.connKey(userID)
	if err := s.client.SRem(ctx, key, connID).Err(); err != nil {
		return err
	}
	cnt, err := s.client.SCard(ctx, key).Result()
	if err != nil {
		return err
	}
	if cnt > 0 {
		return nil
	}
	pb, err := json.Marshal(presenceRecord{Status: models.PresenceOffline, LastSeen: time.Now().Unix()})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.presenceKey(userID), pb, 0).Err()
}

// GetPresence reports the user's status. Unknown users are offline.
func (s *Store) GetPresence(ctx context.Context, userID string) (*models.Presence, error) {
	out := &models.Presence{UserID: userID, Status: models.PresenceOffline}

	b, err := s.client.Get(ctx, s.presenceKey(userID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return out, nil
	case err != nil:
		return nil, err
	}
	var rec presenceRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	cnt, err := s.client.SCard(ctx, s.connKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	out.LastSeen = rec.LastSeen
	out.Connections = cnt
	if rec.Status == models.PresenceOnline && cnt > 0 {
		out.Status = models.PresenceOnline
	}
	return out, nil
}
