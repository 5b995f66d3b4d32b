// Package cache adapts redis/go-redis to the two external-store
// contracts the scheduling core accepts optionally: a GA fitness cache
// (internal/ga.FitnessCache) and the session/progress store from
// SPEC_FULL.md 4.12. Neither the GA Optimizer nor the Engine Orchestrator
// depends on Redis being reachable - a cache miss just re-evaluates, and
// RetrieveBest returning nil is a normal, expected outcome.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/schoolforge/timetable-engine/internal/domain"
	"github.com/schoolforge/timetable-engine/internal/ga"
	"github.com/schoolforge/timetable-engine/pkg/config"
)

// NewRedis returns a configured Redis client, failing fast with a
// ping so misconfiguration surfaces at startup rather than on the
// first request.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// FitnessCache implements internal/ga.FitnessCache on top of Redis, so
// fitness scores for a structural hash survive across separate
// Generate calls (and separate processes) instead of resetting every
// Evolve run the way the in-memory default does.
type FitnessCache struct {
	client  *redis.Client
	ttl     time.Duration
	keySpan string
}

var _ ga.FitnessCache = (*FitnessCache)(nil)

// NewFitnessCache builds a Redis-backed FitnessCache. keySpan namespaces
// keys so unrelated callers sharing one Redis instance don't collide
// (e.g. one per SchoolID/AcademicYearID pair).
func NewFitnessCache(client *redis.Client, ttl time.Duration, keySpan string) *FitnessCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &FitnessCache{client: client, ttl: ttl, keySpan: keySpan}
}

func (c *FitnessCache) Get(hash uint64) (float64, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := c.client.Get(ctx, c.key(hash)).Result()
	if err != nil {
		return 0, false
	}
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return score, true
}

func (c *FitnessCache) Put(hash uint64, score float64) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_ = c.client.Set(ctx, c.key(hash), strconv.FormatFloat(score, 'f', -1, 64), c.ttl).Err()
}

func (c *FitnessCache) key(hash uint64) string {
	return fmt.Sprintf("fitness:%s:%d", c.keySpan, hash)
}

// SessionStore implements SPEC_FULL.md 4.12's session/progress
// contract: Store records a GA run's best Timetable under a session ID
// (the engine calls it once, after evolution ends); RetrieveBest
// returns the most recently stored one.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore builds a Redis-backed SessionStore.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionStore{client: client, ttl: ttl}
}

type sessionRecord struct {
	Generation int              `json:"generation"`
	Fitness    float64          `json:"fitness"`
	Timetable  domain.Timetable `json:"timetable"`
}

// Store saves the best Timetable found at a given GA generation under
// sessionID, overwriting any earlier record for that session.
func (s *SessionStore) Store(ctx context.Context, sessionID string, generation int, fitness float64, t *domain.Timetable) error {
	record := sessionRecord{Generation: generation, Fitness: fitness, Timetable: *t}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(sessionID), payload, s.ttl).Err()
}

// RetrieveBest returns the last Timetable stored for sessionID, or nil
// if nothing has been stored yet (an expected state, not an error).
func (s *SessionStore) RetrieveBest(ctx context.Context, sessionID string) (*domain.Timetable, error) {
	payload, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record sessionRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, err
	}
	return &record.Timetable, nil
}

func (s *SessionStore) key(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}
