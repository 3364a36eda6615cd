// Package store keeps run state for the lifetime of a session.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scenereel/api/internal/apperr"
	"github.com/scenereel/api/internal/model"
)

// RunStore persists run snapshots and the session → current run pointer
type RunStore interface {
	Save(ctx context.Context, run *model.Run) error
	Get(ctx context.Context, runID string) (*model.Run, error)
	Delete(ctx context.Context, runID string) error
	SessionRun(ctx context.Context, sessionID string) (string, error)
	SetSessionRun(ctx context.Context, sessionID, runID string) error
	ClearSessionRun(ctx context.Context, sessionID, runID string) error
}

// RedisRunStore stores runs as JSON with a TTL
type RedisRunStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisRunStore(redisClient *redis.Client, ttl time.Duration) *RedisRunStore {
	return &RedisRunStore{
		redis: redisClient,
		ttl:   ttl,
	}
}

func runKey(runID string) string {
	return fmt.Sprintf("run:%s", runID)
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s:run", sessionID)
}

func (s *RedisRunStore) Save(ctx context.Context, run *model.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, runKey(run.ID), data, s.ttl).Err()
}

func (s *RedisRunStore) Get(ctx context.Context, runID string) (*model.Run, error) {
	data, err := s.redis.Get(ctx, runKey(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.New(apperr.KindNotFound, "run not found")
		}
		return nil, err
	}

	var run model.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

func (s *RedisRunStore) Delete(ctx context.Context, runID string) error {
	return s.redis.Del(ctx, runKey(runID)).Err()
}

func (s *RedisRunStore) SessionRun(ctx context.Context, sessionID string) (string, error) {
	runID, err := s.redis.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return runID, err
}

func (s *RedisRunStore) SetSessionRun(ctx context.Context, sessionID, runID string) error {
	return s.redis.Set(ctx, sessionKey(sessionID), runID, s.ttl).Err()
}

// ClearSessionRun removes the pointer only while it still names runID
func (s *RedisRunStore) ClearSessionRun(ctx context.Context, sessionID, runID string) error {
	key := sessionKey(sessionID)
	return s.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if current != runID {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
}

// MemoryRunStore is a process-local RunStore. Entries never expire.
type MemoryRunStore struct {
	mu       sync.RWMutex
	runs     map[string][]byte
	sessions map[string]string
}

func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{
		runs:     make(map[string][]byte),
		sessions: make(map[string]string),
	}
}

func (s *MemoryRunStore) Save(ctx context.Context, run *model.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.runs[run.ID] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryRunStore) Get(ctx context.Context, runID string) (*model.Run, error) {
	s.mu.RLock()
	data, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "run not found")
	}

	var run model.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *MemoryRunStore) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	delete(s.runs, runID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryRunStore) SessionRun(ctx context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionID], nil
}

func (s *MemoryRunStore) SetSessionRun(ctx context.Context, sessionID, runID string) error {
	s.mu.Lock()
	s.sessions[sessionID] = runID
	s.mu.Unlock()
	return nil
}

func (s *MemoryRunStore) ClearSessionRun(ctx context.Context, sessionID, runID string) error {
	s.mu.Lock()
	if s.sessions[sessionID] == runID {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	return nil
}
