package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/aigw/simplychat/internal/chat"
	"github.com/aigw/simplychat/internal/infrastructure/redis"
)

// ErrNotFound is returned when no conversation is stored for a session.
var ErrNotFound = errors.New("conversation not found")

// Store keeps one conversation per session ID.
type Store interface {
	Load(ctx context.Context, sessionID string) (*chat.Conversation, error)
	Save(ctx context.Context, sessionID string, conv *chat.Conversation) error
}

type RedisStore struct {
	redisService *redis.Service
	ttl          time.Duration
}

func NewRedisStore(redisService *redis.Service, ttl time.Duration) *RedisStore {
	return &RedisStore{redisService: redisService, ttl: ttl}
}

func conversationKey(sessionID string) string {
	return "conversation:" + sessionID
}

func (rs *RedisStore) Load(ctx context.Context, sessionID string) (*chat.Conversation, error) {
	data, err := rs.redisService.Get(ctx, conversationKey(sessionID))
	if errors.Is(err, redis.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var conv chat.Conversation
	if err := json.Unmarshal([]byte(data), &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (rs *RedisStore) Save(ctx context.Context, sessionID string, conv *chat.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return rs.redisService.Set(ctx, conversationKey(sessionID), string(data), rs.ttl)
}

type memoryEntry struct {
	messages  []chat.Message
	expiresAt time.Time
}

// MemoryStore keeps conversations in process. Entries expire after ttl of
// inactivity and are dropped lazily on access or by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (ms *MemoryStore) Load(ctx context.Context, sessionID string) (*chat.Conversation, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, ok := ms.entries[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if ms.now().After(entry.expiresAt) {
		delete(ms.entries, sessionID)
		return nil, ErrNotFound
	}

	conv := &chat.Conversation{Messages: make([]chat.Message, len(entry.messages))}
	copy(conv.Messages, entry.messages)
	return conv, nil
}

func (ms *MemoryStore) Save(ctx context.Context, sessionID string, conv *chat.Conversation) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.entries[sessionID] = memoryEntry{
		messages:  conv.Snapshot(),
		expiresAt: ms.now().Add(ms.ttl),
	}
	return nil
}

// Sweep removes expired entries and returns how many were dropped.
func (ms *MemoryStore) Sweep() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	removed := 0
	for id, entry := range ms.entries {
		if now.After(entry.expiresAt) {
			delete(ms.entries, id)
			removed++
		}
	}
	return removed
}
