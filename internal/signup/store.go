package signup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/talentgate/internal/clock"
	"github.com/smallbiznis/talentgate/internal/signup/domain"
)

const DefaultPendingTTL = time.Hour

var ErrMissingTabID = errors.New("tab_id_required")

// Stores hands out the pending store of one browser tab.
type Stores interface {
	ForTab(tabID string) (domain.Store, error)
}

// MemoryStore keeps the staged data of a single tab in process.
type MemoryStore struct {
	mu      sync.Mutex
	pending *domain.Pending
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, data domain.PendingSignupData) error {
	pending, err := domain.Stage(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Discard()
	}
	s.pending = pending
	return nil
}

func (s *MemoryStore) Load(context.Context) (*domain.Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil, domain.ErrNoPendingSignup
	}
	return s.pending, nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Discard()
		s.pending = nil
	}
	return nil
}

// memoryStores holds one entry per tab with staged data. Entries leave the
// map on Clear or once older than the TTL.
type memoryStores struct {
	mu    sync.Mutex
	clock clock.Clock
	ttl   time.Duration
	tabs  map[string]*memoryEntry
}

type memoryEntry struct {
	pending  *domain.Pending
	stagedAt time.Time
}

func NewMemoryStores(clk clock.Clock, ttl time.Duration) Stores {
	if clk == nil {
		clk = clock.System{}
	}
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &memoryStores{clock: clk, ttl: ttl, tabs: make(map[string]*memoryEntry)}
}

func (m *memoryStores) ForTab(tabID string) (domain.Store, error) {
	tabID = strings.TrimSpace(tabID)
	if tabID == "" {
		return nil, ErrMissingTabID
	}
	return &memoryTab{stores: m, tabID: tabID}, nil
}

// Len reports the tabs currently holding staged data.
func (m *memoryStores) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tabs)
}

// sweep drops expired entries. Callers hold mu.
func (m *memoryStores) sweep(now time.Time) {
	for tabID, entry := range m.tabs {
		if now.Sub(entry.stagedAt) >= m.ttl {
			entry.pending.Discard()
			delete(m.tabs, tabID)
		}
	}
}

type memoryTab struct {
	stores *memoryStores
	tabID  string
}

func (t *memoryTab) Save(_ context.Context, data domain.PendingSignupData) error {
	pending, err := domain.Stage(data)
	if err != nil {
		return err
	}
	m := t.stores
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	m.sweep(now)
	if prev, ok := m.tabs[t.tabID]; ok {
		prev.pending.Discard()
	}
	m.tabs[t.tabID] = &memoryEntry{pending: pending, stagedAt: now}
	return nil
}

func (t *memoryTab) Load(context.Context) (*domain.Pending, error) {
	m := t.stores
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.tabs[t.tabID]
	if !ok {
		return nil, domain.ErrNoPendingSignup
	}
	if m.clock.Now().Sub(entry.stagedAt) >= m.ttl {
		entry.pending.Discard()
		delete(m.tabs, t.tabID)
		return nil, domain.ErrNoPendingSignup
	}
	return entry.pending, nil
}

func (t *memoryTab) Clear(context.Context) error {
	m := t.stores
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.tabs[t.tabID]; ok {
		entry.pending.Discard()
		delete(m.tabs, t.tabID)
	}
	return nil
}

// RedisStore keeps staged data under signup:<tab>:pendingSignup with a TTL.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, tabID string, ttl time.Duration) (*RedisStore, error) {
	tabID = strings.TrimSpace(tabID)
	if tabID == "" {
		return nil, ErrMissingTabID
	}
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &RedisStore{
		client: client,
		key:    fmt.Sprintf("signup:%s:%s", tabID, domain.PendingSignupKey),
		ttl:    ttl,
	}, nil
}

func (s *RedisStore) Save(ctx context.Context, data domain.PendingSignupData) error {
	if err := data.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, raw, s.ttl).Err()
}

// Load deletes the key as it reads it, so the record is handed out once.
func (s *RedisStore) Load(ctx context.Context) (*domain.Pending, error) {
	raw, err := s.client.GetDel(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNoPendingSignup
	}
	if err != nil {
		return nil, err
	}
	var data domain.PendingSignupData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPendingData, err)
	}
	return domain.Stage(data)
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

type redisStores struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStores(client *redis.Client, ttl time.Duration) Stores {
	return &redisStores{client: client, ttl: ttl}
}

func (r *redisStores) ForTab(tabID string) (domain.Store, error) {
	return NewRedisStore(r.client, tabID, r.ttl)
}
