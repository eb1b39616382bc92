package mocks

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/perchnet/user-service/internal/core/domain/chat"
	"github.com/perchnet/user-service/internal/core/domain/follow"
	"github.com/perchnet/user-service/internal/core/domain/user"
	"github.com/perchnet/user-service/internal/core/ports"
)

// MemoryStore is an in-memory KeyedStore with expiry handling and pub/sub,
// used to exercise cache, rate-limit and presence semantics without Redis.
// Per-operation error fields let tests simulate a store outage.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]memoryEntry
	sets map[string]map[string]struct{}
	subs map[string][]*memorySubscription

	GetErr     error
	SetErr     error
	SetNXErr   error
	DelErr     error
	IncrErr    error
	ExpireErr  error
	TTLErr     error
	SAddErr    error
	SRemErr    error
	PublishErr error

	SetNXCalls int
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiration
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]memoryEntry),
		sets: make(map[string]map[string]struct{}),
		subs: make(map[string][]*memorySubscription),
	}
}

func (m *MemoryStore) live(key string) (memoryEntry, bool) {
	e, ok := m.data[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(m.data, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	e, ok := m.live(key)
	if !ok {
		return nil, ports.ErrKeyNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.data[key] = memoryEntry{value: append([]byte(nil), value...), expiresAt: expiry(ttl)}
	return nil
}

func (m *MemoryStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetNXCalls++
	if m.SetNXErr != nil {
		return false, m.SetNXErr
	}
	if _, ok := m.live(key); ok {
		return false, nil
	}
	m.data[key] = memoryEntry{value: append([]byte(nil), value...), expiresAt: expiry(ttl)}
	return true, nil
}

func (m *MemoryStore) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DelErr != nil {
		return m.DelErr
	}
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.IncrErr != nil {
		return 0, m.IncrErr
	}
	var n int64
	e, ok := m.live(key)
	if ok {
		parsed, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value at %s is not an integer", key)
		}
		n = parsed
	}
	n++
	m.data[key] = memoryEntry{value: []byte(strconv.FormatInt(n, 10)), expiresAt: e.expiresAt}
	return n, nil
}

func (m *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ExpireErr != nil {
		return m.ExpireErr
	}
	if e, ok := m.live(key); ok {
		e.expiresAt = expiry(ttl)
		m.data[key] = e
	}
	return nil
}

func (m *MemoryStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TTLErr != nil {
		return 0, m.TTLErr
	}
	e, ok := m.live(key)
	if !ok || e.expiresAt.IsZero() {
		return 0, nil
	}
	return time.Until(e.expiresAt), nil
}

func (m *MemoryStore) SAdd(ctx context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SAddErr != nil {
		return m.SAddErr
	}
	if m.sets[key] == nil {
		m.sets[key] = make(map[string]struct{})
	}
	m.sets[key][member] = struct{}{}
	return nil
}

func (m *MemoryStore) SRem(ctx context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SRemErr != nil {
		return m.SRemErr
	}
	delete(m.sets[key], member)
	return nil
}

func (m *MemoryStore) SIsMember(ctx context.Context, key, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sets[key][member]
	return ok, nil
}

func (m *MemoryStore) SMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	members := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		members = append(members, member)
	}
	return members, nil
}

func (m *MemoryStore) Publish(ctx context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	for _, sub := range m.subs[channel] {
		select {
		case sub.ch <- append([]byte(nil), payload...):
		default:
		}
	}
	return nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, channel string) (ports.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := &memorySubscription{ch: make(chan []byte, 64)}
	m.subs[channel] = append(m.subs[channel], sub)
	return sub, nil
}

type memorySubscription struct {
	ch     chan []byte
	closed sync.Once
}

func (s *memorySubscription) Messages() <-chan []byte { return s.ch }
func (s *memorySubscription) Close() error {
	s.closed.Do(func() { close(s.ch) })
	return nil
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

var _ ports.KeyedStore = (*MemoryStore)(nil)

// UserRepositoryMock is a lightweight mock for UserRepository
type UserRepositoryMock struct {
	CreateFn          func(ctx context.Context, u *user.User) error
	GetByIDFn         func(ctx context.Context, id int64) (*user.User, error)
	GetByUsernameFn   func(ctx context.Context, username string) (*user.User, error)
	GetByEmailFn      func(ctx context.Context, email string) (*user.User, error)
	GetIDByUsernameFn func(ctx context.Context, username string) (int64, error)
	UpdateFn          func(ctx context.Context, u *user.User) error
	SearchUsernamesFn func(ctx context.Context, query string, limit, offset int) ([]string, error)
}

func (m *UserRepositoryMock) Create(ctx context.Context, u *user.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, u)
	}
	return nil
}
func (m *UserRepositoryMock) GetByID(ctx context.Context, id int64) (*user.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, fmt.Errorf("not found")
}
func (m *UserRepositoryMock) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	if m.GetByUsernameFn != nil {
		return m.GetByUsernameFn(ctx, username)
	}
	return nil, fmt.Errorf("not found")
}
func (m *UserRepositoryMock) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	return nil, fmt.Errorf("not found")
}
func (m *UserRepositoryMock) GetIDByUsername(ctx context.Context, username string) (int64, error) {
	if m.GetIDByUsernameFn != nil {
		return m.GetIDByUsernameFn(ctx, username)
	}
	return 0, fmt.Errorf("not found")
}
func (m *UserRepositoryMock) Update(ctx context.Context, u *user.User) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, u)
	}
	return nil
}
func (m *UserRepositoryMock) SearchUsernames(ctx context.Context, query string, limit, offset int) ([]string, error) {
	if m.SearchUsernamesFn != nil {
		return m.SearchUsernamesFn(ctx, query, limit, offset)
	}
	return nil, nil
}

// FollowRepositoryMock is a lightweight mock for FollowRepository
type FollowRepositoryMock struct {
	CreateFn         func(ctx context.Context, userID, followerID int64) error
	DeleteFn         func(ctx context.Context, userID, followerID int64) error
	ExistsFn         func(ctx context.Context, userID, followerID int64) (bool, error)
	CountFollowersFn func(ctx context.Context, userID int64) (int, error)
	CountFollowingFn func(ctx context.Context, userID int64) (int, error)
}

func (m *FollowRepositoryMock) Create(ctx context.Context, userID, followerID int64) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, userID, followerID)
	}
	return nil
}
func (m *FollowRepositoryMock) Delete(ctx context.Context, userID, followerID int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, userID, followerID)
	}
	return nil
}
func (m *FollowRepositoryMock) Exists(ctx context.Context, userID, followerID int64) (bool, error) {
	if m.ExistsFn != nil {
		return m.ExistsFn(ctx, userID, followerID)
	}
	return false, nil
}
func (m *FollowRepositoryMock) CountFollowers(ctx context.Context, userID int64) (int, error) {
	if m.CountFollowersFn != nil {
		return m.CountFollowersFn(ctx, userID)
	}
	return 0, nil
}
func (m *FollowRepositoryMock) CountFollowing(ctx context.Context, userID int64) (int, error) {
	if m.CountFollowingFn != nil {
		return m.CountFollowingFn(ctx, userID)
	}
	return 0, nil
}

// PostClientMock is a lightweight mock for PostClient
type PostClientMock struct {
	PostsCountFn         func(ctx context.Context, userID int64) (int, error)
	UpdateProfileImageFn func(ctx context.Context, userID int64, imageURL string) error
}

func (m *PostClientMock) PostsCount(ctx context.Context, userID int64) (int, error) {
	if m.PostsCountFn != nil {
		return m.PostsCountFn(ctx, userID)
	}
	return 0, nil
}
func (m *PostClientMock) UpdateProfileImage(ctx context.Context, userID int64, imageURL string) error {
	if m.UpdateProfileImageFn != nil {
		return m.UpdateProfileImageFn(ctx, userID, imageURL)
	}
	return nil
}

// MediaResolverMock resolves image ids against a fixed base URL.
type MediaResolverMock struct{}

func (m *MediaResolverMock) ImageURL(imageID *int64) string {
	if imageID == nil {
		return ""
	}
	return fmt.Sprintf("http://media.test/images/%d", *imageID)
}

// EventPublisherMock records published events.
type EventPublisherMock struct {
	mu             sync.Mutex
	UserUpdated    []*user.UpdatedEvent
	FollowsCreated []*follow.CreatedEvent
	FollowsDeleted []*follow.DeletedEvent
	ChatsCreated   []*chat.CreatedEvent
	MessagesSent   []*chat.MessageSentEvent
	Err            error
}

func (m *EventPublisherMock) PublishUserUpdated(ctx context.Context, ev *user.UpdatedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UserUpdated = append(m.UserUpdated, ev)
	return m.Err
}
func (m *EventPublisherMock) PublishFollowCreated(ctx context.Context, ev *follow.CreatedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FollowsCreated = append(m.FollowsCreated, ev)
	return m.Err
}
func (m *EventPublisherMock) PublishFollowDeleted(ctx context.Context, ev *follow.DeletedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FollowsDeleted = append(m.FollowsDeleted, ev)
	return m.Err
}
func (m *EventPublisherMock) PublishChatCreated(ctx context.Context, ev *chat.CreatedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatsCreated = append(m.ChatsCreated, ev)
	return m.Err
}
func (m *EventPublisherMock) PublishMessageSent(ctx context.Context, ev *chat.MessageSentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesSent = append(m.MessagesSent, ev)
	return m.Err
}

// SessionRegistryMock simulates the per-instance connection registry.
type SessionRegistryMock struct {
	mu        sync.Mutex
	Counts    map[int64]int
	Delivered []DeliveredMessage
}

type DeliveredMessage struct {
	UserID  int64
	Message *chat.MessageData
}

func NewSessionRegistryMock() *SessionRegistryMock {
	return &SessionRegistryMock{Counts: make(map[int64]int)}
}

func (m *SessionRegistryMock) LocalSessionCount(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Counts[userID]
}

func (m *SessionRegistryMock) Deliver(userID int64, msg *chat.MessageData) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Counts[userID] == 0 {
		return false
	}
	m.Delivered = append(m.Delivered, DeliveredMessage{UserID: userID, Message: msg})
	return true
}

func (m *SessionRegistryMock) DeliveredTo(userID int64) []DeliveredMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []DeliveredMessage
	for _, d := range m.Delivered {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out
}

var (
	_ ports.UserRepository   = (*UserRepositoryMock)(nil)
	_ ports.FollowRepository = (*FollowRepositoryMock)(nil)
	_ ports.PostClient       = (*PostClientMock)(nil)
	_ ports.MediaURLResolver = (*MediaResolverMock)(nil)
	_ ports.EventPublisher   = (*EventPublisherMock)(nil)
	_ ports.SessionRegistry  = (*SessionRegistryMock)(nil)
)
