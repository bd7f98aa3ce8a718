package storage

import (
	"context"
	"sync"
	"time"

	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
)

// MemoryAccountRepository in-memory хранилище аккаунтов
type MemoryAccountRepository struct {
	mu      sync.RWMutex
	byID    map[string]*entity.Account
	byEmail map[string]string
}

// NewMemoryAccountRepository создаёт пустое хранилище
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		byID:    make(map[string]*entity.Account),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryAccountRepository) Create(ctx context.Context, account *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[account.Email]; taken {
		return port.ErrEmailTaken
	}
	cp := *account
	r.byID[cp.ID] = &cp
	r.byEmail[cp.Email] = cp.ID
	return nil
}

func (r *MemoryAccountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.byID[id]
	if !ok {
		return nil, port.ErrAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

func (r *MemoryAccountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	r.mu.RLock()
	id, ok := r.byEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, port.ErrAccountNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryAccountRepository) Update(ctx context.Context, account *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[account.ID]; !ok {
		return port.ErrAccountNotFound
	}
	cp := *account
	r.byID[cp.ID] = &cp
	return nil
}

var _ port.AccountRepository = (*MemoryAccountRepository)(nil)

type session struct {
	accountID string
	expires   time.Time
}

// MemorySessionStore in-memory сессии чата с истечением
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[int64]session
	now      func() time.Time
}

// NewMemorySessionStore создаёт пустое хранилище сессий
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[int64]session),
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Bind(ctx context.Context, chatUserID int64, accountID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = s.now().Add(ttl)
	}
	s.sessions[chatUserID] = session{accountID: accountID, expires: expires}
	return nil
}

func (s *MemorySessionStore) Lookup(ctx context.Context, chatUserID int64) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[chatUserID]
	if !ok {
		return "", false, nil
	}
	if !sess.expires.IsZero() && s.now().After(sess.expires) {
		delete(s.sessions, chatUserID)
		return "", false, nil
	}
	return sess.accountID, true, nil
}

func (s *MemorySessionStore) Drop(ctx context.Context, chatUserID int64) error {
	s.mu.Lock()
	delete(s.sessions, chatUserID)
	s.mu.Unlock()
	return nil
}

var _ port.SessionStore = (*MemorySessionStore)(nil)
