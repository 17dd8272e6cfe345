package user

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a process-local credential store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*User
	byEmail map[string]uuid.UUID // active records only
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[uuid.UUID]*User),
		byEmail: make(map[string]uuid.UUID),
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, u *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := NormalizeEmail(u.Email)
	if _, ok := s.byEmail[email]; ok {
		return nil, ErrDuplicateEmail
	}

	now := s.now()
	stored := &User{
		ID:               u.ID,
		Email:            email,
		PasswordHash:     u.PasswordHash,
		RefreshTokenHash: cloneString(u.RefreshTokenHash),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.byID[stored.ID] = stored
	s.byEmail[email] = stored.ID

	return stored.clone(), nil
}

func (s *MemoryStore) FindActiveByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].clone(), nil
}

func (s *MemoryStore) FindActiveByID(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok || !u.IsActive() {
		return nil, ErrNotFound
	}
	return u.clone(), nil
}

func (s *MemoryStore) SetRefreshHash(_ context.Context, id uuid.UUID, hash *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if hash == nil {
		if ok && u.RefreshTokenHash != nil {
			u.RefreshTokenHash = nil
			u.UpdatedAt = s.now()
		}
		return nil
	}

	if !ok || !u.IsActive() {
		return ErrNotFound
	}
	u.RefreshTokenHash = cloneString(hash)
	u.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) SoftDelete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok || !u.IsActive() {
		return ErrNotFound
	}

	now := s.now()
	u.DeletedAt = &now
	u.RefreshTokenHash = nil
	u.UpdatedAt = now
	delete(s.byEmail, u.Email)
	return nil
}

func (u *User) clone() *User {
	c := *u
	c.RefreshTokenHash = cloneString(u.RefreshTokenHash)
	if u.DeletedAt != nil {
		t := *u.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
