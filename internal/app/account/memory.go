package account

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryRepository keeps members in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	members map[int64]Member
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID:  1,
		members: make(map[int64]Member),
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (r *MemoryRepository) Create(_ context.Context, m *Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.conflictLocked(0, m); err != nil {
		return err
	}

	now := r.now()
	m.ID = r.nextID
	m.CreatedAt = now
	m.UpdatedAt = now
	r.nextID++
	r.members[m.ID] = *m
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id int64) (*Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (r *MemoryRepository) GetByNickname(_ context.Context, nickname string) (*Member, error) {
	return r.find(func(m Member) bool { return m.Nickname == nickname })
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*Member, error) {
	return r.find(func(m Member) bool { return strings.EqualFold(m.Email, email) })
}

func (r *MemoryRepository) find(match func(Member) bool) (*Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members {
		if match(m) {
			return &m, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) Update(_ context.Context, m *Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[m.ID]; !ok {
		return ErrNotFound
	}
	if err := r.conflictLocked(m.ID, m); err != nil {
		return err
	}
	m.UpdatedAt = r.now()
	r.members[m.ID] = *m
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return ErrNotFound
	}
	delete(r.members, id)
	return nil
}

func (r *MemoryRepository) RevokeToken(_ context.Context, tokenID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, exp := range r.revoked {
		if !now.Before(exp) {
			delete(r.revoked, id)
		}
	}
	r.revoked[tokenID] = expiresAt
	return nil
}

func (r *MemoryRepository) IsTokenRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.revoked[tokenID]
	return ok, nil
}

// conflictLocked reports a nickname or email already used by a member other than selfID.
func (r *MemoryRepository) conflictLocked(selfID int64, m *Member) error {
	for id, other := range r.members {
		if id == selfID {
			continue
		}
		if other.Nickname == m.Nickname {
			return ErrNicknameTaken
		}
		if strings.EqualFold(other.Email, m.Email) {
			return ErrEmailTaken
		}
	}
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
