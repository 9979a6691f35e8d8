package user

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryRepository implements Repository with an in-process map.
// Intended for ephemeral deployments and tests; records do not survive
// a restart and email uniqueness is not enforced.
type MemoryRepository struct {
	mu     sync.RWMutex
	users  map[int64]*User
	order  []int64
	nextID atomic.Int64
}

// NewMemoryRepository creates an empty in-memory user repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[int64]*User)}
}

// Create stores a new user and assigns the next sequential ID.
func (r *MemoryRepository) Create(_ context.Context, u *User) error {
	now := time.Now().UTC().Truncate(time.Second)
	u.ID = r.nextID.Add(1)
	u.CreatedAt = now
	u.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *u
	r.users[u.ID] = &stored
	r.order = append(r.order, u.ID)
	return nil
}

// GetByID returns a copy of the user with the given ID.
func (r *MemoryRepository) GetByID(_ context.Context, id int64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

// List returns all users in insertion order.
func (r *MemoryRepository) List(_ context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot(), nil
}

// ListPage returns one page of users plus the total record count.
func (r *MemoryRepository) ListPage(_ context.Context, page, size int) ([]User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.snapshot()
	return slicePage(all, page, size), len(all), nil
}

// Search returns one page of users matching the query plus the total
// match count. Matching is a case-insensitive substring test over the
// name, address, email, and telephone fields.
func (r *MemoryRepository) Search(_ context.Context, query string, page, size int) ([]User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(query)
	var matches []User
	for _, id := range r.order {
		u := r.users[id]
		if q == "" || matchesQuery(u, q) {
			matches = append(matches, *u)
		}
	}
	return slicePage(matches, page, size), len(matches), nil
}

// Update rewrites an existing user record in place.
func (r *MemoryRepository) Update(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[u.ID]
	if !ok {
		return ErrUserNotFound
	}
	now := time.Now().UTC().Truncate(time.Second)
	existing.Name = u.Name
	existing.Address = u.Address
	existing.Email = u.Email
	existing.Telephone = u.Telephone
	existing.UpdatedAt = now
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = now
	return nil
}

// Delete removes a user by ID.
func (r *MemoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of stored users.
func (r *MemoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}

// snapshot copies all users in insertion order. Callers must hold at
// least a read lock.
func (r *MemoryRepository) snapshot() []User {
	out := make([]User, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.users[id])
	}
	return out
}

// slicePage cuts one page out of an already-filtered slice. Pages past
// the end return an empty slice, never an error.
func slicePage(all []User, page, size int) []User {
	if size <= 0 || page < 0 {
		return []User{}
	}
	start := page * size
	if start >= len(all) {
		return []User{}
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

// matchesQuery reports whether any searchable field contains the
// already-lowercased query.
func matchesQuery(u *User, q string) bool {
	return strings.Contains(strings.ToLower(u.Name), q) ||
		strings.Contains(strings.ToLower(u.Address), q) ||
		strings.Contains(strings.ToLower(u.Email), q) ||
		strings.Contains(strings.ToLower(u.Telephone), q)
}
