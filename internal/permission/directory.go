package permission

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/viridial-group/realestate-sub003/internal/apperr"
	"github.com/viridial-group/realestate-sub003/internal/core/ports"
)

var (
	_ ports.OrganizationHierarchy = (*Tree)(nil)
	_ ports.UserDirectory         = (*Directory)(nil)
)

// Tree is an in-process organization hierarchy, loaded from configuration
// or built directly in tests.
type Tree struct {
	mu       sync.RWMutex
	children map[uuid.UUID][]uuid.UUID
	members  map[uuid.UUID][]uuid.UUID
}

func NewTree() *Tree {
	return &Tree{
		children: make(map[uuid.UUID][]uuid.UUID),
		members:  make(map[uuid.UUID][]uuid.UUID),
	}
}

// AddOrganization registers id under parent. A uuid.Nil parent makes id a root.
func (t *Tree) AddOrganization(id, parent uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if parent != uuid.Nil {
		t.children[parent] = append(t.children[parent], id)
	}
}

func (t *Tree) AddMember(userID, orgID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.members[userID] = append(t.members[userID], orgID)
}

func (t *Tree) DirectOrganizations(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]uuid.UUID(nil), t.members[userID]...), nil
}

// Descendants walks breadth first and tolerates cycles.
func (t *Tree) Descendants(_ context.Context, orgIDs []uuid.UUID) ([]uuid.UUID, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[uuid.UUID]bool, len(orgIDs))
	for _, id := range orgIDs {
		seen[id] = true
	}
	var out []uuid.UUID
	queue := append([]uuid.UUID(nil), orgIDs...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, c := range t.children[id] {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out, nil
}

// Directory is an in-process user directory.
type Directory struct {
	mu    sync.RWMutex
	users map[uuid.UUID]ports.UserProfile
}

func NewDirectory() *Directory {
	return &Directory{users: make(map[uuid.UUID]ports.UserProfile)}
}

func (d *Directory) Put(p ports.UserProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[p.UserID] = p
}

func (d *Directory) GetUser(_ context.Context, userID uuid.UUID) (*ports.UserProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.users[userID]
	if !ok {
		return nil, apperr.New(apperr.NotAuthorized, "unknown user", nil)
	}
	return &p, nil
}
