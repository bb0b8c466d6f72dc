// Package memory holds process-local implementations of the repository ports.
// Every read and filter goes through the same predicate expressions the
// postgres repositories translate to SQL.
package memory

import (
	"bytes"
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viridial-group/realestate-sub003/internal/apperr"
	"github.com/viridial-group/realestate-sub003/internal/core/ports"
	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/predicate"
	"github.com/viridial-group/realestate-sub003/internal/query"
)

var (
	_ ports.DefinitionRepository = (*Store)(nil)
	_ ports.TaskRepository       = (*Store)(nil)
)

type Store struct {
	mu          sync.RWMutex
	definitions map[uuid.UUID]domain.WorkflowDefinition
	instances   map[uuid.UUID]domain.WorkflowInstance
	tasks       map[uuid.UUID]domain.Task
}

func NewStore() *Store {
	return &Store{
		definitions: make(map[uuid.UUID]domain.WorkflowDefinition),
		instances:   make(map[uuid.UUID]domain.WorkflowInstance),
		tasks:       make(map[uuid.UUID]domain.Task),
	}
}

// --- definitions ---

func (s *Store) Create(_ context.Context, def *domain.WorkflowDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.definitions[def.ID]; ok {
		return apperr.New(apperr.Conflict, "workflow definition already exists", nil)
	}
	if s.defaultTakenLocked(def) {
		return apperr.New(apperr.Conflict, "default workflow already exists", ports.ErrDuplicateDefault)
	}
	s.definitions[def.ID] = cloneDefinition(*def)
	return nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.definitions[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "workflow definition not found", nil)
	}
	d = cloneDefinition(d)
	return &d, nil
}

func (s *Store) Update(_ context.Context, def *domain.WorkflowDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.definitions[def.ID]; !ok {
		return apperr.New(apperr.NotFound, "workflow definition not found", nil)
	}
	if s.defaultTakenLocked(def) {
		return apperr.New(apperr.Conflict, "default workflow already exists", ports.ErrDuplicateDefault)
	}
	def.UpdatedAt = time.Now()
	s.definitions[def.ID] = cloneDefinition(*def)
	return nil
}

func (s *Store) SetDefault(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.definitions[id]
	if !ok {
		return apperr.New(apperr.NotFound, "workflow definition not found", nil)
	}
	now := time.Now()
	for k, d := range s.definitions {
		if k != id && d.IsDefault && d.OrganizationID == target.OrganizationID && d.Action == target.Action {
			d.IsDefault = false
			d.UpdatedAt = now
			s.definitions[k] = d
		}
	}
	target.IsDefault = true
	target.UpdatedAt = now
	s.definitions[id] = target
	return nil
}

func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.definitions[id]; !ok {
		return apperr.New(apperr.NotFound, "workflow definition not found", nil)
	}
	delete(s.definitions, id)
	return nil
}

func (s *Store) FindUsable(_ context.Context, q ports.DefinitionQuery) ([]domain.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.WorkflowDefinition
	for _, d := range s.definitions {
		if !d.Usable() || d.OrganizationID != q.OrganizationID || d.Action != q.Action {
			continue
		}
		if q.DefaultOnly {
			if !d.IsDefault || d.IsTargeted() {
				continue
			}
		} else if d.TargetType != q.TargetType || d.TargetID != q.TargetID {
			continue
		}
		out = append(out, cloneDefinition(d))
	}
	slices.SortFunc(out, func(a, b domain.WorkflowDefinition) int { return bytes.Compare(a.ID[:], b.ID[:]) })
	return out, nil
}

func (s *Store) List(_ context.Context, filter predicate.Expr, page ports.Page) ([]domain.WorkflowDefinition, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter = orTrue(filter)
	var all []domain.WorkflowDefinition
	for _, d := range s.definitions {
		if filter.Eval(&d) {
			all = append(all, cloneDefinition(d))
		}
	}
	slices.SortFunc(all, func(a, b domain.WorkflowDefinition) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	out, total := paginate(all, page)
	return out, total, nil
}

// defaultTakenLocked only counts untargeted rows; a targeted row never holds
// the organization default.
func (s *Store) defaultTakenLocked(def *domain.WorkflowDefinition) bool {
	if !def.IsDefault || !def.Active || def.IsTargeted() {
		return false
	}
	for id, d := range s.definitions {
		if id != def.ID && d.IsDefault && d.Active && !d.IsTargeted() && d.OrganizationID == def.OrganizationID && d.Action == def.Action {
			return true
		}
	}
	return false
}

// --- instances and tasks ---

func (s *Store) CreateInstance(_ context.Context, inst *domain.WorkflowInstance, tasks []domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[inst.ID]; ok {
		return apperr.New(apperr.Conflict, "workflow instance already exists", nil)
	}
	stored := *inst
	stored.Tasks = nil
	s.instances[inst.ID] = stored
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	return nil
}

func (s *Store) GetInstance(_ context.Context, id uuid.UUID) (*domain.WorkflowInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "workflow instance not found", nil)
	}
	return &inst, nil
}

func (s *Store) FindTaskByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "task not found", nil)
	}
	return &t, nil
}

func (s *Store) InstanceTasks(_ context.Context, instanceID uuid.UUID) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Task
	for _, t := range s.tasks {
		if t.InstanceID == instanceID {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b domain.Task) int { return a.StepNumber - b.StepNumber })
	return out, nil
}

func (s *Store) ApplyTransition(_ context.Context, tr ports.TaskTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.tasks[tr.Task.ID]
	if !ok {
		return apperr.New(apperr.NotFound, "task not found", nil)
	}
	if cur.Version != tr.ExpectedVersion {
		return ports.ErrVersionConflict
	}
	if tr.Activate != nil {
		next, ok := s.tasks[tr.Activate.ID]
		if !ok || next.Status != domain.StatusPending || next.Version != tr.Activate.Version {
			return ports.ErrVersionConflict
		}
	}

	// All preconditions hold; apply every change while still holding the lock.
	updated := *tr.Task
	updated.Version = tr.ExpectedVersion + 1
	updated.UpdatedAt = tr.At
	s.tasks[updated.ID] = updated

	if tr.Activate != nil {
		next := *tr.Activate
		next.Version = tr.Activate.Version + 1
		next.UpdatedAt = tr.At
		s.tasks[next.ID] = next
	}
	if tr.CancelPending {
		for id, t := range s.tasks {
			if t.InstanceID == cur.InstanceID && t.Status == domain.StatusPending {
				t.Status = domain.StatusCancelled
				t.Version++
				t.UpdatedAt = tr.At
				s.tasks[id] = t
			}
		}
	}
	if tr.InstanceStatus != "" {
		if inst, ok := s.instances[cur.InstanceID]; ok && inst.Status == domain.InstanceRunning {
			inst.Status = tr.InstanceStatus
			at := tr.At
			inst.CompletedAt = &at
			inst.Version++
			inst.UpdatedAt = tr.At
			s.instances[inst.ID] = inst
		}
	}
	return nil
}

func (s *Store) Reassign(_ context.Context, taskID uuid.UUID, expectedVersion int, to domain.Assignment, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return apperr.New(apperr.NotFound, "task not found", nil)
	}
	if t.Version != expectedVersion || t.Status != domain.StatusInProgress {
		return ports.ErrVersionConflict
	}
	t.Assignment = to
	t.Version++
	t.UpdatedAt = at
	s.tasks[taskID] = t
	return nil
}

func (s *Store) FindOverdue(_ context.Context, now time.Time) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter := query.Overdue(now)
	var out []domain.Task
	for _, t := range s.tasks {
		if filter.Eval(&t) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b domain.Task) int {
		return cmp.Or(a.DueDate.Compare(*b.DueDate), bytes.Compare(a.ID[:], b.ID[:]))
	})
	return out, nil
}

func (s *Store) ListTasks(_ context.Context, filter predicate.Expr, page ports.Page) ([]domain.Task, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter = orTrue(filter)
	var all []domain.Task
	for _, t := range s.tasks {
		if filter.Eval(&t) {
			all = append(all, t)
		}
	}
	slices.SortFunc(all, func(a, b domain.Task) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	out, total := paginate(all, page)
	return out, total, nil
}

func (s *Store) ListInstances(_ context.Context, filter predicate.Expr, page ports.Page) ([]domain.WorkflowInstance, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter = orTrue(filter)
	var all []domain.WorkflowInstance
	for _, inst := range s.instances {
		if filter.Eval(&inst) {
			all = append(all, inst)
		}
	}
	slices.SortFunc(all, func(a, b domain.WorkflowInstance) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	out, total := paginate(all, page)
	return out, total, nil
}

func (s *Store) CountInstancesByDefinition(_ context.Context, definitionID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, inst := range s.instances {
		if inst.DefinitionID == definitionID {
			n++
		}
	}
	return n, nil
}

func orTrue(e predicate.Expr) predicate.Expr {
	if e == nil {
		return predicate.True
	}
	return e
}

func cloneDefinition(d domain.WorkflowDefinition) domain.WorkflowDefinition {
	d.Steps = slices.Clone(d.Steps)
	d.RequiredRoles = slices.Clone(d.RequiredRoles)
	return d
}

func newestFirst(aCreated, bCreated time.Time, aID, bID uuid.UUID) int {
	return cmp.Or(bCreated.Compare(aCreated), bytes.Compare(aID[:], bID[:]))
}

func paginate[T any](all []T, page ports.Page) ([]T, int64) {
	page = page.Normalize()
	total := int64(len(all))
	if page.Offset >= len(all) {
		return []T{}, total
	}
	all = all[page.Offset:]
	if len(all) > page.Limit {
		all = all[:page.Limit]
	}
	return all, total
}
