// Package servicetest provides in-memory stores for tests of the service
// and HTTP layers.
package servicetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/taskhub/internal/model"
	"github.com/iliyamo/taskhub/internal/repository"
)

// MemDB is an in-memory stand-in for MySQL. One mutex guards every table,
// which gives the cap checks the same atomicity the row lock gives in SQL.
// Tests may read the maps directly once no request is in flight.
type MemDB struct {
	mu       sync.Mutex
	Tenants  map[string]model.Tenant
	Users    map[string]model.User
	Projects map[string]model.Project
	Tasks    map[string]model.Task

	// FailAdminInsert makes CreateWithAdmin fail after the tenant row was
	// staged; nothing is kept.
	FailAdminInsert error
}

func NewMemDB() *MemDB {
	return &MemDB{
		Tenants:  map[string]model.Tenant{},
		Users:    map[string]model.User{},
		Projects: map[string]model.Project{},
		Tasks:    map[string]model.Task{},
	}
}

// SeedUser stores u as is.
func (db *MemDB) SeedUser(u model.User) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.Users[u.ID] = u
}

func (db *MemDB) TenantStore() TenantStore   { return TenantStore{db} }
func (db *MemDB) UserStore() UserStore       { return UserStore{db} }
func (db *MemDB) ProjectStore() ProjectStore { return ProjectStore{db} }
func (db *MemDB) TaskStore() TaskStore       { return TaskStore{db} }

type TenantStore struct{ db *MemDB }
type UserStore struct{ db *MemDB }
type ProjectStore struct{ db *MemDB }
type TaskStore struct{ db *MemDB }

func (s TenantStore) GetByID(_ context.Context, id string) (model.Tenant, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.Tenants[id]
	if !ok {
		return model.Tenant{}, repository.ErrNotFound
	}
	return t, nil
}

func (s TenantStore) GetBySubdomain(_ context.Context, sub string) (model.Tenant, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, t := range s.db.Tenants {
		if t.Subdomain == sub {
			return t, nil
		}
	}
	return model.Tenant{}, repository.ErrNotFound
}

func (s TenantStore) CreateWithAdmin(_ context.Context, t *model.Tenant, admin *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, x := range s.db.Tenants {
		if x.Subdomain == t.Subdomain {
			return repository.ErrConflict
		}
	}
	// Staged like a transaction: nothing is kept unless both rows succeed.
	if s.db.FailAdminInsert != nil {
		return s.db.FailAdminInsert
	}
	t.ID = uuid.NewString()
	admin.ID = uuid.NewString()
	admin.TenantID = &t.ID
	s.db.Tenants[t.ID] = *t
	s.db.Users[admin.ID] = *admin
	return nil
}

func (s TenantStore) Update(_ context.Context, id string, c repository.TenantChanges) (model.Tenant, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.Tenants[id]
	if !ok {
		return model.Tenant{}, repository.ErrNotFound
	}
	if c.Name != nil {
		t.Name = *c.Name
	}
	if c.Status != nil {
		t.Status = *c.Status
	}
	if c.SubscriptionPlan != nil {
		t.SubscriptionPlan = *c.SubscriptionPlan
	}
	if c.MaxUsers != nil {
		t.MaxUsers = *c.MaxUsers
	}
	if c.MaxProjects != nil {
		t.MaxProjects = *c.MaxProjects
	}
	s.db.Tenants[id] = t
	return t, nil
}

func (s TenantStore) List(_ context.Context, f repository.TenantFilter) ([]model.TenantSummary, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.TenantSummary
	for _, t := range s.db.Tenants {
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		out = append(out, model.TenantSummary{Tenant: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subdomain < out[j].Subdomain })
	return out, len(out), nil
}

func (s UserStore) GetByID(_ context.Context, id string) (model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.Users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s UserStore) FindForLogin(_ context.Context, email string, tenantID *string) (model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.Users {
		if u.Email != email {
			continue
		}
		if tenantID == nil && u.TenantID == nil && u.Role == model.RoleSuperAdmin {
			return u, nil
		}
		if tenantID != nil && u.TenantID != nil && *u.TenantID == *tenantID {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s UserStore) CreateWithinCap(_ context.Context, u *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.Tenants[*u.TenantID]
	if !ok {
		return repository.ErrNotFound
	}
	n := 0
	for _, x := range s.db.Users {
		if x.TenantID != nil && *x.TenantID == t.ID {
			if x.Email == u.Email {
				return repository.ErrConflict
			}
			n++
		}
	}
	if n >= t.MaxUsers {
		return repository.ErrLimitReached
	}
	u.ID = uuid.NewString()
	s.db.Users[u.ID] = *u
	return nil
}

func (s UserStore) Update(_ context.Context, id string, c repository.UserChanges) (model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.Users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	if c.FullName != nil {
		u.FullName = *c.FullName
	}
	if c.Role != nil {
		u.Role = *c.Role
	}
	if c.IsActive != nil {
		u.IsActive = *c.IsActive
	}
	s.db.Users[id] = u
	return u, nil
}

func (s UserStore) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.Users[id]; !ok {
		return repository.ErrNotFound
	}
	for tid, t := range s.db.Tasks {
		if t.AssignedTo != nil && *t.AssignedTo == id {
			t.AssignedTo = nil
			s.db.Tasks[tid] = t
		}
	}
	delete(s.db.Users, id)
	return nil
}

func (s UserStore) List(_ context.Context, f repository.UserFilter) ([]model.User, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.User
	for _, u := range s.db.Users {
		if u.TenantID == nil || *u.TenantID != f.TenantID {
			continue
		}
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (s ProjectStore) GetByID(_ context.Context, id string) (model.Project, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.Projects[id]
	if !ok {
		return model.Project{}, repository.ErrNotFound
	}
	return p, nil
}

func (s ProjectStore) CreateWithinCap(_ context.Context, p *model.Project) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.Tenants[p.TenantID]
	if !ok {
		return repository.ErrNotFound
	}
	n := 0
	for _, x := range s.db.Projects {
		if x.TenantID == t.ID {
			n++
		}
	}
	if n >= t.MaxProjects {
		return repository.ErrLimitReached
	}
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now()
	s.db.Projects[p.ID] = *p
	return nil
}

func (s ProjectStore) Update(_ context.Context, id string, c repository.ProjectChanges) (model.Project, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.Projects[id]
	if !ok {
		return model.Project{}, repository.ErrNotFound
	}
	if c.Name != nil {
		p.Name = *c.Name
	}
	if c.Description.Set {
		p.Description = c.Description.Value
	}
	if c.Status != nil {
		p.Status = *c.Status
	}
	s.db.Projects[id] = p
	return p, nil
}

func (s ProjectStore) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.Projects[id]; !ok {
		return repository.ErrNotFound
	}
	for tid, t := range s.db.Tasks {
		if t.ProjectID == id {
			delete(s.db.Tasks, tid)
		}
	}
	delete(s.db.Projects, id)
	return nil
}

func (s ProjectStore) List(_ context.Context, f repository.ProjectFilter) ([]model.ProjectSummary, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.ProjectSummary
	for _, p := range s.db.Projects {
		if p.TenantID != f.TenantID {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, model.ProjectSummary{ID: p.ID, Name: p.Name, Status: p.Status,
			CreatedBy: model.UserRef{ID: p.CreatedBy}})
	}
	return out, len(out), nil
}

func (s TaskStore) GetByID(_ context.Context, id string) (model.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.Tasks[id]
	if !ok {
		return model.Task{}, repository.ErrNotFound
	}
	return t, nil
}

func (s TaskStore) Create(_ context.Context, t *model.Task) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if t.AssignedTo != nil {
		if _, ok := s.db.Users[*t.AssignedTo]; !ok {
			return repository.ErrInvalidReference
		}
	}
	t.ID = uuid.NewString()
	s.db.Tasks[t.ID] = *t
	return nil
}

func (s TaskStore) Update(_ context.Context, id string, c repository.TaskChanges) (model.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.Tasks[id]
	if !ok {
		return model.Task{}, repository.ErrNotFound
	}
	if c.Title != nil {
		t.Title = *c.Title
	}
	if c.Description.Set {
		t.Description = c.Description.Value
	}
	if c.Status != nil {
		t.Status = *c.Status
	}
	if c.Priority != nil {
		t.Priority = *c.Priority
	}
	if c.AssignedTo.Set {
		t.AssignedTo = c.AssignedTo.Value
	}
	if c.DueDate.Set {
		t.DueDate = c.DueDate.Value
	}
	s.db.Tasks[id] = t
	return t, nil
}

func (s TaskStore) UpdateStatus(ctx context.Context, id string, st model.TaskStatus) (model.Task, error) {
	return s.Update(ctx, id, repository.TaskChanges{Status: &st})
}

func (s TaskStore) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.Tasks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.Tasks, id)
	return nil
}

func (s TaskStore) ListByProject(_ context.Context, f repository.TaskFilter) ([]model.TaskView, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.TaskView
	for _, t := range s.db.Tasks {
		if t.ProjectID != f.ProjectID {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		out = append(out, model.TaskView{ID: t.ID, Title: t.Title, Status: t.Status, Priority: t.Priority})
	}
	return out, len(out), nil
}

