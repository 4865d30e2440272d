package service

import (
	"context"
	"sync"

	"github.com/iliyamo/taskhub/internal/model"
)

// recordingAuditor collects records synchronously.
type recordingAuditor struct {
	mu      sync.Mutex
	records []model.AuditLog
}

func (r *recordingAuditor) Record(_ context.Context, e model.AuditLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, e)
}

func (r *recordingAuditor) actions() []model.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AuditAction, len(r.records))
	for i, e := range r.records {
		out[i] = e.Action
	}
	return out
}

type countingRecorder struct {
	mu     sync.Mutex
	limits map[string]int
	auth   map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{limits: map[string]int{}, auth: map[string]int{}}
}

func (c *countingRecorder) LimitRejected(r string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limits[r]++
}

func (c *countingRecorder) AuthFailed(r string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth[r]++
}

// lookupLog records every id read through the wrapped stores.
type lookupLog struct {
	mu  sync.Mutex
	ids []string
}

func (l *lookupLog) add(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(l.ids, id)
}

func (l *lookupLog) seen() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ids...)
}

type loggedUsers struct {
	UserStore
	log *lookupLog
}

func (s loggedUsers) GetByID(ctx context.Context, id string) (model.User, error) {
	s.log.add(id)
	return s.UserStore.GetByID(ctx, id)
}

type loggedProjects struct {
	ProjectStore
	log *lookupLog
}

func (s loggedProjects) GetByID(ctx context.Context, id string) (model.Project, error) {
	s.log.add(id)
	return s.ProjectStore.GetByID(ctx, id)
}

type loggedTasks struct {
	TaskStore
	log *lookupLog
}

func (s loggedTasks) GetByID(ctx context.Context, id string) (model.Task, error) {
	s.log.add(id)
	return s.TaskStore.GetByID(ctx, id)
}
