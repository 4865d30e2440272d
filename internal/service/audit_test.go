package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/taskhub/internal/model"
)

type outcomeCounter struct {
	mu sync.Mutex
	n  map[string]int
}

func (o *outcomeCounter) AuditEvent(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.n == nil {
		o.n = map[string]int{}
	}
	o.n[outcome]++
}

func (o *outcomeCounter) get(outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.n[outcome]
}

type sinkFunc func(ctx context.Context, e model.AuditLog) error

func (f sinkFunc) Write(ctx context.Context, e model.AuditLog) error { return f(ctx, e) }

func TestAuditDispatcherDelivers(t *testing.T) {
	var (
		mu  sync.Mutex
		got []model.AuditLog
	)
	sink := sinkFunc(func(_ context.Context, e model.AuditLog) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
		return nil
	})
	rec := &outcomeCounter{}
	d := NewAuditDispatcher(sink, 8, rec)

	ctx := WithClientIP(context.Background(), "10.0.0.7")
	d.Record(ctx, model.AuditLog{Action: model.AuditCreateProject, EntityType: "project", EntityID: "p1"})
	d.Record(ctx, model.AuditLog{Action: model.AuditDeleteProject, EntityType: "project", EntityID: "p1"})
	require.NoError(t, d.Close(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, "10.0.0.7", got[0].IPAddress)
	assert.False(t, got[0].CreatedAt.IsZero())
	assert.Equal(t, model.AuditDeleteProject, got[1].Action)
	assert.Equal(t, 2, rec.get("delivered"))
}

func TestAuditDispatcherDropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	sink := sinkFunc(func(context.Context, model.AuditLog) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})
	rec := &outcomeCounter{}
	d := NewAuditDispatcher(sink, 1, rec)
	ctx := context.Background()

	d.Record(ctx, model.AuditLog{Action: model.AuditLogin}) // taken by the worker
	<-started
	d.Record(ctx, model.AuditLog{Action: model.AuditLogin}) // fills the buffer

	done := make(chan struct{})
	go func() {
		d.Record(ctx, model.AuditLog{Action: model.AuditLogin}) // dropped
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full buffer")
	}
	assert.Equal(t, 1, rec.get("dropped"))

	close(release)
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 2, rec.get("delivered"))

	d.Record(ctx, model.AuditLog{Action: model.AuditLogin})
	assert.Equal(t, 2, rec.get("dropped"))
}

func TestAuditDispatcherSurvivesSinkFailures(t *testing.T) {
	calls := 0
	sink := sinkFunc(func(_ context.Context, e model.AuditLog) error {
		calls++
		switch e.EntityID {
		case "boom":
			panic("sink exploded")
		case "err":
			return errors.New("broker unavailable")
		}
		return nil
	})
	rec := &outcomeCounter{}
	d := NewAuditDispatcher(sink, 4, rec)
	ctx := context.Background()

	d.Record(ctx, model.AuditLog{EntityID: "boom"})
	d.Record(ctx, model.AuditLog{EntityID: "err"})
	d.Record(ctx, model.AuditLog{EntityID: "ok"})
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, rec.get("failed"))
	assert.Equal(t, 1, rec.get("delivered"))
}

func TestAuditDispatcherCloseHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	d := NewAuditDispatcher(sinkFunc(func(context.Context, model.AuditLog) error {
		<-block
		return nil
	}), 1, nil)
	d.Record(context.Background(), model.AuditLog{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
}
