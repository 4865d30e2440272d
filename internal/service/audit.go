package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/taskhub/internal/logger"
	"github.com/iliyamo/taskhub/internal/model"
)

// AuditSink delivers one audit record somewhere durable.
type AuditSink interface {
	Write(ctx context.Context, e model.AuditLog) error
}

// AuditOutcomeRecorder counts what happened to each record.
type AuditOutcomeRecorder interface {
	AuditEvent(outcome string)
}

type clientIPKey struct{}

// WithClientIP attaches the caller's address so audit records can carry it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIPFrom returns the address stored by WithClientIP, or "".
func ClientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

const auditWriteTimeout = 5 * time.Second

// AuditDispatcher is the fire-and-forget Auditor. Record enqueues onto a
// bounded buffer and returns at once; a single worker drains the buffer
// into the sink. A full buffer drops the record. Sink errors and panics are
// logged and counted, never returned.
type AuditDispatcher struct {
	sink AuditSink
	rec  AuditOutcomeRecorder
	ch   chan model.AuditLog
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAuditDispatcher starts the worker. rec may be nil.
func NewAuditDispatcher(sink AuditSink, buffer int, rec AuditOutcomeRecorder) *AuditDispatcher {
	if buffer < 1 {
		buffer = 1
	}
	d := &AuditDispatcher{
		sink: sink,
		rec:  rec,
		ch:   make(chan model.AuditLog, buffer),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

// Record queues e for the sink without blocking. A full buffer drops it.
func (d *AuditDispatcher) Record(ctx context.Context, e model.AuditLog) {
	if e.IPAddress == "" {
		e.IPAddress = ClientIPFrom(ctx)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.count("dropped")
		return
	}
	select {
	case d.ch <- e:
	default:
		d.count("dropped")
		logger.FromContext(ctx).Warn("audit buffer full, dropping event",
			zap.String("action", string(e.Action)), zap.String("entity_id", e.EntityID))
	}
}

// Close stops accepting records and waits for the buffer to drain or ctx
// to end.
func (d *AuditDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.ch)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *AuditDispatcher) run() {
	defer close(d.done)
	for e := range d.ch {
		d.deliver(e)
	}
}

func (d *AuditDispatcher) deliver(e model.AuditLog) {
	defer func() {
		if r := recover(); r != nil {
			d.count("failed")
			logger.L().Error("audit sink panicked", zap.String("action", string(e.Action)),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()
	if err := d.sink.Write(ctx, e); err != nil {
		d.count("failed")
		logger.L().Warn("audit write failed", zap.String("action", string(e.Action)),
			zap.String("entity_id", e.EntityID), zap.Error(err))
		return
	}
	d.count("delivered")
}

func (d *AuditDispatcher) count(outcome string) {
	if d.rec != nil {
		d.rec.AuditEvent(outcome)
	}
}

// LogSink writes audit records to the process log only. It backs the
// dispatcher when the broker is disabled.
type LogSink struct{}

// Write logs e at info level.
func (LogSink) Write(_ context.Context, e model.AuditLog) error {
	fields := []zap.Field{
		zap.String("action", string(e.Action)),
		zap.String("entity_type", e.EntityType),
		zap.String("entity_id", e.EntityID),
		zap.String("ip", e.IPAddress),
	}
	if e.TenantID != nil {
		fields = append(fields, zap.String("tenant_id", *e.TenantID))
	}
	if e.UserID != nil {
		fields = append(fields, zap.String("user_id", *e.UserID))
	}
	logger.L().Info("audit", fields...)
	return nil
}
