package goSoap

import (
	"context"
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// auditDispatcher delivers events to the sink from one worker goroutine.
// Sends and Close are ordered by mu: once closed, the queue channel is
// closed and the worker drains it before exiting.
type auditDispatcher struct {
	dropIfFull bool
	sink       AuditSink
	logger     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan AuditEvent
	worker sync.WaitGroup

	dropped atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, logger zerolog.Logger) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}

	d := &auditDispatcher{
		dropIfFull: cfg.DropIfFull,
		sink:       sink,
		logger:     logger,
		queue:      make(chan AuditEvent, size),
	}
	d.worker.Add(1)
	go d.drain()
	return d
}

func (d *auditDispatcher) drain() {
	defer d.worker.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

// deliver shields the worker from a panicking sink.
func (d *auditDispatcher) deliver(event AuditEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.dropped.Add(1)
			d.logger.Error().Interface("panic", r).Str("event_type", event.EventType).Msg("audit sink panicked")
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event. A full queue drops the event when DropIfFull is set and
// otherwise waits for room or for ctx.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.drop(event)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop(event)
	}
}

// drop counts a lost event and logs at 1, 2, 4, 8... drops.
func (d *auditDispatcher) drop(event AuditEvent) {
	n := d.dropped.Add(1)
	if bits.OnesCount64(n) == 1 {
		d.logger.Warn().Uint64("dropped", n).Str("event_type", event.EventType).Msg("audit queue full, event dropped")
	}
}

// Close stops accepting events, flushes the queue and waits for the worker.
// It is idempotent.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.worker.Wait()
}

// Dropped counts events lost to backpressure, cancellation or sink panics.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
