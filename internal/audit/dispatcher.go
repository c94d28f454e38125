package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultQueueSize    = 256
	DefaultWriteTimeout = 5 * time.Second
)

// Dispatcher delivers changes to the sink from a single background worker.
// Emit never blocks: a full queue drops the change with a warning, and
// enrichment or sink failures are logged and swallowed.
type Dispatcher struct {
	enricher     *Enricher
	sink         Sink
	queue        chan Change
	logger       *zap.Logger
	writeTimeout time.Duration

	mu       sync.Mutex
	started  bool
	stopped  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewDispatcher создаёт диспетчер аудита с очередью на size записей
func NewDispatcher(enricher *Enricher, sink Sink, size int, logger *zap.Logger) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Dispatcher{
		enricher:     enricher,
		sink:         sink,
		queue:        make(chan Change, size),
		logger:       logger.Named("audit"),
		writeTimeout: DefaultWriteTimeout,
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start запускает фоновую запись аудита
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	d.logger.Info("Starting audit dispatcher", zap.Int("queue_size", cap(d.queue)))
	go d.run(ctx)
}

// Stop drains what is already queued and waits for the worker to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	started := d.started
	close(d.stopChan)
	d.mu.Unlock()

	if started {
		<-d.done
	}
	d.logger.Info("Audit dispatcher stopped")
}

// Emit queues a change for enrichment and delivery. The send happens under
// mu so that Stop cannot slip in between the check and the enqueue.
func (d *Dispatcher) Emit(change Change) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		d.logger.Warn("Audit dispatcher stopped, record dropped",
			zap.String("action_type", string(change.ActionType)),
			zap.Int64("employee_id", change.EmployeeID))
		return
	}

	select {
	case d.queue <- change:
	default:
		d.logger.Warn("Audit queue full, record dropped",
			zap.String("action_type", string(change.ActionType)),
			zap.Int64("employee_id", change.EmployeeID))
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)

	for {
		select {
		case change := <-d.queue:
			d.deliver(change)
		case <-d.stopChan:
			d.drain()
			return
		case <-ctx.Done():
			d.drain()
			d.logger.Info("Audit dispatcher cancelled")
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case change := <-d.queue:
			d.deliver(change)
		default:
			return
		}
	}
}

// deliver runs detached from any request context.
func (d *Dispatcher) deliver(change Change) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Audit delivery panicked", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.writeTimeout)
	defer cancel()

	rec := d.enricher.Enrich(ctx, change)
	if err := d.sink.Write(ctx, rec); err != nil {
		d.logger.Error("Failed to write audit record",
			zap.String("record_id", rec.ID.String()),
			zap.String("entity_ref", rec.EntityRef),
			zap.Error(fmt.Errorf("audit sink: %w", err)))
		return
	}

	d.logger.Debug("Audit record written",
		zap.String("record_id", rec.ID.String()),
		zap.String("entity_ref", rec.EntityRef))
}
