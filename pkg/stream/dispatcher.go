package stream

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-stream/internal/types"
	"go.uber.org/zap"
)

// KlineHandler receives decoded kline events.
type KlineHandler func(types.Kline)

// StatusHandler receives connection status changes.
type StatusHandler func(types.ConnectionStatus)

// Registration is the handle returned when an observer is registered.
// Cancel removes the observer; it is safe to call more than once.
type Registration struct {
	cancel func()
}

// Cancel unregisters the observer.
func (r Registration) Cancel() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Dispatcher fans decoded events out to registered observers. Delivery is
// synchronous and in receive order. A panicking observer is recovered and
// reported to the log sink so one consumer cannot take down the receive loop.
type Dispatcher struct {
	mu       sync.RWMutex
	logger   *zap.Logger
	klines   map[uuid.UUID]KlineHandler
	statuses map[uuid.UUID]StatusHandler
}

// NewDispatcher creates a dispatcher with no observers.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		logger:   logger,
		klines:   make(map[uuid.UUID]KlineHandler),
		statuses: make(map[uuid.UUID]StatusHandler),
	}
}

// OnKline registers an observer for domain update events.
func (d *Dispatcher) OnKline(handler KlineHandler) Registration {
	id := uuid.New()

	d.mu.Lock()
	d.klines[id] = handler
	d.mu.Unlock()

	return Registration{cancel: func() {
		d.mu.Lock()
		delete(d.klines, id)
		d.mu.Unlock()
	}}
}

// OnStatus registers an observer for connection status events.
func (d *Dispatcher) OnStatus(handler StatusHandler) Registration {
	id := uuid.New()

	d.mu.Lock()
	d.statuses[id] = handler
	d.mu.Unlock()

	return Registration{cancel: func() {
		d.mu.Lock()
		delete(d.statuses, id)
		d.mu.Unlock()
	}}
}

func (d *Dispatcher) publishKline(kline types.Kline) {
	d.mu.RLock()
	handlers := make([]KlineHandler, 0, len(d.klines))

	for _, handler := range d.klines {
		handlers = append(handlers, handler)
	}
	d.mu.RUnlock()

	for _, handler := range handlers {
		d.invokeKline(handler, kline)
	}
}

func (d *Dispatcher) publishStatus(status types.ConnectionStatus) {
	d.mu.RLock()
	handlers := make([]StatusHandler, 0, len(d.statuses))

	for _, handler := range d.statuses {
		handlers = append(handlers, handler)
	}
	d.mu.RUnlock()

	for _, handler := range handlers {
		d.invokeStatus(handler, status)
	}
}

func (d *Dispatcher) invokeKline(handler KlineHandler, kline types.Kline) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("kline observer panicked", zap.Any("panic", r))
		}
	}()

	handler(kline)
}

func (d *Dispatcher) invokeStatus(handler StatusHandler, status types.ConnectionStatus) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("status observer panicked", zap.Any("panic", r))
		}
	}()

	handler(status)
}
