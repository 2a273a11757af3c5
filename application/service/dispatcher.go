package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/fireclub/semsearch/infrastructure/events"
)

// Dispatcher pacing. A failed delivery backs off longer than an empty
// poll so a struggling updater is not hammered.
const (
	dispatchTimeout = 10 * time.Second
	idleSleep       = 100 * time.Millisecond
	errorSleep      = time.Second
)

// UpdaterClient forwards one catalog change to the updater service.
type UpdaterClient interface {
	Update(ctx context.Context, eventType events.Type, productID int64) error
}

// Dispatcher polls an event source and forwards each event to the
// updater. Delivery is at-most-once: a failed forward is logged and
// dropped, never retried.
type Dispatcher struct {
	source  events.Source
	updater UpdaterClient
	logger  *slog.Logger

	idle    time.Duration
	onError time.Duration
}

// NewDispatcher wires a dispatcher with default pacing.
func NewDispatcher(source events.Source, updater UpdaterClient, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		source:  source,
		updater: updater,
		logger:  logger,
		idle:    idleSleep,
		onError: errorSleep,
	}
}

// SetIdleSleep overrides the wait after an empty poll.
func (d *Dispatcher) SetIdleSleep(dur time.Duration) {
	if dur > 0 {
		d.idle = dur
	}
}

// Run polls until the context is cancelled. It always returns
// ctx.Err().
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("event dispatcher started")
	for {
		if err := ctx.Err(); err != nil {
			d.logger.Info("event dispatcher stopped")
			return err
		}

		ev, err := d.source.Poll(ctx)
		switch {
		case err != nil:
			d.logger.Error("event poll failed", "error", err)
			if !d.sleep(ctx, d.onError) {
				continue
			}
		case ev == nil:
			if !d.sleep(ctx, d.idle) {
				continue
			}
		default:
			d.deliver(ctx, ev)
		}
	}
}

// deliver forwards one event; failures are logged and the event is
// dropped.
func (d *Dispatcher) deliver(ctx context.Context, ev *events.ProductEvent) {
	if !ev.EventType.Valid() {
		d.logger.Warn("dropping event with unknown type",
			"event_type", string(ev.EventType), "product_id", ev.ProductID)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	if err := d.updater.Update(callCtx, ev.EventType, ev.ProductID); err != nil {
		d.logger.Error("event delivery failed, dropping event",
			"event_type", string(ev.EventType), "product_id", ev.ProductID, "error", err)
		return
	}
	d.logger.Info("event delivered",
		"event_type", string(ev.EventType), "product_id", ev.ProductID)
}

// sleep waits for the duration or until the context is cancelled; it
// reports whether the full duration elapsed.
func (d *Dispatcher) sleep(ctx context.Context, dur time.Duration) bool {
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
