/*
Package outbox relays ledger events to the message broker.

PURPOSE:
  Every committed transaction and transfer writes a ledger_events row in
  the same atomic unit as the movement. The Dispatcher drains those rows in
  id order, publishes them and marks them published. Delivery is
  at-least-once: a crash between publish and mark re-sends the batch, so
  consumers de-duplicate on the event reference.

DESIGN:
  - Background goroutine on a ticker, drained immediately on start
  - Batches of BatchSize rows, oldest first
  - A failed publish leaves the batch pending for the next tick

USAGE:
  d := outbox.NewDispatcher(store, outbox.NewKafkaPublisher(brokers, topic, logger), logger)
  d.Start()
  defer d.Stop()

SEE ALSO:
  - banking/store.go: EventStore
  - kafka.go: Publishers
*/
package outbox

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/bank-engine/banking"
)

type Dispatcher struct {
	Store        banking.EventStore
	Publisher    Publisher
	PollInterval time.Duration
	BatchSize    int
	Clock        func() time.Time

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewDispatcher(store banking.EventStore, publisher Publisher, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		Store:        store,
		Publisher:    publisher,
		PollInterval: time.Second,
		BatchSize:    50,
		logger:       logger.With(zap.String("component", "outbox")),
	}
}

// Start begins polling. Calling Start on a running dispatcher is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ticker != nil {
		return
	}
	d.ticker = time.NewTicker(d.PollInterval)
	d.stop = make(chan struct{})
	d.wg.Add(1)

	go d.run(d.ticker, d.stop)

	d.logger.Info("Outbox dispatcher started", zap.Duration("poll_interval", d.PollInterval))
}

// Stop waits for the in-flight batch to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ticker == nil {
		return
	}
	d.ticker.Stop()
	close(d.stop)
	d.wg.Wait()
	d.ticker = nil
	d.logger.Info("Outbox dispatcher stopped")
}

func (d *Dispatcher) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer d.wg.Done()

	d.drain(stop)
	for {
		select {
		case <-ticker.C:
			d.drain(stop)
		case <-stop:
			return
		}
	}
}

// drain publishes batches until the outbox is empty, a batch fails or the
// dispatcher is stopped.
func (d *Dispatcher) drain(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		n, err := d.DispatchOnce(context.Background())
		if err != nil {
			d.logger.Error("Failed to dispatch ledger events", zap.Error(err))
			return
		}
		if n < d.batchSize() {
			return
		}
	}
}

// DispatchOnce publishes one batch and returns how many events it marked.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	events, err := d.Store.PendingEvents(ctx, d.batchSize())
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	msgs := make([]Message, 0, len(events))
	ids := make([]int64, 0, len(events))
	for _, ev := range events {
		msgs = append(msgs, Message{
			Key:     strconv.FormatInt(int64(ev.AccountID), 10),
			Type:    string(ev.Type),
			Payload: ev.Payload,
		})
		ids = append(ids, ev.ID)
	}

	if err := d.Publisher.Publish(ctx, msgs...); err != nil {
		return 0, err
	}
	if err := d.Store.MarkEventsPublished(ctx, ids, d.now()); err != nil {
		return 0, err
	}

	d.logger.Debug("Ledger events dispatched", zap.Int("count", len(ids)))
	return len(ids), nil
}

func (d *Dispatcher) batchSize() int {
	if d.BatchSize <= 0 {
		return 50
	}
	return d.BatchSize
}

func (d *Dispatcher) now() time.Time {
	if d.Clock == nil {
		return time.Now().UTC()
	}
	return d.Clock()
}
