package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/effectivemobile/bank-cards/internal/core/domain"
	"github.com/effectivemobile/bank-cards/internal/core/ports"
	"github.com/effectivemobile/bank-cards/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	drainTimeout   = 5 * time.Second
	recordTimeout  = 3 * time.Second
)

// Dispatcher routes committed ledger events to a fixed set of workers using
// consistent hashing on the card id, so events of one card are journaled in
// commit order.
type Dispatcher struct {
	workers []chan domain.LedgerEvent
	audit   ports.AuditService
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, audit ports.AuditService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.LedgerEvent, numWorkers),
		audit:   audit,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.LedgerEvent, channelBuffer)
	}
	return d
}

var _ ports.EventPublisher = (*Dispatcher)(nil)

// Start launches all worker goroutines. Once ctx is cancelled each worker
// drains what is already queued and exits; Wait blocks until they are done.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Publish hands an event to its worker without blocking. When the worker's
// buffer is full the event is dropped and logged; the ledger row is already
// committed, only the journal entry is lost.
func (d *Dispatcher) Publish(ev domain.LedgerEvent) {
	idx := d.shardIndex(ev.CardID)
	select {
	case d.workers[idx] <- ev:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.AuditEventsTotal.WithLabelValues(string(ev.Type), "dropped").Inc()
		d.log.Warn().
			Str("event_id", ev.ID.String()).
			Str("card_id", ev.CardID.String()).
			Int("worker_id", idx).
			Msg("audit queue full, ledger event dropped")
	}
}

// shardIndex maps a card id deterministically to a worker index.
func (d *Dispatcher) shardIndex(cardID uuid.UUID) int {
	h := fnv.New32a()
	_, _ = h.Write(cardID[:])
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.LedgerEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)

	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			metrics.AuditQueueDepth.WithLabelValues(label).Set(0)
			return
		case ev := <-ch:
			metrics.AuditQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.record(ctx, id, ev)
		}
	}
}

// drain journals whatever is still buffered, bounded by drainTimeout.
func (d *Dispatcher) drain(id int, ch <-chan domain.LedgerEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case ev := <-ch:
			d.record(ctx, id, ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) record(ctx context.Context, id int, ev domain.LedgerEvent) {
	rctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()
	if err := d.audit.Record(rctx, ev); err != nil {
		d.log.Error().Err(err).
			Str("event_id", ev.ID.String()).
			Str("card_id", ev.CardID.String()).
			Int("worker_id", id).
			Msg("ledger event journaling failed")
	}
}
