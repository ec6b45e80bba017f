package queue

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/maalej-ala/stage2-auth/internal/api/metrics"
	"github.com/maalej-ala/stage2-auth/internal/core/ports"
)

const (
	defaultWorkers = 2
	defaultBuffer  = 64
	defaultTimeout = 10 * time.Second
)

// Dispatcher delivers account notifications on a fixed set of workers.
// Notifications are sharded on the recipient address so that the
// activated/deactivated mails of one account go out in the order they were
// produced.
type Dispatcher struct {
	workers  []chan ports.Notification
	notifier ports.Notifier
	timeout  time.Duration
	log      zerolog.Logger
	wg       sync.WaitGroup
}

// Options tunes a Dispatcher. Zero values select the defaults.
type Options struct {
	Workers int
	Buffer  int
	Timeout time.Duration
}

// NewDispatcher creates a Dispatcher sending through notifier.
func NewDispatcher(notifier ports.Notifier, opts Options, log zerolog.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	d := &Dispatcher{
		workers:  make([]chan ports.Notification, opts.Workers),
		notifier: notifier,
		timeout:  opts.Timeout,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.Notification, opts.Buffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled;
// Wait blocks until they have returned.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands n to its worker. It never blocks: when the worker's buffer
// is full the notification is dropped and logged.
func (d *Dispatcher) Enqueue(n ports.Notification) {
	select {
	case d.workers[d.shardIndex(n.Email)] <- n:
		metrics.NotificationQueueDepth.Inc()
	default:
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "dropped").Inc()
		d.log.Error().
			Str("kind", string(n.Kind)).
			Msg("notification queue full, dropping notification")
	}
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(email string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(email)))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.Notification) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-ch:
			metrics.NotificationQueueDepth.Dec()
			d.deliver(ctx, id, n)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, id int, n ports.Notification) {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.notifier.Send(sendCtx, n); err != nil {
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "failed").Inc()
		d.log.Error().Err(err).
			Str("kind", string(n.Kind)).
			Int("worker_id", id).
			Msg("notification delivery failed")
		return
	}
	metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "sent").Inc()
}
