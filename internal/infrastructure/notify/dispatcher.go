package notify

import (
	"context"
	"hash/fnv"

	"github.com/rs/zerolog"

	"github.com/onepwr/procurement-tracker/internal/api/metrics"
	"github.com/onepwr/procurement-tracker/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
)

// Dispatcher fans submission notices out to a fixed set of workers, sharded
// by PR number so notices for one request never reorder. Delivery is strictly
// best-effort: a failed send is logged and dropped, never retried into the
// submission path.
type Dispatcher struct {
	workers  []chan ports.SubmissionNotice
	notifier ports.Notifier
	log      zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, notifier ports.Notifier, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan ports.SubmissionNotice, numWorkers),
		notifier: notifier,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.SubmissionNotice, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Publish enqueues a notice for its shard. When the shard's buffer is full
// the notice is dropped: notification loss is preferable to blocking a
// committed submission.
func (d *Dispatcher) Publish(notice ports.SubmissionNotice) {
	select {
	case d.workers[d.shardIndex(notice.PRNumber)] <- notice:
	default:
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		d.log.Warn().Str("pr_number", notice.PRNumber).Msg("notification queue full, notice dropped")
	}
}

// shardIndex maps a PR number deterministically to a worker index.
func (d *Dispatcher) shardIndex(prNumber string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prNumber))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.SubmissionNotice) {
	for {
		select {
		case <-ctx.Done():
			return
		case notice, ok := <-ch:
			if !ok {
				return
			}
			if err := d.notifier.NotifySubmission(ctx, notice); err != nil {
				metrics.NotificationsTotal.WithLabelValues("failed").Inc()
				d.log.Error().Err(err).
					Str("pr_number", notice.PRNumber).
					Int("worker_id", id).
					Msg("notification delivery failed")
				continue
			}
			metrics.NotificationsTotal.WithLabelValues("sent").Inc()
		}
	}
}
