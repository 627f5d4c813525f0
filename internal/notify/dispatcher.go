// Package notify delivers best-effort webhook callbacks.
//
// Notifications are queued and sent by a fixed pool of workers after a delay
// measured from the moment they were queued. Delivery failures are logged and
// otherwise ignored; callers never learn whether a callback arrived. Closing
// the dispatcher drops every notification that has not started sending yet.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultDelay     = 3 * time.Second
	DefaultWorkers   = 4
	DefaultQueueSize = 256
	DefaultTimeout   = 5 * time.Second
)

// Notifier is what the orchestration engine depends on.
type Notifier interface {
	Notify(url string, payload any)
}

// Options controls dispatcher behaviour.
type Options struct {
	Delay     time.Duration
	Workers   int
	QueueSize int
	Timeout   time.Duration
	Client    *http.Client
	Logger    *zap.Logger
}

type job struct {
	id      string
	url     string
	payload any
	due     time.Time
}

// Dispatcher sends queued notifications on a bounded worker pool.
type Dispatcher struct {
	opts   Options
	client *http.Client
	logger *zap.Logger
	queue  chan job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the worker pool.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		opts:   opts,
		client: client,
		logger: logger.Named("notify"),
		queue:  make(chan job, opts.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Notify queues payload for delivery to url. Blank urls are ignored. The call
// never blocks: when the queue is full or the dispatcher is closed the
// notification is dropped.
func (d *Dispatcher) Notify(url string, payload any) {
	url = strings.TrimSpace(url)
	if url == "" {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Debug("dispatcher closed, dropping notification", zap.String("url", url))
		return
	}

	j := job{
		id:      uuid.NewString(),
		url:     url,
		payload: payload,
		due:     time.Now().Add(d.opts.Delay),
	}
	select {
	case d.queue <- j:
	default:
		d.logger.Warn("notification queue full, dropping", zap.String("id", j.id), zap.String("url", url))
	}
}

// Close stops accepting notifications, abandons the ones still waiting and
// waits for in-flight deliveries until ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("notify: close: %w", ctx.Err())
	}

	dropped := len(d.queue)
	if dropped > 0 {
		d.logger.Info("dropped pending notifications on shutdown", zap.Int("count", dropped))
	}
	return nil
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case j := <-d.queue:
			if !d.wait(j.due) {
				return
			}
			d.deliver(j)
		}
	}
}

// wait sleeps until due and reports false when the dispatcher shut down first.
func (d *Dispatcher) wait(due time.Time) bool {
	delay := time.Until(due)
	if delay <= 0 {
		return d.ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-d.ctx.Done():
		return false
	}
}

func (d *Dispatcher) deliver(j job) {
	log := d.logger.With(zap.String("id", j.id), zap.String("url", j.url))

	body, err := json.Marshal(j.payload)
	if err != nil {
		log.Warn("encode notification", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.opts.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.url, bytes.NewReader(body))
	if err != nil {
		log.Warn("build notification request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Notification-Id", j.id)

	resp, err := d.client.Do(req)
	if err != nil {
		log.Warn("deliver notification", zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Warn("notification rejected", zap.Int("status", resp.StatusCode))
		return
	}
	log.Debug("notification delivered", zap.Int("status", resp.StatusCode))
}
