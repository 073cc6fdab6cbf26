package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/nhle/task-tracker/internal/store"
)

// State is the current state of the dispatcher.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateError
)

// Status holds the outcome of the most recent dispatch pass.
type Status struct {
	State     State
	LastRun   time.Time
	Delivered int
	Error     error
}

// passTimeout is the maximum time allowed for a single dispatch pass.
const passTimeout = 60 * time.Second

var noticesDelivered = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tasktracker_notices_delivered_total",
		Help: "Assignment notices handed to the mailer, by result",
	},
	[]string{"result"},
)

// Dispatcher periodically delivers undelivered notices through a Mailer.
// A notice is marked delivered only after the mailer accepts it, so a
// failed pass leaves it queued for the next one.
type Dispatcher struct {
	store     store.Store
	mailer    Mailer
	from      string
	interval  time.Duration
	batch     int
	log       *logrus.Entry
	status    Status
	triggerCh chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
	mu        sync.Mutex
	running   bool
}

// NewDispatcher creates a dispatcher that polls every interval and sends
// at most batch notices per pass.
func NewDispatcher(
	s store.Store,
	m Mailer,
	from string,
	interval time.Duration,
	batch int,
	log *logrus.Entry,
) *Dispatcher {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Dispatcher{
		store:     s,
		mailer:    m,
		from:      from,
		interval:  interval,
		batch:     batch,
		log:       log,
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the polling goroutine. It is a no-op when already running.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}
	d.running = true
	go d.loop()
}

// Stop halts the polling goroutine and waits for the current pass to end.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopCh)
	d.mu.Unlock()

	<-d.doneCh
}

// Trigger requests an immediate pass without waiting for the ticker.
func (d *Dispatcher) Trigger() {
	select {
	case d.triggerCh <- struct{}{}:
	default:
		// A pass is already pending.
	}
}

// Status returns the outcome of the most recent pass.
func (d *Dispatcher) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

func (d *Dispatcher) loop() {
	defer close(d.doneCh)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	// Do an initial pass immediately
	d.pass()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.pass()
		case <-d.triggerCh:
			d.pass()
		}
	}
}

func (d *Dispatcher) pass() {
	ctx, cancel := context.WithTimeout(context.Background(), passTimeout)
	defer cancel()

	d.setStatus(StateRunning, 0, nil)
	n, err := d.RunOnce(ctx)
	if err != nil {
		d.log.WithError(err).WithField("delivered", n).Warn("notice dispatch failed")
		d.setStatus(StateError, n, err)
		return
	}
	if n > 0 {
		d.log.WithField("delivered", n).Info("notices delivered")
	}
	d.setStatus(StateIdle, n, nil)
}

// RunOnce delivers one batch of pending notices and returns how many were
// delivered. It stops at the first delivery failure.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	notices, err := d.store.GetPendingNotices(ctx, d.batch)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, n := range notices {
		user, err := d.store.GetUserByID(ctx, n.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return delivered, err
		}

		msg, err := Compose(d.from, *user, n)
		if err != nil {
			return delivered, fmt.Errorf("composing notice %s: %w", n.ID, err)
		}

		if err := d.mailer.Deliver(ctx, msg); err != nil {
			noticesDelivered.WithLabelValues("error").Inc()
			return delivered, fmt.Errorf("delivering notice %s: %w", n.ID, err)
		}
		if err := d.store.MarkNoticeDelivered(ctx, n.ID); err != nil {
			return delivered, err
		}

		noticesDelivered.WithLabelValues("ok").Inc()
		delivered++
		d.log.WithFields(logrus.Fields{
			"notice_id": n.ID,
			"user_id":   n.UserID,
			"task_id":   n.TaskID,
		}).Debug("notice delivered")
	}

	return delivered, nil
}

func (d *Dispatcher) setStatus(state State, delivered int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.status.State = state
	d.status.Error = err
	if state != StateRunning {
		d.status.Delivered = delivered
		d.status.LastRun = time.Now()
	}
}
