package preview

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// Rebuild triggers, used as metric labels.
const (
	TriggerWatch    = "watch"
	TriggerSchedule = "schedule"
)

// DefaultDebounce is the quiet period after the last filesystem event before a rebuild starts.
const DefaultDebounce = 300 * time.Millisecond

// Builder runs one build.
type Builder interface {
	Build(ctx context.Context) (*site.Report, error)
}

// Rebuilder runs builds one at a time. Requests arriving while a build runs
// collapse into a single pending build.
type Rebuilder struct {
	builder  Builder
	recorder metrics.Recorder
	onDone   func(version string)
	requests chan string

	mu    sync.Mutex
	timer *time.Timer
	delay time.Duration
}

// NewRebuilder returns a Rebuilder. onDone receives a version string after each
// build; failed builds produce versions prefixed with "error:".
func NewRebuilder(b Builder, rec metrics.Recorder, delay time.Duration, onDone func(string)) *Rebuilder {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	if onDone == nil {
		onDone = func(string) {}
	}
	return &Rebuilder{builder: b, recorder: rec, onDone: onDone, requests: make(chan string, 1), delay: delay}
}

// Request enqueues a rebuild unless one is already pending.
func (r *Rebuilder) Request(trigger string) {
	select {
	case r.requests <- trigger:
	default:
	}
}

// Debounced requests a watch rebuild once no call has happened for the debounce delay.
func (r *Rebuilder) Debounced() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.delay, func() { r.Request(TriggerWatch) })
}

// Run executes requested builds until ctx is done.
func (r *Rebuilder) Run(ctx context.Context) error {
	defer func() {
		r.mu.Lock()
		if r.timer != nil {
			r.timer.Stop()
		}
		r.mu.Unlock()
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case trigger := <-r.requests:
			r.rebuild(ctx, trigger)
		}
	}
}

func (r *Rebuilder) rebuild(ctx context.Context, trigger string) {
	r.recorder.IncRebuild(trigger)
	slog.Info("Rebuilding site", slog.String("trigger", trigger))
	report, err := r.builder.Build(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("Rebuild failed", logfields.Error(err))
		r.onDone("error:" + strconv.FormatInt(time.Now().UnixNano(), 10))
		return
	}
	r.onDone(strconv.FormatInt(report.StartedAt.UnixNano(), 10))
}
