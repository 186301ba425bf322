package orchestration

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const sessionLoopQueueCapacity = 256

// sessionLoop runs every piece of session logic on one goroutine, in the
// order it was posted. Closures posted after Stop are dropped.
type sessionLoop struct {
	queue   chan loopItem
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once

	started atomic.Bool
}

type loopItem struct {
	name     string
	run      func()
	queuedAt time.Time
}

func newSessionLoop() *sessionLoop {
	return &sessionLoop{
		queue:   make(chan loopItem, sessionLoopQueueCapacity),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (loop *sessionLoop) CanIngest() bool {
	if loop == nil {
		return false
	}

	select {
	case <-loop.closeCh:
		return false
	default:
		return true
	}
}

func (loop *sessionLoop) Start(baseCtx context.Context) (started bool) {
	if loop == nil || !loop.CanIngest() {
		return false
	}

	loop.startOnce.Do(func() {
		started = true
		loop.started.Store(true)
		go func() {
			defer close(loop.done)

			for {
				select {
				case <-loop.closeCh:
					return
				case item := <-loop.queue:
					if !loop.CanIngest() {
						return
					}
					loop.process(baseCtx, item)
				}
			}
		}()
	})

	return started
}

func (loop *sessionLoop) Stop() {
	if loop == nil {
		return
	}

	loop.endOnce.Do(func() { close(loop.closeCh) })
}

func (loop *sessionLoop) AwaitDone() {
	if loop == nil {
		return
	}

	if loop.started.Load() {
		<-loop.done
	}
}

// Post queues run. It blocks while the queue is full and must not be
// called from the loop itself.
func (loop *sessionLoop) Post(name string, run func()) bool {
	if loop == nil || run == nil || !loop.CanIngest() {
		return false
	}

	item := loopItem{name: name, run: run, queuedAt: time.Now()}
	select {
	case <-loop.closeCh:
		return false
	case loop.queue <- item:
		return true
	}
}

// Do runs fn on the loop and waits for it. It reports false when the loop
// was stopped before fn could run.
func (loop *sessionLoop) Do(name string, fn func()) bool {
	ran := make(chan struct{})
	if !loop.Post(name, func() {
		defer close(ran)
		fn()
	}) {
		return false
	}

	select {
	case <-ran:
		return true
	case <-loop.done:
		return false
	}
}

func (loop *sessionLoop) process(baseCtx context.Context, item loopItem) {
	ctx, span := tracer.Start(baseCtx, item.name)
	defer span.End()
	span.AddEvent("taken out of queue", trace.WithAttributes(attribute.Float64("session_loop.queued_time", time.Since(item.queuedAt).Seconds())))

	run := panicSafeNamedWorker(item.name, func(context.Context) error {
		item.run()
		return nil
	})
	if err := run(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("session step failed", "step", item.name, "error", err)
	}
}

func (loop *sessionLoop) queuedCount() int {
	if loop == nil {
		return 0
	}

	return len(loop.queue)
}
