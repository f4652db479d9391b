package capture

import (
	"context"
	"errors"
	"sync"

	"github.com/pitabwire/frame/workerpool"
	"github.com/pitabwire/util"

	"github.com/carelingo/carelingo/internal/inference/engine"
)

// Dispatcher keeps at most one translation in flight. A new submission or
// Cancel supersedes the previous one; a superseded result is dropped even if
// it arrives late.
type Dispatcher struct {
	base       context.Context
	translator Translator
	sink       ResultSink
	pool       workerpool.WorkerPool

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher. pool may be nil, in which case work
// runs on its own goroutine.
func NewDispatcher(ctx context.Context, translator Translator, sink ResultSink, pool workerpool.WorkerPool) *Dispatcher {
	return &Dispatcher{base: ctx, translator: translator, sink: sink, pool: pool}
}

func (d *Dispatcher) SubmitText(text string) {
	d.submit(func(ctx context.Context) (Result, error) {
		return d.translator.TranslateText(ctx, text)
	})
}

func (d *Dispatcher) SubmitAudio(audio engine.Audio) {
	d.submit(func(ctx context.Context) (Result, error) {
		return d.translator.TranslateAudio(ctx, audio)
	})
}

// Cancel aborts the in-flight translation, if any.
func (d *Dispatcher) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.supersedeLocked()
}

// Wait blocks until all submitted work has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) supersedeLocked() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.gen++
}

func (d *Dispatcher) submit(call func(context.Context) (Result, error)) {
	d.mu.Lock()
	d.supersedeLocked()
	gen := d.gen
	ctx, cancel := context.WithCancel(d.base)
	d.cancel = cancel
	d.wg.Add(1)
	d.mu.Unlock()

	task := func() {
		defer d.wg.Done()
		defer cancel()
		res, err := call(ctx)
		d.deliver(ctx, gen, res, err)
	}

	if d.pool != nil {
		err := d.pool.Submit(ctx, task)
		if err == nil {
			return
		}
		util.Log(ctx).WithError(err).Error("capture: worker pool rejected translation")
	}
	go task()
}

// deliver runs under the lock so a concurrent submit or Cancel either
// happens before (and the result is dropped) or after delivery.
func (d *Dispatcher) deliver(ctx context.Context, gen uint64, res Result, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		return
	}
	d.cancel = nil

	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		util.Log(ctx).WithError(err).Error("capture: translation failed")
		d.sink.Error(ErrTranslation, err.Error())
		return
	}
	d.sink.Result(res)
}
